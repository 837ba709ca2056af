// Package main is the entry point for the dbtier CLI.
package main

import (
	"os"

	"dbtier/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
