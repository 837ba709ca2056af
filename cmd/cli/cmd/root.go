// Package cmd provides the CLI commands for dbtier.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dbtier/internal/config"
	"dbtier/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dbtier",
	Short: "Reconcile database capacity tiers against utilization",
	Long: `dbtier classifies database utilization telemetry against configurable
thresholds, maps each database to a target capacity tier from an ordered
catalog, respects a protected set, and computes the monthly cost delta.

Examples:
  dbtier scan --inventory fleet.json
  dbtier plan --inventory fleet.json --format csv
  dbtier apply --inventory fleet.json --write fleet-after.json`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (json, yaml or hcl)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	// Add subcommands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		config.Set(cfg)
	}

	// Initialize logging
	cfg := config.Get()
	logCfg := logging.DefaultConfig()
	if cfg.Logging != nil {
		logCfg = *cfg.Logging
	}
	if verbose {
		logCfg.Level = "debug"
	}
	if err := logging.Initialize(logCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("dbtier version 0.1.0")
	},
}
