// Package cmd - scan, plan and apply commands
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dbtier/adapters/static"
	"dbtier/core/engine"
	"dbtier/core/output"
	"dbtier/core/reconcile"
	"dbtier/core/types"
	"dbtier/internal/config"
)

var (
	inventoryPath string
	outputFormat  string
	writePath     string
)

// scanCmd produces observations and plans without touching anything
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Observe the fleet and print plans, mutating nothing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(cmd.Context(), types.ModeScan)
	},
}

// planCmd simulates application, recording a dry-run result per plan
var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Simulate tier changes and print would-be results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(cmd.Context(), types.ModeDryRun)
	},
}

// applyCmd performs the tier changes
var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply tier changes with per-resource failure isolation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(cmd.Context(), types.ModeApply)
	},
}

func init() {
	for _, c := range []*cobra.Command{scanCmd, planCmd, applyCmd} {
		c.Flags().StringVarP(&inventoryPath, "inventory", "i", "", "inventory snapshot file (json or yaml)")
		c.Flags().StringVarP(&outputFormat, "format", "f", "cli", "output format (cli, json, csv)")
	}
	applyCmd.Flags().StringVarP(&writePath, "write", "w", "", "write the post-apply inventory to this file")
}

func runMode(ctx context.Context, mode types.RunMode) error {
	cfg := config.Get()

	path := inventoryPath
	if path == "" {
		path = cfg.Inventory
	}
	if path == "" {
		return fmt.Errorf("no inventory: pass --inventory or set it in the config file")
	}

	source, err := static.Load(path)
	if err != nil {
		return err
	}

	cat, err := cfg.BuildCatalog()
	if err != nil {
		return err
	}
	thresholds, err := cfg.BuildThresholds()
	if err != nil {
		return err
	}
	protected, err := cfg.BuildProtected()
	if err != nil {
		return err
	}

	opts := cfg.BuildEngineOptions()
	opts.Mode = mode

	var mutator reconcile.Mutator
	if mode == types.ModeApply {
		mutator = source
	}

	eng, err := engine.New(source, source, mutator, cat, thresholds, protected, opts)
	if err != nil {
		return err
	}

	// Ctrl-C stops admission of new mutations; in-flight work finishes.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := eng.Run(ctx)
	if err != nil {
		return err
	}

	formatter, err := output.ForFormat(output.Format(outputFormat))
	if err != nil {
		return err
	}
	if err := formatter.Render(os.Stdout, result); err != nil {
		return err
	}

	if mode == types.ModeApply && writePath != "" {
		if err := source.Save(writePath); err != nil {
			return fmt.Errorf("apply succeeded but writing inventory failed: %w", err)
		}
	}
	return nil
}
