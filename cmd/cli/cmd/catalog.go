// Package cmd - catalog command
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dbtier/internal/config"
)

// catalogCmd prints the effective tier catalog in order
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the tier catalog the run would use",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := config.Get().BuildCatalog()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIER\tCAPACITY\tPRICE/MO\tMAX STORAGE GB")
		for _, t := range cat.Tiers() {
			fmt.Fprintf(tw, "%s\t%d\t%s\t%g\n",
				t.Name, t.CapacityUnits, t.MonthlyPrice.StringFixed(2), t.MaxStorageGB)
		}
		return tw.Flush()
	},
}
