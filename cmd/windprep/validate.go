package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/wind-speed-etl/internal/adapter/tableau"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a combined output CSV for integrity",
		Long:  "Verifies speeds are non-negative, dates and months agree, and ranks are contiguous with non-increasing speeds.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %q: %w", args[0], err)
			}
			defer f.Close()

			stats, err := tableau.ValidateCombined(f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (daily=%d monthly=%d extremes=%d airports=%s)\n",
				args[0], stats.Daily, stats.Monthly, stats.Extremes, strings.Join(stats.Airports, ","))
			return nil
		},
	}
}
