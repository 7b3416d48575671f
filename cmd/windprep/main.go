// Command windprep turns the hourly NYC airport weather table into daily and
// monthly mean wind speeds and a ranking of the windiest days.
//
// Usage:
//
//	windprep run --input nycflights13_weather.csv --output wind_speeds.csv
//	windprep genmock --out testdata/weather.csv.gz
//	windprep validate wind_speeds.csv
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "windprep",
		Short:         "Prepare NYC airport wind-speed tables",
		Long:          "Reads hourly airport weather observations and writes daily means, monthly means, and the windiest days in m/s.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newGenmockCmd(), newValidateCmd())
	return root
}
