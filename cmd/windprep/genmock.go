package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/couchcryptid/wind-speed-etl/internal/mockdata"
)

func newGenmockCmd() *cobra.Command {
	opts := mockdata.DefaultOptions()
	var (
		out   string
		start string
	)

	cmd := &cobra.Command{
		Use:   "genmock",
		Short: "Write a deterministic synthetic weather file",
		Long:  "Generates hourly rows in the nycflights13 weather layout. Paths ending in .gz are gzip-compressed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := time.Parse(time.DateOnly, start)
			if err != nil {
				return fmt.Errorf("invalid --start %q: %w", start, err)
			}
			opts.Start = t

			n, err := writeMock(out, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d rows for %s to %s\n", n, strings.Join(opts.Airports, ","), out)
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&out, "out", "o", "testdata/weather.csv", "output path")
	fs.StringVar(&start, "start", opts.Start.Format(time.DateOnly), "first day (YYYY-MM-DD)")
	fs.IntVar(&opts.Days, "days", opts.Days, "number of days")
	fs.StringSliceVar(&opts.Airports, "airport", opts.Airports, "airport codes (repeatable)")
	fs.Uint64Var(&opts.Seed, "seed", opts.Seed, "random seed")
	fs.Float64Var(&opts.MissingRate, "missing-rate", opts.MissingRate, "fraction of rows with wind_speed NA")
	return cmd
}

func writeMock(path string, opts mockdata.Options) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var w io.Writer = f
	var zw *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		zw = gzip.NewWriter(f)
		w = zw
	}
	bw := bufio.NewWriter(w)

	n, err := mockdata.Generate(bw, opts)
	if err != nil {
		return n, fmt.Errorf("generate %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			return n, err
		}
	}
	return n, f.Close()
}
