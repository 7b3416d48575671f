package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/wind-speed-etl/internal/adapter/excel"
	kafkaadapter "github.com/couchcryptid/wind-speed-etl/internal/adapter/kafka"
	"github.com/couchcryptid/wind-speed-etl/internal/adapter/postgres"
	"github.com/couchcryptid/wind-speed-etl/internal/adapter/tableau"
	"github.com/couchcryptid/wind-speed-etl/internal/adapter/weathercsv"
	"github.com/couchcryptid/wind-speed-etl/internal/config"
	"github.com/couchcryptid/wind-speed-etl/internal/observability"
	"github.com/couchcryptid/wind-speed-etl/internal/pipeline"
)

type runFlags struct {
	input      string
	output     string
	tableauDir string
	xlsx       string
	airports   []string
	extremes   []string
	topN       int
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the wind-speed pipeline once",
		Long:  "Flags override the matching WIND_* environment variables.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&f.input, "input", "i", "", "hourly weather CSV, optionally gzip-compressed")
	fs.StringVarP(&f.output, "output", "o", "", "combined output CSV")
	fs.StringVar(&f.tableauDir, "tableau-dir", "", "directory for the three Tableau CSV files")
	fs.StringVar(&f.xlsx, "xlsx", "", "Excel workbook path")
	fs.StringSliceVar(&f.airports, "airport", nil, "airport codes to keep (repeatable)")
	fs.StringSliceVar(&f.extremes, "extremes-airport", nil, "airports whose windiest days are ranked (repeatable)")
	fs.IntVar(&f.topN, "top-n", 0, "number of windiest days to rank")
	return cmd
}

// apply copies flags the user set onto cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	if fs.Changed("input") {
		cfg.InputPath = f.input
	}
	if fs.Changed("output") {
		cfg.OutputPath = f.output
	}
	if fs.Changed("tableau-dir") {
		cfg.TableauDir = f.tableauDir
	}
	if fs.Changed("xlsx") {
		cfg.XLSXPath = f.xlsx
	}
	if fs.Changed("airport") {
		cfg.Airports = config.ParseList(strings.Join(f.airports, ","))
	}
	if fs.Changed("extremes-airport") {
		cfg.ExtremesAirports = config.ParseList(strings.Join(f.extremes, ","))
	}
	if fs.Changed("top-n") {
		cfg.TopN = f.topN
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	exporters, closeAll, err := buildExporters(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeAll()

	open := func() (pipeline.Source, error) {
		src, err := weathercsv.Open(cfg.InputPath, cfg.Airports, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	}

	p := pipeline.New(open, exporters, logger, metrics, pipeline.Options{
		ExtremesAirports: cfg.ExtremesAirports,
		TopN:             cfg.TopN,
		SinkTimeout:      cfg.SinkTimeout,
	})
	_, runErr := p.Run(ctx)

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.Error("metrics textfile", "path", cfg.MetricsTextfile, "error", err)
		}
	}
	if runErr != nil {
		logger.Error("pipeline failed", "error", runErr)
		return runErr
	}
	return nil
}

// buildExporters returns the exporters enabled by cfg, the combined CSV first.
// The returned func closes sinks that hold connections.
func buildExporters(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]pipeline.Exporter, func(), error) {
	exporters := []pipeline.Exporter{tableau.NewCSVExporter(cfg.OutputPath)}
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Error("close sink", "error", err)
			}
		}
	}

	if cfg.TableauDir != "" {
		exporters = append(exporters, tableau.NewDirExporter(cfg.TableauDir))
	}
	if cfg.XLSXPath != "" {
		exporters = append(exporters, excel.NewExporter(cfg.XLSXPath))
	}
	if cfg.KafkaEnabled() {
		w := kafkaadapter.NewWriter(cfg, logger)
		exporters = append(exporters, w)
		closers = append(closers, w.Close)
		logger.Info("kafka sink enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaSinkTopic)
	}
	if cfg.PostgresEnabled() {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.SinkTimeout)
		w, err := postgres.NewWriter(connectCtx, cfg.PostgresDSN, logger)
		cancel()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		exporters = append(exporters, w)
		closers = append(closers, w.Close)
		logger.Info("postgres sink enabled")
	}
	return exporters, closeAll, nil
}
