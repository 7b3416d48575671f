package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all job settings, populated from environment variables.
// Command-line flags override individual fields after Load.
type Config struct {
	InputPath  string
	OutputPath string

	// Optional exports; empty disables them.
	TableauDir string
	XLSXPath   string

	Airports         []string
	ExtremesAirports []string
	TopN             int

	LogLevel        string
	LogFormat       string
	MetricsTextfile string

	// Kafka sink, enabled when brokers are set.
	KafkaBrokers   []string
	KafkaSinkTopic string

	// Postgres sink, enabled when a DSN is set.
	PostgresDSN string

	SinkTimeout time.Duration
}

// Load reads an optional .env file, then environment variables, applying
// defaults where unset.
func Load() (*Config, error) {
	// A missing .env is normal; real environment variables take precedence.
	_ = godotenv.Load()

	topN, err := parsePositiveInt("WIND_TOP_N", 20)
	if err != nil {
		return nil, err
	}

	sinkTimeout, err := parseDuration("SINK_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		InputPath:        envOrDefault("WIND_INPUT_PATH", "nycflights13_weather.csv"),
		OutputPath:       envOrDefault("WIND_OUTPUT_PATH", "wind_speeds.csv"),
		TableauDir:       os.Getenv("WIND_TABLEAU_DIR"),
		XLSXPath:         os.Getenv("WIND_XLSX_PATH"),
		Airports:         ParseList(envOrDefault("WIND_AIRPORTS", "EWR,JFK,LGA")),
		ExtremesAirports: ParseList(envOrDefault("WIND_EXTREMES_AIRPORTS", "LGA")),
		TopN:             topN,
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		MetricsTextfile:  os.Getenv("METRICS_TEXTFILE"),
		KafkaBrokers:     ParseList(os.Getenv("KAFKA_BROKERS")),
		KafkaSinkTopic:   envOrDefault("KAFKA_SINK_TOPIC", "wind-speed-summaries"),
		PostgresDSN:      os.Getenv("POSTGRES_DSN"),
		SinkTimeout:      sinkTimeout,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that flags may have broken after Load.
func (c *Config) Validate() error {
	if c.InputPath == "" {
		return errors.New("WIND_INPUT_PATH is required")
	}
	if c.OutputPath == "" {
		return errors.New("WIND_OUTPUT_PATH is required")
	}
	if len(c.Airports) == 0 {
		return errors.New("WIND_AIRPORTS must list at least one airport")
	}
	if c.TopN <= 0 {
		return errors.New("WIND_TOP_N must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// KafkaEnabled reports whether summaries should be published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// PostgresEnabled reports whether summaries should be written to Postgres.
func (c *Config) PostgresEnabled() bool { return c.PostgresDSN != "" }

// ParseList splits a comma-separated value and drops blank entries.
func ParseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, s)
	}
	return n, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", key, s)
	}
	return d, nil
}
