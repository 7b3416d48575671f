package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/wind-speed-etl/internal/config"
	"github.com/couchcryptid/wind-speed-etl/internal/domain"
)

// Kinds carried in the "kind" header of every message.
const (
	KindDaily   = "daily"
	KindMonthly = "monthly"
	KindExtreme = "extreme"
)

// messageWriter is the subset of *kafkago.Writer the exporter needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Writer publishes one message per summary row to a Kafka topic.
// It implements pipeline.Exporter.
type Writer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Writer{writer: w, logger: logger}
}

func (w *Writer) Name() string { return "kafka" }

// Export serializes every row of the report and publishes them in a single
// WriteMessages call. Keys are stable per row so compacted topics keep the
// latest value for each (kind, airport, period).
func (w *Writer) Export(ctx context.Context, report domain.Report) error {
	msgs, err := reportMessages(report)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d summaries: %w", len(msgs), err)
	}
	w.logger.Info("published summaries", "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

func reportMessages(report domain.Report) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, 0, len(report.Daily)+len(report.Monthly)+len(report.Extremes))
	generatedAt := report.GeneratedAt.UTC().Format(time.RFC3339)

	for _, d := range report.Daily {
		msg, err := serializeToMessage(KindDaily, d.Airport+"|"+d.Date.String(), d, generatedAt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	for _, m := range report.Monthly {
		msg, err := serializeToMessage(KindMonthly, m.Airport+"|"+strconv.Itoa(int(m.Month)), m, generatedAt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	for _, e := range report.Extremes {
		msg, err := serializeToMessage(KindExtreme, e.Airport+"|"+strconv.Itoa(e.Rank), e, generatedAt)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// serializeToMessage marshals one summary row into a Kafka message.
func serializeToMessage(kind, key string, row any, generatedAt string) (kafkago.Message, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s summary: %w", kind, err)
	}
	return kafkago.Message{
		Key:   []byte(kind + "|" + key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(kind)},
			{Key: "generated_at", Value: []byte(generatedAt)},
		},
	}, nil
}
