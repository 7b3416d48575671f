//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/couchcryptid/wind-speed-etl/internal/adapter/weathercsv"
	"github.com/couchcryptid/wind-speed-etl/internal/mockdata"
	"github.com/couchcryptid/wind-speed-etl/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its bootstrap address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	c, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("wind-etl-test"))
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err, "start kafka container")

	brokers, err := c.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// startPostgres runs a disposable database and returns its DSN.
func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "wind",
				"POSTGRES_PASSWORD": "wind",
				"POSTGRES_DB":       "wind",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, c)
	require.NoError(t, err, "start postgres container")

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://wind:wind@%s:%s/wind?sslmode=disable", host, port.Port())
}

// mockInput writes 40 days of EWR and LGA observations starting 2013-01-01.
func mockInput(t *testing.T) string {
	t.Helper()
	opts := mockdata.DefaultOptions()
	opts.Airports = []string{"EWR", "LGA"}
	opts.Days = 40

	path := filepath.Join(t.TempDir(), "weather.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = mockdata.Generate(f, opts)
	require.NoError(t, err)
	return path
}

func openCSV(path string) pipeline.OpenFunc {
	return func() (pipeline.Source, error) {
		src, err := weathercsv.Open(path, nil, discardLogger())
		if err != nil {
			return nil, err
		}
		return src, nil
	}
}
