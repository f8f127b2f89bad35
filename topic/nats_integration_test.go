package topic_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/gauss-project/gauss/record"
	"github.com/gauss-project/gauss/topic"
)

func startNATSContainer(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	req := testcontainers.ContainerRequest{
		Image:        "nats:latest",
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForListeningPort("4222/tcp"),
		Cmd:          []string{"-js"},
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "4222")
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)
	return c, fmt.Sprintf("nats://%s:%s", host, port.Port())
}

func TestNATS_SaveFanOutAndLatest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed integration test in short mode")
	}
	ctx := context.Background()

	container, url := startNATSContainer(ctx, t)
	defer func() { _ = container.Terminate(ctx) }()

	conn, err := nats.Connect(url)
	require.NoError(t, err)
	defer conn.Close()

	js, err := jetstream.New(conn)
	require.NoError(t, err)

	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{Bucket: "topic-latest"})
	require.NoError(t, err)

	storage := topic.NewNATS(conn, kv, "ticks.btc", "ticks.btc.latest")
	require.NoError(t, storage.Init(topic.Context{}))

	snapshots := make(chan []record.TopicRecord, 4)
	_, err = storage.Read(topic.ReadSubscribe, topic.ReadParams{Snapshot: snapshots})
	require.NoError(t, err)

	rec := record.New(1, []byte(`{"price":100}`))
	require.NoError(t, storage.Save(rec))

	select {
	case got := <-snapshots:
		require.Len(t, got, 1)
		require.Equal(t, rec.Data, got[0].Data)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fan-out delivery")
	}

	result, err := storage.Read(topic.ReadLatest, topic.ReadParams{})
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Equal(t, rec.Data, result.Records[0].Data)
}
