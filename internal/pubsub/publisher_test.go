package pubsub

import (
	"context"
	"os"
	"testing"
	"time"

	"captia/internal/config"

	ps "cloud.google.com/go/pubsub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisherInvalidProject(t *testing.T) {
	cfg := &config.Config{GCPProjectID: ""}
	_, err := NewPublisher(context.Background(), cfg)
	assert.Error(t, err, "expected error when project ID is empty")
}

func TestPublishWithEmulator(t *testing.T) {
	if os.Getenv("PUBSUB_EMULATOR_HOST") == "" {
		t.Skip("PUBSUB_EMULATOR_HOST is not set, skip emulator integration test")
	}

	ctx := context.Background()
	pub, err := NewPublisher(ctx, &config.Config{GCPProjectID: "test-project"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	topicName := "usage-events-" + time.Now().Format("150405.000000")
	topic, err := pub.client.CreateTopic(ctx, topicName)
	require.NoError(t, err)
	sub, err := pub.client.CreateSubscription(ctx, topicName+"-sub", ps.SubscriptionConfig{Topic: topic})
	require.NoError(t, err)

	msgID, err := pub.Publish(ctx, topicName, []byte(`{"userId":"u1"}`), map[string]string{"event": "summary.generated"})
	require.NoError(t, err)
	require.NotEmpty(t, msgID)

	recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	received := make(chan *ps.Message, 1)
	go func() {
		_ = sub.Receive(recvCtx, func(ctx context.Context, m *ps.Message) {
			m.Ack()
			select {
			case received <- m:
			default:
			}
			cancel()
		})
	}()

	select {
	case m := <-received:
		assert.Equal(t, `{"userId":"u1"}`, string(m.Data))
		assert.Equal(t, "summary.generated", m.Attributes["event"])
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for message from emulator subscription")
	}
}
