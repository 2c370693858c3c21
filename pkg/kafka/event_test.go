package kafka

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderPlaced struct {
	OrderID string `json:"order_id"`
	Total   int64  `json:"total"`
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "roorq.order.placed", Topic("order", "placed"))
	assert.Equal(t, "roorq.dlq.roorq.order.placed", DLQTopic(Topic("order", "placed")))
}

func TestNewEvent_Fields(t *testing.T) {
	event, err := NewEvent("order.placed", "ord-1", "order", "roorq-storefront", orderPlaced{OrderID: "ord-1", Total: 49900})
	require.NoError(t, err)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, 1, event.Version)
	assert.Equal(t, "order", event.AggregateType)
	assert.WithinDuration(t, time.Now().UTC(), event.Timestamp, 2*time.Second)

	var data orderPlaced
	require.NoError(t, event.UnmarshalData(&data))
	assert.Equal(t, int64(49900), data.Total)
}

func TestNewEvent_InvalidData(t *testing.T) {
	_, err := NewEvent("x", "a", "b", "c", make(chan int))
	assert.Error(t, err)
}

func TestEvent_RoundTrip(t *testing.T) {
	original, err := NewEvent("vendor.status_changed", "v-1", "vendor", "roorq-storefront", map[string]string{"status": "approved"})
	require.NoError(t, err)
	original.WithCorrelationID("corr-1").WithActor("admin-1").WithMetadata("reason", "kyc ok")

	raw, err := original.Marshal()
	require.NoError(t, err)

	restored, err := UnmarshalEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, original.EventID, restored.EventID)
	assert.Equal(t, "corr-1", restored.CorrelationID)
	assert.Equal(t, "admin-1", restored.ActorID)
	assert.Equal(t, "kyc ok", restored.Metadata["reason"])
}

func TestUnmarshalEvent_Rejects(t *testing.T) {
	for _, raw := range []string{"", "{", `{"event_id":"1"}`} {
		_, err := UnmarshalEvent([]byte(raw))
		assert.Error(t, err, "input %q", raw)
	}
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, []string{"localhost:9092"}, testLogger())

	event, err := NewEvent("order.placed", "ord-7", "order", "roorq-storefront", orderPlaced{OrderID: "ord-7"})
	require.NoError(t, err)
	event.WithCorrelationID("corr-7")

	topic := "roorq.test.publish"
	require.NoError(t, p.Publish(context.Background(), topic, event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, topic, msg.Topic)
	assert.Equal(t, "ord-7", string(msg.Key))

	carrier := NewHeaderCarrier(&msg.Headers)
	assert.Equal(t, "order.placed", carrier.Get("event_type"))
	assert.Equal(t, "corr-7", carrier.Get("correlation_id"))
	assert.Equal(t, 1.0, testutil.ToFloat64(producerMessagesPublished.WithLabelValues(topic)))
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errBoom}
	p := newProducer(w, nil, testLogger())

	event, err := NewEvent("order.placed", "ord-8", "order", "roorq-storefront", nil)
	require.NoError(t, err)

	topic := "roorq.test.publish_error"
	err = p.Publish(context.Background(), topic, event)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1.0, testutil.ToFloat64(producerPublishErrors.WithLabelValues(topic)))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}

func TestDefaultProducerConfig(t *testing.T) {
	cfg := DefaultProducerConfig([]string{"a:9092"})
	assert.Equal(t, []string{"a:9092"}, cfg.Brokers)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeout)
}
