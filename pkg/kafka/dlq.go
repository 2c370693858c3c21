package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// DLQTopicPrefix prefixes dead-letter topics.
const DLQTopicPrefix = TopicPrefix + ".dlq"

// DLQTopic returns the dead-letter topic for originalTopic.
func DLQTopic(originalTopic string) string {
	return DLQTopicPrefix + "." + originalTopic
}

// DeadLetterPublisher receives messages a consumer gave up on.
type DeadLetterPublisher interface {
	Publish(ctx context.Context, original kafka.Message, lastErr error, consumerGroup string) error
}

// DLQProducer publishes failed messages to their dead-letter topic.
type DLQProducer struct {
	writer messageWriter
	logger *slog.Logger
}

// NewDLQProducer creates a DLQ producer writing one message per batch.
func NewDLQProducer(brokers []string, logger *slog.Logger) *DLQProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              1,
		BatchTimeout:           100 * time.Millisecond,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &DLQProducer{writer: w, logger: logger}
}

// deadLetter copies original onto its DLQ topic with provenance headers.
func deadLetter(original kafka.Message, lastErr error, consumerGroup string) kafka.Message {
	headers := make([]kafka.Header, 0, len(original.Headers)+5)
	headers = append(headers, original.Headers...)
	headers = append(headers,
		kafka.Header{Key: "dlq.original_topic", Value: []byte(original.Topic)},
		kafka.Header{Key: "dlq.original_partition", Value: []byte(strconv.Itoa(original.Partition))},
		kafka.Header{Key: "dlq.original_offset", Value: []byte(strconv.FormatInt(original.Offset, 10))},
		kafka.Header{Key: "dlq.consumer_group", Value: []byte(consumerGroup)},
	)
	if lastErr != nil {
		headers = append(headers, kafka.Header{Key: "dlq.error", Value: []byte(lastErr.Error())})
	}

	return kafka.Message{
		Topic:   DLQTopic(original.Topic),
		Key:     original.Key,
		Value:   original.Value,
		Headers: headers,
	}
}

// Publish writes original to its dead-letter topic.
func (d *DLQProducer) Publish(ctx context.Context, original kafka.Message, lastErr error, consumerGroup string) error {
	msg := deadLetter(original, lastErr, consumerGroup)

	if err := d.writer.WriteMessages(ctx, msg); err != nil {
		d.logger.ErrorContext(ctx, "failed to publish message to DLQ",
			slog.String("dlq_topic", msg.Topic),
			slog.String("original_topic", original.Topic),
			slog.Int64("offset", original.Offset),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("publish to DLQ %s: %w", msg.Topic, err)
	}

	consumerDLQPublished.WithLabelValues(original.Topic, consumerGroup).Inc()
	d.logger.WarnContext(ctx, "message sent to DLQ",
		slog.String("dlq_topic", msg.Topic),
		slog.String("original_topic", original.Topic),
		slog.Int("partition", original.Partition),
		slog.Int64("offset", original.Offset),
		slog.String("consumer_group", consumerGroup),
	)
	return nil
}

// Close closes the DLQ writer.
func (d *DLQProducer) Close() error {
	return d.writer.Close()
}
