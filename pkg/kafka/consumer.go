package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Handler processes a decoded event.
type Handler func(ctx context.Context, event *Event) error

// ConsumerConfig holds Kafka consumer configuration.
type ConsumerConfig struct {
	Brokers      []string
	GroupID      string
	Topics       []string
	MinBytes     int
	MaxBytes     int
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultConsumerConfig returns consumer defaults for group over topics.
func DefaultConsumerConfig(brokers []string, group string, topics ...string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:      brokers,
		GroupID:      group,
		Topics:       topics,
		MinBytes:     1,
		MaxBytes:     1 << 20,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads events for a consumer group and hands them to a Handler.
// Messages are committed after handling; ones that keep failing go to the
// dead-letter publisher when one is configured.
type Consumer struct {
	reader     messageReader
	handler    Handler
	dlq        DeadLetterPublisher
	logger     *slog.Logger
	group      string
	topics     []string
	maxRetries int
	backoff    time.Duration
	closeOnce  sync.Once
}

// NewConsumer creates a consumer subscribed to cfg.Topics.
func NewConsumer(cfg ConsumerConfig, handler Handler, dlq DeadLetterPublisher, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: cfg.Topics,
		MinBytes:    cfg.MinBytes,
		MaxBytes:    cfg.MaxBytes,
	})
	return newConsumer(r, cfg, handler, dlq, logger)
}

func newConsumer(r messageReader, cfg ConsumerConfig, handler Handler, dlq DeadLetterPublisher, logger *slog.Logger) *Consumer {
	retries := cfg.MaxRetries
	if retries < 1 {
		retries = 1
	}
	return &Consumer{
		reader:     r,
		handler:    handler,
		dlq:        dlq,
		logger:     logger,
		group:      cfg.GroupID,
		topics:     cfg.Topics,
		maxRetries: retries,
		backoff:    cfg.RetryBackoff,
	}
}

// Start consumes until ctx is canceled.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started",
		slog.String("topics", strings.Join(c.topics, ",")),
		slog.String("group", c.group),
	)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				c.logger.Info("consumer stopping", slog.String("group", c.group))
				return c.Close()
			}
			c.logger.Error("failed to fetch message", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return c.Close()
			case <-time.After(c.backoff):
			}
			continue
		}

		if err := c.process(ctx, msg); err != nil && ctx.Err() != nil {
			return c.Close()
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				slog.String("topic", msg.Topic),
				slog.Int64("offset", msg.Offset),
				slog.String("error", err.Error()),
			)
		}
	}
}

// process handles one message. It returns an error only when ctx ended
// mid-retry, in which case the message must not be committed.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) error {
	consumerMessagesReceived.WithLabelValues(msg.Topic, c.group).Inc()
	ctx = extractTrace(ctx, &msg)

	event, err := UnmarshalEvent(msg.Value)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to unmarshal event",
			slog.String("topic", msg.Topic),
			slog.String("error", err.Error()),
		)
		consumerMessagesFailed.WithLabelValues(msg.Topic, c.group).Inc()
		c.deadLetter(ctx, msg, err)
		return nil
	}

	start := time.Now()
	defer func() {
		consumerProcessingDuration.WithLabelValues(msg.Topic, c.group).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if lastErr = c.handler(ctx, event); lastErr == nil {
			consumerMessagesProcessed.WithLabelValues(msg.Topic, c.group).Inc()
			return nil
		}

		c.logger.WarnContext(ctx, "handler failed",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", c.maxRetries),
			slog.String("error", lastErr.Error()),
		)

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * c.backoff):
			}
		}
	}

	c.logger.ErrorContext(ctx, "handler failed after all retries",
		slog.String("event_type", event.EventType),
		slog.String("event_id", event.EventID),
		slog.String("topic", msg.Topic),
		slog.Int64("offset", msg.Offset),
	)
	consumerMessagesFailed.WithLabelValues(msg.Topic, c.group).Inc()
	c.deadLetter(ctx, msg, lastErr)
	return nil
}

func (c *Consumer) deadLetter(ctx context.Context, msg kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}
	if err := c.dlq.Publish(ctx, msg, cause, c.group); err != nil {
		c.logger.ErrorContext(ctx, "dead-letter publish failed", slog.String("error", fmt.Sprint(err)))
	}
}

// Close closes the reader. It is safe to call more than once.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.reader.Close()
	})
	return err
}
