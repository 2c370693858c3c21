package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	consumerMessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roorq_kafka_consumer_messages_received_total",
		Help: "Kafka messages fetched from the broker.",
	}, []string{"topic", "consumer_group"})

	consumerMessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roorq_kafka_consumer_messages_processed_total",
		Help: "Kafka messages handled successfully.",
	}, []string{"topic", "consumer_group"})

	consumerMessagesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roorq_kafka_consumer_messages_failed_total",
		Help: "Kafka messages that exhausted handler retries or could not be decoded.",
	}, []string{"topic", "consumer_group"})

	consumerMessagesDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roorq_kafka_consumer_messages_duplicate_total",
		Help: "Kafka messages skipped by the idempotency guard.",
	}, []string{"event_type"})

	consumerDLQPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roorq_kafka_consumer_dlq_published_total",
		Help: "Kafka messages forwarded to a dead-letter topic.",
	}, []string{"topic", "consumer_group"})

	consumerProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roorq_kafka_consumer_processing_duration_seconds",
		Help:    "Handler duration including retries.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic", "consumer_group"})

	producerMessagesPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roorq_kafka_producer_messages_published_total",
		Help: "Kafka messages published.",
	}, []string{"topic"})

	producerPublishErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roorq_kafka_producer_publish_errors_total",
		Help: "Kafka publish failures.",
	}, []string{"topic"})

	producerPublishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roorq_kafka_producer_publish_duration_seconds",
		Help:    "Duration of Kafka publish calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})
)
