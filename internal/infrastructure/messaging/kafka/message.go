package kafka

import (
	"context"
	"time"
)

// ProducerMessage is an outbound message before it is handed to the writer.
type ProducerMessage struct {
	Topic     string
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
	Partition int
}

// Message is an inbound message delivered to subscribed handlers.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time
}

// MessageHandler processes a consumed message. Returning an error triggers
// the consumer's retry and dead-letter behavior.
type MessageHandler func(ctx context.Context, msg *Message) error

// BatchPublishResult reports per-message outcomes of a batch publish.
type BatchPublishResult struct {
	Succeeded int
	Failed    int
	Errors    []BatchItemError
}

// BatchItemError identifies a failed message within a batch. Index is -1
// when the whole batch failed with a single error.
type BatchItemError struct {
	Index int
	Topic string
	Error error
}

// TopicConfig describes a topic to be created by the TopicManager.
type TopicConfig struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	RetentionMs       int64
	CleanupPolicy     string
	MaxMessageBytes   int64
	Configs           map[string]string
}
