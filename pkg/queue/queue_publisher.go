package queue

import "context"

// Msg is a single queue message. Key selects the partition on backends
// that partition by key, which keeps per-application alert ordering.
type Msg struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// QueuePublisher publishes messages to a durable queue.
type QueuePublisher interface {
	// Publish sends one message. Implementations may block until the
	// backend confirms delivery.
	Publish(ctx context.Context, message Msg) error

	// Close flushes in-flight messages and releases resources. It must be
	// called exactly once; canceling ctx abandons the flush.
	Close(ctx context.Context)
}
