// Package queue abstracts publishing to durable queues.
//
// The monitor uses it for the alerts stream, with Kafka as the only
// backend today. Publishers own background resources, so every
// QueuePublisher must be Closed exactly once to flush in-flight
// messages.
package queue
