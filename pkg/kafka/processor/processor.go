package processor

import (
	"context"

	cKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Processor handles one consumed Kafka message. A returned error marks
// the message as failed; the consumer decides whether it goes to the DLQ.
type Processor interface {
	Process(ctx context.Context, msg *cKafka.Message) error
}
