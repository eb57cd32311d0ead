package testutils

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/mock"
)

// MockProcessor is a testify mock of processor.Processor.
type MockProcessor struct {
	mock.Mock
}
func (m *MockProcessor) Process(ctx context.Context, msg *kafka.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

