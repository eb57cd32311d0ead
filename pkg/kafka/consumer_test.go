package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chainsentry/eventmonitor/pkg/kafka/testutils"
)

func minimalConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		BootstrapServers:            "localhost:9092",
		GroupID:                     "monitor-consumer-group",
		Topic:                       "monitor-events",
		DLQTopic:                    "monitor-events-dlq",
		AutoOffsetReset:             "earliest",
		Concurrency:                 5,
		OffsetManagerCommitInterval: time.Second,
	}
}

func newTestConsumer(t *testing.T, cfg ConsumerConfig) *Consumer {
	t.Helper()
	log := testutils.NewTestLogger(t)
	consumer, err := NewConsumer(context.Background(), log, cfg, &testutils.MockProcessor{})
	require.NoError(t, err)
	return consumer
}

func TestNewConsumer_MinimalConfig(t *testing.T) {
	c := newTestConsumer(t, minimalConsumerConfig())

	assert.NotNil(t, c.consumer)
	assert.NotNil(t, c.dlqProducer)
	assert.NotNil(t, c.offsetManager)
	assert.NotNil(t, c.processor)

	// defaults filled in for nil timeout fields
	assert.Equal(t, DefaultSessionTimeout, *c.cfg.SessionTimeout)
	assert.Equal(t, DefaultMaxPollInterval, *c.cfg.MaxPollInterval)
	assert.Equal(t, DefaultFlushTimeout, *c.cfg.FlushTimeout)
}

func TestNewConsumer_CustomTimeouts(t *testing.T) {
	sessionTimeout := 30 * time.Second
	maxPollInterval := 5 * time.Minute
	flushTimeout := 3 * time.Second

	cfg := minimalConsumerConfig()
	cfg.SessionTimeout = &sessionTimeout
	cfg.MaxPollInterval = &maxPollInterval
	cfg.FlushTimeout = &flushTimeout

	c := newTestConsumer(t, cfg)

	assert.Equal(t, sessionTimeout, *c.cfg.SessionTimeout)
	assert.Equal(t, maxPollInterval, *c.cfg.MaxPollInterval)
	assert.Equal(t, flushTimeout, *c.cfg.FlushTimeout)
}

func TestNewConsumer_ChannelsInitialized(t *testing.T) {
	c := newTestConsumer(t, minimalConsumerConfig())

	require.NotNil(t, c.errCh)
	require.NotNil(t, c.doneCh)
	require.NotNil(t, c.logsDone)
	assert.Equal(t, 1, cap(c.errCh))

	select {
	case <-c.doneCh:
		t.Fatal("doneCh must not be closed on a fresh consumer")
	default:
	}
}

func TestNewConsumer_SemaphoreBoundsConcurrency(t *testing.T) {
	cfg := minimalConsumerConfig()
	cfg.Concurrency = 2
	c := newTestConsumer(t, cfg)

	ctx := context.Background()
	require.NoError(t, c.sem.Acquire(ctx, 1))
	require.NoError(t, c.sem.Acquire(ctx, 1))
	assert.False(t, c.sem.TryAcquire(1), "third slot must not be available")
	c.sem.Release(1)
	assert.True(t, c.sem.TryAcquire(1))
}

func TestNewConsumer_RebalanceContextsEmpty(t *testing.T) {
	c := newTestConsumer(t, minimalConsumerConfig())

	c.rebalanceMutex.RLock()
	defer c.rebalanceMutex.RUnlock()
	assert.Empty(t, c.rebalanceContexts)
}

func TestPublishToDLQ_TopicNotConfigured(t *testing.T) {
	cfg := minimalConsumerConfig()
	cfg.DLQTopic = ""
	c := newTestConsumer(t, cfg)

	msg := testutils.NewTestMessage("monitor-events", 0, 7, []byte("key"), []byte("value"))

	err := c.publishToDLQ(context.Background(), msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DLQ topic not configured")
}

func TestPublishToDLQ_ContextCanceled(t *testing.T) {
	c := newTestConsumer(t, minimalConsumerConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := testutils.NewTestMessage("monitor-events", 0, 7, []byte("key"), []byte("value"))

	err := c.publishToDLQ(ctx, msg)
	require.Error(t, err)
}

func TestRebalanceCtx_CancellationPropagation(t *testing.T) {
	parent, parentCancel := context.WithCancel(context.Background())
	defer parentCancel()

	rCtx := rebalanceCtx{}
	rCtx.ctx, rCtx.cancel = context.WithCancel(parent)

	select {
	case <-rCtx.ctx.Done():
		t.Fatal("context done before cancel")
	default:
	}

	rCtx.cancel()
	select {
	case <-rCtx.ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context not done after cancel")
	}
}

func TestRebalanceCtx_IndependentCancellation(t *testing.T) {
	parent := context.Background()

	first := rebalanceCtx{}
	first.ctx, first.cancel = context.WithCancel(parent)
	second := rebalanceCtx{}
	second.ctx, second.cancel = context.WithCancel(parent)
	defer second.cancel()

	first.cancel()

	assert.Error(t, first.ctx.Err())
	assert.NoError(t, second.ctx.Err())
}

func TestMockProcessor_ErrorPropagation(t *testing.T) {
	proc := &testutils.MockProcessor{}
	wantErr := errors.New("processing failed")
	proc.On("Process", mock.Anything, mock.Anything).Return(wantErr)

	msg := testutils.NewTestMessage("monitor-events", 0, 0, nil, []byte("{}"))
	err := proc.Process(context.Background(), msg)
	assert.ErrorIs(t, err, wantErr)
	proc.AssertExpectations(t)
}

func TestNewTestMessage(t *testing.T) {
	msg := testutils.NewTestMessage("monitor-events", 3, 42, []byte("app-1"), []byte(`{"type":"event.capture"}`))

	require.NotNil(t, msg.TopicPartition.Topic)
	assert.Equal(t, "monitor-events", *msg.TopicPartition.Topic)
	assert.Equal(t, int32(3), msg.TopicPartition.Partition)
	assert.Equal(t, kafka.Offset(42), msg.TopicPartition.Offset)
	assert.Equal(t, []byte("app-1"), msg.Key)
}
