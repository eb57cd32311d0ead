package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

type Msg struct {
	Topic   string
	Value   []byte
	Key     []byte
	Headers map[string]string
}

// Producer publishes messages to Kafka synchronously: Produce does not
// return until the broker has acknowledged delivery or the context ends.
// Two background goroutines drain the librdkafka event and log channels.
//
// Close must be called exactly once per producer to stop those goroutines
// and flush in-flight messages.
type Producer struct {
	producer   *kafka.Producer
	log        *zap.SugaredLogger
	errCh      chan error
	eventsDone chan struct{}
	logsDone   chan struct{}
	closedCh   chan struct{}
	once       sync.Once
}

const queueFullErrorRetryDelay = time.Second

// NewProducer builds a Producer from a librdkafka config map.
//
// ctx bounds the background event and log goroutines; canceling it stops
// them without flushing. Callers still need Close for a clean shutdown.
func NewProducer(ctx context.Context, conf *kafka.ConfigMap, log *zap.SugaredLogger) (*Producer, error) {
	p, err := kafka.NewProducer(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logsChEnabled, err := conf.Get("go.logs.channel.enable", false)
	if err != nil {
		return nil, fmt.Errorf("failed to get go.logs.channel.enable: %w", err)
	}

	kq := Producer{
		producer:   p,
		log:        log,
		eventsDone: make(chan struct{}),
		logsDone:   make(chan struct{}),
		errCh:      make(chan error, 1),
		closedCh:   make(chan struct{}),
		once:       sync.Once{},
	}

	if logsChEnabled.(bool) {
		go kq.printKafkaLogs(ctx)
	} else {
		close(kq.logsDone)
	}

	go kq.monitorProducerEvents(ctx)

	return &kq, nil
}

// Produce sends a single message and waits for the broker's delivery
// receipt. A full local queue is retried internally after a short delay;
// every other producer error is returned to the caller.
//
// When ctx is canceled before the receipt arrives, Produce returns
// ctx.Err() even though the message may still reach the broker, so
// retries after cancellation can produce duplicates.
func (q *Producer) Produce(ctx context.Context, msg Msg) error {
	deliveryCh := make(chan kafka.Event, 1)
	defer close(deliveryCh)

	kMsg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &msg.Topic,
			Partition: kafka.PartitionAny,
		},
		Value: msg.Value,
		Key:   msg.Key,
	}

	if err := q.produceWithRetry(ctx, kMsg, deliveryCh); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()

	case e := <-deliveryCh:
		return handleDeliveryEvent(q.log, kMsg, e)
	}
}

// Close stops the background goroutines and flushes the local queue,
// waiting up to timeout for outstanding deliveries. Messages still queued
// when the timeout expires are dropped. Repeated calls are no-ops.
func (q *Producer) Close(timeout time.Duration) {
	q.once.Do(func() {
		q.log.Info("closing kafka producer")
		defer close(q.errCh)

		// Signal the monitor or logs goroutines to stop.
		close(q.closedCh)

		// Wait for the monitor or logs goroutines to stop.
		<-q.eventsDone
		<-q.logsDone

		// Flush the producer queue.
		pending := q.producer.Flush(int(timeout.Milliseconds()))
		if pending > 0 {
			q.log.Warnf("flush incomplete, messages will be lost. pending: %d", pending)
		}

		q.producer.Close()
		q.log.Info("kafka producer closed")
	})
}

// Errors exposes fatal producer errors. At most one error is ever sent,
// after which the producer is dead and must be Closed and rebuilt.
// Transient Kafka errors are logged, not surfaced here.
func (q *Producer) Errors() <-chan error {
	return q.errCh
}

func (q *Producer) printKafkaLogs(ctx context.Context) {
	defer close(q.logsDone)
	for {
		select {
		case <-ctx.Done():
			q.log.Info("stopping kafka log drain")
			return
		case <-q.closedCh:
			q.log.Info("stopping kafka log drain, producer closed")
			return
		case log, ok := <-q.producer.Logs():
			if !ok {
				q.log.Info("kafka log channel closed")
				return
			}
			q.log.Debugf("level: %d tag: %s message: %s ", log.Level, log.Tag, log.Message)
		}
	}
}

// produceWithRetry enqueues msg on the local producer queue, retrying
// only ErrQueueFull. All other librdkafka error codes map to wrapped
// errors for the caller.
func (q *Producer) produceWithRetry(
	ctx context.Context,
	msg *kafka.Message,
	deliveryCh chan kafka.Event,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := q.producer.Produce(msg, deliveryCh)
		if err == nil {
			return nil
		}

		kafkaErr, ok := err.(kafka.Error)
		if !ok {
			return fmt.Errorf("failed to produce: %w", err)
		}

		switch kafkaErr.Code() {
		case kafka.ErrQueueFull:
			q.log.Warnf("producer queue full, retrying in %s", queueFullErrorRetryDelay)
			time.Sleep(queueFullErrorRetryDelay)
			continue
		case kafka.ErrBrokerNotAvailable:
			return fmt.Errorf("broker not available: %w", err)
		case kafka.ErrInvalidMsgSize:
			return fmt.Errorf("invalid message size: %w", err)
		case kafka.ErrInvalidMsg:
			return fmt.Errorf("invalid message: %w", err)
		case kafka.ErrUnknownTopicOrPart:
			return fmt.Errorf("unknown topic or partition: %w", err)
		case kafka.ErrAuthentication:
			return fmt.Errorf("authentication error: %w", err)
		default:
			return fmt.Errorf("failed to produce: %w", err)
		}
	}
}

func (q *Producer) monitorProducerEvents(ctx context.Context) {
	defer close(q.eventsDone)
	for {
		select {
		case <-ctx.Done():
			q.log.Info("stopping producer event monitor, context done")
			return
		case <-q.closedCh:
			q.log.Info("stopping producer event monitor, producer closed")
			return
		case ev, ok := <-q.producer.Events():
			if !ok {
				err := fmt.Errorf("producer event channel closed unexpectedly")
				select {
				case q.errCh <- err:
				default:
					q.log.Warnf("error channel is full, should not happen: %v", err)
				}
				return
			}

			switch e := ev.(type) {
			case *kafka.Message:
				q.log.Error("delivery receipt arrived on the shared event channel")
				if e.TopicPartition.Error != nil {
					q.log.Errorf("failed to deliver message: %v", e.TopicPartition)
				} else {
					q.log.Debugf("produced record to topic %s partition [%d] at offset %v",
						*e.TopicPartition.Topic, e.TopicPartition.Partition, e.TopicPartition.Offset)
				}
			case kafka.Stats:
				q.log.Infof("kafka stats event received %s", e.String())
			case kafka.Error:
				if e.IsFatal() || e.Code() == kafka.ErrAllBrokersDown {
					err := fmt.Errorf("fatal err or ErrAllBrokersDown: %#x, %w", e.Code(), e)
					select {
					case q.errCh <- err:
					default:
						q.log.Warnf("error channel is full, should not happen: %v", err)
					}
					return
				} else {
					q.log.Warnf("ignoring unexpected kafka error: %#x, %v", e.Code(), e)
				}
			default:
				q.log.Warnf("unknown producer event: %+v", e)
			}
		}
	}
}

func handleDeliveryEvent(log *zap.SugaredLogger, msg *kafka.Message, ev kafka.Event) error {
	e, ok := ev.(*kafka.Message)
	if !ok {
		// Per-message delivery channels carry *kafka.Message only.
		return fmt.Errorf("unexpected delivery event: %T", ev)
	}

	if err := e.TopicPartition.Error; err != nil {
		return fmt.Errorf("delivery failed: %w", err)
	}

	log.Debugf(
		"delivered to topic [%s] partition [%d] at offset [%d]",
		*msg.TopicPartition.Topic,
		e.TopicPartition.Partition,
		e.TopicPartition.Offset,
	)
	return nil
}
