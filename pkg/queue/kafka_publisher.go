package queue

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

// KafkaPublisher implements QueuePublisher on top of a librdkafka
// producer. Publish is synchronous: it returns only once the broker has
// acknowledged the message, which keeps alert delivery ordered with the
// operation that raised it. Two background goroutines drain the producer
// event and log channels.
//
// Close must be called once to stop those goroutines and flush pending
// messages.
type KafkaPublisher struct {
	producer   *kafka.Producer
	log        *zap.SugaredLogger
	errCh      chan error
	eventsDone chan struct{}
	logsDone   chan struct{}
	closedCh   chan struct{}
	once       sync.Once
}

const flushTimeoutMs = 10000

// NewKafkaPublisher builds a KafkaPublisher from a librdkafka config map.
// ctx bounds the background goroutines; Close is still required for a
// clean flush.
func NewKafkaPublisher(ctx context.Context, conf *kafka.ConfigMap, log *zap.SugaredLogger) (*KafkaPublisher, error) {
	p, err := kafka.NewProducer(conf)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	logsChEnabled, err := conf.Get("go.logs.channel.enable", false)
	if err != nil {
		return nil, fmt.Errorf("failed to get go.logs.channel.enable: %w", err)
	}

	kq := KafkaPublisher{
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

// Publish sends msg and waits for the broker delivery receipt. A full
// local queue is retried internally; any other producer error is
// returned. When ctx is canceled before the receipt arrives, Publish
// returns ctx.Err() even though the message may still land, so retries
// after cancellation can duplicate.
func (q *KafkaPublisher) Publish(ctx context.Context, msg Msg) error {
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
// retrying until the queue drains or ctx is canceled. Cancellation drops
// whatever is still queued. Repeated calls are no-ops.
func (q *KafkaPublisher) Close(ctx context.Context) {
	q.once.Do(func() {
		q.log.Info("closing alert publisher")
		defer close(q.errCh)

		// Signal the monitor or logs goroutines to stop.
		close(q.closedCh)

		// Wait for the monitor or logs goroutines to stop.
		<-q.eventsDone
		<-q.logsDone

		// Flush the producer queue.
		for q.producer.Flush(flushTimeoutMs) > 0 {
			q.log.Warn("publisher queue not drained, retrying flush")
			select {
			case <-ctx.Done():
				q.log.Info("context done, abandoning publisher flush")
				q.producer.Close()
				return
			default:
				continue
			}
		}

		q.producer.Close()
		q.log.Info("alert publisher closed")
	})
}

// Errors exposes fatal publisher errors. At most one error is ever sent,
// after which the publisher is dead and must be Closed and rebuilt.
// Transient Kafka errors are logged, not surfaced here.
func (q *KafkaPublisher) Errors() <-chan error {
	return q.errCh
}

func (q *KafkaPublisher) printKafkaLogs(ctx context.Context) {
	defer close(q.logsDone)
	for {
		select {
		case <-ctx.Done():
			q.log.Info("stopping kafka log drain")
			return
		case <-q.closedCh:
			q.log.Info("stopping kafka log drain, publisher closed")
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
func (q *KafkaPublisher) produceWithRetry(
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
			q.log.Warn("publisher queue full, retrying")
			time.Sleep(time.Second)
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

func (q *KafkaPublisher) monitorProducerEvents(ctx context.Context) {
	defer close(q.eventsDone)
	for {
		select {
		case <-ctx.Done():
			q.log.Info("stopping publisher event monitor, context done")
			return
		case <-q.closedCh:
			q.log.Info("stopping publisher event monitor, publisher closed")
			return
		case ev, ok := <-q.producer.Events():
			if !ok {
				err := fmt.Errorf("publisher event channel closed unexpectedly")
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
					q.log.Debugf("published record to topic %s partition [%d] at offset %v",
						*e.TopicPartition.Topic, e.TopicPartition.Partition, e.TopicPartition.Offset)
				}
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
				q.log.Warnf("unknown publisher event: %+v", e)
			}
		}
	}
}

func handleDeliveryEvent(log *zap.SugaredLogger, msg *kafka.Message, ev kafka.Event) error {
	switch e := ev.(type) {
	case *kafka.Message:
		if err := e.TopicPartition.Error; err != nil {
			return fmt.Errorf("delivery failed: %w", err)
		}

		if !slices.Equal(e.Value, msg.Value) {
			return fmt.Errorf("delivery receipt: %v did not match expected value: %v", e.Value, msg.Value)
		}

		log.Debugf(
			"delivered to topic [%s] partition [%d] at offset [%d]",
			*msg.TopicPartition.Topic,
			e.TopicPartition.Partition,
			e.TopicPartition.Offset,
		)
		return nil

	case kafka.Error:
		return fmt.Errorf(
			"kafka error: code=%d fatal=%t: %w",
			e.Code(),
			e.IsFatal(),
			e,
		)

	default:
		return fmt.Errorf("unexpected delivery event: %T", ev)
	}
}
