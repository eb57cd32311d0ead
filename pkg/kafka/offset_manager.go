package kafka

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

const (
	// Default offset manager parameters.
	OffsetManagerCommitInterval  = 5 * time.Second
	OffsetManagerAutoOffsetReset = "latest"

	// WindowLengthWarningThreshold is the uncommitted-window size above which
	// the manager starts logging warnings. A window this large usually means
	// some envelope never finished processing and is holding back the commit.
	WindowLengthWarningThreshold = 10000
)

type offsetState struct {
	window        []kafka.TopicPartition
	lastCommitted kafka.Offset
}

// OffsetManager tracks per-partition offsets of processed envelopes in a
// sliding window and commits the highest contiguous offset on an interval,
// giving the consumer at-least-once semantics under concurrent dispatch.
// One OffsetManager serves one topic subscription.
//
// Goroutines call InsertOffset (or InsertOffsetWithRetry) after an envelope
// finishes processing; out-of-order completions sit in the window until the
// gap below them closes. The window is unbounded, so a message that never
// completes blocks commits for its partition; window sizes above
// WindowLengthWarningThreshold are logged to surface that.
type OffsetManager struct {
	consumer        *kafka.Consumer
	autoOffsetReset string                 // auto.offset.reset config: "earliest" or "latest"
	partitionStates map[int32]*offsetState // map of offset states for each assigned partition
	mutex           sync.Mutex
	dryRun          bool // skip interactions with Brokers for testing
	log             *zap.SugaredLogger
}

// NewOffsetManager starts the commit loop; it stops when ctx is cancelled.
func NewOffsetManager(
	ctx context.Context,
	consumer *kafka.Consumer,
	interval time.Duration,
	autoOffsetReset string,
	dryRun bool,
	log *zap.SugaredLogger,
) *OffsetManager {
	om := &OffsetManager{
		consumer:        consumer,
		autoOffsetReset: autoOffsetReset,
		partitionStates: make(map[int32]*offsetState),
		dryRun:          dryRun,
		log:             log,
	}
	go om.commitLoop(ctx, interval, dryRun)
	return om
}

func (om *OffsetManager) commitLoop(
	ctx context.Context,
	interval time.Duration,
	dryRun bool,
) {
	ticker := time.NewTicker(interval)
	for {
		select {
		case <-ticker.C:
			om.commitLatestValidOffsets(dryRun)
		case <-ctx.Done():
			return
		}
	}
}

// commitLatestValidOffsets scans each partition window for the longest run of
// contiguous offsets above lastCommitted, commits the end of that run and
// truncates the window behind it.
func (om *OffsetManager) commitLatestValidOffsets(dryRun bool) {
	var err error
	om.mutex.Lock()
	defer om.mutex.Unlock()

	for partition, state := range om.partitionStates {
		window := state.window
		lastCommitted := state.lastCommitted
		if len(window) == 0 {
			om.log.Debug("no offsets to commit")
			continue
		}

		if window[0].Offset <= lastCommitted+1 {
			end := 0
			for i := 1; i < len(window); i++ {
				// Offsets at or below lastCommitted can appear when a new
				// group forms with auto.offset.reset="latest" while producers
				// are still writing; fold them into the committed run.
				if window[i].Offset <= lastCommitted {
					end = i
					continue
				}

				if window[i].Offset != window[i-1].Offset+1 {
					break
				}
				end = i
			}

			if !dryRun {
				_, err = om.consumer.CommitOffsets([]kafka.TopicPartition{window[end]})
			}
			if err != nil {
				om.log.Errorf("failed to commit offsets: %v", err)
				return
			}

			om.log.Infof("committed offset %d for partition %d", window[end].Offset, partition)
			if end == len(window)-1 {
				om.partitionStates[partition] = &offsetState{
					[]kafka.TopicPartition{},
					window[end].Offset,
				}
			} else {
				om.partitionStates[partition] = &offsetState{window[end+1:], window[end].Offset}
			}
		}

		if len(om.partitionStates[partition].window) > WindowLengthWarningThreshold {
			om.log.Warnf(
				"partition %d window length is high: %d\n",
				partition,
				len(om.partitionStates[partition].window),
			)
		}
	}
}

// InsertOffset adds a processed offset to the partition's window. Kafka
// commit semantics expect the NEXT offset to consume, so callers pass
// message.TopicPartition.Offset+1 (see
// https://github.com/confluentinc/confluent-kafka-go/issues/350).
//
// Topic, Partition and Offset fields are required.
func (om *OffsetManager) InsertOffset(ctx context.Context, offset kafka.TopicPartition) error {
	om.mutex.Lock()
	defer om.mutex.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	state := om.partitionStates[offset.Partition]
	if state == nil {
		om.log.Warnf("partition %d not found in partition states, ignoring", offset.Partition)
		return nil
	}

	// An uninitialized lastCommitted is seeded from the first completed
	// message (offset.Offset-1); it need not be the first offset fetched.
	if state.lastCommitted < 0 {
		state.lastCommitted = offset.Offset - 1
		om.log.Infof("init partition %d lastCommitted to %d", offset.Partition, offset.Offset)
	}

	window := state.window
	i := sort.Search(
		len(window),
		func(j int) bool { return window[j].Offset >= offset.Offset },
	)
	if i < len(window) && window[i].Offset == offset.Offset {
		return nil // already inserted
	}
	om.partitionStates[offset.Partition].window = slices.Insert(window, i, offset)
	return nil
}

// RebalanceCb initializes or tears down partition state on rebalance events.
// It must be chained into the rebalance callback passed to
// kafka.Consumer.SubscribeTopics.
func (om *OffsetManager) RebalanceCb(consumer *kafka.Consumer, event kafka.Event) error {
	om.mutex.Lock()
	defer om.mutex.Unlock()
	switch ev := event.(type) {
	case kafka.AssignedPartitions:
		// Rebalance events carry kafka.OffsetInvalid when joining an idle
		// existing group, so ask the broker for the committed offsets.
		var err error
		var committedOffsets []kafka.TopicPartition
		if om.dryRun {
			committedOffsets = ev.Partitions
		} else {
			committedOffsets, err = consumer.Committed(ev.Partitions, 5000)
		}

		if err != nil {
			return fmt.Errorf("failed to get committed offsets: %w", err)
		}

		logStr := make([]string, len(committedOffsets))
		for i, co := range committedOffsets {
			om.partitionStates[co.Partition] = &offsetState{
				window:        []kafka.TopicPartition{},
				lastCommitted: co.Offset,
			}

			// A stored offset below the topic's low watermark (retention
			// already dropped it) makes librdkafka fall back to
			// auto.offset.reset; invalidate it so the window seeds from the
			// first completed message instead.
			if !om.dryRun {
				low, high, err := om.consumer.QueryWatermarkOffsets(*(co.Topic), co.Partition, 5000)
				if err != nil {
					om.log.Errorf("GetWatermarkOffsets failed: %v", err)
					return fmt.Errorf("GetWatermarkOffsets failed: %w", err)
				}

				om.log.Infof(
					"QueryWatermarkOffsets for partition %d: (low: %d, high: %d), auto.offset.reset: %s",
					co.Partition,
					low,
					high,
					om.autoOffsetReset,
				)

				if co.Offset < 0 || co.Offset < kafka.Offset(low) {
					// kafka.OffsetInvalid marks a stored offset that does
					// not exist or is out of range
					om.partitionStates[co.Partition].lastCommitted = kafka.OffsetInvalid
				}
			}

			logStr[i] = fmt.Sprintf("(partition: %d, lastCommitted: %d)", co.Partition, om.partitionStates[co.Partition].lastCommitted)
		}

		om.log.Infof("rebalance event, adding partition states: %s\n", strings.Join(logStr, ","))
	case kafka.RevokedPartitions:
		logStr := make([]string, len(ev.Partitions))
		for i, partition := range ev.Partitions {
			logStr[i] = strconv.Itoa(int(partition.Partition))
			delete(om.partitionStates, partition.Partition)
		}
		om.log.Infof("rebalance event, removing state for partitions: %s\n", strings.Join(logStr, ","))
	default:
		om.log.Warnf("unknown rebalance event: %v", event)
	}
	return nil
}

func (om *OffsetManager) InsertOffsetWithRetry(
	ctx context.Context,
	msg *kafka.Message,
) {
	for {
		err := om.InsertOffset(ctx, kafka.TopicPartition{
			Topic:     msg.TopicPartition.Topic,
			Partition: msg.TopicPartition.Partition,
			Offset:    msg.TopicPartition.Offset + 1,
		})
		if err == nil || ctx.Err() != nil {
			return
		}

		om.log.Error("retrying InsertOffset. err ", err)
		time.Sleep(200 * time.Millisecond)
	}
}
