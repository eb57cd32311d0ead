package eventrepo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// BatchInserter accumulates event rows and sends them to ClickHouse in
// batches, flushing when the batch fills or the flush interval elapses.
type BatchInserter struct {
	conn          driver.Conn
	log           *zap.SugaredLogger
	tableName     string
	maxBatchSize  int
	flushInterval time.Duration

	batch    driver.Batch
	batchMux sync.Mutex
	count    int

	lastFlush time.Time
	flushMux  sync.Mutex

	flushTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewBatchInserter creates a batch inserter for the events table and starts
// its background flush loop.
func NewBatchInserter(
	ctx context.Context,
	conn driver.Conn,
	log *zap.SugaredLogger,
	tableName string,
	maxBatchSize int,
	flushInterval time.Duration,
) *BatchInserter {
	ctxWithCancel, cancel := context.WithCancel(ctx)
	bi := &BatchInserter{
		conn:          conn,
		log:           log,
		tableName:     tableName,
		maxBatchSize:  maxBatchSize,
		flushInterval: flushInterval,
		lastFlush:     time.Now(),
		flushTicker:   time.NewTicker(flushInterval),
		stopCh:        make(chan struct{}),
		ctx:           ctxWithCancel,
		cancel:        cancel,
	}

	bi.wg.Add(1)
	go bi.flushLoop()

	return bi
}

// flushLoop periodically flushes the batch based on flushInterval
func (bi *BatchInserter) flushLoop() {
	defer bi.wg.Done()
	for {
		select {
		case <-bi.ctx.Done():
			return
		case <-bi.stopCh:
			return
		case <-bi.flushTicker.C:
			bi.flushMux.Lock()
			shouldFlush := time.Since(bi.lastFlush) >= bi.flushInterval
			bi.flushMux.Unlock()

			if shouldFlush {
				if err := bi.Flush(bi.ctx); err != nil {
					bi.log.Errorw("failed to flush event batch in flush loop", "error", err)
				}
			}
		}
	}
}

// initBatch prepares a new batch (must be called with batchMux held)
func (bi *BatchInserter) initBatch(ctx context.Context) error {
	batch, err := bi.conn.PrepareBatch(ctx, EventInsertQueryForBatch(bi.tableName))
	if err != nil {
		return fmt.Errorf("failed to prepare event batch: %w", err)
	}
	bi.batch = batch
	bi.count = 0
	return nil
}

// AddEvent appends a row to the batch, flushing when the batch fills (thread-safe)
func (bi *BatchInserter) AddEvent(ctx context.Context, row *EventRow) error {
	bi.batchMux.Lock()

	if bi.batch == nil {
		if err := bi.initBatch(ctx); err != nil {
			bi.batchMux.Unlock()
			return err
		}
	}

	err := bi.batch.Append(
		row.ID,
		row.SourceApp,
		row.SourceChain,
		row.Timestamp,
		row.EventType,
		row.Data,
		row.TransactionHash,
		row.BlockHeight,
		row.Severity,
		row.ContentHash,
	)
	if err != nil {
		bi.batchMux.Unlock()
		return fmt.Errorf("failed to append event: %w", err)
	}

	bi.count++
	shouldFlush := bi.count >= bi.maxBatchSize
	bi.batchMux.Unlock()

	if shouldFlush {
		return bi.Flush(ctx)
	}

	return nil
}

// flushLocked sends the batch to ClickHouse (must be called with batchMux held)
func (bi *BatchInserter) flushLocked() error {
	if bi.batch == nil || bi.count == 0 {
		return nil
	}

	count := bi.count
	if err := bi.batch.Send(); err != nil {
		// Flush failures mean archive rows are lost; the in-memory store
		// still holds the events, so log loudly and keep going.
		bi.log.Errorw("failed to send event batch to ClickHouse - archive rows may be lost",
			"error", err,
			"count", count,
			"table", bi.tableName,
		)
		bi.batch = nil
		bi.count = 0
		return fmt.Errorf("failed to send event batch: %w", err)
	}

	bi.log.Debugw("flushed events to ClickHouse", "count", count)
	bi.batch = nil
	bi.count = 0
	return nil
}

// Flush sends any pending rows to ClickHouse
func (bi *BatchInserter) Flush(ctx context.Context) error {
	_ = ctx

	bi.batchMux.Lock()
	err := bi.flushLocked()
	bi.batchMux.Unlock()

	bi.flushMux.Lock()
	bi.lastFlush = time.Now()
	bi.flushMux.Unlock()

	return err
}

// Pending returns the number of rows waiting in the current batch
func (bi *BatchInserter) Pending() int {
	bi.batchMux.Lock()
	defer bi.batchMux.Unlock()
	return bi.count
}

// Close stops the flush loop and flushes any remaining rows
func (bi *BatchInserter) Close() error {
	close(bi.stopCh)
	bi.flushTicker.Stop()
	bi.cancel()
	bi.wg.Wait()

	// Final flush with a fresh context since bi.ctx is cancelled
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return bi.Flush(flushCtx)
}
