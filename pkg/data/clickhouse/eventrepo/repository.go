package eventrepo

import (
	"context"
	"fmt"

	"github.com/chainsentry/eventmonitor/pkg/clickhouse"
)

// Events provides methods to archive captured events in ClickHouse
type Events interface {
	CreateTableIfNotExists(ctx context.Context) error
	WriteEvent(ctx context.Context, row *EventRow) error
	ReadAppEvents(ctx context.Context, sourceApp string, limit uint64) ([]*EventRow, error)
}

type events struct {
	client        clickhouse.Client
	tableName     string
	batchInserter *BatchInserter // Optional: if set, writes are batched; if nil, direct inserts
}

// NewEvents creates a new event archive repository and initializes the table.
// If batchInserter is provided, writes are batched; otherwise direct inserts are used.
func NewEvents(ctx context.Context, client clickhouse.Client, tableName string, batchInserter *BatchInserter) (Events, error) {
	repo := &events{
		client:        client,
		tableName:     tableName,
		batchInserter: batchInserter,
	}
	if err := repo.CreateTableIfNotExists(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize events table: %w", err)
	}
	return repo, nil
}

// CreateTableIfNotExists creates the events table if it doesn't exist
func (r *events) CreateTableIfNotExists(ctx context.Context) error {
	query := CreateEventsTableQuery(r.tableName)
	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	return nil
}

// WriteEvent archives a captured event.
// If batchInserter is set, adds to the batch; otherwise performs a direct insert.
func (r *events) WriteEvent(ctx context.Context, row *EventRow) error {
	if r.batchInserter != nil {
		return r.batchInserter.AddEvent(ctx, row)
	}

	query := EventInsertQuery(r.tableName)
	err := r.client.Conn().Exec(ctx, query,
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
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// ReadAppEvents reads the most recent archived events for one application,
// newest first.
func (r *events) ReadAppEvents(ctx context.Context, sourceApp string, limit uint64) ([]*EventRow, error) {
	query := SelectAppEventsQuery(r.tableName)
	rows, err := r.client.Conn().Query(ctx, query, sourceApp, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query app events: %w", err)
	}
	defer rows.Close()

	var result []*EventRow
	for rows.Next() {
		var row EventRow
		if err := rows.Scan(
			&row.ID,
			&row.SourceApp,
			&row.SourceChain,
			&row.Timestamp,
			&row.EventType,
			&row.Data,
			&row.TransactionHash,
			&row.BlockHeight,
			&row.Severity,
			&row.ContentHash,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		result = append(result, &row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}
	return result, nil
}
