package snapshot

import (
	"context"
	"fmt"

	"github.com/chainsentry/eventmonitor/pkg/clickhouse"
)

// Repository writes and reads monitor state snapshots in persistent storage
// (ClickHouse). Only the latest snapshot matters for recovery; older rows are
// collapsed by the ReplacingMergeTree engine.
type Repository interface {
	CreateTableIfNotExists(ctx context.Context) error
	WriteSnapshot(ctx context.Context, snapshot *Snapshot) error
	ReadLatest(ctx context.Context) (*Snapshot, error)
}

type repository struct {
	client    clickhouse.Client
	tableName string
}

func NewRepository(client clickhouse.Client, tableName string) Repository {
	return &repository{client: client, tableName: tableName}
}

// CreateTableQuery returns the CREATE TABLE query for the snapshots table.
// ReplacingMergeTree on timestamp keeps only the newest version after merges;
// reads use FINAL.
func CreateTableQuery(tableName string) string {
	return `CREATE TABLE IF NOT EXISTS ` + tableName + ` (
		captured_total UInt64,
		event_count UInt64,
		merkle_root String,
		next_event_id UInt64,
		current_block UInt64,
		paused Bool,
		state String,
		timestamp Int64
	) ENGINE = ReplacingMergeTree(timestamp)
	ORDER BY tuple()`
}

func (r *repository) CreateTableIfNotExists(ctx context.Context) error {
	if err := r.client.Conn().Exec(ctx, CreateTableQuery(r.tableName)); err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}
	return nil
}

func (r *repository) WriteSnapshot(ctx context.Context, snapshot *Snapshot) error {
	query := fmt.Sprintf("INSERT INTO %s (captured_total, event_count, merkle_root, next_event_id, current_block, paused, state, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)", r.tableName)
	err := r.client.Conn().
		Exec(ctx, query,
			snapshot.CapturedTotal,
			snapshot.EventCount,
			snapshot.MerkleRoot,
			snapshot.NextEventID,
			snapshot.CurrentBlock,
			snapshot.Paused,
			snapshot.State,
			snapshot.Timestamp,
		)
	if err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (r *repository) ReadLatest(ctx context.Context) (*Snapshot, error) {
	var snapshot Snapshot
	query := fmt.Sprintf("SELECT captured_total, event_count, merkle_root, next_event_id, current_block, paused, state, timestamp FROM %s FINAL ORDER BY timestamp DESC LIMIT 1", r.tableName)
	err := r.client.Conn().
		QueryRow(ctx, query).
		Scan(
			&snapshot.CapturedTotal,
			&snapshot.EventCount,
			&snapshot.MerkleRoot,
			&snapshot.NextEventID,
			&snapshot.CurrentBlock,
			&snapshot.Paused,
			&snapshot.State,
			&snapshot.Timestamp,
		)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return &snapshot, nil
}
