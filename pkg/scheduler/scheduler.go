package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/chainsentry/eventmonitor/pkg/data/clickhouse/snapshot"
)

const (
	writeTimeout = 1 * time.Second
	maxRetries   = 3
	backoff      = 300 * time.Millisecond
)

// SnapshotSource produces the current monitor state as a persistable snapshot.
type SnapshotSource interface {
	BuildSnapshot() (*snapshot.Snapshot, error)
}

// Start runs a scheduler that writes a state snapshot to the repository
// (persistent storage) every interval. It returns nil when ctx is cancelled
// and an error when a write keeps failing after retries.
func Start(
	ctx context.Context,
	src SnapshotSource,
	repo snapshot.Repository,
	interval time.Duration,
) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			// capture state atomically and persist
			snap, err := src.BuildSnapshot()
			if err != nil {
				return fmt.Errorf("failed to build snapshot: %w", err)
			}
			for attempt := 0; attempt <= maxRetries; attempt++ {
				ctxW, cancel := context.WithTimeout(ctx, writeTimeout)
				err = repo.WriteSnapshot(ctxW, snap)
				cancel()
				if err == nil {
					break
				}
				if attempt < maxRetries {
					time.Sleep(backoff)
				}
			}
			if err != nil {
				return fmt.Errorf("failed to write snapshot (events: %d): %w", snap.EventCount, err)
			}
		}
	}
}
