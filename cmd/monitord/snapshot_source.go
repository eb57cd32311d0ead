package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chainsentry/eventmonitor/internal/core"
	"github.com/chainsentry/eventmonitor/pkg/data/clickhouse/snapshot"
)

// serviceSource adapts the core service to the scheduler's SnapshotSource.
// The denormalized columns are queryable without parsing the state blob;
// the blob itself is what Restore consumes on boot.
type serviceSource struct {
	svc   *core.Service
	admin string
}

func newServiceSource(svc *core.Service, admin string) *serviceSource {
	return &serviceSource{svc: svc, admin: admin}
}

func (s *serviceSource) BuildSnapshot() (*snapshot.Snapshot, error) {
	state := s.svc.Snapshot()
	blob, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	snap := &snapshot.Snapshot{
		CapturedTotal: state.Store.LifetimeCount,
		EventCount:    uint64(len(state.Store.Events)),
		NextEventID:   state.Store.NextEventID,
		CurrentBlock:  state.Store.CurrentBlock,
		Paused:        s.svc.Paused(),
		State:         string(blob),
		Timestamp:     time.Now().Unix(),
	}

	root, err := s.svc.MerkleRoot(s.admin)
	if err != nil {
		return nil, fmt.Errorf("failed to read merkle root: %w", err)
	}
	if root != nil {
		snap.MerkleRoot = hex.EncodeToString(root[:])
	}
	return snap, nil
}
