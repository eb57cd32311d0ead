package core

import (
	"fmt"

	"github.com/chainsentry/eventmonitor/internal/store"
	"github.com/chainsentry/eventmonitor/pkg/ratelimit"
	"github.com/chainsentry/eventmonitor/pkg/rbac"
)

// State is the full serializable service state: store content, rate-limit
// counters and role assignments.
type State struct {
	Store     store.State        `json:"store"`
	RateLimit ratelimit.Snapshot `json:"rate_limit"`
	RBAC      rbac.Snapshot      `json:"rbac"`
}

// Snapshot captures the whole service state for persistence.
func (s *Service) Snapshot() State {
	return State{
		Store:     s.store.Snapshot(),
		RateLimit: s.limiter.Snapshot(),
		RBAC:      s.authority.Snapshot(),
	}
}

// Restore replaces the whole service state with a previously captured
// snapshot.
func (s *Service) Restore(state State) error {
	if err := s.store.Restore(state.Store); err != nil {
		return fmt.Errorf("failed to restore store: %w", err)
	}
	s.limiter.Restore(state.RateLimit)
	s.authority.Restore(state.RBAC)
	return nil
}
