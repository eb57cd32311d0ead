// Package ratelimit provides block-scoped admission control for event
// ingestion. Counters are kept per source application and globally, both
// resetting whenever the current block height advances; an application that
// exhausts its allowance is blocked for a configurable number of blocks.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
)

// ErrIngestionPaused rejects every submission while the limiter is paused.
var ErrIngestionPaused = errors.New("ingestion is paused")

// AppBlockedError rejects an application serving a cooldown.
type AppBlockedError struct {
	AppID        string
	BlockedUntil uint64
	CurrentBlock uint64
}

func (e *AppBlockedError) Error() string {
	return fmt.Sprintf("application %s is blocked until block %d (current block %d)",
		e.AppID, e.BlockedUntil, e.CurrentBlock)
}

// GlobalLimitError rejects a submission once the global per-block allowance
// is spent. Limit is the effective burst-scaled allowance; no cooldown is
// placed on the submitting application.
type GlobalLimitError struct {
	Limit   uint64
	Current uint64
}

func (e *GlobalLimitError) Error() string {
	return fmt.Sprintf("global rate limit exceeded: %d of %d events this block", e.Current, e.Limit)
}

// AppLimitError rejects a submission that exhausted the per-application
// allowance and reports the cooldown placed as a consequence. Limit is the
// effective burst-scaled allowance.
type AppLimitError struct {
	AppID        string
	Limit        uint64
	BlockedUntil uint64
}

func (e *AppLimitError) Error() string {
	return fmt.Sprintf("application %s exceeded rate limit of %d events per block, blocked until block %d",
		e.AppID, e.Limit, e.BlockedUntil)
}

// Config tunes the limiter. BurstMultiplier scales both allowances; cooldowns
// are expressed in blocks.
type Config struct {
	MaxEventsPerBlock       uint64  `json:"max_events_per_block"`
	GlobalMaxEventsPerBlock uint64  `json:"global_max_events_per_block"`
	BurstMultiplier         float64 `json:"burst_multiplier"`
	CooldownBlocks          uint64  `json:"cooldown_blocks"`
	Enabled                 bool    `json:"enabled"`
}

// DefaultConfig returns the limiter defaults.
func DefaultConfig() Config {
	return Config{
		MaxEventsPerBlock:       100,
		GlobalMaxEventsPerBlock: 1000,
		BurstMultiplier:         1.5,
		CooldownBlocks:          5,
		Enabled:                 true,
	}
}

func (c Config) effectiveAppLimit() uint64 {
	return uint64(float64(c.MaxEventsPerBlock) * c.BurstMultiplier)
}

func (c Config) effectiveGlobalLimit() uint64 {
	return uint64(float64(c.GlobalMaxEventsPerBlock) * c.BurstMultiplier)
}

type appCounter struct {
	Count uint64 `json:"count"`
	Block uint64 `json:"block"`
}

// Limiter is the admission gate. Safe for concurrent use.
type Limiter struct {
	mu sync.Mutex

	config      Config
	paused      bool
	globalCount uint64
	globalBlock uint64
	appCounts   map[string]*appCounter
	blockedApps map[string]uint64 // app id -> blocked until block
}

// New returns a limiter with the given configuration.
func New(config Config) *Limiter {
	return &Limiter{
		config:      config,
		appCounts:   make(map[string]*appCounter),
		blockedApps: make(map[string]uint64),
	}
}

// CheckAndIncrement admits one event from appID at currentBlock, consuming
// allowance on success. The checks run in a fixed order: pause, enablement,
// cooldown, global allowance, per-application allowance.
func (l *Limiter) CheckAndIncrement(appID string, currentBlock uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.paused {
		return ErrIngestionPaused
	}
	if !l.config.Enabled {
		return nil
	}

	if until, ok := l.blockedApps[appID]; ok {
		if currentBlock < until {
			return &AppBlockedError{AppID: appID, BlockedUntil: until, CurrentBlock: currentBlock}
		}
		delete(l.blockedApps, appID)
	}

	if l.globalBlock != currentBlock {
		l.globalBlock = currentBlock
		l.globalCount = 0
		for id, c := range l.appCounts {
			if c.Block != currentBlock {
				delete(l.appCounts, id)
			}
		}
	}

	if limit := l.config.effectiveGlobalLimit(); l.globalCount >= limit {
		return &GlobalLimitError{Limit: limit, Current: l.globalCount}
	}

	counter, ok := l.appCounts[appID]
	if !ok {
		counter = &appCounter{Block: currentBlock}
		l.appCounts[appID] = counter
	}
	if limit := l.config.effectiveAppLimit(); counter.Count >= limit {
		until := currentBlock + l.config.CooldownBlocks
		l.blockedApps[appID] = until
		return &AppLimitError{
			AppID:        appID,
			Limit:        limit,
			BlockedUntil: until,
		}
	}

	counter.Count++
	l.globalCount++
	return nil
}

// Pause rejects every subsequent submission until Resume.
func (l *Limiter) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = true
}

// Resume lifts a pause.
func (l *Limiter) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paused = false
}

// Paused reports whether ingestion is paused.
func (l *Limiter) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.paused
}

// UpdateConfig replaces the limiter configuration. Counters and cooldowns
// carry over.
func (l *Limiter) UpdateConfig(config Config) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config = config
}

// Config returns the active configuration.
func (l *Limiter) Config() Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.config
}

// UnblockApp clears any cooldown on appID. It reports whether a cooldown was
// present.
func (l *Limiter) UnblockApp(appID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.blockedApps[appID]
	delete(l.blockedApps, appID)
	return ok
}

// Stats is a point-in-time view of limiter state.
type Stats struct {
	Config       Config            `json:"config"`
	Paused       bool              `json:"paused"`
	CurrentBlock uint64            `json:"current_block"`
	GlobalCount  uint64            `json:"global_count"`
	AppCounts    map[string]uint64 `json:"app_counts"`
	BlockedApps  map[string]uint64 `json:"blocked_apps"`
}

// Stats returns a snapshot of current counters and cooldowns.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Stats{
		Config:       l.config,
		Paused:       l.paused,
		CurrentBlock: l.globalBlock,
		GlobalCount:  l.globalCount,
		AppCounts:    make(map[string]uint64, len(l.appCounts)),
		BlockedApps:  make(map[string]uint64, len(l.blockedApps)),
	}
	for id, c := range l.appCounts {
		s.AppCounts[id] = c.Count
	}
	for id, until := range l.blockedApps {
		s.BlockedApps[id] = until
	}
	return s
}

// Snapshot is the serializable limiter state.
type Snapshot struct {
	Config      Config                `json:"config"`
	Paused      bool                  `json:"paused"`
	GlobalCount uint64                `json:"global_count"`
	GlobalBlock uint64                `json:"global_block"`
	AppCounts   map[string]appCounter `json:"app_counts"`
	BlockedApps map[string]uint64     `json:"blocked_apps"`
}

// Snapshot captures the full limiter state for persistence.
func (l *Limiter) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Snapshot{
		Config:      l.config,
		Paused:      l.paused,
		GlobalCount: l.globalCount,
		GlobalBlock: l.globalBlock,
		AppCounts:   make(map[string]appCounter, len(l.appCounts)),
		BlockedApps: make(map[string]uint64, len(l.blockedApps)),
	}
	for id, c := range l.appCounts {
		s.AppCounts[id] = *c
	}
	for id, until := range l.blockedApps {
		s.BlockedApps[id] = until
	}
	return s
}

// Restore replaces the limiter state with a previously captured snapshot.
func (l *Limiter) Restore(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.config = s.Config
	l.paused = s.Paused
	l.globalCount = s.GlobalCount
	l.globalBlock = s.GlobalBlock
	l.appCounts = make(map[string]*appCounter, len(s.AppCounts))
	for id, c := range s.AppCounts {
		counter := c
		l.appCounts[id] = &counter
	}
	l.blockedApps = make(map[string]uint64, len(s.BlockedApps))
	for id, until := range s.BlockedApps {
		l.blockedApps[id] = until
	}
}
