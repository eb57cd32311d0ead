// Package store holds the in-memory system of record for captured events:
// the append-only event log, transaction-hash deduplication, time and
// application secondary indexes, the Merkle integrity index, the application
// registry and the metric catalog. Admission control is delegated to the
// rate limiter on every capture.
package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/chainsentry/eventmonitor/internal/types"
	"github.com/chainsentry/eventmonitor/pkg/merkle"
	"github.com/chainsentry/eventmonitor/pkg/ratelimit"
	"github.com/chainsentry/eventmonitor/pkg/stats"
)

// ErrBatchNoneAdmitted reports a batch in which every event was rejected.
var ErrBatchNoneAdmitted = errors.New("no event in batch was admitted")

// DuplicateEventError rejects an event whose transaction hash was already
// captured.
type DuplicateEventError struct {
	TxHash string
}

func (e *DuplicateEventError) Error() string {
	return fmt.Sprintf("event with transaction hash %s already captured", e.TxHash)
}

// NotFoundError reports a missing entity by kind and key.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.Key)
}

// Store is the monitor state container. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	limiter *ratelimit.Limiter

	log       []*types.CapturedEvent
	seenTx    map[string]struct{}
	timeIndex map[uint64][]types.EventID
	appIndex  map[string][]types.EventID
	index     *merkle.Index

	nextID        types.EventID
	lifetimeCount uint64
	currentBlock  uint64

	apps          map[string]types.AppConfig
	metricDefs    map[string]types.MetricDefinition
	metricValues  map[string]types.MetricValue
	metricHistory map[string][]stats.Point
}

// New returns an empty store gated by limiter.
func New(limiter *ratelimit.Limiter, merkleDepth int) *Store {
	return &Store{
		limiter:       limiter,
		seenTx:        make(map[string]struct{}),
		timeIndex:     make(map[uint64][]types.EventID),
		appIndex:      make(map[string][]types.EventID),
		index:         merkle.New(merkleDepth),
		apps:          make(map[string]types.AppConfig),
		metricDefs:    make(map[string]types.MetricDefinition),
		metricValues:  make(map[string]types.MetricValue),
		metricHistory: make(map[string][]stats.Point),
	}
}

// Limiter exposes the admission gate for control operations.
func (s *Store) Limiter() *ratelimit.Limiter {
	return s.limiter
}

// CaptureEvent admits one event: duplicate check, rate limiting, id and
// block-height assignment, then log, dedup set, secondary indexes and Merkle
// insertion. Returns the assigned event id.
func (s *Store) CaptureEvent(e *types.CapturedEvent) (types.EventID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captureLocked(e)
}

func (s *Store) captureLocked(e *types.CapturedEvent) (types.EventID, error) {
	if e.TransactionHash != "" {
		if _, seen := s.seenTx[e.TransactionHash]; seen {
			return 0, &DuplicateEventError{TxHash: e.TransactionHash}
		}
	}

	if err := s.limiter.CheckAndIncrement(e.SourceApp, s.currentBlock); err != nil {
		return 0, err
	}

	e.ID = s.nextID
	s.nextID++
	if e.BlockHeight == nil {
		height := s.currentBlock
		e.BlockHeight = &height
	}

	s.log = append(s.log, e)
	if e.TransactionHash != "" {
		s.seenTx[e.TransactionHash] = struct{}{}
	}
	s.timeIndex[e.Timestamp] = append(s.timeIndex[e.Timestamp], e.ID)
	s.appIndex[e.SourceApp] = append(s.appIndex[e.SourceApp], e.ID)
	s.index.Insert(uint64(e.ID), e.ContentHash())
	s.lifetimeCount++
	return e.ID, nil
}

// BatchResult reports the outcome of a batch capture. Outcomes holds one
// entry per submitted event in order, nil when the event was admitted.
type BatchResult struct {
	Outcomes    []error
	Admitted    int
	Rejected    int
	LastEventID types.EventID
}

// CaptureBatch admits events one by one, continuing past rejections. It
// fails with ErrBatchNoneAdmitted only when the whole batch was rejected;
// otherwise LastEventID carries the id of the last admitted event.
func (s *Store) CaptureBatch(events []*types.CapturedEvent) (BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := BatchResult{Outcomes: make([]error, len(events))}
	for i, e := range events {
		id, err := s.captureLocked(e)
		result.Outcomes[i] = err
		if err != nil {
			result.Rejected++
			continue
		}
		result.Admitted++
		result.LastEventID = id
	}
	if len(events) > 0 && result.Admitted == 0 {
		return result, ErrBatchNoneAdmitted
	}
	return result, nil
}

// ClearEvents drops the event log, the dedup set, both secondary indexes and
// the Merkle index. The id sequence and the lifetime counter survive so
// cleared history can never be replayed under old ids.
func (s *Store) ClearEvents() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log = nil
	s.seenTx = make(map[string]struct{})
	s.timeIndex = make(map[uint64][]types.EventID)
	s.appIndex = make(map[string][]types.EventID)
	s.index.Reset()
}

// RebuildMerkleIndex recomputes the Merkle index from scratch by reinserting
// every logged event in log order.
func (s *Store) RebuildMerkleIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index.Reset()
	for _, e := range s.log {
		s.index.Insert(uint64(e.ID), e.ContentHash())
	}
}

// Event returns the event with the given id.
func (s *Store) Event(id types.EventID) (*types.CapturedEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.eventLocked(id)
}

func (s *Store) eventLocked(id types.EventID) (*types.CapturedEvent, error) {
	// The log is append-only and ids are assigned sequentially, so binary
	// search works even after ClearEvents advanced the sequence.
	i := sort.Search(len(s.log), func(i int) bool { return s.log[i].ID >= id })
	if i < len(s.log) && s.log[i].ID == id {
		return s.log[i], nil
	}
	return nil, &NotFoundError{Kind: "event", Key: fmt.Sprintf("%d", id)}
}

// Events returns the filtered event list, newest first, windowed by page.
func (s *Store) Events(filters types.EventFilters, page types.Pagination) []*types.CapturedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	page = page.Normalize()
	var matched []*types.CapturedEvent
	for i := len(s.log) - 1; i >= 0; i-- {
		if filters.Match(s.log[i]) {
			matched = append(matched, s.log[i])
		}
	}
	if page.Offset >= len(matched) {
		return nil
	}
	matched = matched[page.Offset:]
	if len(matched) > page.Limit {
		matched = matched[:page.Limit]
	}
	return matched
}

// EventsByApp returns every event captured from appID in log order.
func (s *Store) EventsByApp(appID string) []*types.CapturedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.appIndex[appID]
	out := make([]*types.CapturedEvent, 0, len(ids))
	for _, id := range ids {
		if e, err := s.eventLocked(id); err == nil {
			out = append(out, e)
		}
	}
	return out
}

// EventsInRange returns every event in the inclusive time range, ordered by
// timestamp then id.
func (s *Store) EventsInRange(r types.TimeRange) []*types.CapturedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	timestamps := make([]uint64, 0, len(s.timeIndex))
	for ts := range s.timeIndex {
		if r.Contains(ts) {
			timestamps = append(timestamps, ts)
		}
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })

	var out []*types.CapturedEvent
	for _, ts := range timestamps {
		for _, id := range s.timeIndex[ts] {
			if e, err := s.eventLocked(id); err == nil {
				out = append(out, e)
			}
		}
	}
	return out
}

// EventCount returns the number of events currently logged.
func (s *Store) EventCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.log)
}

// LifetimeCaptured returns the number of events ever admitted, surviving
// ClearEvents.
func (s *Store) LifetimeCaptured() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lifetimeCount
}

// MerkleRoot returns the current integrity root. The second return is false
// while the index is empty.
func (s *Store) MerkleRoot() (merkle.Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Root()
}

// EventProof builds an inclusion proof for the event with the given id.
func (s *Store) EventProof(id types.EventID) (*merkle.Proof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.GenerateProof(uint64(id))
}

// EventBatchProof bundles inclusion proofs for the ids that resolve to a
// leaf, tagged with batchID.
func (s *Store) EventBatchProof(ids []types.EventID, batchID uint64) (*merkle.BatchProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	raw := make([]uint64, len(ids))
	for i, id := range ids {
		raw[i] = uint64(id)
	}
	return s.index.GenerateBatchProof(raw, batchID)
}

// CurrentBlock returns the block height subsequent captures are scoped to.
func (s *Store) CurrentBlock() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentBlock
}

// SetCurrentBlock advances the block height used for rate-limit scoping and
// block-height assignment.
func (s *Store) SetCurrentBlock(height uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentBlock = height
}
