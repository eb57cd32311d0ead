package store

import (
	"github.com/chainsentry/eventmonitor/internal/types"
	"github.com/chainsentry/eventmonitor/pkg/stats"
)

// State is the serializable store content. Secondary indexes, the dedup set
// and the Merkle index are derived state and are rebuilt on Restore.
type State struct {
	Events        []*types.CapturedEvent            `json:"events"`
	NextEventID   types.EventID                     `json:"next_event_id"`
	LifetimeCount uint64                            `json:"lifetime_count"`
	CurrentBlock  uint64                            `json:"current_block"`
	Applications  map[string]types.AppConfig        `json:"applications"`
	MetricDefs    map[string]types.MetricDefinition `json:"metric_defs"`
	MetricValues  map[string]types.MetricValue      `json:"metric_values"`
	MetricHistory map[string][]stats.Point          `json:"metric_history"`
}

// Snapshot captures the full store content for persistence.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := State{
		Events:        make([]*types.CapturedEvent, len(s.log)),
		NextEventID:   s.nextID,
		LifetimeCount: s.lifetimeCount,
		CurrentBlock:  s.currentBlock,
		Applications:  make(map[string]types.AppConfig, len(s.apps)),
		MetricDefs:    make(map[string]types.MetricDefinition, len(s.metricDefs)),
		MetricValues:  make(map[string]types.MetricValue, len(s.metricValues)),
		MetricHistory: make(map[string][]stats.Point, len(s.metricHistory)),
	}
	for i, e := range s.log {
		event := *e
		st.Events[i] = &event
	}
	for id, config := range s.apps {
		st.Applications[id] = config
	}
	for name, def := range s.metricDefs {
		st.MetricDefs[name] = def
	}
	for key, value := range s.metricValues {
		st.MetricValues[key] = value
	}
	for key, hist := range s.metricHistory {
		points := make([]stats.Point, len(hist))
		copy(points, hist)
		st.MetricHistory[key] = points
	}
	return st
}

// Restore replaces the store content with a previously captured state,
// rebuilding the dedup set, the secondary indexes and the Merkle index from
// the event log.
func (s *Store) Restore(st State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log = make([]*types.CapturedEvent, len(st.Events))
	s.seenTx = make(map[string]struct{})
	s.timeIndex = make(map[uint64][]types.EventID)
	s.appIndex = make(map[string][]types.EventID)
	s.index.Reset()

	for i, e := range st.Events {
		event := *e
		s.log[i] = &event
		if event.TransactionHash != "" {
			s.seenTx[event.TransactionHash] = struct{}{}
		}
		s.timeIndex[event.Timestamp] = append(s.timeIndex[event.Timestamp], event.ID)
		s.appIndex[event.SourceApp] = append(s.appIndex[event.SourceApp], event.ID)
		s.index.Insert(uint64(event.ID), event.ContentHash())
	}

	s.nextID = st.NextEventID
	s.lifetimeCount = st.LifetimeCount
	s.currentBlock = st.CurrentBlock

	s.apps = make(map[string]types.AppConfig, len(st.Applications))
	for id, config := range st.Applications {
		s.apps[id] = config
	}
	s.metricDefs = make(map[string]types.MetricDefinition, len(st.MetricDefs))
	for name, def := range st.MetricDefs {
		s.metricDefs[name] = def
	}
	s.metricValues = make(map[string]types.MetricValue, len(st.MetricValues))
	for key, value := range st.MetricValues {
		s.metricValues[key] = value
	}
	s.metricHistory = make(map[string][]stats.Point, len(st.MetricHistory))
	for key, hist := range st.MetricHistory {
		points := make([]stats.Point, len(hist))
		copy(points, hist)
		s.metricHistory[key] = points
	}
	return nil
}
