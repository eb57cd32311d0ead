package store

import (
	"fmt"
	"sort"

	"github.com/chainsentry/eventmonitor/internal/types"
	"github.com/chainsentry/eventmonitor/pkg/stats"
)

// AddApplication registers or replaces the configuration for an application.
func (s *Store) AddApplication(config types.AppConfig) error {
	if config.ApplicationID == "" {
		return fmt.Errorf("application id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[config.ApplicationID] = config
	return nil
}

// UpdateApplication replaces the configuration of a registered application.
func (s *Store) UpdateApplication(appID string, config types.AppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps[appID]; !ok {
		return &NotFoundError{Kind: "application", Key: appID}
	}
	config.ApplicationID = appID
	s.apps[appID] = config
	return nil
}

// RemoveApplication drops an application from the registry. Captured events
// and metric history survive removal.
func (s *Store) RemoveApplication(appID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps[appID]; !ok {
		return &NotFoundError{Kind: "application", Key: appID}
	}
	delete(s.apps, appID)
	return nil
}

// Application returns the registered configuration for appID.
func (s *Store) Application(appID string) (types.AppConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	config, ok := s.apps[appID]
	if !ok {
		return types.AppConfig{}, &NotFoundError{Kind: "application", Key: appID}
	}
	return config, nil
}

// Applications returns every registered application, ordered by id.
func (s *Store) Applications() []types.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.AppConfig, 0, len(s.apps))
	for _, config := range s.apps {
		out = append(out, config)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ApplicationID < out[j].ApplicationID })
	return out
}

// ApplicationCount returns the number of registered applications.
func (s *Store) ApplicationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.apps)
}

// DefineMetric registers or replaces a metric definition.
func (s *Store) DefineMetric(def types.MetricDefinition) error {
	if def.Name == "" {
		return fmt.Errorf("metric name must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metricDefs[def.Name] = def
	return nil
}

// MetricDefinition returns the definition registered under name.
func (s *Store) MetricDefinition(name string) (types.MetricDefinition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	def, ok := s.metricDefs[name]
	if !ok {
		return types.MetricDefinition{}, &NotFoundError{Kind: "metric definition", Key: name}
	}
	return def, nil
}

// MetricDefinitions returns every registered definition, ordered by name.
func (s *Store) MetricDefinitions() []types.MetricDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.MetricDefinition, 0, len(s.metricDefs))
	for _, def := range s.metricDefs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// metricKey scopes a metric value to its application.
func metricKey(appID, metric string) string {
	return appID + ":" + metric
}

// UpdateMetric records a new value for an application-scoped metric, keeping
// both the latest value and its timestamped history.
func (s *Store) UpdateMetric(appID, metric string, value types.MetricValue, timestamp uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := metricKey(appID, metric)
	s.metricValues[key] = value
	s.metricHistory[key] = append(s.metricHistory[key], stats.Point{
		Timestamp: timestamp,
		Value:     value.Float64(),
	})
}

// MetricValue returns the latest value for an application-scoped metric.
func (s *Store) MetricValue(appID, metric string) (types.MetricValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.metricValues[metricKey(appID, metric)]
	if !ok {
		return types.MetricValue{}, &NotFoundError{Kind: "metric", Key: metricKey(appID, metric)}
	}
	return value, nil
}

// ApplicationMetrics returns the latest value of every metric recorded for
// appID, keyed by metric name.
func (s *Store) ApplicationMetrics(appID string) map[string]types.MetricValue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := appID + ":"
	out := make(map[string]types.MetricValue)
	for key, value := range s.metricValues {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			out[key[len(prefix):]] = value
		}
	}
	return out
}

// MetricHistory returns the timestamped history for an application-scoped
// metric in recording order.
func (s *Store) MetricHistory(appID, metric string) []stats.Point {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hist := s.metricHistory[metricKey(appID, metric)]
	out := make([]stats.Point, len(hist))
	copy(out, hist)
	return out
}

// MetricSamples returns the metric values recorded in the inclusive time
// range for every application in appFilter (or all applications when the
// filter is empty), keyed by application id.
func (s *Store) MetricSamples(metric string, r types.TimeRange, appFilter []string) map[string][]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := make(map[string]struct{}, len(appFilter))
	for _, app := range appFilter {
		allowed[app] = struct{}{}
	}

	suffix := ":" + metric
	out := make(map[string][]float64)
	for key, hist := range s.metricHistory {
		if len(key) <= len(suffix) || key[len(key)-len(suffix):] != suffix {
			continue
		}
		appID := key[:len(key)-len(suffix)]
		if len(allowed) > 0 {
			if _, ok := allowed[appID]; !ok {
				continue
			}
		}
		for _, p := range hist {
			if r.Contains(p.Timestamp) {
				out[appID] = append(out[appID], p.Value)
			}
		}
	}
	return out
}
