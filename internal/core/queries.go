package core

import (
	"github.com/chainsentry/eventmonitor/internal/types"
	"github.com/chainsentry/eventmonitor/pkg/merkle"
	"github.com/chainsentry/eventmonitor/pkg/rbac"
	"github.com/chainsentry/eventmonitor/pkg/ratelimit"
	"github.com/chainsentry/eventmonitor/pkg/stats"
)

// Event returns a single captured event by id.
func (s *Service) Event(caller string, id types.EventID) (*types.CapturedEvent, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return nil, err
	}
	return s.store.Event(id)
}

// Events returns the filtered event list, newest first.
func (s *Service) Events(caller string, filters types.EventFilters, page types.Pagination) ([]*types.CapturedEvent, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return nil, err
	}
	return s.store.Events(filters, page), nil
}

// EventsByApp returns every event captured from appID in log order.
func (s *Service) EventsByApp(caller, appID string) ([]*types.CapturedEvent, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return nil, err
	}
	return s.store.EventsByApp(appID), nil
}

// Applications lists the registered applications.
func (s *Service) Applications(caller string) ([]types.AppConfig, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return nil, err
	}
	return s.store.Applications(), nil
}

// ApplicationMetrics returns the latest value of every metric recorded for
// appID.
func (s *Service) ApplicationMetrics(caller, appID string) (map[string]types.MetricValue, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return nil, err
	}
	return s.store.ApplicationMetrics(appID), nil
}

// TimeSeries buckets the history of an application-scoped metric over the
// inclusive time range. Each bucket folds its samples with the metric's
// registered aggregation method (last value when undefined) and is stamped
// at its start.
func (s *Service) TimeSeries(caller, appID, metric string, r types.TimeRange, granularity uint64) ([]types.TimeSeriesPoint, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return nil, err
	}
	if granularity == 0 {
		return nil, ErrInvalidConfig
	}

	method := types.AggregationLast
	counter := false
	if def, err := s.store.MetricDefinition(metric); err == nil {
		method = def.Aggregation
		counter = def.Kind == types.MetricCounter
	}

	history := s.store.MetricHistory(appID, metric)
	var series []types.TimeSeriesPoint
	for start := stats.BucketStart(r.Start, granularity); start <= r.End; start += granularity {
		var samples []float64
		for _, p := range history {
			if p.Timestamp >= start && p.Timestamp < start+granularity && r.Contains(p.Timestamp) {
				samples = append(samples, p.Value)
			}
		}
		if len(samples) == 0 {
			continue
		}
		folded := foldSamples(method, samples)
		value := types.NewGauge(folded)
		if counter {
			value = types.NewCounter(uint64(folded))
		}
		series = append(series, types.TimeSeriesPoint{Timestamp: start, Value: value})
	}
	return series, nil
}

func foldSamples(method types.AggregationMethod, samples []float64) float64 {
	switch method {
	case types.AggregationSum:
		return stats.Aggregate(stats.Sum(), samples)
	case types.AggregationAverage:
		return stats.Aggregate(stats.Average(), samples)
	case types.AggregationMin:
		return stats.Aggregate(stats.Min(), samples)
	case types.AggregationMax:
		return stats.Aggregate(stats.Max(), samples)
	default:
		return samples[len(samples)-1]
	}
}

// MovingAverage computes a simple moving average over a metric's history.
func (s *Service) MovingAverage(caller, appID, metric string, window int) ([]stats.Point, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return nil, err
	}
	return stats.MovingAverage(s.store.MetricHistory(appID, metric), window), nil
}

// Anomalies flags history samples of a metric whose z-score magnitude
// exceeds threshold.
func (s *Service) Anomalies(caller, appID, metric string, threshold float64) ([]stats.Anomaly, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return nil, err
	}
	return stats.DetectAnomalies(s.store.MetricHistory(appID, metric), threshold), nil
}

// Aggregation folds every sample of the queried metric across the matching
// applications and time range.
func (s *Service) Aggregation(caller string, q types.AggregationQuery) (types.AggregatedResult, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return types.AggregatedResult{}, err
	}

	r := types.TimeRange{Start: q.StartTime, End: q.EndTime}
	var values []float64
	for _, appValues := range s.store.MetricSamples(q.Metric, r, q.AppFilter) {
		values = append(values, appValues...)
	}

	result := types.AggregatedResult{
		Metric:      q.Metric,
		Aggregation: q.Aggregation,
		Value:       stats.Aggregate(q.Aggregation, values),
		SampleCount: len(values),
	}
	if q.GranularityMs > 0 {
		bucket := stats.BucketFor(q.StartTime, q.GranularityMs)
		result.Bucket = &bucket
	}
	return result, nil
}

// CorrelationMatrix computes pairwise Pearson coefficients between the named
// metrics of one application over the inclusive time range. The matrix is
// row-major with a unit diagonal.
func (s *Service) CorrelationMatrix(caller, appID string, metrics []string, r types.TimeRange) (types.CorrelationMatrix, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return types.CorrelationMatrix{}, err
	}

	series := make([][]float64, len(metrics))
	for i, metric := range metrics {
		var values []float64
		for _, p := range s.store.MetricHistory(appID, metric) {
			if r.Contains(p.Timestamp) {
				values = append(values, p.Value)
			}
		}
		series[i] = values
	}

	n := len(metrics)
	matrix := types.CorrelationMatrix{
		Metrics:      metrics,
		Coefficients: make([]float64, n*n),
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				matrix.Coefficients[i*n+j] = 1.0
				continue
			}
			matrix.Coefficients[i*n+j] = stats.Correlation(series[i], series[j])
		}
	}
	return matrix, nil
}

// MerkleRoot returns the current integrity root, nil while the log is empty.
func (s *Service) MerkleRoot(caller string) (*merkle.Hash, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return nil, err
	}
	root, ok := s.store.MerkleRoot()
	if !ok {
		return nil, nil
	}
	return &root, nil
}

// EventProof builds an inclusion proof for the event with the given id.
func (s *Service) EventProof(caller string, id types.EventID) (*merkle.Proof, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return nil, err
	}
	return s.store.EventProof(id)
}

// EventBatchProof bundles inclusion proofs for the ids that resolve, tagged
// with batchID. Unresolvable ids are skipped; the call fails only when the
// index is empty or no id resolves.
func (s *Service) EventBatchProof(caller string, ids []types.EventID, batchID uint64) (*merkle.BatchProof, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return nil, err
	}
	return s.store.EventBatchProof(ids, batchID)
}

// VerifyProof checks an inclusion proof against a root. Pure computation,
// open to any caller.
func (s *Service) VerifyProof(proof *merkle.Proof, root merkle.Hash) bool {
	return merkle.VerifyProof(proof, root)
}

// RateLimitStats returns the limiter's counters and cooldowns.
func (s *Service) RateLimitStats(caller string) (ratelimit.Stats, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return ratelimit.Stats{}, err
	}
	return s.limiter.Stats(), nil
}

// RBACInfo returns the role and effective permissions of identity.
func (s *Service) RBACInfo(caller, identity string) (types.RBACInfo, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return types.RBACInfo{}, err
	}
	role := s.authority.Role(identity)
	return types.RBACInfo{Role: role, Permissions: rbac.RolePermissions(role)}, nil
}

// SystemHealth returns the coarse status projection over the whole core.
func (s *Service) SystemHealth(caller string) (types.SystemHealth, error) {
	if err := s.require(caller, rbac.PermViewEvents); err != nil {
		return types.SystemHealth{}, err
	}

	health := types.SystemHealth{
		TotalEvents:       uint64(s.store.EventCount()),
		TotalApplications: s.store.ApplicationCount(),
		RateLimitEnabled:  s.limiter.Config().Enabled,
		IngestionPaused:   s.limiter.Paused(),
	}
	if root, ok := s.store.MerkleRoot(); ok {
		health.MerkleRoot = &root
	}
	return health, nil
}

// LifetimeCaptured returns the number of events ever admitted.
func (s *Service) LifetimeCaptured() uint64 {
	return s.store.LifetimeCaptured()
}

// EventCount returns the number of events currently logged.
func (s *Service) EventCount() int {
	return s.store.EventCount()
}

// ApplicationCount returns the number of registered applications.
func (s *Service) ApplicationCount() int {
	return s.store.ApplicationCount()
}

// Paused reports whether ingestion is paused.
func (s *Service) Paused() bool {
	return s.limiter.Paused()
}
