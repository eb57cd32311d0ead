// Package core is the operation facade over the monitor state. Every
// operation authenticates its caller against the RBAC authority before
// touching the event store, the rate limiter or the metric catalog, so no
// consumer can reach mutable state without a permission check.
package core

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/chainsentry/eventmonitor/internal/store"
	"github.com/chainsentry/eventmonitor/internal/types"
	"github.com/chainsentry/eventmonitor/pkg/ratelimit"
	"github.com/chainsentry/eventmonitor/pkg/rbac"
)

// Service wires the store, the rate limiter and the RBAC authority behind a
// permission-checked operation surface.
type Service struct {
	store     *store.Store
	limiter   *ratelimit.Limiter
	authority *rbac.Authority
	logger    *zap.SugaredLogger
}

// Config assembles a Service.
type Config struct {
	SuperAdmin  string
	MerkleDepth int
	RateLimit   ratelimit.Config
	Logger      *zap.SugaredLogger
}

// New builds a fully wired service rooted at the configured super admin.
func New(config Config) *Service {
	limiter := ratelimit.New(config.RateLimit)
	return &Service{
		store:     store.New(limiter, config.MerkleDepth),
		limiter:   limiter,
		authority: rbac.New(config.SuperAdmin),
		logger:    config.Logger,
	}
}

func (s *Service) require(caller string, permission rbac.Permission) error {
	if !s.authority.HasPermission(caller, permission) {
		return &UnauthorizedError{Caller: caller, Permission: permission}
	}
	return nil
}

// SubmitEvent captures one event on behalf of caller.
func (s *Service) SubmitEvent(caller string, event *types.CapturedEvent) (types.EventID, error) {
	if err := s.require(caller, rbac.PermCaptureEvents); err != nil {
		return 0, err
	}
	id, err := s.store.CaptureEvent(event)
	if err != nil {
		return 0, err
	}
	s.logger.Debugw("event captured", "id", id, "app", event.SourceApp, "type", event.EventType)
	return id, nil
}

// SubmitBatch captures a batch of events, continuing past per-event
// rejections.
func (s *Service) SubmitBatch(caller string, events []*types.CapturedEvent) (store.BatchResult, error) {
	if err := s.require(caller, rbac.PermCaptureEvents); err != nil {
		return store.BatchResult{}, err
	}
	result, err := s.store.CaptureBatch(events)
	if err != nil {
		return result, err
	}
	s.logger.Infow("batch captured",
		"admitted", result.Admitted, "rejected", result.Rejected, "last_id", result.LastEventID)
	return result, nil
}

// AssignRole grants target a role. The caller needs the manage-roles
// permission and authority over the target's current role.
func (s *Service) AssignRole(caller, target string, role rbac.Role) error {
	if err := s.require(caller, rbac.PermManageRoles); err != nil {
		return err
	}
	if !s.authority.CanManage(caller, target) {
		return &UnauthorizedError{Caller: caller, Permission: rbac.PermManageRoles}
	}
	if err := s.authority.AssignRole(target, role); err != nil {
		return err
	}
	s.logger.Infow("role assigned", "caller", caller, "target", target, "role", role.String())
	return nil
}

// RemoveRole reverts target to the viewer role.
func (s *Service) RemoveRole(caller, target string) error {
	if err := s.require(caller, rbac.PermManageRoles); err != nil {
		return err
	}
	if !s.authority.CanManage(caller, target) {
		return &UnauthorizedError{Caller: caller, Permission: rbac.PermManageRoles}
	}
	if err := s.authority.RemoveRole(target); err != nil {
		return err
	}
	s.logger.Infow("role removed", "caller", caller, "target", target)
	return nil
}

// TransferSuperAdmin hands the super admin role to newSuperAdmin, wiping
// every other assignment.
func (s *Service) TransferSuperAdmin(caller, newSuperAdmin string) error {
	if err := s.require(caller, rbac.PermConfigureSystem); err != nil {
		return err
	}
	s.authority.TransferSuperAdmin(newSuperAdmin)
	s.logger.Warnw("super admin transferred", "from", caller, "to", newSuperAdmin)
	return nil
}

// PauseIngestion rejects every subsequent submission until resumed.
func (s *Service) PauseIngestion(caller string) error {
	if err := s.require(caller, rbac.PermControlIngestion); err != nil {
		return err
	}
	s.limiter.Pause()
	s.logger.Warnw("ingestion paused", "caller", caller)
	return nil
}

// ResumeIngestion lifts a pause.
func (s *Service) ResumeIngestion(caller string) error {
	if err := s.require(caller, rbac.PermControlIngestion); err != nil {
		return err
	}
	s.limiter.Resume()
	s.logger.Infow("ingestion resumed", "caller", caller)
	return nil
}

// UnblockApp clears a rate-limit cooldown on appID.
func (s *Service) UnblockApp(caller, appID string) error {
	if err := s.require(caller, rbac.PermControlIngestion); err != nil {
		return err
	}
	if !s.limiter.UnblockApp(appID) {
		return &store.NotFoundError{Kind: "blocked application", Key: appID}
	}
	s.logger.Infow("application unblocked", "caller", caller, "app", appID)
	return nil
}

// SetRateLimits replaces the whole rate-limit configuration.
func (s *Service) SetRateLimits(caller string, config ratelimit.Config) error {
	if err := s.require(caller, rbac.PermConfigureSystem); err != nil {
		return err
	}
	if err := validateRateLimit(config); err != nil {
		return err
	}
	s.limiter.UpdateConfig(config)
	s.logger.Infow("rate limits replaced", "caller", caller,
		"app_limit", config.MaxEventsPerBlock, "global_limit", config.GlobalMaxEventsPerBlock)
	return nil
}

// RateLimitUpdate is a partial rate-limit change; nil fields keep their
// current value.
type RateLimitUpdate struct {
	MaxEventsPerBlock       *uint64  `json:"max_events_per_block,omitempty"`
	GlobalMaxEventsPerBlock *uint64  `json:"global_max_events_per_block,omitempty"`
	BurstMultiplier         *float64 `json:"burst_multiplier,omitempty"`
	CooldownBlocks          *uint64  `json:"cooldown_blocks,omitempty"`
	Enabled                 *bool    `json:"enabled,omitempty"`
}

// UpdateRateLimitConfig applies a partial change to the active rate-limit
// configuration.
func (s *Service) UpdateRateLimitConfig(caller string, update RateLimitUpdate) error {
	if err := s.require(caller, rbac.PermControlIngestion); err != nil {
		return err
	}
	config := s.limiter.Config()
	if update.MaxEventsPerBlock != nil {
		config.MaxEventsPerBlock = *update.MaxEventsPerBlock
	}
	if update.GlobalMaxEventsPerBlock != nil {
		config.GlobalMaxEventsPerBlock = *update.GlobalMaxEventsPerBlock
	}
	if update.BurstMultiplier != nil {
		config.BurstMultiplier = *update.BurstMultiplier
	}
	if update.CooldownBlocks != nil {
		config.CooldownBlocks = *update.CooldownBlocks
	}
	if update.Enabled != nil {
		config.Enabled = *update.Enabled
	}
	if err := validateRateLimit(config); err != nil {
		return err
	}
	s.limiter.UpdateConfig(config)
	s.logger.Infow("rate limit config updated", "caller", caller)
	return nil
}

func validateRateLimit(config ratelimit.Config) error {
	if config.MaxEventsPerBlock == 0 || config.GlobalMaxEventsPerBlock == 0 {
		return fmt.Errorf("%w: limits must be positive", ErrInvalidConfig)
	}
	if config.BurstMultiplier < 1.0 {
		return fmt.Errorf("%w: burst multiplier must be at least 1.0", ErrInvalidConfig)
	}
	return nil
}

// ClearEvents wipes the event log and its indexes. Counters survive.
func (s *Service) ClearEvents(caller string) error {
	if err := s.require(caller, rbac.PermConfigureSystem); err != nil {
		return err
	}
	s.store.ClearEvents()
	s.logger.Warnw("event log cleared", "caller", caller)
	return nil
}

// RebuildMerkleIndex recomputes the integrity index from the event log.
func (s *Service) RebuildMerkleIndex(caller string) error {
	if err := s.require(caller, rbac.PermConfigureSystem); err != nil {
		return err
	}
	s.store.RebuildMerkleIndex()
	s.logger.Infow("merkle index rebuilt", "caller", caller, "events", s.store.EventCount())
	return nil
}

// AddApplication registers an application for monitoring.
func (s *Service) AddApplication(caller string, config types.AppConfig) error {
	if err := s.require(caller, rbac.PermAddApplication); err != nil {
		return err
	}
	if err := s.store.AddApplication(config); err != nil {
		return err
	}
	s.logger.Infow("application registered", "caller", caller, "app", config.ApplicationID)
	return nil
}

// UpdateApplication replaces the configuration of a registered application.
func (s *Service) UpdateApplication(caller, appID string, config types.AppConfig) error {
	if err := s.require(caller, rbac.PermAddApplication); err != nil {
		return err
	}
	if err := s.store.UpdateApplication(appID, config); err != nil {
		return err
	}
	s.logger.Infow("application updated", "caller", caller, "app", appID)
	return nil
}

// RemoveApplication drops an application from the registry.
func (s *Service) RemoveApplication(caller, appID string) error {
	if err := s.require(caller, rbac.PermRemoveApplication); err != nil {
		return err
	}
	if err := s.store.RemoveApplication(appID); err != nil {
		return err
	}
	s.logger.Infow("application removed", "caller", caller, "app", appID)
	return nil
}

// DefineMetric registers a metric definition.
func (s *Service) DefineMetric(caller string, def types.MetricDefinition) error {
	if err := s.require(caller, rbac.PermModifyMetrics); err != nil {
		return err
	}
	return s.store.DefineMetric(def)
}

// UpdateMetric records a new value for an application-scoped metric.
func (s *Service) UpdateMetric(caller, appID, metric string, value types.MetricValue, timestamp uint64) error {
	if err := s.require(caller, rbac.PermModifyMetrics); err != nil {
		return err
	}
	s.store.UpdateMetric(appID, metric, value, timestamp)
	return nil
}

// SetCurrentBlock advances the block height scoping rate limits and capture
// metadata. Driven by the ingestion loop, not a caller-facing operation.
func (s *Service) SetCurrentBlock(height uint64) {
	s.store.SetCurrentBlock(height)
}

// CurrentBlock returns the active block height.
func (s *Service) CurrentBlock() uint64 {
	return s.store.CurrentBlock()
}
