// Package intake turns consumed operation envelopes into calls on the core
// service, archives admitted events to ClickHouse and publishes alerts for
// high-severity events. Returning an error from Process routes the message
// to the dead letter queue.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	cKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"

	"github.com/chainsentry/eventmonitor/internal/core"
	"github.com/chainsentry/eventmonitor/internal/store"
	"github.com/chainsentry/eventmonitor/internal/types"
	"github.com/chainsentry/eventmonitor/pkg/data/clickhouse/eventrepo"
	"github.com/chainsentry/eventmonitor/pkg/kafka/message"
	"github.com/chainsentry/eventmonitor/pkg/kafka/messages"
	"github.com/chainsentry/eventmonitor/pkg/metrics"
	"github.com/chainsentry/eventmonitor/pkg/queue"
	"github.com/chainsentry/eventmonitor/pkg/ratelimit"
	"github.com/chainsentry/eventmonitor/pkg/rbac"
)

// Config wires the processor's collaborators. Archive, Alerts and Metrics
// are optional; a nil archive skips persistence, a nil publisher skips
// alerting.
type Config struct {
	Service       *core.Service
	Archive       eventrepo.Events
	Alerts        queue.QueuePublisher
	AlertsTopic   string
	AlertSeverity types.Severity
	Metrics       *metrics.Metrics
	Logger        *zap.SugaredLogger
}

// Processor consumes operation envelopes from the monitor topic.
type Processor struct {
	svc           *core.Service
	archive       eventrepo.Events
	alerts        queue.QueuePublisher
	alertsTopic   string
	alertSeverity types.Severity
	metrics       *metrics.Metrics
	log           *zap.SugaredLogger
}

// New creates an intake processor.
func New(cfg Config) *Processor {
	return &Processor{
		svc:           cfg.Service,
		archive:       cfg.Archive,
		alerts:        cfg.Alerts,
		alertsTopic:   cfg.AlertsTopic,
		alertSeverity: cfg.AlertSeverity,
		metrics:       cfg.Metrics,
		log:           cfg.Logger,
	}
}

// Process implements processor.Processor.
func (p *Processor) Process(ctx context.Context, msg *cKafka.Message) error {
	env, err := message.Open(msg.Value)
	if err != nil {
		p.metrics.IncError("envelope_decode")
		return fmt.Errorf("failed to open envelope: %w", err)
	}

	p.metrics.RecordMessageReceived(env.Type)
	p.metrics.IncMessagesInFlight()
	defer p.metrics.DecMessagesInFlight()

	start := time.Now()
	err = p.dispatch(ctx, env)
	p.metrics.RecordMessageProcessed(env.Type, err, time.Since(start).Seconds())
	p.updateStoreGauges()
	return err
}

func (p *Processor) dispatch(ctx context.Context, env *message.Envelope) error {
	switch env.Type {
	case messages.TypeEventCapture:
		return p.handleEventCapture(ctx, env)
	case messages.TypeEventBatch:
		return p.handleEventBatch(ctx, env)
	case messages.TypeMetricDefine:
		return p.handleMetricDefine(env)
	case messages.TypeMetricUpdate:
		return p.handleMetricUpdate(env)
	case messages.TypeRoleAssign:
		return p.handleRoleAssign(env)
	case messages.TypeRoleRemove:
		return p.handleRoleRemove(env)
	case messages.TypeRateLimitSet:
		return p.handleRateLimitSet(env)
	case messages.TypeRateLimitUpdate:
		return p.handleRateLimitUpdate(env)
	case messages.TypeAppAdd:
		return p.handleAppAdd(env)
	case messages.TypeAppUpdate:
		return p.handleAppUpdate(env)
	case messages.TypeAppRemove:
		return p.handleAppRemove(env)
	case messages.TypeIngestPause:
		return p.svc.PauseIngestion(env.Caller)
	case messages.TypeIngestResume:
		return p.svc.ResumeIngestion(env.Caller)
	case messages.TypeIngestUnblock:
		return p.handleIngestUnblock(env)
	case messages.TypeEventsClear:
		return p.svc.ClearEvents(env.Caller)
	case messages.TypeMerkleRebuild:
		return p.svc.RebuildMerkleIndex(env.Caller)
	case messages.TypeAdminTransfer:
		return p.handleAdminTransfer(env)
	default:
		p.metrics.IncreaseUnknownMessageCount()
		return fmt.Errorf("unknown envelope type: %q", env.Type)
	}
}

func (p *Processor) handleEventCapture(ctx context.Context, env *message.Envelope) error {
	wireEvent, err := messages.Decode[messages.Event](env.Data)
	if err != nil {
		return err
	}
	event, err := toCapturedEvent(wireEvent)
	if err != nil {
		p.metrics.RecordEventRejected(metrics.ReasonInvalid)
		return err
	}

	if _, err := p.svc.SubmitEvent(env.Caller, event); err != nil {
		return p.recordRejection(event.SourceApp, err)
	}
	p.metrics.RecordEventCaptured(event.SourceApp)

	return p.afterAdmit(ctx, event)
}

func (p *Processor) handleEventBatch(ctx context.Context, env *message.Envelope) error {
	batch, err := messages.Decode[messages.EventBatch](env.Data)
	if err != nil {
		return err
	}

	events := make([]*types.CapturedEvent, 0, len(batch.Events))
	for _, wireEvent := range batch.Events {
		event, err := toCapturedEvent(wireEvent)
		if err != nil {
			p.metrics.RecordEventRejected(metrics.ReasonInvalid)
			p.log.Warnw("dropping invalid batch event", "error", err)
			continue
		}
		events = append(events, event)
	}

	result, err := p.svc.SubmitBatch(env.Caller, events)
	p.metrics.RecordBatch()
	if err != nil && !errors.Is(err, store.ErrBatchNoneAdmitted) {
		return err
	}
	p.log.Debugw("batch processed",
		"admitted", result.Admitted, "rejected", result.Rejected, "last_event_id", result.LastEventID)

	var firstErr error
	for i, event := range events {
		if result.Outcomes[i] != nil {
			p.metrics.RecordEventRejected(metrics.ReasonBatchRejected)
			continue
		}
		p.metrics.RecordEventCaptured(event.SourceApp)
		if err := p.afterAdmit(ctx, event); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// afterAdmit archives an admitted event and publishes an alert when its
// severity reaches the floor.
func (p *Processor) afterAdmit(ctx context.Context, event *types.CapturedEvent) error {
	if p.archive != nil {
		err := p.archive.WriteEvent(ctx, toEventRow(event))
		p.metrics.RecordArchiveWrite(1, err)
		if err != nil {
			// The store already holds the event; losing the archive row is
			// not worth a DLQ round-trip.
			p.log.Errorw("failed to archive event", "event_id", event.ID, "error", err)
		}
	}

	if p.alerts != nil && event.Severity >= p.alertSeverity {
		payload, err := json.Marshal(toAlert(event))
		if err != nil {
			return fmt.Errorf("failed to encode alert: %w", err)
		}
		err = p.alerts.Publish(ctx, queue.Msg{
			Topic: p.alertsTopic,
			Key:   []byte(event.SourceApp),
			Value: payload,
		})
		p.metrics.RecordAlertPublished(event.Severity.String(), err)
		if err != nil {
			return fmt.Errorf("failed to publish alert for event %d: %w", event.ID, err)
		}
	}
	return nil
}

// recordRejection classifies an admission error. Expected business
// rejections are counted and swallowed; everything else propagates and ends
// up in the DLQ.
func (p *Processor) recordRejection(sourceApp string, err error) error {
	var dup *store.DuplicateEventError
	var blocked *ratelimit.AppBlockedError
	var appLimit *ratelimit.AppLimitError
	var globalLimit *ratelimit.GlobalLimitError

	switch {
	case errors.As(err, &dup):
		p.metrics.RecordEventRejected(metrics.ReasonDuplicate)
	case errors.As(err, &blocked):
		p.metrics.RecordEventRejected(metrics.ReasonBlocked)
	case errors.As(err, &appLimit):
		p.metrics.RecordEventRejected(metrics.ReasonAppRateLimit)
	case errors.As(err, &globalLimit):
		p.metrics.RecordEventRejected(metrics.ReasonGlobalRateLimit)
	case errors.Is(err, ratelimit.ErrIngestionPaused):
		// Paused submissions go to the DLQ so they can be replayed after
		// ingestion resumes.
		p.metrics.RecordEventRejected(metrics.ReasonPaused)
		return err
	case errors.Is(err, core.ErrUnauthorized):
		p.metrics.RecordEventRejected(metrics.ReasonUnauthorized)
		return err
	default:
		return err
	}

	p.log.Debugw("event rejected", "source_app", sourceApp, "reason", err)
	return nil
}

func (p *Processor) handleMetricDefine(env *message.Envelope) error {
	msg, err := messages.Decode[messages.MetricDefine](env.Data)
	if err != nil {
		return err
	}
	def, err := toMetricDefinition(msg)
	if err != nil {
		return err
	}
	return p.svc.DefineMetric(env.Caller, def)
}

func (p *Processor) handleMetricUpdate(env *message.Envelope) error {
	msg, err := messages.Decode[messages.MetricUpdate](env.Data)
	if err != nil {
		return err
	}
	var value types.MetricValue
	if err := json.Unmarshal(msg.Value, &value); err != nil {
		return fmt.Errorf("failed to decode metric value: %w", err)
	}
	return p.svc.UpdateMetric(env.Caller, msg.AppID, msg.Metric, value, msg.Timestamp)
}

func (p *Processor) handleRoleAssign(env *message.Envelope) error {
	msg, err := messages.Decode[messages.RoleAssign](env.Data)
	if err != nil {
		return err
	}
	role, err := rbac.ParseRole(msg.Role)
	if err != nil {
		return err
	}
	return p.svc.AssignRole(env.Caller, msg.Target, role)
}

func (p *Processor) handleRoleRemove(env *message.Envelope) error {
	msg, err := messages.Decode[messages.RoleRemove](env.Data)
	if err != nil {
		return err
	}
	return p.svc.RemoveRole(env.Caller, msg.Target)
}

func (p *Processor) handleRateLimitSet(env *message.Envelope) error {
	msg, err := messages.Decode[messages.RateLimitSet](env.Data)
	if err != nil {
		return err
	}
	return p.svc.SetRateLimits(env.Caller, ratelimit.Config{
		MaxEventsPerBlock:       msg.MaxEventsPerBlock,
		GlobalMaxEventsPerBlock: msg.GlobalMaxEventsPerBlock,
		BurstMultiplier:         msg.BurstMultiplier,
		CooldownBlocks:          msg.CooldownBlocks,
		Enabled:                 msg.Enabled,
	})
}

func (p *Processor) handleRateLimitUpdate(env *message.Envelope) error {
	msg, err := messages.Decode[messages.RateLimitUpdate](env.Data)
	if err != nil {
		return err
	}
	return p.svc.UpdateRateLimitConfig(env.Caller, core.RateLimitUpdate{
		MaxEventsPerBlock:       msg.MaxEventsPerBlock,
		GlobalMaxEventsPerBlock: msg.GlobalMaxEventsPerBlock,
		BurstMultiplier:         msg.BurstMultiplier,
		CooldownBlocks:          msg.CooldownBlocks,
		Enabled:                 msg.Enabled,
	})
}

func (p *Processor) handleAppAdd(env *message.Envelope) error {
	msg, err := messages.Decode[messages.AppAdd](env.Data)
	if err != nil {
		return err
	}
	cfg, err := toAppConfig(msg)
	if err != nil {
		return err
	}
	return p.svc.AddApplication(env.Caller, cfg)
}

func (p *Processor) handleAppUpdate(env *message.Envelope) error {
	msg, err := messages.Decode[messages.AppUpdate](env.Data)
	if err != nil {
		return err
	}
	// AppUpdate carries the same shape as AppAdd.
	add := messages.AppAdd(*msg)
	cfg, err := toAppConfig(&add)
	if err != nil {
		return err
	}
	return p.svc.UpdateApplication(env.Caller, msg.ApplicationID, cfg)
}

func (p *Processor) handleAppRemove(env *message.Envelope) error {
	msg, err := messages.Decode[messages.AppRemove](env.Data)
	if err != nil {
		return err
	}
	return p.svc.RemoveApplication(env.Caller, msg.ApplicationID)
}

func (p *Processor) handleIngestUnblock(env *message.Envelope) error {
	msg, err := messages.Decode[messages.IngestUnblock](env.Data)
	if err != nil {
		return err
	}
	return p.svc.UnblockApp(env.Caller, msg.AppID)
}

func (p *Processor) handleAdminTransfer(env *message.Envelope) error {
	msg, err := messages.Decode[messages.AdminTransfer](env.Data)
	if err != nil {
		return err
	}
	return p.svc.TransferSuperAdmin(env.Caller, msg.NewSuperAdmin)
}

func (p *Processor) updateStoreGauges() {
	count := p.svc.EventCount()
	p.metrics.UpdateStoreMetrics(
		uint64(count),
		p.svc.LifetimeCaptured(),
		p.svc.CurrentBlock(),
		count,
		p.svc.ApplicationCount(),
	)
}
