package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chainsentry/eventmonitor/internal/core"
	"github.com/chainsentry/eventmonitor/internal/intake"
	"github.com/chainsentry/eventmonitor/pkg/clickhouse"
	"github.com/chainsentry/eventmonitor/pkg/data/clickhouse/eventrepo"
	"github.com/chainsentry/eventmonitor/pkg/data/clickhouse/snapshot"
	"github.com/chainsentry/eventmonitor/pkg/kafka"
	"github.com/chainsentry/eventmonitor/pkg/metrics"
	"github.com/chainsentry/eventmonitor/pkg/queue"
	"github.com/chainsentry/eventmonitor/pkg/scheduler"
	"github.com/chainsentry/eventmonitor/pkg/utils"
)

const publisherCloseTimeout = 15 * time.Second

func run(c *cli.Context) error {
	cfg, err := buildConfig(c)
	if err != nil {
		return fmt.Errorf("failed to build config: %w", err)
	}

	sugar, err := utils.NewSugaredLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	sugar.Infow("config",
		"verbose", cfg.Verbose,
		"superAdmin", cfg.SuperAdmin,
		"merkleDepth", cfg.MerkleDepth,
		"kafkaBrokers", cfg.KafkaBrokers,
		"kafkaTopic", cfg.KafkaTopic,
		"kafkaDLQTopic", cfg.KafkaDLQTopic,
		"kafkaGroupID", cfg.KafkaGroupID,
		"alertsTopic", cfg.AlertsTopic,
		"alertSeverity", cfg.AlertSeverity,
		"eventsTable", cfg.EventsTable,
		"snapshotsTable", cfg.SnapshotsTable,
		"archiveBatchSize", cfg.ArchiveBatchSize,
		"archiveFlushInterval", cfg.ArchiveFlushInterval,
		"snapshotInterval", cfg.SnapshotInterval,
		"blockInterval", cfg.BlockInterval,
		"metricsAddr", cfg.MetricsAddr(),
		"environment", cfg.Environment,
		"region", cfg.Region,
		"cloudProvider", cfg.CloudProvider,
	)

	// Initialize Prometheus metrics with labels for multi-instance filtering
	registry := prometheus.NewRegistry()
	m, err := metrics.NewWithLabels(registry, metrics.Labels{
		Instance:      cfg.InstanceID,
		Environment:   cfg.Environment,
		Region:        cfg.Region,
		CloudProvider: cfg.CloudProvider,
	})
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	metricsServer := metrics.NewServer(cfg.MetricsAddr(), registry)
	metricsErrCh := metricsServer.Start()
	sugar.Infof("metrics server listening on http://%s/metrics", cfg.MetricsAddr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize ClickHouse client
	chCfg := clickhouse.Load()
	chClient, err := clickhouse.New(chCfg, sugar)
	if err != nil {
		return fmt.Errorf("failed to create ClickHouse client: %w", err)
	}
	defer chClient.Close()

	sugar.Info("ClickHouse client created successfully")

	batchInserter := eventrepo.NewBatchInserter(
		ctx,
		chClient.Conn(),
		sugar,
		cfg.EventsTable,
		cfg.ArchiveBatchSize,
		cfg.ArchiveFlushInterval,
	)
	defer batchInserter.Close()

	archive, err := eventrepo.NewEvents(ctx, chClient, cfg.EventsTable, batchInserter)
	if err != nil {
		return fmt.Errorf("failed to create events repository: %w", err)
	}

	snapshotRepo := snapshot.NewRepository(chClient, cfg.SnapshotsTable)
	if err := snapshotRepo.CreateTableIfNotExists(ctx); err != nil {
		return fmt.Errorf("failed to check existence or create snapshots table: %w", err)
	}

	svc := core.New(core.Config{
		SuperAdmin:  cfg.SuperAdmin,
		MerkleDepth: cfg.MerkleDepth,
		RateLimit:   cfg.RateLimit,
		Logger:      sugar,
	})

	if err := restoreLatestSnapshot(ctx, sugar, svc, snapshotRepo); err != nil {
		return err
	}

	// Create Kafka admin client to ensure topics exist
	adminConfig := confluentKafka.ConfigMap{"bootstrap.servers": cfg.KafkaBrokers}
	kafkaAdminClient, err := confluentKafka.NewAdminClient(&adminConfig)
	if err != nil {
		return fmt.Errorf("failed to create kafka admin client: %w", err)
	}
	defer kafkaAdminClient.Close()

	for _, topic := range []string{cfg.KafkaTopic, cfg.KafkaDLQTopic, cfg.AlertsTopic} {
		err = kafka.EnsureTopic(ctx, kafkaAdminClient, kafka.TopicConfig{
			Name:              topic,
			NumPartitions:     cfg.KafkaTopicNumPartitions,
			ReplicationFactor: cfg.KafkaTopicReplicationFactor,
		}, sugar)
		if err != nil {
			return fmt.Errorf("failed to ensure kafka topic %q exists: %w", topic, err)
		}
	}

	alertPublisher, err := queue.NewKafkaPublisher(ctx, cfg.AlertPublisherConfig(), sugar)
	if err != nil {
		return fmt.Errorf("failed to create alert publisher: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), publisherCloseTimeout)
		defer cancel()
		alertPublisher.Close(closeCtx)
	}()

	processor := intake.New(intake.Config{
		Service:       svc,
		Archive:       archive,
		Alerts:        alertPublisher,
		AlertsTopic:   cfg.AlertsTopic,
		AlertSeverity: cfg.AlertSeverity,
		Metrics:       m,
		Logger:        sugar,
	})

	consumer, err := kafka.NewConsumer(ctx, sugar, cfg.ConsumerConfig(), processor)
	if err != nil {
		return fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Start(gctx)
	})
	g.Go(func() error {
		return scheduler.Start(gctx, newServiceSource(svc, cfg.SuperAdmin), snapshotRepo, cfg.SnapshotInterval)
	})
	g.Go(func() error {
		return runBlockClock(gctx, svc, cfg.BlockInterval)
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-metricsErrCh:
			if err != nil {
				return fmt.Errorf("metrics server failed: %w", err)
			}
			return nil
		}
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return gctx.Err()
		case err := <-alertPublisher.Errors():
			return err
		}
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		sugar.Infow("exiting due to context cancellation")
		err = nil
	} else if err != nil {
		sugar.Errorw("run failed", "error", err)
	}

	sugar.Info("shutting down metrics server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
		sugar.Warnw("metrics server shutdown error", "error", shutdownErr)
	}

	sugar.Info("shutdown complete")
	return err
}

// restoreLatestSnapshot loads the newest persisted state into the service.
// An empty snapshots table is a fresh start, not an error.
func restoreLatestSnapshot(
	ctx context.Context,
	sugar *zap.SugaredLogger,
	svc *core.Service,
	repo snapshot.Repository,
) error {
	snap, err := repo.ReadLatest(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		sugar.Infow("no snapshot found, starting with empty state")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read latest snapshot: %w", err)
	}

	var state core.State
	if err := json.Unmarshal([]byte(snap.State), &state); err != nil {
		return fmt.Errorf("failed to unmarshal snapshot state: %w", err)
	}
	if err := svc.Restore(state); err != nil {
		return fmt.Errorf("failed to restore snapshot: %w", err)
	}

	sugar.Infow("restored state from snapshot",
		"capturedTotal", snap.CapturedTotal,
		"eventCount", snap.EventCount,
		"currentBlock", snap.CurrentBlock,
		"paused", snap.Paused,
		"snapshotTimestamp", snap.Timestamp,
	)
	return nil
}

// runBlockClock advances the monitoring block height every interval. The
// height feed drives rate-limit windows and cooldown expiry.
func runBlockClock(ctx context.Context, svc *core.Service, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			svc.SetCurrentBlock(svc.CurrentBlock() + 1)
		}
	}
}
