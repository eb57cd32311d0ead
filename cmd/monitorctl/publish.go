package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	confluentKafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chainsentry/eventmonitor/pkg/kafka"
	"github.com/chainsentry/eventmonitor/pkg/kafka/message"
	"github.com/chainsentry/eventmonitor/pkg/utils"
)

const (
	envelopeVersion   = 1
	publishTimeout    = 30 * time.Second
	flushTimeoutClose = 15 * time.Second
)

// publishEnvelope wraps payload in an operation envelope and produces it to
// the monitor topic. The envelope caller comes from the persistent flag; the
// message key is the caller so envelopes from one identity stay ordered.
func publishEnvelope(cmd *cobra.Command, msgType string, payload any) error {
	brokers, err := cmd.Flags().GetString("brokers")
	if err != nil {
		return fmt.Errorf("failed to get brokers: %w", err)
	}
	topic, err := cmd.Flags().GetString("topic")
	if err != nil {
		return fmt.Errorf("failed to get topic: %w", err)
	}
	caller, err := cmd.Flags().GetString("caller")
	if err != nil {
		return fmt.Errorf("failed to get caller: %w", err)
	}
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose: %w", err)
	}

	sugar, err := utils.NewSugaredLogger(verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer sugar.Desugar().Sync() //nolint:errcheck // best-effort flush; ignore sync errors

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	env := message.New(
		msgType,
		envelopeVersion,
		uuid.NewString(),
		time.Now().UTC().Format(time.RFC3339Nano),
		caller,
		data,
	)
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), publishTimeout)
	defer cancel()

	producerConfig := confluentKafka.ConfigMap{
		"bootstrap.servers":  brokers,
		"client.id":          "monitorctl",
		"acks":               "all",
		"enable.idempotence": true,
	}
	producer, err := kafka.NewProducer(ctx, &producerConfig, sugar)
	if err != nil {
		return fmt.Errorf("failed to create kafka producer: %w", err)
	}
	defer producer.Close(flushTimeoutClose)

	err = producer.Produce(ctx, kafka.Msg{
		Topic: topic,
		Key:   []byte(caller),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to produce envelope: %w", err)
	}

	sugar.Infow("envelope published",
		"type", msgType,
		"id", env.ID,
		"topic", topic,
		"caller", caller,
	)
	return nil
}
