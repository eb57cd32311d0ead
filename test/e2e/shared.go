//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	ckafka "github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/stretchr/testify/require"

	"github.com/chainsentry/eventmonitor/pkg/clickhouse"
	"github.com/chainsentry/eventmonitor/pkg/kafka"
	"github.com/chainsentry/eventmonitor/pkg/kafka/message"
	"github.com/chainsentry/eventmonitor/pkg/utils"
)

// clickhouseTestConfig connects to the docker-compose ClickHouse instance.
var clickhouseTestConfig = clickhouse.ClickhouseConfig{
	Addresses:            []string{getEnvStr("CLICKHOUSE_ADDR", "localhost:9000")},
	Database:             getEnvStr("CLICKHOUSE_DATABASE", "default"),
	Username:             getEnvStr("CLICKHOUSE_USERNAME", "default"),
	Password:             getEnvStr("CLICKHOUSE_PASSWORD", ""),
	MaxExecutionTime:     60,
	DialTimeout:          10,
	MaxOpenConns:         5,
	MaxIdleConns:         5,
	ConnMaxLifetime:      10,
	BlockBufferSize:      10,
	MaxBlockSize:         1000,
	MaxCompressionBuffer: 10240,
	ClientName:           "eventmonitor-e2e",
	ClientVersion:        "1.0",
}

func getEnvStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// produceEnvelopes publishes operation envelopes to the given topic, keyed by
// caller, and waits for delivery of each.
func produceEnvelopes(t *testing.T, brokers, topic string, envelopes []*message.Envelope) {
	t.Helper()

	log, err := utils.NewSugaredLogger(false)
	require.NoError(t, err)

	ctx := context.Background()
	producer, err := kafka.NewProducer(ctx, &ckafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "all",
	}, log)
	require.NoError(t, err)
	defer producer.Close(5 * time.Second)

	for _, env := range envelopes {
		value, err := json.Marshal(env)
		require.NoError(t, err)
		err = producer.Produce(ctx, kafka.Msg{
			Topic: topic,
			Key:   []byte(env.Caller),
			Value: value,
		})
		require.NoError(t, err)
	}
}

// envelope builds an operation envelope with a generated ID and current
// timestamp.
func envelope(t *testing.T, msgType, caller string, payload any) *message.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	id := fmt.Sprintf("e2e-%d", time.Now().UnixNano())
	return message.New(msgType, 1, id, time.Now().UTC().Format(time.RFC3339Nano), caller, data)
}
