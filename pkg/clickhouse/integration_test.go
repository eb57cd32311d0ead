//go:build integration
// +build integration

package clickhouse

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chainsentry/eventmonitor/pkg/utils"
)

var testClickHouseClient Client

// loadTestEnv loads the .env.test file from the clickhouse directory
func loadTestEnv() error {
	_, currentFile, _, ok := runtime.Caller(0)
	if !ok {
		return nil
	}

	dir := filepath.Dir(currentFile)
	envPath := filepath.Join(dir, ".env.test")
	return godotenv.Load(envPath)
}

// TestMain sets up the ClickHouse client for all integration tests.
// Integration tests require a running ClickHouse instance.
func TestMain(m *testing.M) {
	ctx := context.Background()

	if err := loadTestEnv(); err != nil {
		log.Printf("integration: could not load .env.test file: %v (using defaults)", err)
	}

	cfg := Load()
	cfg.DialTimeout = 5

	sugar, err := utils.NewSugaredLogger(true)
	if err != nil {
		log.Fatalf("integration: failed to create logger: %v", err)
	}

	chClient, err := New(cfg, sugar)
	if err != nil {
		log.Fatalf("integration: failed to open ClickHouse connection: %v", err)
	}

	testClickHouseClient = chClient

	if err := testClickHouseClient.Ping(ctx); err != nil {
		log.Fatalf("integration: failed to ping ClickHouse: %v", err)
	}

	code := m.Run()

	if testClickHouseClient != nil {
		_ = testClickHouseClient.Close()
	}

	os.Exit(code)
}

func TestClientImpl_Methods(t *testing.T) {
	require.NotNil(t, testClickHouseClient)

	conn := testClickHouseClient.Conn()
	assert.NotNil(t, conn)

	require.NoError(t, testClickHouseClient.Ping(context.Background()))

	// Close a dedicated client so the shared one stays usable
	tempCfg := Load()
	tempCfg.DialTimeout = 5

	sugar, err := utils.NewSugaredLogger(true)
	require.NoError(t, err)

	tempClient, err := New(tempCfg, sugar)
	require.NoError(t, err)
	assert.NoError(t, tempClient.Close())
}

// TestNew_InvalidCredentials exercises the clickhouse.Exception handling in
// New's ping error path by connecting with credentials the server rejects.
func TestNew_InvalidCredentials(t *testing.T) {
	require.NotNil(t, testClickHouseClient)

	cfg := Load()
	cfg.Username = "invaliduser"
	cfg.Password = "invalidpass"

	sugar, err := utils.NewSugaredLogger(true)
	require.NoError(t, err)

	client, err := New(cfg, sugar)
	require.Error(t, err)
	assert.Nil(t, client)

	exception, ok := err.(*clickhouse.Exception)
	require.True(t, ok, "expected clickhouse.Exception, got %T", err)
	assert.NotZero(t, exception.Code)
	assert.NotEmpty(t, exception.Message)
}
