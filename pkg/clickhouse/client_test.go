package clickhouse

import (
	"net"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chainsentry/eventmonitor/pkg/clickhouse/mocks"
	"github.com/chainsentry/eventmonitor/pkg/clickhouse/testutils"
	"github.com/chainsentry/eventmonitor/pkg/utils"
)

// testLogger creates a test logger for use in tests
func testLogger(t *testing.T) *zap.SugaredLogger {
	logger, err := utils.NewSugaredLogger(true)
	require.NoError(t, err)
	return logger
}

func TestLoad(t *testing.T) {
	cfg := Load()

	// Expected values come from the environment when set, defaults otherwise
	expectedAddr := os.Getenv("CLICKHOUSE_ADDRESSES")
	if expectedAddr == "" {
		expectedAddr = "localhost:9000"
	}

	expectedDatabase := os.Getenv("CLICKHOUSE_DATABASE")
	if expectedDatabase == "" {
		expectedDatabase = "default"
	}

	expectedUsername := os.Getenv("CLICKHOUSE_USERNAME")
	if expectedUsername == "" {
		expectedUsername = "default"
	}

	require.NotEmpty(t, cfg.Addresses)
	assert.Equal(t, expectedAddr, cfg.Addresses[0])
	assert.Equal(t, expectedDatabase, cfg.Database)
	assert.Equal(t, expectedUsername, cfg.Username)

	assert.Positive(t, cfg.MaxExecutionTime)
	assert.Positive(t, cfg.DialTimeout)
	assert.Positive(t, cfg.MaxOpenConns)
	assert.Positive(t, cfg.MaxIdleConns)
	assert.Positive(t, cfg.ConnMaxLifetime)
	assert.NotZero(t, cfg.BlockBufferSize)
	assert.Positive(t, cfg.MaxBlockSize)
	assert.Positive(t, cfg.MaxCompressionBuffer)
	assert.NotEmpty(t, cfg.ClientName)
	assert.NotEmpty(t, cfg.ClientVersion)
}

func TestNew_InvalidAddress(t *testing.T) {
	cfg := ClickhouseConfig{
		Addresses: []string{"invalid:99999"},
		Database:  "test",
		Username:  "test",
		Password:  "test",
	}

	client, err := New(cfg, testLogger(t))

	var addrErr *net.AddrError
	require.ErrorAs(t, err, &addrErr)
	require.Equal(t, "invalid port", addrErr.Err)
	assert.Nil(t, client)
}

func TestNew_WithDebugEnabled(t *testing.T) {
	cfg := ClickhouseConfig{
		Addresses:            []string{"invalid:99999"},
		Database:             "test",
		Username:             "test",
		Password:             "test",
		Debug:                true,
		MaxExecutionTime:     60,
		MaxBlockSize:         1000,
		DialTimeout:          1,
		ClientName:           "test-client",
		ClientVersion:        "1.0.0",
		BlockBufferSize:      10,
		MaxCompressionBuffer: 10240,
	}

	// Connection fails, but the Debug=true option path is still exercised
	client, err := New(cfg, testLogger(t))

	var addrErr *net.AddrError
	require.ErrorAs(t, err, &addrErr)
	require.Equal(t, "invalid port", addrErr.Err)
	assert.Nil(t, client)
}

func TestClient_Conn(t *testing.T) {
	mockConn := &mocks.MockConn{}
	client := testutils.NewTestClient(mockConn, testLogger(t))

	conn := client.Conn()
	assert.NotNil(t, conn)
	assert.Equal(t, mockConn, conn)
}

func TestClient_Ping(t *testing.T) {
	ctx := t.Context()

	mockConn := &mocks.MockConn{}
	mockConn.On("Ping", ctx).Return(nil)

	client := testutils.NewTestClient(mockConn, testLogger(t))

	require.NoError(t, client.Ping(ctx))
	mockConn.AssertExpectations(t)
}

func TestClient_Close(t *testing.T) {
	mockConn := &mocks.MockConn{}
	mockConn.On("Close").Return(nil)

	client := testutils.NewTestClient(mockConn, testLogger(t))

	require.NoError(t, client.Close())
	mockConn.AssertExpectations(t)
}
