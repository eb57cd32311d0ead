package testutils

import (
	"context"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"
)

// Client mirrors the pkg/clickhouse client surface so tests can inject
// a mocked driver.Conn.
type Client interface {
	Conn() driver.Conn
	Ping(ctx context.Context) error
	Close() error
}

// NewTestClient wraps an existing connection, usually a mocks.MockConn,
// in a Client. Repositories under test never notice the difference.
func NewTestClient(conn driver.Conn, sugar *zap.SugaredLogger) Client {
	return &testClient{conn: conn, logger: sugar}
}

type testClient struct {
	conn   driver.Conn
	logger *zap.SugaredLogger
}

func (c *testClient) Conn() driver.Conn {
	return c.conn
}

func (c *testClient) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *testClient) Close() error {
	return c.conn.Close()
}
