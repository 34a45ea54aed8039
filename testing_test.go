package beanstalk

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/pior/beanstalk/internal/testutils"
	"github.com/stretchr/testify/require"
)

// testConfig returns a reconnecting config that never sleeps and logs to t.
func testConfig(t testing.TB) Config {
	return Config{
		ReconnectStrategy: ReconnectConstant,
		Logger:            slogt.New(t),
		sleep:             func(ctx context.Context, _ time.Duration) error { return ctx.Err() },
	}
}

// dialServer connects to a test server.
func dialServer(t testing.TB, server *testutils.Server, cfg Config) *Conn {
	t.Helper()

	c, err := Dial(context.Background(), server.Addr(), cfg)
	require.NoError(t, err, "Dial should not error")

	t.Cleanup(func() { _ = c.Close() })
	return c
}

// newQueueConn connects to a fresh fake queue.
func newQueueConn(t testing.TB) (*Conn, *testutils.Server) {
	t.Helper()

	server := testutils.NewServer(t, testutils.NewFakeQueue().Handler())
	return dialServer(t, server, testConfig(t)), server
}

// mockDialer hands out mock connections in order, then fails.
type mockDialer struct {
	mu    sync.Mutex
	conns []*testutils.ConnectionMock
	dials int
}

var errNoMoreMocks = errors.New("connection refused")

func newMockDialer(conns ...*testutils.ConnectionMock) *mockDialer {
	return &mockDialer{conns: conns}
}

func (d *mockDialer) dial(_ context.Context, _, _ string) (net.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++
	if len(d.conns) == 0 {
		return nil, errNoMoreMocks
	}

	conn := d.conns[0]
	d.conns = d.conns[1:]
	return conn, nil
}

func (d *mockDialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dials
}

// dialMocks creates a Conn reading its sockets from mocks.
func dialMocks(t testing.TB, cfg Config, mocks ...*testutils.ConnectionMock) (*Conn, *mockDialer) {
	t.Helper()

	d := newMockDialer(mocks...)
	cfg.dial = d.dial

	c, err := Dial(context.Background(), "127.0.0.1:11300", cfg)
	require.NoError(t, err, "Dial should not error")

	return c, d
}
