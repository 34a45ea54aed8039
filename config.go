package beanstalk

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"strings"
	"time"
)

const (
	// DefaultAddr is the address beanstalkd listens on by default.
	DefaultAddr = "localhost:11300"

	// DefaultTube is the tube every new connection uses and watches.
	DefaultTube = "default"

	// DefaultPriority is the middle of the priority range (lower is more urgent).
	DefaultPriority uint32 = 1 << 31

	// DefaultTTR is the time a reserved job may run before the server releases it.
	DefaultTTR = 120 * time.Second

	// DefaultConnectTimeout bounds each dial and is the base of the reconnect wait.
	DefaultConnectTimeout = 50 * time.Millisecond

	// DefaultUpperBackoffBound caps the exponential reconnect wait.
	DefaultUpperBackoffBound = 30 * time.Second

	// NoConnectTimeout disables the dial timeout. Reconnect waits still use
	// DefaultConnectTimeout as their base.
	NoConnectTimeout time.Duration = -1
)

// ReconnectStrategy selects how long to wait between connection attempts.
type ReconnectStrategy int

const (
	// ReconnectNone makes a single connection attempt per call and reports failures.
	// The connection is opened eagerly by Dial.
	ReconnectNone ReconnectStrategy = iota

	// ReconnectConstant retries forever, waiting the connect timeout between attempts.
	ReconnectConstant

	// ReconnectExpBackoff retries forever, waiting
	// uniform(1, 2) * timeout * 2^failures, capped at the upper backoff bound.
	ReconnectExpBackoff
)

func (s ReconnectStrategy) String() string {
	switch s {
	case ReconnectNone:
		return "none"
	case ReconnectConstant:
		return "constant"
	case ReconnectExpBackoff:
		return "exp_backoff"
	default:
		return fmt.Sprintf("ReconnectStrategy(%d)", int(s))
	}
}

// ParseReconnectStrategy parses "none" (or ""), "constant" or "exp_backoff".
func ParseReconnectStrategy(name string) (ReconnectStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return ReconnectNone, nil
	case "constant":
		return ReconnectConstant, nil
	case "exp_backoff":
		return ReconnectExpBackoff, nil
	default:
		return ReconnectNone, fmt.Errorf("%w: reconnect strategy must be none, constant or exp_backoff, got %q", ErrInvalidConfig, name)
	}
}

// Config holds configuration for a beanstalk connection.
// The zero value is valid.
type Config struct {
	// ConnectTimeout bounds each dial and is the base of reconnect waits.
	// Zero means DefaultConnectTimeout, NoConnectTimeout disables the dial timeout.
	ConnectTimeout time.Duration

	// ReconnectStrategy selects the reconnect policy.
	// With ReconnectNone, Dial connects immediately; otherwise the connection is
	// opened by Connect or by the first command.
	ReconnectStrategy ReconnectStrategy

	// UpperBackoffBound caps the ReconnectExpBackoff wait.
	// Zero means DefaultUpperBackoffBound.
	UpperBackoffBound time.Duration

	// MaxAttempts is the number of times a command is sent before a stream
	// failure (connection reset, truncated response) is returned to the caller.
	// Zero means unbounded: the command is replayed until it gets a response.
	MaxAttempts int

	// Dialer is the net.Dialer used to open connections.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// NewCircuitBreaker creates a circuit breaker guarding dials to the server.
	// Called once when the connection is created.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(addr string) CircuitBreaker

	// Logger receives connection lifecycle events.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// for testing purposes only
	dial   func(ctx context.Context, network, addr string) (net.Conn, error)
	random func() float64
	sleep  func(ctx context.Context, d time.Duration) error
}

// normalize fills in defaults and validates the configuration.
func (c Config) normalize() (Config, error) {
	switch c.ReconnectStrategy {
	case ReconnectNone, ReconnectConstant, ReconnectExpBackoff:
	default:
		return c, fmt.Errorf("%w: unknown reconnect strategy %s", ErrInvalidConfig, c.ReconnectStrategy)
	}

	if c.MaxAttempts < 0 {
		return c, fmt.Errorf("%w: max attempts must be >= 0, got %d", ErrInvalidConfig, c.MaxAttempts)
	}

	if c.UpperBackoffBound < 0 {
		return c, fmt.Errorf("%w: upper backoff bound must be >= 0, got %s", ErrInvalidConfig, c.UpperBackoffBound)
	}

	if c.ConnectTimeout < 0 && c.ConnectTimeout != NoConnectTimeout {
		return c, fmt.Errorf("%w: connect timeout must be >= 0, got %s", ErrInvalidConfig, c.ConnectTimeout)
	}

	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}

	if c.UpperBackoffBound == 0 {
		c.UpperBackoffBound = DefaultUpperBackoffBound
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	if c.dial == nil {
		dialer := c.Dialer
		if dialer == nil {
			dialer = &net.Dialer{}
		}
		c.dial = dialer.DialContext
	}

	if c.random == nil {
		c.random = rand.Float64
	}

	if c.sleep == nil {
		c.sleep = sleepContext
	}

	return c, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
