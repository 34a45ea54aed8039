package beanstalk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/pior/beanstalk/proto"
)

// Conn is a connection to a beanstalkd server.
//
// A Conn owns at most one socket at a time. All commands are serialized: at most
// one request/response exchange is in flight, concurrent callers block until
// the connection is free. Use several Conns for independent streams of work.
//
// When the socket fails mid-exchange (reset, truncated response), the Conn
// closes it, reconnects according to its ReconnectStrategy and sends the command
// again, up to Config.MaxAttempts times.
type Conn struct {
	addr    string
	cfg     Config
	logger  *slog.Logger
	breaker CircuitBreaker
	stats   *statsCollector

	mu   sync.Mutex
	slot *socketSlot

	// tube is the tube used for put, as last confirmed by the server.
	tube string
	// serverTube is the tube used by the current socket. A new socket starts on
	// DefaultTube; it is switched back to tube before the next command.
	serverTube string

	unsuccessfulConnects int
}

// expectation describes the responses a command may legitimately get.
type expectation struct {
	ok      []proto.StatusType
	failed  []proto.StatusType
	sizeArg int // index of the data block size in the ok response, -1 for none
}

// Dial creates a connection to the server at addr ("host:port", empty for DefaultAddr).
//
// With ReconnectNone the connection is opened before Dial returns. With a reconnect
// strategy, Dial does no I/O: call Connect, or let the first command connect.
func Dial(ctx context.Context, addr string, config Config) (*Conn, error) {
	if addr == "" {
		addr = DefaultAddr
	}

	if _, _, err := net.SplitHostPort(addr); err != nil {
		return nil, fmt.Errorf("%w: address %q: %w", ErrInvalidConfig, addr, err)
	}

	cfg, err := config.normalize()
	if err != nil {
		return nil, err
	}

	c := &Conn{
		addr:       addr,
		cfg:        cfg,
		logger:     cfg.Logger.With("addr", addr),
		stats:      newStatsCollector(),
		tube:       DefaultTube,
		serverTube: DefaultTube,
	}

	if cfg.NewCircuitBreaker != nil {
		c.breaker = cfg.NewCircuitBreaker(addr)
	}

	c.slot, err = newSocketSlot(c.dial)
	if err != nil {
		return nil, err
	}

	if cfg.ReconnectStrategy == ReconnectNone {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Addr returns the server address.
func (c *Conn) Addr() string {
	return c.addr
}

// Connect opens the connection unless it is already open.
//
// With ReconnectNone a single attempt is made. Otherwise Connect retries until
// it succeeds or ctx is done, waiting between attempts per the strategy.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.connectLocked(ctx)
	return err
}

// Close sends quit and closes the connection before returning. Closing a closed
// connection is a no-op. The Conn can be connected again.
//
// Close waits for the command in flight, which is bounded by its ctx.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()
	return nil
}

// Connected reports whether the connection has an open socket.
func (c *Conn) Connected() bool {
	return !c.Closed()
}

// Closed reports whether the connection has no open socket.
func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.slot.current() == nil
}

// ClientStats returns a snapshot of the connection counters.
func (c *Conn) ClientStats() ClientStats {
	return c.stats.snapshot()
}

func (c *Conn) connectLocked(ctx context.Context) (*wireConn, error) {
	if wc := c.slot.current(); wc != nil {
		return wc, nil
	}

	for {
		if c.unsuccessfulConnects > 0 && c.cfg.ReconnectStrategy != ReconnectNone {
			wait := c.currentWait()
			c.logger.Debug("beanstalk: waiting before reconnect", "wait", wait, "failures", c.unsuccessfulConnects)
			if err := c.cfg.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		wc, err := c.slot.open(withDialRequest(ctx, c.dialTimeout()))
		if err == nil {
			c.unsuccessfulConnects = 0
			c.serverTube = DefaultTube
			c.stats.recordConnect()
			c.logger.Debug("beanstalk: connected")
			return wc, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		c.unsuccessfulConnects++
		c.stats.recordConnectFailure()
		c.logger.Warn("beanstalk: connect failed", "failures", c.unsuccessfulConnects, "error", err)

		if c.cfg.ReconnectStrategy == ReconnectNone {
			return nil, err
		}
	}
}

// dialRequest carries the caller's context and the dial timeout to the socket
// constructor. The pool runs the constructor on its own goroutine, with the
// values of the acquire context but not its cancellation.
type dialRequest struct {
	ctx     context.Context
	timeout time.Duration
}

type dialRequestKey struct{}

func withDialRequest(ctx context.Context, timeout time.Duration) context.Context {
	return context.WithValue(ctx, dialRequestKey{}, dialRequest{ctx: ctx, timeout: timeout})
}

// dial is the socket constructor.
func (c *Conn) dial(ctx context.Context) (*wireConn, error) {
	caller := ctx
	var timeout time.Duration
	if req, ok := ctx.Value(dialRequestKey{}).(dialRequest); ok {
		caller, timeout = req.ctx, req.timeout
	}

	dial := func() (net.Conn, error) {
		dialCtx := caller
		if timeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(caller, timeout)
			defer cancel()
		}
		return c.cfg.dial(dialCtx, "tcp", c.addr)
	}

	var (
		nc  net.Conn
		err error
	)
	if c.breaker != nil {
		nc, err = c.breaker.Execute(dial)
	} else {
		nc, err = dial()
	}
	if err != nil {
		return nil, &proto.ConnectionError{Op: "dial", Err: err}
	}

	// the caller stopped waiting: nobody will own this socket
	if err := caller.Err(); err != nil {
		_ = nc.Close()
		return nil, err
	}

	return newWireConn(nc), nil
}

func (c *Conn) closeLocked() {
	open := c.slot.current() != nil

	c.slot.discard()
	if open {
		c.logger.Debug("beanstalk: connection closed")
	}
}

// interact runs one command under the connection lock.
func (c *Conn) interact(ctx context.Context, req *proto.Request, exp expectation) (*proto.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.interactLocked(ctx, req, exp)
}

// interactLocked sends req until it gets a response, reconnecting after stream failures.
//
// Statuses in exp.failed yield a *CommandError, statuses outside both sets an
// *UnexpectedResponseError. Neither closes the connection. A malformed response
// closes it and is returned as is.
func (c *Conn) interactLocked(ctx context.Context, req *proto.Request, exp expectation) (*proto.Response, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		wc, err := c.connectLocked(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := c.exchangeLocked(ctx, wc, req, exp)
		if err == nil {
			c.stats.recordCommand()
			return resp, nil
		}

		var (
			cmdErr        *CommandError
			unexpectedErr *UnexpectedResponseError
		)
		switch {
		case errors.As(err, &cmdErr):
			c.stats.recordCommandFailure()
			return nil, err

		case errors.As(err, &unexpectedErr):
			c.stats.recordUnexpectedResponse()
			c.logger.Error("beanstalk: unexpected response", "command", req.Command, "status", unexpectedErr.Status, "args", unexpectedErr.Args)
			return nil, err

		case !proto.IsStreamFailure(err):
			if proto.ShouldCloseConnection(err) {
				c.logger.Error("beanstalk: invalid response, closing connection", "command", req.Command, "error", err)
				c.closeLocked()
			}
			return nil, err
		}

		c.stats.recordStreamFailure()
		c.closeLocked()

		// a deadline or cancellation cut the exchange: never replay it
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", req.Command, ctxErr)
		}
		c.logger.Warn("beanstalk: stream failure, reconnecting", "command", req.Command, "attempt", attempt, "error", err)

		if c.cfg.MaxAttempts > 0 && attempt >= c.cfg.MaxAttempts {
			return nil, fmt.Errorf("%w: %s after %d attempts: %w", ErrRetriesExhausted, req.Command, attempt, err)
		}
	}
}

// exchangeLocked restores the used tube on a fresh socket, then runs req.
func (c *Conn) exchangeLocked(ctx context.Context, wc *wireConn, req *proto.Request, exp expectation) (*proto.Response, error) {
	if c.serverTube != c.tube && req.Command != proto.CmdUse {
		if _, err := wc.exchange(ctx, newUseRequest(c.tube), expectUsing); err != nil {
			return nil, err
		}
		c.serverTube = c.tube
	}

	return wc.exchange(ctx, req, exp)
}
