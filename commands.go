package beanstalk

import (
	"context"
	"errors"
	"time"

	"github.com/pior/beanstalk/proto"
)

// Producer inserts jobs.
type Producer interface {
	Put(ctx context.Context, body []byte, params PutParams) (uint64, error)
}

// Consumer reserves jobs from the watched tubes.
type Consumer interface {
	Reserve(ctx context.Context) (*Job, error)
	ReserveWithTimeout(ctx context.Context, timeout time.Duration) (*Job, error)
}

var (
	_ Producer = (*Conn)(nil)
	_ Consumer = (*Conn)(nil)
)

// Expected responses per command.
var (
	expectPut       = expectation{ok: statuses(proto.StatusInserted, proto.StatusBuried), failed: statuses(proto.StatusJobTooBig), sizeArg: -1}
	expectReserve   = expectation{ok: statuses(proto.StatusReserved), failed: statuses(proto.StatusDeadlineSoon, proto.StatusTimedOut), sizeArg: 1}
	expectDelete    = expectation{ok: statuses(proto.StatusDeleted), failed: statuses(proto.StatusNotFound), sizeArg: -1}
	expectRelease   = expectation{ok: statuses(proto.StatusReleased, proto.StatusBuried), failed: statuses(proto.StatusNotFound), sizeArg: -1}
	expectBury      = expectation{ok: statuses(proto.StatusBuried), failed: statuses(proto.StatusNotFound), sizeArg: -1}
	expectTouch     = expectation{ok: statuses(proto.StatusTouched), failed: statuses(proto.StatusNotFound), sizeArg: -1}
	expectKick      = expectation{ok: statuses(proto.StatusKicked), sizeArg: -1}
	expectPeek      = expectation{ok: statuses(proto.StatusFound), failed: statuses(proto.StatusNotFound), sizeArg: 1}
	expectUsing     = expectation{ok: statuses(proto.StatusUsing), sizeArg: -1}
	expectWatch     = expectation{ok: statuses(proto.StatusWatching), sizeArg: -1}
	expectIgnore    = expectation{ok: statuses(proto.StatusWatching), failed: statuses(proto.StatusNotIgnored), sizeArg: -1}
	expectList      = expectation{ok: statuses(proto.StatusOK), sizeArg: 0}
	expectStats     = expectation{ok: statuses(proto.StatusOK), sizeArg: 0}
	expectStatsOf   = expectation{ok: statuses(proto.StatusOK), failed: statuses(proto.StatusNotFound), sizeArg: 0}
	expectPauseTube = expectation{ok: statuses(proto.StatusPaused), failed: statuses(proto.StatusNotFound), sizeArg: -1}
)

func statuses(s ...proto.StatusType) []proto.StatusType {
	return s
}

// PutParams are the job attributes sent with put.
type PutParams struct {
	// Priority: lower is more urgent. 0 is the most urgent.
	Priority uint32

	// Delay before the job becomes ready, truncated to seconds.
	Delay time.Duration

	// TTR is the time a worker may hold the job reserved, truncated to seconds.
	TTR time.Duration

	// Tube, when not empty, is used before the put, as Use would.
	Tube string
}

// DefaultPutParams returns DefaultPriority, no delay and DefaultTTR.
func DefaultPutParams() PutParams {
	return PutParams{
		Priority: DefaultPriority,
		TTR:      DefaultTTR,
	}
}

func newUseRequest(name string) *proto.Request {
	var args proto.Args
	args.AddString(name)
	return proto.NewRequest(proto.CmdUse, args, nil)
}

func newJobRequest(cmd proto.CmdType, id uint64) *proto.Request {
	var args proto.Args
	args.AddUint64(id)
	return proto.NewRequest(cmd, args, nil)
}

func newTubeRequest(cmd proto.CmdType, name string) (*proto.Request, error) {
	if err := proto.ValidateTubeName(name); err != nil {
		return nil, err
	}

	var args proto.Args
	args.AddString(name)
	return proto.NewRequest(cmd, args, nil), nil
}

// Put inserts a job and returns its id.
//
// The job goes to the used tube, or to params.Tube which then becomes the used
// tube. A job the server had to bury for lack of memory is not an error.
func (c *Conn) Put(ctx context.Context, body []byte, params PutParams) (uint64, error) {
	if params.Tube != "" {
		if err := proto.ValidateTubeName(params.Tube); err != nil {
			return 0, err
		}
	}

	var args proto.Args
	args.AddUint32(params.Priority)
	args.AddDurationSeconds(params.Delay)
	args.AddDurationSeconds(params.TTR)
	req := proto.NewRequest(proto.CmdPut, args, body)

	c.mu.Lock()
	defer c.mu.Unlock()

	if params.Tube != "" {
		if err := c.useLocked(ctx, params.Tube); err != nil {
			return 0, err
		}
	}

	resp, err := c.interactLocked(ctx, req, expectPut)
	if err != nil {
		return 0, err
	}

	return resp.Uint64Arg(0)
}

// Reserve waits for a job from the watched tubes.
//
// It returns ErrDeadlineSoon when a job reserved by this connection is about to
// reach its time-to-run.
func (c *Conn) Reserve(ctx context.Context) (*Job, error) {
	return c.reserve(ctx, proto.NewRequest(proto.CmdReserve, nil, nil))
}

// ReserveWithTimeout is Reserve with a server-side timeout, truncated to seconds.
// It returns a nil Job and no error when the timeout expires.
func (c *Conn) ReserveWithTimeout(ctx context.Context, timeout time.Duration) (*Job, error) {
	var args proto.Args
	args.AddDurationSeconds(timeout)
	return c.reserve(ctx, proto.NewRequest(proto.CmdReserveWithTimeout, args, nil))
}

func (c *Conn) reserve(ctx context.Context, req *proto.Request) (*Job, error) {
	resp, err := c.interact(ctx, req, expectReserve)
	if err != nil {
		var cmdErr *CommandError
		if errors.As(err, &cmdErr) {
			switch cmdErr.Status {
			case proto.StatusTimedOut:
				return nil, nil
			case proto.StatusDeadlineSoon:
				return nil, ErrDeadlineSoon
			}
		}
		return nil, err
	}

	return c.jobFromResponse(resp, JobReserved)
}

// Delete removes a job. The job must be reserved by this connection, ready,
// delayed or buried.
func (c *Conn) Delete(ctx context.Context, id uint64) error {
	_, err := c.interact(ctx, newJobRequest(proto.CmdDelete, id), expectDelete)
	return err
}

// Release puts a reserved job back into the ready queue, or delayed when delay > 0.
func (c *Conn) Release(ctx context.Context, id uint64, priority uint32, delay time.Duration) error {
	req := newJobRequest(proto.CmdRelease, id)
	req.Args.AddUint32(priority)
	req.Args.AddDurationSeconds(delay)

	_, err := c.interact(ctx, req, expectRelease)
	return err
}

// Bury moves a reserved job to the buried state until it is kicked.
func (c *Conn) Bury(ctx context.Context, id uint64, priority uint32) error {
	req := newJobRequest(proto.CmdBury, id)
	req.Args.AddUint32(priority)

	_, err := c.interact(ctx, req, expectBury)
	return err
}

// Touch gives more time to a reserved job before it is released by the server.
func (c *Conn) Touch(ctx context.Context, id uint64) error {
	_, err := c.interact(ctx, newJobRequest(proto.CmdTouch, id), expectTouch)
	return err
}

// Kick moves at most bound buried (or, if none, delayed) jobs of the used tube
// into the ready queue and returns how many were kicked.
func (c *Conn) Kick(ctx context.Context, bound int) (int, error) {
	var args proto.Args
	args.AddInt(bound)

	resp, err := c.interact(ctx, proto.NewRequest(proto.CmdKick, args, nil), expectKick)
	if err != nil {
		return 0, err
	}

	n, err := resp.Uint64Arg(0)
	return int(n), err
}

// KickOne kicks a single job.
func (c *Conn) KickOne(ctx context.Context) (int, error) {
	return c.Kick(ctx, 1)
}

// Peek returns the job with the given id, or nil when it does not exist.
// The returned job is not reserved.
func (c *Conn) Peek(ctx context.Context, id uint64) (*Job, error) {
	return c.peek(ctx, newJobRequest(proto.CmdPeek, id))
}

// PeekReady returns the next ready job of the used tube, or nil.
func (c *Conn) PeekReady(ctx context.Context) (*Job, error) {
	return c.peek(ctx, proto.NewRequest(proto.CmdPeekReady, nil, nil))
}

// PeekDelayed returns the delayed job of the used tube with the shortest delay left, or nil.
func (c *Conn) PeekDelayed(ctx context.Context) (*Job, error) {
	return c.peek(ctx, proto.NewRequest(proto.CmdPeekDelayed, nil, nil))
}

// PeekBuried returns the next buried job of the used tube, or nil.
func (c *Conn) PeekBuried(ctx context.Context) (*Job, error) {
	return c.peek(ctx, proto.NewRequest(proto.CmdPeekBuried, nil, nil))
}

func (c *Conn) peek(ctx context.Context, req *proto.Request) (*Job, error) {
	resp, err := c.interact(ctx, req, expectPeek)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return c.jobFromResponse(resp, JobUnreserved)
}

func (c *Conn) jobFromResponse(resp *proto.Response, state JobState) (*Job, error) {
	id, err := resp.Uint64Arg(0)
	if err != nil {
		return nil, err
	}

	return newJob(c, id, resp.Body, state), nil
}

// Use selects the tube put inserts into. Using the current tube again does
// not contact the server.
func (c *Conn) Use(ctx context.Context, name string) error {
	if err := proto.ValidateTubeName(name); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.useLocked(ctx, name)
}

func (c *Conn) useLocked(ctx context.Context, name string) error {
	if name == c.tube {
		return nil
	}

	if _, err := c.interactLocked(ctx, newUseRequest(name), expectUsing); err != nil {
		return err
	}

	c.tube = name
	c.serverTube = name
	return nil
}

// Using returns the used tube, as last confirmed by the server.
func (c *Conn) Using() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tube
}

// Watch adds a tube to the watch list and returns the number of watched tubes.
func (c *Conn) Watch(ctx context.Context, name string) (int, error) {
	req, err := newTubeRequest(proto.CmdWatch, name)
	if err != nil {
		return 0, err
	}

	resp, err := c.interact(ctx, req, expectWatch)
	if err != nil {
		return 0, err
	}

	n, err := resp.Uint64Arg(0)
	return int(n), err
}

// Ignore removes a tube from the watch list and returns the number of watched tubes.
//
// The server refuses to ignore the last watched tube; Ignore then reports 1
// watched tube and no error.
func (c *Conn) Ignore(ctx context.Context, name string) (int, error) {
	req, err := newTubeRequest(proto.CmdIgnore, name)
	if err != nil {
		return 0, err
	}

	resp, err := c.interact(ctx, req, expectIgnore)
	if errors.Is(err, ErrNotIgnored) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}

	n, err := resp.Uint64Arg(0)
	return int(n), err
}

// Tubes lists the existing tubes.
func (c *Conn) Tubes(ctx context.Context) ([]string, error) {
	return c.list(ctx, proto.NewRequest(proto.CmdListTubes, nil, nil))
}

// Watching lists the tubes watched by this connection.
func (c *Conn) Watching(ctx context.Context) ([]string, error) {
	return c.list(ctx, proto.NewRequest(proto.CmdListTubesWatched, nil, nil))
}

func (c *Conn) list(ctx context.Context, req *proto.Request) ([]string, error) {
	resp, err := c.interact(ctx, req, expectList)
	if err != nil {
		return nil, err
	}
	return proto.ParseList(resp.Body), nil
}

// Stats returns the server statistics.
func (c *Conn) Stats(ctx context.Context) (Stats, error) {
	return c.fetchStats(ctx, proto.NewRequest(proto.CmdStats, nil, nil), expectStats)
}

// StatsTube returns the statistics of a tube. ErrNotFound matches the error
// when the tube does not exist.
func (c *Conn) StatsTube(ctx context.Context, name string) (Stats, error) {
	req, err := newTubeRequest(proto.CmdStatsTube, name)
	if err != nil {
		return nil, err
	}
	return c.fetchStats(ctx, req, expectStatsOf)
}

// StatsJob returns the statistics of a job. ErrNotFound matches the error
// when the job does not exist.
func (c *Conn) StatsJob(ctx context.Context, id uint64) (Stats, error) {
	return c.fetchStats(ctx, newJobRequest(proto.CmdStatsJob, id), expectStatsOf)
}

func (c *Conn) fetchStats(ctx context.Context, req *proto.Request, exp expectation) (Stats, error) {
	resp, err := c.interact(ctx, req, exp)
	if err != nil {
		return nil, err
	}
	return Stats(proto.ParseDict(resp.Body)), nil
}

// PauseTube stops reservations from a tube for delay, truncated to seconds.
func (c *Conn) PauseTube(ctx context.Context, name string, delay time.Duration) error {
	req, err := newTubeRequest(proto.CmdPauseTube, name)
	if err != nil {
		return err
	}
	req.Args.AddDurationSeconds(delay)

	_, err = c.interact(ctx, req, expectPauseTube)
	return err
}
