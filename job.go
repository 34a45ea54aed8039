package beanstalk

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// JobState is the client-side ownership state of a Job.
type JobState int

const (
	// JobUnreserved is a job obtained by peek. It carries no reservation.
	JobUnreserved JobState = iota

	// JobReserved is a job obtained by reserve. Release, bury and touch act on it.
	JobReserved

	// JobConsumed is a reserved job that was deleted, released or buried.
	JobConsumed
)

func (s JobState) String() string {
	switch s {
	case JobUnreserved:
		return "unreserved"
	case JobReserved:
		return "reserved"
	case JobConsumed:
		return "consumed"
	default:
		return fmt.Sprintf("JobState(%d)", int(s))
	}
}

// Job is a job returned by reserve or peek.
//
// The reservation is tracked locally, it is never checked against the server:
// once a reserved job is deleted, released or buried, Release, Bury and Touch
// return without contacting the server.
type Job struct {
	ID   uint64
	Body []byte

	conn *Conn

	mu    sync.Mutex
	state JobState
}

func newJob(conn *Conn, id uint64, body []byte, state JobState) *Job {
	return &Job{
		ID:    id,
		Body:  body,
		conn:  conn,
		state: state,
	}
}

// State returns the ownership state.
func (j *Job) State() JobState {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.state
}

// Reserved reports whether the job is held by this client.
func (j *Job) Reserved() bool {
	return j.State() == JobReserved
}

// Delete deletes the job, whatever its state.
func (j *Job) Delete(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.conn.Delete(ctx, j.ID); err != nil {
		return err
	}

	j.consume()
	return nil
}

// Release puts the reserved job back into the ready queue with its current
// priority. No-op unless reserved.
func (j *Job) Release(ctx context.Context, delay time.Duration) error {
	return j.release(ctx, nil, delay)
}

// ReleaseWithPriority is Release with a new priority.
func (j *Job) ReleaseWithPriority(ctx context.Context, priority uint32, delay time.Duration) error {
	return j.release(ctx, &priority, delay)
}

func (j *Job) release(ctx context.Context, priority *uint32, delay time.Duration) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobReserved {
		return nil
	}

	pri, err := j.priority(ctx, priority)
	if err != nil {
		return err
	}

	if err := j.conn.Release(ctx, j.ID, pri, delay); err != nil {
		return err
	}

	j.consume()
	return nil
}

// Bury buries the reserved job with its current priority. No-op unless reserved.
func (j *Job) Bury(ctx context.Context) error {
	return j.bury(ctx, nil)
}

// BuryWithPriority is Bury with a new priority.
func (j *Job) BuryWithPriority(ctx context.Context, priority uint32) error {
	return j.bury(ctx, &priority)
}

func (j *Job) bury(ctx context.Context, priority *uint32) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobReserved {
		return nil
	}

	pri, err := j.priority(ctx, priority)
	if err != nil {
		return err
	}

	if err := j.conn.Bury(ctx, j.ID, pri); err != nil {
		return err
	}

	j.consume()
	return nil
}

// Touch extends the time-to-run of the reserved job. No-op unless reserved.
func (j *Job) Touch(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != JobReserved {
		return nil
	}

	return j.conn.Touch(ctx, j.ID)
}

// Stats returns the server statistics of the job, whatever its state.
func (j *Job) Stats(ctx context.Context) (Stats, error) {
	return j.conn.StatsJob(ctx, j.ID)
}

// priority returns the explicit priority, or the job's current one from stats-job.
// DefaultPriority is used when the stats do not carry a usable "pri".
func (j *Job) priority(ctx context.Context, explicit *uint32) (uint32, error) {
	if explicit != nil {
		return *explicit, nil
	}

	stats, err := j.Stats(ctx)
	if err != nil {
		return 0, err
	}

	pri, ok := stats.GetUint("pri")
	if !ok || pri > math.MaxUint32 {
		return DefaultPriority, nil
	}
	return uint32(pri), nil
}

// consume ends the reservation. Only a reserved job changes state.
func (j *Job) consume() {
	if j.state == JobReserved {
		j.state = JobConsumed
	}
}
