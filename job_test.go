package beanstalk

import (
	"context"
	"testing"
	"time"

	"github.com/pior/beanstalk/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reserveOne puts a job and reserves it.
func reserveOne(t *testing.T, c *Conn, params PutParams) *Job {
	t.Helper()
	ctx := context.Background()

	_, err := c.Put(ctx, []byte("work"), params)
	require.NoError(t, err)

	job, err := c.ReserveWithTimeout(ctx, 0)
	require.NoError(t, err)
	require.NotNil(t, job)
	require.Equal(t, JobReserved, job.State())
	return job
}

func TestJob_DeleteTwice(t *testing.T) {
	c, _ := newQueueConn(t)
	job := reserveOne(t, c, DefaultPutParams())
	ctx := context.Background()

	require.NoError(t, job.Delete(ctx))
	assert.Equal(t, JobConsumed, job.State())

	err := job.Delete(ctx)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, JobConsumed, job.State())
}

func TestJob_ReleaseTwice(t *testing.T) {
	c, server := newQueueConn(t)
	params := DefaultPutParams()
	params.Priority = 42
	job := reserveOne(t, c, params)
	ctx := context.Background()

	before := len(server.Commands())

	require.NoError(t, job.Release(ctx, 0))
	require.NoError(t, job.Release(ctx, 0))
	assert.False(t, job.Reserved())

	lines := server.CommandLines()[before:]
	assert.Equal(t, []string{
		"stats-job 1",
		"release 1 42 0",
	}, lines, "priority comes from stats-job, the second release is local")
}

func TestJob_ReleaseWithPriority(t *testing.T) {
	c, server := newQueueConn(t)
	job := reserveOne(t, c, DefaultPutParams())

	require.NoError(t, job.ReleaseWithPriority(context.Background(), 5, 30*time.Second))

	lines := server.CommandLines()
	assert.Equal(t, "release 1 5 30", lines[len(lines)-1])

	stats, err := job.Stats(context.Background())
	require.NoError(t, err)
	state, _ := stats.GetString("state")
	assert.Equal(t, "delayed", state)
}

func TestJob_BuryTwice(t *testing.T) {
	c, server := newQueueConn(t)
	job := reserveOne(t, c, DefaultPutParams())
	ctx := context.Background()

	before := len(server.Commands())

	require.NoError(t, job.BuryWithPriority(ctx, 9))
	require.NoError(t, job.Bury(ctx))
	require.NoError(t, job.BuryWithPriority(ctx, 9))

	assert.Equal(t, []string{"bury 1 9"}, server.CommandLines()[before:])
	assert.Equal(t, JobConsumed, job.State())

	buried, err := c.PeekBuried(ctx)
	require.NoError(t, err)
	require.NotNil(t, buried)
	assert.Equal(t, job.ID, buried.ID)
}

func TestJob_BuryDefaultPriorityWhenStatsLackPri(t *testing.T) {
	mock := testutils.NewConnectionMock(
		"RESERVED 5 1\r\nx\r\n",
		"OK 15\r\n---\nstate: odd\n\r\n",
		"BURIED\r\n",
	)
	c, _ := dialMocks(t, testConfig(t), mock)
	ctx := context.Background()

	job, err := c.Reserve(ctx)
	require.NoError(t, err)
	require.NoError(t, job.Bury(ctx))

	assert.Equal(t, "reserve\r\nstats-job 5\r\nbury 5 2147483648\r\n", mock.GetWrittenRequest())
}

func TestJob_ReleaseFailureKeepsReservation(t *testing.T) {
	mock := testutils.NewConnectionMock(
		"RESERVED 5 1\r\nx\r\n",
		"NOT_FOUND\r\n",
	)
	c, _ := dialMocks(t, testConfig(t), mock)
	ctx := context.Background()

	job, err := c.Reserve(ctx)
	require.NoError(t, err)

	err = job.ReleaseWithPriority(ctx, 1, 0)
	require.ErrorIs(t, err, ErrNotFound)
	assert.True(t, job.Reserved())
}

func TestJob_Touch(t *testing.T) {
	c, server := newQueueConn(t)
	job := reserveOne(t, c, DefaultPutParams())
	ctx := context.Background()

	require.NoError(t, job.Touch(ctx))
	assert.True(t, job.Reserved(), "touch keeps the reservation")

	require.NoError(t, job.Delete(ctx))
	before := len(server.Commands())

	require.NoError(t, job.Touch(ctx))
	assert.Len(t, server.Commands(), before, "touch on a consumed job is local")
}

func TestJob_PeekedJobIsNotReserved(t *testing.T) {
	c, server := newQueueConn(t)
	ctx := context.Background()

	id, err := c.Put(ctx, []byte("x"), DefaultPutParams())
	require.NoError(t, err)

	job, err := c.Peek(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, job)

	before := len(server.Commands())
	require.NoError(t, job.Release(ctx, 0))
	require.NoError(t, job.Bury(ctx))
	require.NoError(t, job.Touch(ctx))
	assert.Len(t, server.Commands(), before)

	// delete is always forwarded and does not turn a peeked job into a consumed one
	require.NoError(t, job.Delete(ctx))
	assert.Equal(t, JobUnreserved, job.State())

	stats, err := c.StatsJob(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, stats)
}

func TestJobState_String(t *testing.T) {
	assert.Equal(t, "unreserved", JobUnreserved.String())
	assert.Equal(t, "reserved", JobReserved.String())
	assert.Equal(t, "consumed", JobConsumed.String())
	assert.Equal(t, "JobState(7)", JobState(7).String())
}
