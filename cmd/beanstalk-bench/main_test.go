package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/beanstalk"
	"github.com/pior/beanstalk/internal/testutils"
)

func newTestBenchmark(t *testing.T, concurrency int) (*benchmark, *testutils.Server) {
	server := testutils.NewServer(t, testutils.NewFakeQueue().Handler())
	return &benchmark{
		addr:        server.Addr(),
		tube:        "bench",
		duration:    30 * time.Millisecond,
		concurrency: concurrency,
		config: beanstalk.Config{
			ReconnectStrategy: beanstalk.ReconnectNone,
			Logger:            slogt.New(t),
		},
	}, server
}

func TestBenchmark_Put(t *testing.T) {
	b, server := newTestBenchmark(t, 2)

	result := b.run(context.Background(), Put)
	assert.True(t, result.Correctness, result.ErrorMessage)
	assert.Positive(t, result.Successes)
	assert.Zero(t, result.Failures)
	assert.Equal(t, result.Successes, result.TotalOps)
	assert.Equal(t, 2, server.Connections())
}

func TestBenchmark_Cycle(t *testing.T) {
	b, _ := newTestBenchmark(t, 3)

	result := b.run(context.Background(), Cycle)
	require.True(t, result.Correctness, result.ErrorMessage)
	assert.Positive(t, result.Successes)
	assert.Equal(t, 3*result.Successes, result.TotalOps)

	conn, err := b.dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	stats, err := conn.StatsTube(context.Background(), "bench")
	require.NoError(t, err)
	ready, _ := stats.GetInt("current-jobs-ready")
	assert.Zero(t, ready, "every job is deleted")
}

func TestBenchmark_DialSetsTubes(t *testing.T) {
	b, server := newTestBenchmark(t, 1)

	conn, err := b.dial(context.Background())
	require.NoError(t, err)
	defer conn.Close()

	watching, err := conn.Watching(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"bench"}, watching)
	assert.Equal(t, "bench", conn.Using())
	assert.Equal(t, []string{"use bench", "watch bench", "ignore default", "list-tubes-watched"}, server.CommandLines())
}

func TestBenchmark_UnknownOperation(t *testing.T) {
	b, _ := newTestBenchmark(t, 1)

	result := b.run(context.Background(), "explode")
	assert.False(t, result.Correctness)
	assert.Equal(t, "Unknown operation: explode", result.ErrorMessage)
}

func TestBenchmark_ConnectFailure(t *testing.T) {
	b, server := newTestBenchmark(t, 1)
	server.Close()

	require.Error(t, b.ping(context.Background()))

	result := b.run(context.Background(), Put)
	assert.False(t, result.Correctness)
	assert.Zero(t, result.TotalOps)
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &BenchmarkResult{
		Operation:    Cycle,
		Duration:     time.Second,
		TotalOps:     30,
		Successes:    10,
		AvgLatency:   time.Millisecond,
		OpsPerSecond: 30,
		Correctness:  true,
	})

	out := buf.String()
	assert.Contains(t, out, "Operation: cycle\n")
	assert.Contains(t, out, "Commands/sec: 30.00\n")
	assert.NotContains(t, out, "Error:")
}
