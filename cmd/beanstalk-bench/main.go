package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pior/beanstalk"
)

type OperationType string

const (
	Put   OperationType = "put"
	Cycle OperationType = "cycle"
	All   OperationType = "all"
)

type BenchmarkResult struct {
	Operation    OperationType
	Duration     time.Duration
	TotalOps     int64
	Successes    int64
	Failures     int64
	AvgLatency   time.Duration
	OpsPerSecond float64
	Correctness  bool
	ErrorMessage string
}

const (
	pingTimeout = 5 * time.Second
	// runGrace is how long workers may overrun the duration before their
	// commands are cancelled.
	runGrace = 10 * time.Second
)

type benchmark struct {
	addr        string
	tube        string
	duration    time.Duration
	concurrency int
	config      beanstalk.Config
}

func main() {
	var (
		operation   = flag.String("operation", "all", "Operation type: put, cycle, or all")
		duration    = flag.Duration("duration", 5*time.Second, "Duration to run benchmarks")
		concurrency = flag.Int("concurrency", 1, "Number of concurrent workers, one connection each")
		addr        = flag.String("addr", beanstalk.DefaultAddr, "beanstalkd address")
		tube        = flag.String("tube", "bench", "Tube used by the benchmark")
		verbose     = flag.Bool("verbose", false, "Log connection events")
	)
	flag.Parse()

	fmt.Printf("Beanstalk Benchmark Tool\n")
	fmt.Printf("========================\n")
	fmt.Printf("Operation: %s\n", *operation)
	fmt.Printf("Duration: %v\n", *duration)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Address: %s\n", *addr)
	fmt.Printf("Tube: %s\n", *tube)
	fmt.Println()

	logOutput := io.Discard
	if *verbose {
		logOutput = os.Stderr
	}

	b := &benchmark{
		addr:        *addr,
		tube:        *tube,
		duration:    *duration,
		concurrency: *concurrency,
		config: beanstalk.Config{
			ReconnectStrategy: beanstalk.ReconnectExpBackoff,
			MaxAttempts:       5,
			Logger:            slog.New(slog.NewTextHandler(logOutput, nil)),
		},
	}

	fmt.Print("Testing connection...")
	ctx := context.Background()
	if err := b.ping(ctx); err != nil {
		fmt.Printf(" failed: %v\n", err)
		fmt.Printf("Make sure beanstalkd is running on %s\n", *addr)
		os.Exit(1)
	}
	fmt.Println(" success!")
	fmt.Println()

	if OperationType(*operation) == All {
		for _, op := range []OperationType{Put, Cycle} {
			fmt.Printf("\n--- Running %s benchmark ---\n", op)
			printResult(os.Stdout, b.run(ctx, op))
		}
		return
	}

	result := b.run(ctx, OperationType(*operation))
	printResult(os.Stdout, result)
	if !result.Correctness {
		log.Fatal("benchmark failed")
	}
}

// ping fails when the server cannot be reached within pingTimeout; the
// reconnect strategy would otherwise retry forever.
func (b *benchmark) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	conn, err := b.dial(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	_, err = conn.Stats(ctx)
	return err
}

// dial opens a connection using and watching only the benchmark tube.
func (b *benchmark) dial(ctx context.Context) (*beanstalk.Conn, error) {
	conn, err := beanstalk.Dial(ctx, b.addr, b.config)
	if err != nil {
		return nil, err
	}

	setup := func() error {
		if err := conn.Use(ctx, b.tube); err != nil {
			return err
		}
		if _, err := conn.Watch(ctx, b.tube); err != nil {
			return err
		}
		if b.tube != beanstalk.DefaultTube {
			_, err := conn.Ignore(ctx, beanstalk.DefaultTube)
			return err
		}
		return nil
	}
	if err := setup(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (b *benchmark) run(ctx context.Context, operation OperationType) *BenchmarkResult {
	switch operation {
	case Put:
		return b.runWorkers(ctx, Put, b.putOnce)
	case Cycle:
		return b.runWorkers(ctx, Cycle, b.cycleOnce)
	default:
		return &BenchmarkResult{
			Operation:    operation,
			Correctness:  false,
			ErrorMessage: fmt.Sprintf("Unknown operation: %s", operation),
		}
	}
}

// step performs one benchmark operation, reporting the commands it sent.
type step func(ctx context.Context, conn *beanstalk.Conn, body []byte) (ops int64, err error)

// Put: 1 put
func (b *benchmark) putOnce(ctx context.Context, conn *beanstalk.Conn, body []byte) (int64, error) {
	params := beanstalk.DefaultPutParams()
	params.TTR = time.Minute
	_, err := conn.Put(ctx, body, params)
	return 1, err
}

// Cycle: 1 put, 1 reserve, 1 delete
func (b *benchmark) cycleOnce(ctx context.Context, conn *beanstalk.Conn, body []byte) (int64, error) {
	if _, err := b.putOnce(ctx, conn, body); err != nil {
		return 1, err
	}

	job, err := conn.ReserveWithTimeout(ctx, 0)
	if err != nil {
		return 2, err
	}
	if job == nil {
		return 2, fmt.Errorf("no job ready after put")
	}

	return 3, job.Delete(ctx)
}

func (b *benchmark) runWorkers(ctx context.Context, operation OperationType, fn step) *BenchmarkResult {
	result := &BenchmarkResult{Operation: operation, Correctness: true}
	var totalOps, successes, failures int64
	var totalLatency int64

	var errOnce sync.Once
	fail := func(err error) {
		errOnce.Do(func() {
			result.Correctness = false
			result.ErrorMessage = err.Error()
		})
	}

	ctx, cancel := context.WithTimeout(ctx, b.duration+runGrace)
	defer cancel()

	startTime := time.Now()
	var wg sync.WaitGroup

	for i := 0; i < b.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			conn, err := b.dial(ctx)
			if err != nil {
				fail(fmt.Errorf("worker %d: %w", workerID, err))
				return
			}
			defer conn.Close()

			opCount := 0
			for time.Since(startTime) < b.duration {
				body := []byte(fmt.Sprintf("%s-job-%d-%d", operation, workerID, opCount))

				opStart := time.Now()
				ops, err := fn(ctx, conn, body)
				latency := time.Since(opStart)

				atomic.AddInt64(&totalOps, ops)
				atomic.AddInt64(&totalLatency, int64(latency))

				if err != nil {
					atomic.AddInt64(&failures, 1)
					fail(err)
				} else {
					atomic.AddInt64(&successes, 1)
				}
				opCount++
			}
		}(i)
	}

	wg.Wait()

	result.Duration = time.Since(startTime)
	result.TotalOps = totalOps
	result.Successes = successes
	result.Failures = failures

	if totalOps > 0 {
		result.AvgLatency = time.Duration(totalLatency / totalOps)
		result.OpsPerSecond = float64(totalOps) / result.Duration.Seconds()
	}

	return result
}

func printResult(w io.Writer, result *BenchmarkResult) {
	fmt.Fprintf(w, "Operation: %s\n", result.Operation)
	fmt.Fprintf(w, "Duration: %v\n", result.Duration)
	fmt.Fprintf(w, "Total Commands: %d\n", result.TotalOps)
	fmt.Fprintf(w, "Successes: %d\n", result.Successes)
	fmt.Fprintf(w, "Failures: %d\n", result.Failures)
	if result.TotalOps > 0 {
		fmt.Fprintf(w, "Commands/sec: %.2f\n", result.OpsPerSecond)
		fmt.Fprintf(w, "Avg Latency: %v\n", result.AvgLatency)
	}
	fmt.Fprintf(w, "Correctness: %t\n", result.Correctness)
	if result.ErrorMessage != "" {
		fmt.Fprintf(w, "Error: %s\n", result.ErrorMessage)
	}
	fmt.Fprintln(w)
}
