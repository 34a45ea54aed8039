package beanstalk

import (
	"net"
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards dials to the server. While open, connection attempts
// fail immediately and count as unsuccessful connects for the reconnect policy.
//
// *gobreaker.CircuitBreaker[net.Conn] implements it.
type CircuitBreaker interface {
	Execute(dial func() (net.Conn, error)) (net.Conn, error)
	State() gobreaker.State
}

// NewGoBreaker creates a gobreaker circuit breaker for dials.
func NewGoBreaker(settings gobreaker.Settings) CircuitBreaker {
	return gobreaker.NewCircuitBreaker[net.Conn](settings)
}

// NewGobreakerConfig returns a function that creates circuit breakers for Config.NewCircuitBreaker.
// The breaker opens after 3 dials with at least 60% failures.
func NewGobreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(addr string) CircuitBreaker {
	return func(addr string) CircuitBreaker {
		return NewGoBreaker(gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		})
	}
}
