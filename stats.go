package beanstalk

import (
	"sync/atomic"
)

// ClientStats contains counters about one connection's activity.
// Snapshots are safe to take concurrently with commands.
//
// For Prometheus integration, expose these as counters.
type ClientStats struct {
	Commands            uint64 // Commands answered with an expected success status
	CommandFailures     uint64 // Commands answered with a documented failure status
	UnexpectedResponses uint64 // Commands answered with a status outside both sets
	StreamFailures      uint64 // Exchanges cut by an I/O error or truncated response
	Connects            uint64 // Successful connection attempts
	ConnectFailures     uint64 // Failed connection attempts, including open circuit breaker
}

// statsCollector provides internal methods for updating client stats.
type statsCollector struct {
	stats ClientStats
}

func newStatsCollector() *statsCollector {
	return &statsCollector{}
}

func (c *statsCollector) recordCommand() {
	atomic.AddUint64(&c.stats.Commands, 1)
}

func (c *statsCollector) recordCommandFailure() {
	atomic.AddUint64(&c.stats.CommandFailures, 1)
}

func (c *statsCollector) recordUnexpectedResponse() {
	atomic.AddUint64(&c.stats.UnexpectedResponses, 1)
}

func (c *statsCollector) recordStreamFailure() {
	atomic.AddUint64(&c.stats.StreamFailures, 1)
}

func (c *statsCollector) recordConnect() {
	atomic.AddUint64(&c.stats.Connects, 1)
}

func (c *statsCollector) recordConnectFailure() {
	atomic.AddUint64(&c.stats.ConnectFailures, 1)
}

func (c *statsCollector) snapshot() ClientStats {
	return ClientStats{
		Commands:            atomic.LoadUint64(&c.stats.Commands),
		CommandFailures:     atomic.LoadUint64(&c.stats.CommandFailures),
		UnexpectedResponses: atomic.LoadUint64(&c.stats.UnexpectedResponses),
		StreamFailures:      atomic.LoadUint64(&c.stats.StreamFailures),
		Connects:            atomic.LoadUint64(&c.stats.Connects),
		ConnectFailures:     atomic.LoadUint64(&c.stats.ConnectFailures),
	}
}
