package beanstalk

import (
	"math"
	"time"
)

// reconnectWait returns how long to wait before the next connection attempt,
// and how long that attempt may take.
//
// random must return a value in [0, 1); it decorrelates clients reconnecting
// to the same server at the same time.
func reconnectWait(strategy ReconnectStrategy, timeout, upperBound time.Duration, failures int, random func() float64) time.Duration {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	if strategy != ReconnectExpBackoff {
		return timeout
	}

	// Computed in float seconds: 2^failures overflows a Duration long before
	// failures overflows an int. +Inf compares greater than any bound.
	wait := (1.0 + random()) * timeout.Seconds() * math.Pow(2, float64(failures))
	if wait >= upperBound.Seconds() || math.IsNaN(wait) {
		return upperBound
	}

	return time.Duration(wait * float64(time.Second))
}

// dialTimeout is the timeout of the next dial, zero when disabled.
func (c *Conn) dialTimeout() time.Duration {
	if c.cfg.ConnectTimeout == NoConnectTimeout {
		return 0
	}
	return c.currentWait()
}

func (c *Conn) currentWait() time.Duration {
	return reconnectWait(c.cfg.ReconnectStrategy, c.cfg.ConnectTimeout, c.cfg.UpperBackoffBound, c.unsuccessfulConnects, c.cfg.random)
}
