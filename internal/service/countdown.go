package service

import (
	"sync"
	"time"
)

// RemainingSeconds is the server-anchored time left of an attempt:
// durationSeconds minus whole seconds elapsed since startTime, clamped to
// [0, durationSeconds]. A client clock behind the server never extends the
// declared duration.
func RemainingSeconds(durationSeconds int, startTime, now time.Time) int {
	if durationSeconds <= 0 {
		return 0
	}
	elapsed := int(now.Sub(startTime) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	left := durationSeconds - elapsed
	if left < 0 {
		return 0
	}
	return left
}

// Countdown holds the remaining seconds of an attempt. It is anchored once
// and then only decremented.
type Countdown struct {
	mu        sync.Mutex
	remaining int
}

// NewCountdown anchors a countdown on the server start time.
func NewCountdown(durationSeconds int, startTime, now time.Time) *Countdown {
	return &Countdown{remaining: RemainingSeconds(durationSeconds, startTime, now)}
}

// Remaining returns the seconds left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Tick decrements by one second. expired is true only on the tick that
// reaches zero; ticks at zero hold the value.
func (c *Countdown) Tick() (remaining int, expired bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining <= 0 {
		return 0, false
	}
	c.remaining--
	return c.remaining, c.remaining == 0
}

// Ticker delivers ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFunc creates a Ticker with the given period.
type TickerFunc func(d time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// NewRealTicker wraps time.NewTicker.
func NewRealTicker(d time.Duration) Ticker {
	return realTicker{t: time.NewTicker(d)}
}
