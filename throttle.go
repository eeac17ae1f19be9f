/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Clock provides the current time; tests substitute a fixed one.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Throttle limits one client's outgoing events to one per interval for each
// event kind. Every client needs its own; sharing one between simulated
// clients would make them starve each other.
type Throttle struct {
	clock    Clock
	interval time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newThrottle(interval time.Duration, clock Clock) *Throttle {
	if clock == nil {
		clock = realClock{}
	}
	return &Throttle{
		clock:    clock,
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
}

// allow reports whether an event of this kind may be sent now, and counts
// it as sent if so.
func (t *Throttle) allow(kind string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	l, ok := t.limiters[kind]
	if !ok {
		l = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[kind] = l
	}
	return l.AllowN(t.clock.Now(), 1)
}
