// Package welcometest provides a manually advanced clock for driving
// sequencers deterministically in tests.
package welcometest

import (
	"sort"
	"sync"
	"time"

	"github.com/Zachkp/folio/internal/welcome"
)

// FakeClock fires timers only when Advance is called. Callbacks run on the
// goroutine calling Advance, in deadline order.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *FakeClock
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func NewFakeClock() *FakeClock {
	return &FakeClock{}
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) welcome.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, at: c.now + d, seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, firing every timer that comes due,
// including timers scheduled by the callbacks themselves.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDueLocked(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.fired = true
		c.mu.Unlock()

		next.fn()
	}
}

// Elapsed is the total time advanced so far.
func (c *FakeClock) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Pending counts timers that are neither stopped nor fired.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *FakeClock) nextDueLocked(target time.Duration) *fakeTimer {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.timers = live
	sort.Slice(c.timers, func(i, j int) bool {
		if c.timers[i].at == c.timers[j].at {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].at < c.timers[j].at
	})
	if len(c.timers) == 0 || c.timers[0].at > target {
		return nil
	}
	return c.timers[0]
}
