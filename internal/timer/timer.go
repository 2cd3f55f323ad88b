// Package timer implements the per-prompt countdown. One Countdown belongs
// to exactly one prompt of one session; the session machine is the only
// party that starts and stops it.
package timer

import (
	"sync"
	"time"
)

// Countdown ticks down a fixed number of whole seconds and fires its expiry
// callback exactly once when the remaining time reaches zero. A latch
// guarantees single firing even if ticks keep arriving or the callback
// tears the timer down. Stop is safe at any point and never leaks the
// ticking goroutine.
type Countdown struct {
	mu        sync.Mutex
	total     int
	remaining int
	active    bool
	started   bool
	expired   bool
	stop      chan struct{}
	stopOnce  sync.Once
	onExpire  func()
}

// New creates a countdown over the given duration in seconds. Durations are
// never negative; anything below zero is clamped.
func New(seconds int, onExpire func()) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	return &Countdown{
		total:     seconds,
		remaining: seconds,
		stop:      make(chan struct{}),
		onExpire:  onExpire,
	}
}

// Start begins ticking once per second. Calling Start again is a no-op:
// a countdown never restarts itself, the caller must create a new one.
func (c *Countdown) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.active = true
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				if c.tick() {
					return
				}
			}
		}
	}()
}

// SetActive pauses or resumes the countdown. Ticks that arrive while
// inactive are ignored, so toggling never double-counts elapsed time.
func (c *Countdown) SetActive(active bool) {
	c.mu.Lock()
	c.active = active
	c.mu.Unlock()
}

// Stop tears the countdown down. Idempotent; an expiry that already fired
// stays fired, one that hasn't will never fire.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Remaining returns the whole seconds left.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Progress returns the elapsed fraction in [0, 1]. A zero-duration
// countdown reports 1.
func (c *Countdown) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total == 0 {
		return 1
	}
	return float64(c.total-c.remaining) / float64(c.total)
}

// tick advances the countdown by one second and reports whether it expired
// on this tick. The expiry callback runs outside the lock: it commonly
// calls back into code that stops this very timer.
func (c *Countdown) tick() bool {
	c.mu.Lock()
	if !c.active || c.expired {
		done := c.expired
		c.mu.Unlock()
		return done
	}
	if c.remaining > 0 {
		c.remaining--
	}
	var fire func()
	if c.remaining <= 0 {
		c.expired = true
		fire = c.onExpire
	}
	c.mu.Unlock()

	if fire != nil {
		fire()
		return true
	}
	return false
}
