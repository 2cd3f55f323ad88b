package timer

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCountdownFiresExactlyOnce(t *testing.T) {
	var fired int32
	c := New(300, func() { atomic.AddInt32(&fired, 1) })
	c.mu.Lock()
	c.started = true
	c.active = true
	c.mu.Unlock()

	for i := 0; i < 300; i++ {
		c.tick()
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.Equal(t, 0, c.Remaining())

	// Further ticks after expiry must not fire again.
	for i := 0; i < 10; i++ {
		c.tick()
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.Equal(t, 0, c.Remaining())
}

func TestCountdownNeverFiresEarly(t *testing.T) {
	var fired int32
	c := New(5, func() { atomic.AddInt32(&fired, 1) })
	c.mu.Lock()
	c.started = true
	c.active = true
	c.mu.Unlock()

	for i := 0; i < 4; i++ {
		c.tick()
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	assert.Equal(t, 1, c.Remaining())

	c.tick()
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestCountdownZeroDurationFiresOnFirstTick(t *testing.T) {
	var fired int32
	c := New(0, func() { atomic.AddInt32(&fired, 1) })
	c.mu.Lock()
	c.started = true
	c.active = true
	c.mu.Unlock()

	c.tick()
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
	assert.InDelta(t, 1.0, c.Progress(), 1e-9)
}

func TestCountdownNegativeDurationClamped(t *testing.T) {
	c := New(-10, nil)
	assert.Equal(t, 0, c.Remaining())
}

func TestCountdownInactiveTicksIgnored(t *testing.T) {
	var fired int32
	c := New(3, func() { atomic.AddInt32(&fired, 1) })
	c.mu.Lock()
	c.started = true
	c.active = true
	c.mu.Unlock()

	c.tick()
	c.SetActive(false)
	for i := 0; i < 5; i++ {
		c.tick()
	}
	// Paused ticks must not count as elapsed time.
	assert.Equal(t, 2, c.Remaining())
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))

	c.SetActive(true)
	c.tick()
	c.tick()
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestCountdownProgress(t *testing.T) {
	c := New(4, nil)
	c.mu.Lock()
	c.started = true
	c.active = true
	c.mu.Unlock()

	assert.InDelta(t, 0.0, c.Progress(), 1e-9)
	c.tick()
	assert.InDelta(t, 0.25, c.Progress(), 1e-9)
	c.tick()
	c.tick()
	c.tick()
	assert.InDelta(t, 1.0, c.Progress(), 1e-9)
}

func TestCountdownRealTimeExpiry(t *testing.T) {
	done := make(chan struct{})
	c := New(1, func() { close(done) })
	c.Start()
	defer c.Stop()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("countdown did not expire within 3s")
	}
}

func TestCountdownStopIsIdempotentAndLeakFree(t *testing.T) {
	c := New(60, func() { t.Error("expiry must not fire after stop") })
	c.Start()
	c.Stop()
	c.Stop()

	// The expiry callback gets no chance to fire once stopped.
	time.Sleep(50 * time.Millisecond)
}

func TestCountdownStartIsOneShot(t *testing.T) {
	c := New(60, nil)
	c.Start()
	require.Equal(t, 60, c.Remaining())
	c.Start() // no-op, must not spawn a second ticker
	c.Stop()
}
