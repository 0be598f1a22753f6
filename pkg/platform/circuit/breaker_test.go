package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// newNotifyBreaker mirrors how the notification publisher builds its breaker.
func newNotifyBreaker(clock *fakeClock) *Breaker {
	return New("notify",
		WithFailureThreshold(2),
		WithSuccessThreshold(2),
		WithCooldown(10*time.Second),
		WithClock(clock.Now),
	)
}

// failUntilOpen records sink failures until the breaker trips.
func failUntilOpen(t *testing.T, b *Breaker) {
	t.Helper()
	_, change := b.RecordFailure()
	require.False(t, change.Opened)
	_, change = b.RecordFailure()
	require.True(t, change.Opened)
	require.Equal(t, StateOpen, b.State())
}

func TestNotifyBreakerDefaults(t *testing.T) {
	b := New("notify")
	assert.Equal(t, "notify", b.Name())
	assert.True(t, b.Allow(), "a fresh breaker lets deliveries through")

	for i := 1; i < defaultFailureThreshold; i++ {
		useFallback, _ := b.RecordFailure()
		assert.False(t, useFallback, "failure %d", i)
	}
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)
}

func TestNotifyBreakerDropsDuringCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)}
	b := newNotifyBreaker(clock)
	failUntilOpen(t, b)

	assert.False(t, b.Allow(), "batches are dropped right after opening")
	clock.Advance(9 * time.Second)
	assert.False(t, b.Allow(), "still inside the cooldown")

	clock.Advance(time.Second)
	assert.True(t, b.Allow(), "one trial delivery once the cooldown has elapsed")
	assert.False(t, b.Allow(), "a second batch in the same window is dropped")
}

func TestNotifyBreakerFailedTrialRestartsCooldown(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)}
	b := newNotifyBreaker(clock)
	failUntilOpen(t, b)

	clock.Advance(10 * time.Second)
	require.True(t, b.Allow())
	useFallback, change := b.RecordFailure()
	assert.True(t, useFallback)
	assert.Equal(t, StateChange{}, change, "an already open breaker reports no transition")
	assert.True(t, b.IsOpen())

	clock.Advance(5 * time.Second)
	assert.False(t, b.Allow(), "the next trial waits a full cooldown from the last one")
	clock.Advance(5 * time.Second)
	assert.True(t, b.Allow())
}

func TestNotifyBreakerClosesAfterSuccessfulTrials(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)}
	b := newNotifyBreaker(clock)
	failUntilOpen(t, b)

	clock.Advance(10 * time.Second)
	require.True(t, b.Allow())
	usePrimary, change := b.RecordSuccess()
	assert.False(t, usePrimary, "one success is not enough")
	assert.False(t, change.Closed)

	// A failure between successes starts the count again.
	clock.Advance(10 * time.Second)
	require.True(t, b.Allow())
	b.RecordFailure()
	clock.Advance(10 * time.Second)
	require.True(t, b.Allow())
	_, change = b.RecordSuccess()
	assert.False(t, change.Closed)

	clock.Advance(10 * time.Second)
	require.True(t, b.Allow())
	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow(), "a closed breaker no longer rations deliveries")
	assert.True(t, b.Allow())
}

func TestNotifyBreakerSuccessClearsFailureStreak(t *testing.T) {
	b := newNotifyBreaker(&fakeClock{})

	b.RecordFailure()
	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.Equal(t, StateChange{}, change)

	_, change = b.RecordFailure()
	assert.False(t, change.Opened, "failures must be consecutive to trip")
}

func TestNotifyBreakerReset(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)}
	b := newNotifyBreaker(clock)
	failUntilOpen(t, b)

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
	_, change := b.RecordFailure()
	assert.False(t, change.Opened, "reset clears the failure streak")
}
