package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

func TestWaitMetOnFirstAttempt(t *testing.T) {
	clock := NewFakeClock(epoch)
	p := Policy{Interval: 500 * time.Millisecond, MaxAttempts: 40, OnTimeout: ActionWarn}

	out, err := p.Wait(context.Background(), clock, func() (bool, error) { return true, nil })
	require.NoError(t, err)
	assert.True(t, out.Met)
	assert.Equal(t, 1, out.Attempts)
	assert.Empty(t, clock.Sleeps())
}

func TestWaitExhaustsAttempts(t *testing.T) {
	clock := NewFakeClock(epoch)
	p := Policy{Interval: 500 * time.Millisecond, MaxAttempts: 40, OnTimeout: ActionWarn}

	calls := 0
	out, err := p.Wait(context.Background(), clock, func() (bool, error) {
		calls++
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, out.Met)
	assert.Equal(t, 40, out.Attempts)
	assert.Equal(t, 40, calls)
	assert.Len(t, clock.Sleeps(), 39)
	assert.Equal(t, epoch.Add(p.Budget()), clock.Now())
}

func TestWaitMetAfterSomeAttempts(t *testing.T) {
	clock := NewFakeClock(epoch)
	p := Policy{Interval: time.Second, MaxAttempts: 10, OnTimeout: ActionWarn}

	calls := 0
	out, err := p.Wait(context.Background(), clock, func() (bool, error) {
		calls++
		return calls == 4, nil
	})
	require.NoError(t, err)
	assert.True(t, out.Met)
	assert.Equal(t, 4, out.Attempts)
	assert.Equal(t, epoch.Add(3*time.Second), clock.Now())
}

func TestWaitTreatsErrorsAsNotYet(t *testing.T) {
	clock := NewFakeClock(epoch)
	p := Policy{Interval: time.Second, MaxAttempts: 3, OnTimeout: ActionWarn}
	boom := errors.New("execution context was destroyed")

	calls := 0
	out, err := p.Wait(context.Background(), clock, func() (bool, error) {
		calls++
		if calls < 3 {
			return false, boom
		}
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, out.Met)
	assert.ErrorIs(t, out.LastErr, boom)
}

func TestWaitStopsOnCancelledContext(t *testing.T) {
	clock := NewFakeClock(epoch)
	p := Policy{Interval: time.Second, MaxAttempts: 5, OnTimeout: ActionWarn}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := p.Wait(ctx, clock, func() (bool, error) {
		calls++
		cancel()
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestWithin(t *testing.T) {
	tests := []struct {
		name     string
		timeout  time.Duration
		interval time.Duration
		attempts int
	}{
		{"even split", 15 * time.Second, 500 * time.Millisecond, 31},
		{"rounds up", 1100 * time.Millisecond, 500 * time.Millisecond, 4},
		{"at least one", 0, time.Second, 1},
		{"negative timeout", -time.Second, time.Second, 1},
		{"default interval", time.Second, 0, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Within(tt.timeout, tt.interval, ActionIssue)
			assert.Equal(t, tt.attempts, p.MaxAttempts)
			assert.Equal(t, ActionIssue, p.OnTimeout)
			assert.GreaterOrEqual(t, p.Budget(), tt.timeout)
		})
	}
}

func TestWithinLastCheckAtTimeout(t *testing.T) {
	clock := NewFakeClock(epoch)
	p := Within(10*time.Second, 250*time.Millisecond, ActionIssue)

	var checkedAt []time.Time
	out, err := p.Wait(context.Background(), clock, func() (bool, error) {
		checkedAt = append(checkedAt, clock.Now())
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, out.Met)
	require.NotEmpty(t, checkedAt)
	assert.Equal(t, epoch, checkedAt[0])
	assert.Equal(t, epoch.Add(10*time.Second), checkedAt[len(checkedAt)-1])
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, Policy{Interval: time.Second, MaxAttempts: 1, OnTimeout: ActionFail}.Validate())
	assert.Error(t, Policy{Interval: 0, MaxAttempts: 1, OnTimeout: ActionFail}.Validate())
	assert.Error(t, Policy{Interval: time.Second, MaxAttempts: 0, OnTimeout: ActionFail}.Validate())
	assert.Error(t, Policy{Interval: time.Second, MaxAttempts: 1, OnTimeout: "explode"}.Validate())
}

func TestRealClockSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RealClock{}.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
