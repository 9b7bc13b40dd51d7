package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 1, want: 400 * time.Millisecond},
		{attempt: 2, want: 800 * time.Millisecond},
		{attempt: 3, want: 1600 * time.Millisecond},
		{attempt: 5, want: 6400 * time.Millisecond},
		{attempt: 6, want: 10 * time.Second},
		{attempt: 20, want: 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backoff(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryPolicy_Next(t *testing.T) {
	p := retryPolicy{maxRetries: 2}
	ctx := context.Background()
	boom := errors.New("boom")

	assert.Equal(t, stateSuccess, p.next(ctx, 1, nil).state)

	step := p.next(ctx, 1, boom)
	assert.Equal(t, stateRetryWait, step.state)
	assert.Equal(t, 2, step.attempt)
	assert.Equal(t, 400*time.Millisecond, step.wait)

	assert.Equal(t, stateRetryWait, p.next(ctx, 2, boom).state)
	assert.Equal(t, stateFatal, p.next(ctx, 3, boom).state)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.Equal(t, stateFatal, p.next(cancelled, 1, boom).state)
}

func TestRetryPolicy_ZeroRetriesTriesOnce(t *testing.T) {
	sleeper := &recordingSleeper{}
	p := retryPolicy{maxRetries: 0, minDelay: 10 * time.Millisecond, sleep: sleeper.sleep}

	calls := 0
	attempts, err := p.run(context.Background(), func(context.Context) error {
		calls++
		return errors.New("boom")
	}, func(int, error) {
		t.Fatal("no retry expected")
	})
	require.EqualError(t, err, "boom")
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, []time.Duration{10 * time.Millisecond}, sleeper.recorded())
}

func TestRetryPolicy_ReportsEachRetry(t *testing.T) {
	p := retryPolicy{maxRetries: 3, sleep: noSleep}

	var retried []int
	calls := 0
	attempts, err := p.run(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, func(attempt int, _ error) {
		retried = append(retried, attempt)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), 0))
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
}
