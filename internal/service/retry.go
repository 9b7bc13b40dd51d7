package service

import (
	"context"
	"errors"
	"time"
)

const (
	baseBackoff     = 200 * time.Millisecond
	maxBackoff      = 10 * time.Second
	maxBackoffShift = 6
)

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoff is the wait after the given failed attempt (1-based).
func backoff(attempt int) time.Duration {
	shift := min(attempt, maxBackoffShift)
	return min(baseBackoff<<shift, maxBackoff)
}

type retryState int

const (
	stateAttempting retryState = iota
	stateRetryWait
	stateSuccess
	stateFatal
)

type retryStep struct {
	state   retryState
	attempt int
	wait    time.Duration
}

// retryPolicy drives Attempting(n) -> Success | RetryWait(n+1) | Fatal.
type retryPolicy struct {
	maxRetries int
	minDelay   time.Duration
	sleep      Sleeper
}

func (p retryPolicy) next(ctx context.Context, attempt int, err error) retryStep {
	switch {
	case err == nil:
		return retryStep{state: stateSuccess, attempt: attempt}
	case ctx.Err() != nil, errors.Is(err, context.Canceled):
		return retryStep{state: stateFatal, attempt: attempt}
	case attempt <= p.maxRetries:
		return retryStep{state: stateRetryWait, attempt: attempt + 1, wait: backoff(attempt)}
	default:
		return retryStep{state: stateFatal, attempt: attempt}
	}
}

// run calls fn until it succeeds or retries are exhausted. Every attempt is
// preceded by the pacing delay; onRetry fires before each backoff sleep.
func (p retryPolicy) run(
	ctx context.Context,
	fn func(ctx context.Context) error,
	onRetry func(attempt int, err error),
) (int, error) {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	step := retryStep{state: stateAttempting, attempt: 1}
	for {
		if err := sleep(ctx, p.minDelay); err != nil {
			return step.attempt, err
		}

		err := fn(ctx)
		next := p.next(ctx, step.attempt, err)
		switch next.state {
		case stateSuccess:
			return next.attempt, nil
		case stateFatal:
			return next.attempt, err
		}

		if onRetry != nil {
			onRetry(step.attempt, err)
		}
		if err := sleep(ctx, next.wait); err != nil {
			return step.attempt, err
		}
		step = retryStep{state: stateAttempting, attempt: next.attempt}
	}
}
