// Package poll provides bounded exponential-backoff polling for remote
// resource state transitions.
//
// Every poll carries two independent budgets: a maximum attempt count and a
// maximum elapsed wall-clock duration. Whichever budget is exhausted first
// ends the poll with an ExhaustedError, so a fast-failing remote cannot spin
// through dozens of attempts in milliseconds and a slow remote cannot hold a
// caller far past its deadline.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config bounds one polling loop.
type Config struct {
	// MaxAttempts is the maximum number of probe invocations. Must be >= 1.
	MaxAttempts int

	// InitialDelay is the wait before the second attempt. Doubles after
	// every subsequent attempt.
	InitialDelay time.Duration

	// MaxDelay caps each individual wait.
	MaxDelay time.Duration

	// Overall caps the total elapsed time across the whole loop. Zero
	// means no elapsed-time bound.
	Overall time.Duration
}

// Probe inspects the remote resource once. done reports whether the target
// condition holds; a non-nil error either ends the poll (fatal=true) or
// counts as a failed attempt (fatal=false).
type Probe func(ctx context.Context) (done bool, err error)

// ExhaustedError reports that a poll ended without the target condition
// holding. LastErr carries the final attempt's error when there was one.
type ExhaustedError struct {
	Attempts int
	Elapsed  time.Duration
	LastErr  error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("polling exhausted after %d attempts in %s: %v", e.Attempts, e.Elapsed.Round(time.Millisecond), e.LastErr)
	}
	return fmt.Sprintf("polling exhausted after %d attempts in %s", e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// Unwrap returns the last attempt error for chain inspection.
func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// FatalError wraps an error that must end the poll immediately instead of
// consuming the remaining budget.
type FatalError struct {
	Err error
}

// Fatal marks err as poll-ending.
func Fatal(err error) error {
	return &FatalError{Err: err}
}

// Error implements the error interface.
func (e *FatalError) Error() string { return e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *FatalError) Unwrap() error { return e.Err }

// Until runs probe with exponential backoff until the probe reports done, a
// fatal error occurs, the context is cancelled, or either budget runs out.
//
// A probe error that is not fatal counts against the attempt budget exactly
// like a not-done result. The delay doubles after every attempt, clamped to
// cfg.MaxDelay and to whatever remains of cfg.Overall.
func Until(ctx context.Context, cfg Config, probe Probe) error {
	if cfg.MaxAttempts < 1 {
		return fmt.Errorf("poll: max attempts must be >= 1, got %d", cfg.MaxAttempts)
	}

	start := time.Now()
	delay := cfg.InitialDelay
	var lastErr error

	for attempt := 1; ; attempt++ {
		done, err := probe(ctx)
		if err != nil {
			var fatal *FatalError
			if errors.As(err, &fatal) {
				return fatal.Err
			}
			lastErr = err
		} else if done {
			return nil
		} else {
			lastErr = nil
		}

		elapsed := time.Since(start)
		if attempt >= cfg.MaxAttempts || (cfg.Overall > 0 && elapsed >= cfg.Overall) {
			return &ExhaustedError{Attempts: attempt, Elapsed: elapsed, LastErr: lastErr}
		}

		wait := delay
		if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
			wait = cfg.MaxDelay
		}
		if cfg.Overall > 0 {
			// Never sleep past the wall-clock budget.
			if remaining := cfg.Overall - elapsed; wait > remaining {
				wait = remaining
			}
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
}
