package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
)

// RetryPolicy bounds how long a profile lookup waits for asynchronous provisioning.
// Before attempt n (n >= 2) it sleeps Backoff × (n-1).
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// DefaultRetryPolicy allows 4 attempts, 250ms apart and growing linearly.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, Backoff: 250 * time.Millisecond}
}

// Delay returns the wait before the given 1-based attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	return p.Backoff * time.Duration(attempt-1)
}

// LookupOutcome tags the result of a profile lookup.
type LookupOutcome int

const (
	// Found means the profile was loaded.
	Found LookupOutcome = iota + 1
	// NotFoundAfterRetries means every attempt reported the profile missing.
	NotFoundAfterRetries
	// Failed means the store returned an error other than not-found.
	Failed
)

func (o LookupOutcome) String() string {
	switch o {
	case Found:
		return "found"
	case NotFoundAfterRetries:
		return "not_found_after_retries"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// LookupResult is the tagged outcome of FetchProfile.
type LookupResult struct {
	Outcome  LookupOutcome
	Profile  *domain.Profile
	Attempts int
	// Err is set when Outcome is Failed.
	Err error
}

type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchProfile loads a profile, retrying only while the store reports it missing.
func (p RetryPolicy) FetchProfile(ctx context.Context, repo domain.ProfileRepository, id uuid.UUID, sleep sleepFunc) LookupResult {
	if sleep == nil {
		sleep = sleepCtx
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return LookupResult{Outcome: Failed, Attempts: attempt - 1, Err: err}
		}
		profile, err := repo.FindByID(ctx, id)
		if err == nil {
			return LookupResult{Outcome: Found, Profile: profile, Attempts: attempt}
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return LookupResult{Outcome: Failed, Attempts: attempt, Err: err}
		}
	}
	return LookupResult{Outcome: NotFoundAfterRetries, Attempts: attempts}
}
