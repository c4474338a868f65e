package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/domain/mocks"
)

type recordedSleeps struct {
	waits []time.Duration
}

func (r *recordedSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := DefaultRetryPolicy()
	want := []time.Duration{0, 250 * time.Millisecond, 500 * time.Millisecond, 750 * time.Millisecond}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Errorf("Delay(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestFetchProfile_FoundOnThirdAttempt(t *testing.T) {
	id := uuid.New()
	repo := mocks.NewMockProfileRepository(&domain.Profile{ID: id, Role: domain.RoleBroker})
	repo.NotFoundUntil = 2
	sleeps := &recordedSleeps{}

	res := DefaultRetryPolicy().FetchProfile(context.Background(), repo, id, sleeps.sleep)

	if res.Outcome != Found {
		t.Fatalf("expected Found, got %v", res.Outcome)
	}
	if res.Attempts != 3 || repo.Calls != 3 {
		t.Errorf("expected 3 attempts, got %d (repo calls %d)", res.Attempts, repo.Calls)
	}
	want := []time.Duration{0, 250 * time.Millisecond, 500 * time.Millisecond}
	if len(sleeps.waits) != len(want) {
		t.Fatalf("expected waits %v, got %v", want, sleeps.waits)
	}
	for i := range want {
		if sleeps.waits[i] != want[i] {
			t.Errorf("wait %d = %v, want %v", i, sleeps.waits[i], want[i])
		}
	}
}

func TestFetchProfile_NotFoundAfterRetries(t *testing.T) {
	repo := mocks.NewMockProfileRepository()
	sleeps := &recordedSleeps{}

	res := DefaultRetryPolicy().FetchProfile(context.Background(), repo, uuid.New(), sleeps.sleep)

	if res.Outcome != NotFoundAfterRetries {
		t.Fatalf("expected NotFoundAfterRetries, got %v", res.Outcome)
	}
	if repo.Calls != 4 {
		t.Errorf("expected 4 lookups, got %d", repo.Calls)
	}
}

func TestFetchProfile_OtherErrorIsTerminal(t *testing.T) {
	repo := mocks.NewMockProfileRepository()
	repo.FindErr = errors.New("connection refused")
	sleeps := &recordedSleeps{}

	res := DefaultRetryPolicy().FetchProfile(context.Background(), repo, uuid.New(), sleeps.sleep)

	if res.Outcome != Failed {
		t.Fatalf("expected Failed, got %v", res.Outcome)
	}
	if repo.Calls != 1 {
		t.Errorf("expected a single lookup, got %d", repo.Calls)
	}
	if !errors.Is(res.Err, repo.FindErr) {
		t.Errorf("expected underlying error, got %v", res.Err)
	}
}

func TestFetchProfile_CancelledWhileWaiting(t *testing.T) {
	repo := mocks.NewMockProfileRepository()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := RetryPolicy{MaxAttempts: 4, Backoff: time.Hour}.FetchProfile(ctx, repo, uuid.New(), nil)

	if res.Outcome != Failed || !errors.Is(res.Err, context.Canceled) {
		t.Fatalf("expected Failed with context.Canceled, got %v / %v", res.Outcome, res.Err)
	}
}
