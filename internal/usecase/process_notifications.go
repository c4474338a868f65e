package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/V4T54L/leadhub/internal/domain"
)

// LeadNotifier delivers one queued notification event.
type LeadNotifier interface {
	NotifyLead(ctx context.Context, event domain.NotificationEvent) error
}

// WorkerOptions tunes the outbox worker.
type WorkerOptions struct {
	Group       string
	Consumer    string
	BatchSize   int
	MaxAttempts int
	// RetryBackoff is multiplied by the attempt number before each retry.
	RetryBackoff time.Duration
	Concurrency  int
	// ClaimIdle is how long an entry may sit unacknowledged before another worker takes it.
	ClaimIdle time.Duration
}

func (o WorkerOptions) withDefaults() WorkerOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.ClaimIdle <= 0 {
		o.ClaimIdle = time.Minute
	}
	return o
}

// ProcessNotificationsUseCase drains the notification outbox: it delivers each
// event with bounded retries, dead-letters permanent failures and acknowledges
// everything it settled.
type ProcessNotificationsUseCase struct {
	queue    domain.NotificationQueue
	notifier LeadNotifier
	logger   *slog.Logger
	opts     WorkerOptions
}

// NewProcessNotificationsUseCase creates the worker use case.
func NewProcessNotificationsUseCase(queue domain.NotificationQueue, notifier LeadNotifier, logger *slog.Logger, opts WorkerOptions) *ProcessNotificationsUseCase {
	return &ProcessNotificationsUseCase{
		queue:    queue,
		notifier: notifier,
		logger:   logger.With("component", "notification_worker", "consumer", opts.Consumer),
		opts:     opts.withDefaults(),
	}
}

// ProcessBatch handles stale entries abandoned by other workers and then a
// batch of new entries. It returns how many events were settled.
func (uc *ProcessNotificationsUseCase) ProcessBatch(ctx context.Context) (int, error) {
	stale, err := uc.queue.ClaimStale(ctx, uc.opts.Group, uc.opts.Consumer, uc.opts.ClaimIdle, uc.opts.BatchSize)
	if err != nil {
		uc.logger.Warn("failed to claim stale notifications", "error", err)
	}
	if len(stale) > 0 {
		uc.logger.Info("claimed stale notifications", "count", len(stale))
	}

	fresh, err := uc.queue.ReadBatch(ctx, uc.opts.Group, uc.opts.Consumer, uc.opts.BatchSize)
	if err != nil {
		uc.logger.Error("failed to read notification batch", "error", err)
		if len(stale) == 0 {
			return 0, err
		}
	}

	events := append(stale, fresh...)
	if len(events) == 0 {
		return 0, nil
	}
	return uc.settle(ctx, events)
}

func (uc *ProcessNotificationsUseCase) settle(ctx context.Context, events []domain.NotificationEvent) (int, error) {
	var (
		mu        sync.Mutex
		delivered []string
		failed    []domain.NotificationEvent
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.opts.Concurrency)
	for _, event := range events {
		g.Go(func() error {
			err := uc.deliver(gctx, event)
			if err != nil && ctx.Err() != nil {
				// Shutting down: leave the entry pending for the next worker.
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				delivered = append(delivered, event.StreamMessageID)
				return nil
			}
			event.FailureReason = err.Error()
			failed = append(failed, event)
			return nil
		})
	}
	_ = g.Wait()

	acks := delivered
	if len(failed) > 0 {
		if err := uc.queue.MoveToDLQ(ctx, failed); err != nil {
			// Unacknowledged entries are reclaimed and retried later.
			uc.logger.Error("failed to dead-letter notifications", "count", len(failed), "error", err)
		} else {
			for _, e := range failed {
				acks = append(acks, e.StreamMessageID)
			}
		}
	}

	if err := uc.queue.Acknowledge(ctx, uc.opts.Group, acks...); err != nil {
		uc.logger.Error("failed to acknowledge notifications", "error", err)
		return 0, err
	}

	uc.logger.Info("processed notification batch", "delivered", len(delivered), "dead_lettered", len(failed), "acked", len(acks))
	return len(acks), nil
}

// deliver retries retryable failures with linear backoff and gives up at once
// on permanent ones.
func (uc *ProcessNotificationsUseCase) deliver(ctx context.Context, event domain.NotificationEvent) error {
	var lastErr error
	for attempt := 1; attempt <= uc.opts.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(uc.opts.RetryBackoff * time.Duration(attempt-1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := uc.notifier.NotifyLead(ctx, event)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable(err) {
			uc.logger.Warn("notification failed permanently", "event_id", event.ID, "lead_id", event.LeadID, "error", err)
			return err
		}
		uc.logger.Warn("notification failed, retrying", "event_id", event.ID, "attempt", attempt, "error", err)
	}
	return fmt.Errorf("gave up after %d attempts: %w", uc.opts.MaxAttempts, lastErr)
}

func retryable(err error) bool {
	var derr *domain.DispatchError
	if errors.As(err, &derr) {
		return derr.Retryable()
	}
	// A lead that no longer exists will not come back.
	return !errors.Is(err, domain.ErrNotFound)
}
