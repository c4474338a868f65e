package usecase

import (
	"context"

	"github.com/V4T54L/leadhub/internal/domain"
)

const (
	defaultDeadLetterPage = 100
	maxDeadLetterPage     = 1000
)

// OutboxAdminUseCase inspects and repairs the notification outbox.
type OutboxAdminUseCase struct {
	repo  domain.OutboxAdminRepository
	group string
}

// NewOutboxAdminUseCase creates a new OutboxAdminUseCase for the notifier consumer group.
func NewOutboxAdminUseCase(repo domain.OutboxAdminRepository, group string) *OutboxAdminUseCase {
	return &OutboxAdminUseCase{repo: repo, group: group}
}

func (uc *OutboxAdminUseCase) Info(ctx context.Context) (*domain.OutboxInfo, error) {
	return uc.repo.StreamInfo(ctx)
}

func (uc *OutboxAdminUseCase) Pending(ctx context.Context) (*domain.PendingSummary, error) {
	return uc.repo.PendingSummary(ctx, uc.group)
}

func (uc *OutboxAdminUseCase) DeadLetters(ctx context.Context, count int64) ([]domain.DeadLetter, error) {
	if count <= 0 {
		count = defaultDeadLetterPage
	}
	if count > maxDeadLetterPage {
		count = maxDeadLetterPage
	}
	return uc.repo.ListDeadLetters(ctx, count)
}

func (uc *OutboxAdminUseCase) Requeue(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		v := domain.NewValidationError()
		v.Add("ids", "is required")
		return 0, v
	}
	return uc.repo.RequeueDeadLetters(ctx, ids...)
}

func (uc *OutboxAdminUseCase) TrimDeadLetters(ctx context.Context, maxLen int64) (int64, error) {
	if maxLen < 0 {
		v := domain.NewValidationError()
		v.Add("maxlen", "must not be negative")
		return 0, v
	}
	return uc.repo.TrimDeadLetters(ctx, maxLen)
}
