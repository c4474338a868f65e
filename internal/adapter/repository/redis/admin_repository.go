package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/leadhub/internal/domain"
)

// AdminRepository implements domain.OutboxAdminRepository for the Redis outbox.
type AdminRepository struct {
	client    *redis.Client
	logger    *slog.Logger
	stream    string
	dlqStream string
}

// NewAdminRepository creates a new Redis outbox admin repository.
func NewAdminRepository(client *redis.Client, logger *slog.Logger, stream, dlqStream string) *AdminRepository {
	return &AdminRepository{
		client:    client,
		logger:    logger.With("component", "outbox_admin"),
		stream:    stream,
		dlqStream: dlqStream,
	}
}

// StreamInfo reports stream and DLQ lengths plus every consumer group.
func (r *AdminRepository) StreamInfo(ctx context.Context) (*domain.OutboxInfo, error) {
	length, err := r.client.XLen(ctx, r.stream).Result()
	if err != nil {
		return nil, fmt.Errorf("XLEN %s: %w", r.stream, err)
	}
	dead, err := r.client.XLen(ctx, r.dlqStream).Result()
	if err != nil {
		return nil, fmt.Errorf("XLEN %s: %w", r.dlqStream, err)
	}

	info := &domain.OutboxInfo{Stream: r.stream, Length: length, DeadLetters: dead, Groups: []domain.ConsumerGroupInfo{}}
	if length == 0 {
		// XINFO GROUPS fails on a missing key; an empty stream may not exist yet.
		exists, err := r.client.Exists(ctx, r.stream).Result()
		if err != nil {
			return nil, fmt.Errorf("EXISTS %s: %w", r.stream, err)
		}
		if exists == 0 {
			return info, nil
		}
	}

	groups, err := r.client.XInfoGroups(ctx, r.stream).Result()
	if err != nil {
		return nil, fmt.Errorf("XINFO GROUPS %s: %w", r.stream, err)
	}
	for _, g := range groups {
		info.Groups = append(info.Groups, domain.ConsumerGroupInfo{
			Name:            g.Name,
			Consumers:       g.Consumers,
			Pending:         g.Pending,
			LastDeliveredID: g.LastDeliveredID,
		})
	}
	return info, nil
}

// PendingSummary retrieves a summary of unacknowledged notifications for a group.
func (r *AdminRepository) PendingSummary(ctx context.Context, group string) (*domain.PendingSummary, error) {
	pending, err := r.client.XPending(ctx, r.stream, group).Result()
	if err != nil {
		return nil, fmt.Errorf("XPENDING %s %s: %w", r.stream, group, err)
	}
	return &domain.PendingSummary{
		Total:          pending.Count,
		FirstMessageID: pending.Lower,
		LastMessageID:  pending.Higher,
		ConsumerTotals: pending.Consumers,
	}, nil
}

// ListDeadLetters returns up to count of the oldest dead-lettered notifications.
func (r *AdminRepository) ListDeadLetters(ctx context.Context, count int64) ([]domain.DeadLetter, error) {
	msgs, err := r.client.XRangeN(ctx, r.dlqStream, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("XRANGE %s: %w", r.dlqStream, err)
	}

	letters := make([]domain.DeadLetter, 0, len(msgs))
	for _, msg := range msgs {
		letter, err := decodeDeadLetter(msg)
		if err != nil {
			r.logger.Warn("Skipping malformed dead letter", "message_id", msg.ID, "error", err)
			continue
		}
		letters = append(letters, letter)
	}
	return letters, nil
}

// RequeueDeadLetters moves the given DLQ entries back onto the outbox stream.
// Unknown IDs are ignored. It returns how many entries were requeued.
func (r *AdminRepository) RequeueDeadLetters(ctx context.Context, ids ...string) (int, error) {
	if len(ids) == 0 {
		return 0, errors.New("at least one message ID is required")
	}

	requeued := 0
	for _, id := range ids {
		msgs, err := r.client.XRangeN(ctx, r.dlqStream, id, id, 1).Result()
		if err != nil {
			return requeued, fmt.Errorf("XRANGE %s %s: %w", r.dlqStream, id, err)
		}
		if len(msgs) == 0 {
			continue
		}
		letter, err := decodeDeadLetter(msgs[0])
		if err != nil {
			r.logger.Warn("Cannot requeue malformed dead letter", "message_id", id, "error", err)
			continue
		}

		event := letter.Event
		event.FailureReason = ""
		payload, err := json.Marshal(event)
		if err != nil {
			return requeued, fmt.Errorf("marshal requeued event: %w", err)
		}

		_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.XAdd(ctx, &redis.XAddArgs{Stream: r.stream, Values: map[string]interface{}{payloadField: payload}})
			pipe.XDel(ctx, r.dlqStream, id)
			return nil
		})
		if err != nil {
			return requeued, fmt.Errorf("requeue %s: %w", id, err)
		}
		requeued++
	}

	r.logger.Info("Requeued dead letters", "requested", len(ids), "requeued", requeued)
	return requeued, nil
}

// TrimDeadLetters trims the DLQ to at most maxLen entries, dropping the oldest.
func (r *AdminRepository) TrimDeadLetters(ctx context.Context, maxLen int64) (int64, error) {
	return r.client.XTrimMaxLen(ctx, r.dlqStream, maxLen).Result()
}

func decodeDeadLetter(msg redis.XMessage) (domain.DeadLetter, error) {
	payload, ok := msg.Values[payloadField].(string)
	if !ok {
		return domain.DeadLetter{}, errors.New("missing payload")
	}
	var event domain.NotificationEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return domain.DeadLetter{}, err
	}
	letter := domain.DeadLetter{ID: msg.ID, Event: event}
	if s, ok := msg.Values["failed_at"].(string); ok {
		letter.FailedAt, _ = time.Parse(time.RFC3339, s)
	}
	return letter, nil
}
