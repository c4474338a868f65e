package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/leadhub/internal/adapter/metrics"
	"github.com/V4T54L/leadhub/internal/domain"
)

const payloadField = "payload"

// NotificationQueue implements domain.NotificationQueue on a Redis Stream with a
// dead-letter stream. When Redis is unreachable, enqueued events go to the WAL
// and are replayed once the connection recovers.
type NotificationQueue struct {
	client    *redis.Client
	logger    *slog.Logger
	wal       domain.WALRepository
	metrics   *metrics.Metrics
	stream    string
	dlqStream string

	available atomic.Bool
}

// QueueOptions names the streams used by the queue.
type QueueOptions struct {
	Stream    string
	DLQStream string
	// Group, when set, is created on the stream at startup.
	Group string
}

// NewNotificationQueue creates the queue. wal may be nil for consumers that never enqueue.
func NewNotificationQueue(client *redis.Client, logger *slog.Logger, opts QueueOptions, wal domain.WALRepository, m *metrics.Metrics) *NotificationQueue {
	q := &NotificationQueue{
		client:    client,
		logger:    logger.With("component", "notification_queue"),
		wal:       wal,
		metrics:   m,
		stream:    opts.Stream,
		dlqStream: opts.DLQStream,
	}
	q.available.Store(true)

	if opts.Group != "" {
		if err := q.ensureGroup(context.Background(), opts.Group); err != nil {
			q.setAvailable(false)
			q.logger.Error("Failed to set up consumer group, Redis may be unavailable on startup", "error", err)
		}
	}
	return q
}

// Available reports whether enqueues currently go to Redis.
func (q *NotificationQueue) Available() bool {
	return q.available.Load()
}

// StartHealthCheck pings Redis every interval and drains the WAL after recovery.
// It blocks until ctx is done.
func (q *NotificationQueue) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if q.wal == nil {
		q.logger.Info("WAL is not configured, skipping health check")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.checkHealth(ctx)
		}
	}
}

func (q *NotificationQueue) checkHealth(ctx context.Context) {
	if err := q.client.Ping(ctx).Err(); err != nil {
		if q.available.CompareAndSwap(true, false) {
			q.logger.Error("Redis connection lost", "error", err)
			q.observeWAL(true)
		}
		return
	}
	if q.available.Load() {
		// Picks up events written by enqueues that saw the outage flag just before recovery.
		if err := q.DrainWAL(ctx); err != nil {
			q.logger.Error("Failed to drain WAL", "error", err)
		}
		return
	}

	q.logger.Info("Redis connection recovered, draining WAL")
	if err := q.DrainWAL(ctx); err != nil {
		q.logger.Error("Failed to drain WAL after Redis recovery", "error", err)
		return
	}
	q.setAvailable(true)
	if err := q.DrainWAL(ctx); err != nil {
		q.logger.Error("Failed to drain WAL after Redis recovery", "error", err)
	}
}

// DrainWAL pushes logged events to the stream and removes them from the WAL.
// Events enqueued to the WAL while the drain runs stay there for the next drain.
// A segment that fails midway is pushed again in full next time; notifiers
// tolerate the duplicates because events carry a stable ID.
func (q *NotificationQueue) DrainWAL(ctx context.Context) error {
	if q.wal == nil {
		return nil
	}
	if err := q.wal.Drain(ctx, func(event domain.NotificationEvent) error {
		return q.add(ctx, event)
	}); err != nil {
		return fmt.Errorf("drain WAL: %w", err)
	}
	return nil
}

// Enqueue appends an event to the stream, falling back to the WAL when Redis is down.
func (q *NotificationQueue) Enqueue(ctx context.Context, event domain.NotificationEvent) error {
	if !q.available.Load() {
		return q.writeWAL(ctx, event, nil)
	}

	err := q.add(ctx, event)
	if err == nil {
		q.observeEnqueue("redis")
		return nil
	}
	if !isNetworkError(err) {
		return err
	}
	if q.available.CompareAndSwap(true, false) {
		q.logger.Error("Redis connection lost during enqueue", "error", err)
		q.observeWAL(true)
	}
	return q.writeWAL(ctx, event, err)
}

func (q *NotificationQueue) writeWAL(ctx context.Context, event domain.NotificationEvent, cause error) error {
	if q.wal == nil {
		if cause != nil {
			return fmt.Errorf("redis unavailable and WAL not configured: %w", cause)
		}
		return errors.New("redis unavailable and WAL not configured")
	}
	q.logger.Warn("Redis is unavailable, writing notification to WAL", "event_id", event.ID)
	if err := q.wal.Write(ctx, event); err != nil {
		return fmt.Errorf("write notification to WAL: %w", err)
	}
	q.observeEnqueue("wal")
	return nil
}

func (q *NotificationQueue) add(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal notification event: %w", err)
	}
	err = q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{payloadField: payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("XADD %s: %w", q.stream, err)
	}
	return nil
}

// ReadBatch reads new entries for the consumer group, blocking briefly when none are ready.
func (q *NotificationQueue) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.NotificationEvent, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    int64(count),
		Block:    2 * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if isNoGroupError(err) {
			// Stream was deleted or never created; recreate and retry on the next poll.
			if gerr := q.ensureGroup(ctx, group); gerr != nil {
				return nil, gerr
			}
			return nil, nil
		}
		return nil, fmt.Errorf("XREADGROUP %s: %w", q.stream, err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return q.decode(ctx, group, streams[0].Messages), nil
}

// ClaimStale takes ownership of entries idle longer than minIdle in the group's pending list.
func (q *NotificationQueue) ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]domain.NotificationEvent, error) {
	msgs, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    int64(count),
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("XAUTOCLAIM %s: %w", q.stream, err)
	}
	return q.decode(ctx, group, msgs), nil
}

// decode turns stream entries into events. Entries that cannot be decoded will
// never succeed, so they are acknowledged and dropped here.
func (q *NotificationQueue) decode(ctx context.Context, group string, msgs []redis.XMessage) []domain.NotificationEvent {
	events := make([]domain.NotificationEvent, 0, len(msgs))
	var poison []string
	for _, msg := range msgs {
		payload, ok := msg.Values[payloadField].(string)
		if !ok {
			q.logger.Warn("Invalid message format in stream, dropping", "message_id", msg.ID)
			poison = append(poison, msg.ID)
			continue
		}
		var event domain.NotificationEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			q.logger.Warn("Failed to decode notification event, dropping", "message_id", msg.ID, "error", err)
			poison = append(poison, msg.ID)
			continue
		}
		event.StreamMessageID = msg.ID
		events = append(events, event)
	}
	if len(poison) > 0 {
		if err := q.Acknowledge(ctx, group, poison...); err != nil {
			q.logger.Error("Failed to acknowledge undecodable messages", "error", err)
		}
	}
	return events
}

// Acknowledge removes processed entries from the group's pending list.
func (q *NotificationQueue) Acknowledge(ctx context.Context, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := q.client.XAck(ctx, q.stream, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("XACK %s: %w", q.stream, err)
	}
	return nil
}

// MoveToDLQ appends failed events to the dead-letter stream in one pipeline.
func (q *NotificationQueue) MoveToDLQ(ctx context.Context, events []domain.NotificationEvent) error {
	if len(events) == 0 {
		return nil
	}

	failedAt := time.Now().UTC().Format(time.RFC3339)
	pipe := q.client.Pipeline()
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			q.logger.Error("Failed to marshal event for DLQ", "event_id", event.ID, "error", err)
			continue
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: q.dlqStream,
			Values: map[string]interface{}{
				payloadField:      payload,
				"original_stream": q.stream,
				"original_msg_id": event.StreamMessageID,
				"failed_at":       failedAt,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("DLQ pipeline: %w", err)
	}
	if q.metrics != nil {
		q.metrics.OutboxDeadLetteredTotal.Add(float64(len(events)))
	}
	q.logger.Warn("Moved notifications to DLQ", "count", len(events))
	return nil
}

func (q *NotificationQueue) ensureGroup(ctx context.Context, group string) error {
	err := q.client.XGroupCreateMkStream(ctx, q.stream, group, "0").Err()
	if err != nil && !isBusyGroupError(err) {
		return fmt.Errorf("create consumer group %s: %w", group, err)
	}
	return nil
}

func (q *NotificationQueue) setAvailable(v bool) {
	q.available.Store(v)
	q.observeWAL(!v)
}

func (q *NotificationQueue) observeWAL(active bool) {
	if q.metrics == nil {
		return
	}
	if active {
		q.metrics.WALActive.Set(1)
	} else {
		q.metrics.WALActive.Set(0)
	}
}

func (q *NotificationQueue) observeEnqueue(dest string) {
	if q.metrics != nil {
		q.metrics.OutboxEnqueuedTotal.WithLabelValues(dest).Inc()
	}
}

func isBusyGroupError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func isNoGroupError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "NOGROUP")
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, io.EOF) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.DeadlineExceeded)
}
