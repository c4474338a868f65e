package domain

import "time"

// OutboxInfo describes the notification stream and its consumer groups.
type OutboxInfo struct {
	Stream      string              `json:"stream"`
	Length      int64               `json:"length"`
	DeadLetters int64               `json:"dead_letters"`
	Groups      []ConsumerGroupInfo `json:"groups"`
}

// ConsumerGroupInfo represents a notifier consumer group on the outbox stream.
type ConsumerGroupInfo struct {
	Name            string `json:"name"`
	Consumers       int64  `json:"consumers"`
	Pending         int64  `json:"pending"`
	LastDeliveredID string `json:"last_delivered_id"`
}

// PendingSummary counts delivered-but-unacknowledged notifications for a group.
type PendingSummary struct {
	Total          int64            `json:"total"`
	FirstMessageID string           `json:"first_message_id,omitempty"`
	LastMessageID  string           `json:"last_message_id,omitempty"`
	ConsumerTotals map[string]int64 `json:"consumer_totals,omitempty"`
}

// DeadLetter is a notification that could not be delivered.
type DeadLetter struct {
	ID       string            `json:"id"`
	Event    NotificationEvent `json:"event"`
	FailedAt time.Time         `json:"failed_at"`
}
