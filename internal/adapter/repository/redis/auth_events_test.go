package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/pkg/logger"
)

func TestAuthEventChannel_PublishSubscribe(t *testing.T) {
	_, client, _, _, _ := setupQueue(t)
	ch := NewAuthEventChannel(client, "auth:events", logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan domain.AuthEvent, 4)
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- ch.Subscribe(ctx, ready, func(e domain.AuthEvent) { got <- e })
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not confirmed")
	}

	sub := uuid.New()
	require.NoError(t, client.Publish(ctx, "auth:events", `{"event":"BOGUS","sub":"`+sub.String()+`"}`).Err())
	require.NoError(t, ch.Publish(ctx, domain.AuthEvent{Kind: domain.AuthSignedIn, Subject: sub, Email: "a@example.com"}))

	select {
	case e := <-got:
		assert.Equal(t, domain.AuthSignedIn, e.Kind)
		assert.Equal(t, sub, e.Subject)
		assert.Equal(t, "a@example.com", e.Email)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber did not stop")
	}
	assert.Empty(t, got, "unknown event kinds must be dropped")
}
