package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/adapter/api/httpx"
	"github.com/V4T54L/leadhub/internal/adapter/api/middleware"
	"github.com/V4T54L/leadhub/internal/domain"
)

type sseClient struct {
	scope    domain.LeadFilter
	messages chan []byte
}

func (c *sseClient) wants(lead *domain.Lead) bool {
	if c.scope.TenantID != nil && *c.scope.TenantID != lead.TenantID {
		return false
	}
	if c.scope.AssignedTo != nil && (lead.AssignedTo == nil || *lead.AssignedTo != *c.scope.AssignedTo) {
		return false
	}
	return true
}

// SessionWatcher reports when a principal's session stops being valid.
type SessionWatcher interface {
	Revoked(subject uuid.UUID) <-chan struct{}
}

// SSEBroker fans newly created leads out to connected users. Each client
// only receives the leads it could list, and its stream ends when the
// user's session is signed out, rejected or released.
type SSEBroker struct {
	logger   *slog.Logger
	sessions SessionWatcher
	clients  map[*sseClient]struct{}
	mu       sync.RWMutex
	incoming chan domain.Lead
}

// NewSSEBroker creates a new SSEBroker and starts its processing loop.
// sessions may be nil, in which case streams only end on disconnect.
func NewSSEBroker(ctx context.Context, sessions SessionWatcher, logger *slog.Logger) *SSEBroker {
	broker := &SSEBroker{
		logger:   logger.With("component", "sse_broker"),
		sessions: sessions,
		clients:  make(map[*sseClient]struct{}),
		incoming: make(chan domain.Lead, 1000), // Buffered channel
	}
	go broker.run(ctx)
	return broker
}

// ServeHTTP handles GET /api/leads/stream.
func (b *SSEBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ProfileFromContext(r.Context())
	scope, err := domain.LeadScope(actor)
	if err != nil {
		writeUseCaseError(w, b.logger, err, "Failed to open lead stream.")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httpx.WriteError(w, http.StatusInternalServerError, "Streaming unsupported!")
		return
	}

	var revoked <-chan struct{}
	if b.sessions != nil {
		revoked = b.sessions.Revoked(actor.ID)
		select {
		case <-revoked:
			httpx.WriteError(w, http.StatusUnauthorized, "Could not resolve session.")
			return
		default:
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := &sseClient{scope: scope, messages: make(chan []byte, 16)}
	b.addClient(client)
	defer b.removeClient(client)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-revoked:
			b.logger.Info("Closing lead stream, session ended", "sub", actor.ID)
			return
		case msg, ok := <-client.messages:
			if !ok {
				return // Channel was closed
			}
			fmt.Fprintf(w, "%s\n", msg)
			flusher.Flush()
		}
	}
}

// Publish implements domain.LeadPublisher. It never blocks the caller.
func (b *SSEBroker) Publish(lead domain.Lead) {
	select {
	case b.incoming <- lead:
	default:
		// Channel is full, drop the lead to avoid blocking the ingest path.
		b.logger.Warn("SSE lead channel is full, dropping lead", "lead_id", lead.ID)
	}
}

func (b *SSEBroker) addClient(client *sseClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
	b.logger.Info("SSE client connected")
}

func (b *SSEBroker) removeClient(client *sseClient) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client.messages)
		b.logger.Info("SSE client disconnected")
	}
}

func (b *SSEBroker) broadcast(lead *domain.Lead, msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		if lead != nil && !client.wants(lead) {
			continue
		}
		select {
		case client.messages <- msg:
		default:
			// Slow client, skip it rather than block everyone else.
		}
	}
}

// run is the main processing loop for the broker.
func (b *SSEBroker) run(ctx context.Context) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case lead := <-b.incoming:
			data, err := json.Marshal(lead)
			if err != nil {
				b.logger.Error("Failed to marshal SSE message", "error", err)
				continue
			}
			b.broadcast(&lead, []byte("event: lead_created\ndata: "+string(data)+"\n"))
		case <-ticker.C:
			b.broadcast(nil, []byte(": keep-alive\n"))
		}
	}
}
