package handler

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/adapter/api/middleware"
	"github.com/V4T54L/leadhub/internal/adapter/metrics"
	"github.com/V4T54L/leadhub/internal/domain"
	"github.com/V4T54L/leadhub/internal/domain/mocks"
	"github.com/V4T54L/leadhub/internal/pkg/logger"
	"github.com/V4T54L/leadhub/internal/session"
)

func waitForClients(t *testing.T, broker *SSEBroker, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		broker.mu.RLock()
		got := len(broker.clients)
		broker.mu.RUnlock()
		if got == n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d registered clients, got %d", n, got)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSSEBroker_ScopesLeadsToAgency(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker := NewSSEBroker(ctx, nil, logger.Discard())

	own, other := uuid.New(), uuid.New()
	admin := &domain.Profile{ID: uuid.New(), Role: domain.RoleAgencyAdmin, TenantID: &own}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		broker.ServeHTTP(w, r.WithContext(middleware.WithProfile(r.Context(), admin)))
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	waitForClients(t, broker, 1)

	foreign := domain.Lead{ID: uuid.New(), TenantID: other, CustomerName: "Other"}
	mine := domain.Lead{ID: uuid.New(), TenantID: own, CustomerName: "Mine"}
	broker.Publish(foreign)
	broker.Publish(mine)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatal("stream closed early")
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			if strings.Contains(line, foreign.ID.String()) {
				t.Fatal("received a lead of another agency")
			}
			if strings.Contains(line, mine.ID.String()) {
				return
			}
		case <-timeout:
			t.Fatal("own lead not delivered")
		}
	}
}

func TestSSEBroker_StreamEndsWithSession(t *testing.T) {
	tests := []struct {
		name string
		end  func(t *testing.T, ctx context.Context, m *session.Manager, tenants *mocks.MockTenantRepository, agent *domain.Profile)
	}{
		{
			name: "signed out",
			end: func(t *testing.T, ctx context.Context, m *session.Manager, _ *mocks.MockTenantRepository, agent *domain.Profile) {
				if _, err := m.Handle(ctx, domain.AuthEvent{Kind: domain.AuthSignedOut, Subject: agent.ID}); err != nil {
					t.Errorf("sign out: %v", err)
				}
			},
		},
		{
			name: "agency suspended",
			end: func(t *testing.T, ctx context.Context, m *session.Manager, tenants *mocks.MockTenantRepository, agent *domain.Profile) {
				if err := tenants.SetActive(ctx, *agent.TenantID, false); err != nil {
					t.Errorf("suspend: %v", err)
				}
				m.RevalidateTenant(ctx, *agent.TenantID)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			tenantID := uuid.New()
			agent := &domain.Profile{ID: uuid.New(), Email: "c@casa.com", Role: domain.RoleBroker, TenantID: &tenantID}
			tenants := mocks.NewMockTenantRepository(&domain.Tenant{ID: tenantID, Name: "Casa", IsActive: true})
			resolver := session.NewResolver(mocks.NewMockProfileRepository(agent), tenants, session.RetryPolicy{MaxAttempts: 1}, logger.Discard(), metrics.NewNop())
			manager := session.NewManager(ctx, resolver, nil, 0, logger.Discard())
			defer manager.Close()

			if snap, err := manager.Handle(ctx, domain.AuthEvent{Kind: domain.AuthSignedIn, Subject: agent.ID}); err != nil || snap.State != session.Resolved {
				t.Fatalf("sign in: %v %v", snap.State, err)
			}

			broker := NewSSEBroker(ctx, manager, logger.Discard())
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				broker.ServeHTTP(w, r.WithContext(middleware.WithProfile(r.Context(), agent)))
			}))
			defer srv.Close()

			resp, err := http.Get(srv.URL)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d", resp.StatusCode)
			}
			waitForClients(t, broker, 1)

			ended := make(chan struct{})
			go func() {
				_, _ = io.Copy(io.Discard, resp.Body)
				close(ended)
			}()

			tt.end(t, ctx, manager, tenants, agent)

			select {
			case <-ended:
			case <-time.After(2 * time.Second):
				t.Fatal("stream stayed open after the session ended")
			}
			waitForClients(t, broker, 0)
		})
	}
}

func TestSSEBroker_RefusesWithoutLiveSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tenantID := uuid.New()
	agent := &domain.Profile{ID: uuid.New(), Role: domain.RoleBroker, TenantID: &tenantID}
	resolver := session.NewResolver(mocks.NewMockProfileRepository(agent), mocks.NewMockTenantRepository(), session.RetryPolicy{MaxAttempts: 1}, logger.Discard(), metrics.NewNop())
	manager := session.NewManager(ctx, resolver, nil, 0, logger.Discard())
	defer manager.Close()

	broker := NewSSEBroker(ctx, manager, logger.Discard())
	req := httptest.NewRequest(http.MethodGet, "/api/leads/stream", nil)
	req = req.WithContext(middleware.WithProfile(req.Context(), agent))
	rr := httptest.NewRecorder()
	broker.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}
