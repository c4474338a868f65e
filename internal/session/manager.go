package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/V4T54L/leadhub/internal/domain"
)

// DefaultIdleTTL is how long a session may go without events before it is evicted.
const DefaultIdleTTL = 30 * time.Minute

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// EventSource delivers identity-provider auth events.
type EventSource interface {
	Subscribe(ctx context.Context, ready chan<- struct{}, handle func(domain.AuthEvent)) error
}

// Manager owns one Session per subject and routes auth events to them.
// Sessions without events for the idle TTL are evicted and torn down.
type Manager struct {
	ctx      context.Context
	resolver *Resolver
	signOut  SignOuter
	logger   *slog.Logger

	// mu makes lookup-or-create and release atomic with respect to each other.
	mu       sync.Mutex
	sessions *cache.Cache
}

// NewManager creates a Manager whose sessions live until ctx is done, Close is
// called, or they sit idle for idleTTL (DefaultIdleTTL when zero).
func NewManager(ctx context.Context, resolver *Resolver, signOut SignOuter, idleTTL time.Duration, logger *slog.Logger) *Manager {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	m := &Manager{
		ctx:      ctx,
		resolver: resolver,
		signOut:  signOut,
		logger:   logger.With("component", "session_manager"),
		sessions: cache.New(idleTTL, idleTTL/2),
	}
	m.sessions.OnEvicted(func(key string, v interface{}) {
		if s, ok := v.(*Session); ok {
			go m.evicted(key, s)
		}
	})
	return m
}

// Handle processes event in its principal's session and returns the resulting
// snapshot. A session left signed out or rejected is released once no other
// event for it is pending.
func (m *Manager) Handle(ctx context.Context, event domain.AuthEvent) (Snapshot, error) {
	s := m.acquire(event.Subject, true)
	snap, err := s.Submit(ctx, event)
	m.settle(event.Subject, s)
	return snap, err
}

// Current returns the latest snapshot for subject, if a session exists.
func (m *Manager) Current(subject uuid.UUID) (Snapshot, bool) {
	m.mu.Lock()
	v, ok := m.sessions.Get(subject.String())
	m.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return v.(*Session).Current(), true
}

// Revoked returns a channel that is closed once subject's session is signed
// out, rejected or released. It is already closed when subject has no live
// session or the session is not resolved.
func (m *Manager) Revoked(subject uuid.UUID) <-chan struct{} {
	m.mu.Lock()
	v, ok := m.sessions.Get(subject.String())
	m.mu.Unlock()
	if !ok {
		return closedChan
	}
	snap, revoked := v.(*Session).Watch()
	if snap.State == Unresolved || snap.State == Rejected {
		return closedChan
	}
	return revoked
}

// Run feeds events from source into sessions until ctx is done. Events are
// queued in arrival order without waiting for resolution, so one slow
// principal does not hold up the others.
func (m *Manager) Run(ctx context.Context, source EventSource) error {
	return source.Subscribe(ctx, nil, func(event domain.AuthEvent) {
		s := m.acquire(event.Subject, true)
		m.dispatch(ctx, s, event)
	})
}

// Revalidate resolves subject's live session again, if there is one. Call it
// after changing the subject's role or agency.
func (m *Manager) Revalidate(ctx context.Context, subject uuid.UUID) {
	s := m.acquire(subject, false)
	if s == nil {
		return
	}
	m.dispatch(ctx, s, domain.AuthEvent{Kind: domain.AuthTokenRefreshed, Subject: subject, At: time.Now().UTC()})
}

// RevalidateTenant resolves again every live session attached to tenantID,
// and every session caught mid-resolution. Call it after an agency's status changes.
func (m *Manager) RevalidateTenant(ctx context.Context, tenantID uuid.UUID) {
	var subjects []uuid.UUID
	for _, item := range m.sessions.Items() {
		s, ok := item.Object.(*Session)
		if !ok {
			continue
		}
		snap := s.Current()
		attached := snap.Profile != nil && snap.Profile.TenantID != nil && *snap.Profile.TenantID == tenantID
		if attached || snap.State == Resolving {
			subjects = append(subjects, s.subject)
		}
	}
	for _, subject := range subjects {
		m.Revalidate(ctx, subject)
	}
	if len(subjects) > 0 {
		m.logger.Info("Revalidating agency sessions", "agency_id", tenantID, "count", len(subjects))
	}
}

// Close tears down every session.
func (m *Manager) Close() {
	m.sessions.DeleteExpired()

	m.mu.Lock()
	items := m.sessions.Items()
	m.sessions.Flush()
	m.mu.Unlock()

	for _, item := range items {
		if s, ok := item.Object.(*Session); ok {
			s.Teardown()
		}
	}
}

// dispatch queues event on s and settles it in the background once processed.
func (m *Manager) dispatch(ctx context.Context, s *Session, event domain.AuthEvent) {
	reply, err := s.Enqueue(ctx, event)
	if err != nil {
		m.logger.Warn("Dropping auth event", "sub", event.Subject, "event", event.Kind, "error", err)
		m.settle(event.Subject, s)
		return
	}
	go func() {
		_, _ = s.await(m.ctx, reply)
		m.settle(event.Subject, s)
	}()
}

// acquire returns subject's session with a hold taken on it, extending its idle
// deadline. A missing session is created when create is set, otherwise nil is returned.
func (m *Manager) acquire(subject uuid.UUID, create bool) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := subject.String()
	var s *Session
	if v, ok := m.sessions.Get(key); ok {
		s = v.(*Session)
	} else if create {
		// Expired entries are invisible to Get; evict them before replacing.
		m.sessions.DeleteExpired()
		s = New(subject, m.resolver, m.signOut, m.logger)
		s.Init(m.ctx)
	} else {
		return nil
	}
	s.holds.Add(1)
	m.sessions.SetDefault(key, s)
	return s
}

// settle drops a hold and releases the session when it was the last one and
// the session ended up signed out or rejected.
func (m *Manager) settle(subject uuid.UUID, s *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.holds.Add(-1) > 0 {
		return
	}
	if st := s.Current().State; st != Unresolved && st != Rejected {
		return
	}
	key := subject.String()
	if cur, ok := m.sessions.Get(key); ok && cur == s {
		m.sessions.Delete(key)
		return
	}
	go s.Teardown()
}

// evicted tears s down unless it was put back in the meantime.
func (m *Manager) evicted(key string, s *Session) {
	m.mu.Lock()
	cur, ok := m.sessions.Get(key)
	m.mu.Unlock()
	if ok && cur == s {
		return
	}
	s.Teardown()
}
