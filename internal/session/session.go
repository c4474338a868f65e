package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/V4T54L/leadhub/internal/domain"
)

// ErrClosed is returned for events submitted to a session after Teardown.
var ErrClosed = errors.New("session closed")

// State is a principal's position in the resolution state machine.
type State int

const (
	Unresolved State = iota
	Resolving
	Resolved
	Rejected
)

func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Snapshot is an immutable view of a session.
type Snapshot struct {
	State   State
	Subject uuid.UUID
	Profile *domain.Profile
	Tenant  *domain.Tenant
	// Err explains a Rejected state.
	Err error
}

// SignOuter revokes a principal's sessions at the identity provider.
type SignOuter interface {
	SignOut(ctx context.Context, subject uuid.UUID) error
}

type request struct {
	event domain.AuthEvent
	reply chan Snapshot
}

// Session holds the resolved identity of one principal. Events are processed
// one at a time, in the order they were submitted, on the session's own goroutine.
type Session struct {
	subject  uuid.UUID
	resolver *Resolver
	signOut  SignOuter
	logger   *slog.Logger

	queue chan request
	stop  chan struct{}
	done  chan struct{}

	initOnce     sync.Once
	teardownOnce sync.Once
	started      bool

	// holds counts Manager callers with an event queued or in flight.
	holds atomic.Int32

	mu   sync.RWMutex
	snap Snapshot
	// revoked is closed and replaced whenever the session drops to Unresolved or Rejected.
	revoked chan struct{}
}

// New creates an Unresolved session. Call Init before submitting events.
func New(subject uuid.UUID, resolver *Resolver, signOut SignOuter, logger *slog.Logger) *Session {
	return &Session{
		subject:  subject,
		resolver: resolver,
		signOut:  signOut,
		logger:   logger.With("component", "session", "sub", subject),
		queue:    make(chan request, 16),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		snap:     Snapshot{State: Unresolved, Subject: subject},
		revoked:  make(chan struct{}),
	}
}

// Init starts the event loop. Resolutions run under ctx.
func (s *Session) Init(ctx context.Context) {
	s.initOnce.Do(func() {
		s.mu.Lock()
		s.started = true
		s.mu.Unlock()
		go s.loop(ctx)
	})
}

// Teardown stops the loop, waits for the in-flight event and clears the session.
func (s *Session) Teardown() {
	s.teardownOnce.Do(func() {
		close(s.stop)
		s.mu.RLock()
		started := s.started
		s.mu.RUnlock()
		if started {
			<-s.done
		}
		s.set(Snapshot{State: Unresolved, Subject: s.subject})
	})
}

// Current returns the latest snapshot.
func (s *Session) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Watch returns the latest snapshot together with a channel that is closed the
// next time the session is signed out, rejected or torn down.
func (s *Session) Watch() (Snapshot, <-chan struct{}) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap, s.revoked
}

// Enqueue adds an event without waiting for it to be processed. The returned
// channel receives the resulting snapshot.
func (s *Session) Enqueue(ctx context.Context, event domain.AuthEvent) (<-chan Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if err := s.enqueue(ctx, request{event: event, reply: reply}); err != nil {
		return nil, err
	}
	return reply, nil
}

// Submit adds an event and waits for the snapshot it produced. Cancelling ctx
// stops the wait, not the resolution.
func (s *Session) Submit(ctx context.Context, event domain.AuthEvent) (Snapshot, error) {
	reply, err := s.Enqueue(ctx, event)
	if err != nil {
		return Snapshot{}, err
	}
	return s.await(ctx, reply)
}

func (s *Session) await(ctx context.Context, reply <-chan Snapshot) (Snapshot, error) {
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-s.done:
		select {
		case snap := <-reply:
			return snap, nil
		default:
			return Snapshot{}, ErrClosed
		}
	}
}

func (s *Session) enqueue(ctx context.Context, req request) error {
	select {
	case <-s.stop:
		return ErrClosed
	default:
	}
	select {
	case s.queue <- req:
		return nil
	case <-s.stop:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case req := <-s.queue:
			req.reply <- s.process(ctx, req.event)
		}
	}
}

func (s *Session) process(ctx context.Context, event domain.AuthEvent) Snapshot {
	if event.Kind == domain.AuthSignedOut {
		snap := Snapshot{State: Unresolved, Subject: s.subject}
		s.set(snap)
		s.logger.Debug("Signed out, session cleared")
		return snap
	}

	s.set(Snapshot{State: Resolving, Subject: s.subject})
	res := s.resolver.Resolve(ctx, s.subject)

	if res.Rejected() {
		snap := Snapshot{State: Rejected, Subject: s.subject, Err: res.Err}
		s.set(snap)
		s.forceSignOut(ctx, res.Err)
		return snap
	}

	snap := Snapshot{State: Resolved, Subject: s.subject, Profile: res.Profile, Tenant: res.Tenant}
	s.set(snap)
	return snap
}

func (s *Session) forceSignOut(ctx context.Context, reason error) {
	s.logger.Warn("Rejecting session", "reason", reason)
	if s.signOut == nil {
		return
	}
	if err := s.signOut.SignOut(ctx, s.subject); err != nil {
		s.logger.Error("Forced sign-out failed", "error", err)
	}
}

func (s *Session) set(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	if snap.State == Unresolved || snap.State == Rejected {
		close(s.revoked)
		s.revoked = make(chan struct{})
	}
}
