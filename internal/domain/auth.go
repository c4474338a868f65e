package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuthEventKind is an identity-provider session event.
type AuthEventKind string

const (
	AuthSignedIn       AuthEventKind = "SIGNED_IN"
	AuthTokenRefreshed AuthEventKind = "TOKEN_REFRESHED"
	AuthSignedOut      AuthEventKind = "SIGNED_OUT"
)

// ParseAuthEventKind accepts only the known event kinds.
func ParseAuthEventKind(s string) (AuthEventKind, error) {
	switch k := AuthEventKind(s); k {
	case AuthSignedIn, AuthTokenRefreshed, AuthSignedOut:
		return k, nil
	default:
		return "", fmt.Errorf("unknown auth event %q", s)
	}
}

// AuthEvent reports a change in an authenticated principal's session.
type AuthEvent struct {
	Kind    AuthEventKind `json:"event"`
	Subject uuid.UUID     `json:"sub"`
	Email   string        `json:"email,omitempty"`
	At      time.Time     `json:"at"`
}
