// Package backend defines the boundary between the client and the hosted
// auth + record service. Two implementations live in subpackages: supabase
// (hosted, over HTTP) and local (embedded SQLite).
package backend

import (
	"context"

	"workdesk/internal/model"
)

type EventKind string

const (
	EventSignedIn         EventKind = "SIGNED_IN"
	EventSignedOut        EventKind = "SIGNED_OUT"
	EventTokenRefreshed   EventKind = "TOKEN_REFRESHED"
	EventUserUpdated      EventKind = "USER_UPDATED"
	EventPasswordRecovery EventKind = "PASSWORD_RECOVERY"
)

// AuthEvent is delivered to subscribers whenever the session changes.
// Session is nil after sign-out.
type AuthEvent struct {
	Kind    EventKind
	Session *model.Session
}

func (e AuthEvent) User() *model.User {
	if e.Session == nil {
		return nil
	}
	u := e.Session.User
	return &u
}

type Auth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error)
	// SignUp returns a nil session (and no error) when the backend requires
	// email confirmation before the first sign-in.
	SignUp(ctx context.Context, email, password string) (*model.Session, error)
	SignOut(ctx context.Context) error
	// GetUser returns nil (and no error) when nobody is signed in.
	GetUser(ctx context.Context) (*model.User, error)
	Subscribe(fn func(AuthEvent)) *Subscription
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, password string) error
	// ExchangeRecoveryLink turns the link from a reset email into a session and
	// emits EventPasswordRecovery.
	ExchangeRecoveryLink(ctx context.Context, link string) error
}

type Filter struct {
	Field string
	Value any
}

type Order struct {
	Field string
	Desc  bool
}

// Records is a generic table store. Results are decoded into out the same way
// encoding/json would decode the backend's JSON rows.
type Records interface {
	Select(ctx context.Context, table string, filter Filter, order Order, out any) error
	Insert(ctx context.Context, table string, record any, out any) error
	Update(ctx context.Context, table string, id any, patch any) error
	Delete(ctx context.Context, table string, id any) error
}

type Backend interface {
	Auth
	Records
	Close() error
}

// SessionStore persists the current session between runs.
type SessionStore interface {
	LoadSession() (*model.Session, error)
	SaveSession(s *model.Session) error
	ClearSession() error
}
