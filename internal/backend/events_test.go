package backend

import (
	"errors"
	"fmt"
	"testing"

	"workdesk/internal/model"
)

func TestBroadcaster_DeliversUntilUnsubscribed(t *testing.T) {
	var b Broadcaster
	var got []EventKind
	sub := b.Subscribe(func(ev AuthEvent) { got = append(got, ev.Kind) })

	b.Publish(AuthEvent{Kind: EventSignedIn, Session: &model.Session{User: model.User{ID: "u1"}}})
	sub.Unsubscribe()
	sub.Unsubscribe()
	b.Publish(AuthEvent{Kind: EventSignedOut})

	if len(got) != 1 || got[0] != EventSignedIn {
		t.Fatalf("expected exactly one SIGNED_IN delivery, got %v", got)
	}
	if n := b.Subscribers(); n != 0 {
		t.Fatalf("expected no subscribers after unsubscribe, got %d", n)
	}
}

func TestAuthEventUser(t *testing.T) {
	if u := (AuthEvent{Kind: EventSignedOut}).User(); u != nil {
		t.Fatalf("expected nil user for empty session, got %+v", u)
	}
	ev := AuthEvent{Kind: EventSignedIn, Session: &model.Session{User: model.User{ID: "u1", Email: "a@b.c"}}}
	if u := ev.User(); u == nil || u.Email != "a@b.c" {
		t.Fatalf("expected session user, got %+v", u)
	}
}

func TestErrorIs_MatchesByCode(t *testing.T) {
	decoded := &Error{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"}
	wrapped := fmt.Errorf("sign in: %w", decoded)
	if !errors.Is(wrapped, ErrInvalidCredentials) {
		t.Fatalf("expected decoded error to match ErrInvalidCredentials")
	}
	if errors.Is(wrapped, ErrUserExists) {
		t.Fatalf("did not expect match with ErrUserExists")
	}
	if got := Message(wrapped); got != "Invalid login credentials" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := Message(errors.New("boom")); got != "boom" {
		t.Fatalf("unexpected message %q", got)
	}
}
