package local

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"workdesk/internal/backend"
	"workdesk/internal/model"

	"github.com/sirupsen/logrus"
)

type memSessions struct {
	mu sync.Mutex
	s  *model.Session
}

func (m *memSessions) LoadSession() (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s, nil
}

func (m *memSessions) SaveSession(s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

func (m *memSessions) ClearSession() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = nil
	return nil
}

type captureMailer struct {
	mu    sync.Mutex
	links map[string]string
}

func (c *captureMailer) SendRecoveryLink(_ context.Context, email, link string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.links == nil {
		c.links = map[string]string{}
	}
	c.links[email] = link
	return nil
}

func (c *captureMailer) link(email string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.links[email]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openTestBackend(t *testing.T, opts ...Option) *Backend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workdesk.db")
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	b, err := Open(context.Background(), path, opts...)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

type eventLog struct {
	mu    sync.Mutex
	kinds []backend.EventKind
}

func (l *eventLog) record(ev backend.AuthEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kinds = append(l.kinds, ev.Kind)
}

func (l *eventLog) snapshot() []backend.EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]backend.EventKind(nil), l.kinds...)
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestSignUpSignInSignOut(t *testing.T) {
	ctx := context.Background()
	sessions := &memSessions{}
	b := openTestBackend(t, WithSessionStore(sessions))

	var events eventLog
	sub := b.Subscribe(events.record)
	defer sub.Unsubscribe()

	s, err := b.SignUp(ctx, " Ada@Example.com ", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if s == nil || s.AccessToken == "" {
		t.Fatalf("expected session, got %+v", s)
	}
	if s.User.Email != "ada@example.com" {
		t.Fatalf("expected normalized email, got %q", s.User.Email)
	}
	if sessions.s == nil {
		t.Fatalf("expected session to be persisted")
	}

	u, err := b.GetUser(ctx)
	if err != nil || u == nil || u.ID != s.User.ID {
		t.Fatalf("get user: %+v, %v", u, err)
	}

	if _, err := b.SignUp(ctx, "ada@example.com", "secret2"); !errors.Is(err, backend.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	if err := b.SignOut(ctx); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if u, _ := b.GetUser(ctx); u != nil {
		t.Fatalf("expected no user after sign out, got %+v", u)
	}
	if sessions.s != nil {
		t.Fatalf("expected persisted session cleared")
	}

	if _, err := b.SignInWithPassword(ctx, "ada@example.com", "wrong-pass"); !errors.Is(err, backend.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := b.SignInWithPassword(ctx, "nobody@example.com", "secret1"); !errors.Is(err, backend.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
	if _, err := b.SignInWithPassword(ctx, "ADA@example.com", "secret1"); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	got := events.snapshot()
	want := []backend.EventKind{backend.EventSignedIn, backend.EventSignedOut, backend.EventSignedIn}
	if len(got) != len(want) {
		t.Fatalf("events: got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events: got %v want %v", got, want)
		}
	}
}

func TestSignUp_Validation(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)

	if _, err := b.SignUp(ctx, "not-an-email", "secret1"); !errors.Is(err, backend.ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := b.SignUp(ctx, "ada@example.com", "12345"); !errors.Is(err, backend.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if msg := backend.Message(backend.ErrWeakPassword); msg != "Password should be at least 6 characters." {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestSessionRestoredAcrossOpen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "workdesk.db")
	sessions := &memSessions{}

	b1, err := Open(ctx, path, WithLogger(quietLogger()), WithSessionStore(sessions))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := b1.SignUp(ctx, "ada@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	_ = b1.Close()

	b2, err := Open(ctx, path, WithLogger(quietLogger()), WithSessionStore(sessions))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer b2.Close()
	u, err := b2.GetUser(ctx)
	if err != nil || u == nil || u.Email != "ada@example.com" {
		t.Fatalf("expected restored user, got %+v, %v", u, err)
	}
}

func TestExpiredTokenSignsOut(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	b := openTestBackend(t, WithClock(clock.Now), WithTokenTTL(time.Hour))

	if _, err := b.SignUp(ctx, "ada@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	clock.Advance(2 * time.Hour)

	var events eventLog
	sub := b.Subscribe(events.record)
	defer sub.Unsubscribe()

	u, err := b.GetUser(ctx)
	if err != nil || u != nil {
		t.Fatalf("expected no user after expiry, got %+v, %v", u, err)
	}
	if got := events.snapshot(); len(got) != 1 || got[0] != backend.EventSignedOut {
		t.Fatalf("expected SIGNED_OUT, got %v", got)
	}
}

func TestPasswordRecoveryFlow(t *testing.T) {
	ctx := context.Background()
	mailer := &captureMailer{}
	b := openTestBackend(t, WithMailer(mailer))

	if _, err := b.SignUp(ctx, "ada@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	_ = b.SignOut(ctx)

	if err := b.ResetPasswordForEmail(ctx, "nobody@example.com", "https://app.example.com/reset"); err != nil {
		t.Fatalf("unknown email should succeed silently: %v", err)
	}
	if mailer.link("nobody@example.com") != "" {
		t.Fatalf("no link should be sent to unknown addresses")
	}

	if err := b.ResetPasswordForEmail(ctx, "ada@example.com", "https://app.example.com/reset"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	link := mailer.link("ada@example.com")
	parsed, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link %q: %v", link, err)
	}
	if parsed.Host != "app.example.com" || parsed.Query().Get("type") != "recovery" || parsed.Query().Get("token") == "" {
		t.Fatalf("unexpected link %q", link)
	}

	var events eventLog
	sub := b.Subscribe(events.record)
	defer sub.Unsubscribe()

	if err := b.ExchangeRecoveryLink(ctx, link); err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if got := events.snapshot(); len(got) != 1 || got[0] != backend.EventPasswordRecovery {
		t.Fatalf("expected PASSWORD_RECOVERY, got %v", got)
	}
	if err := b.ExchangeRecoveryLink(ctx, link); !errors.Is(err, backend.ErrInvalidRecovery) {
		t.Fatalf("expected reused link to fail, got %v", err)
	}

	if err := b.UpdatePassword(ctx, "123"); !errors.Is(err, backend.ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	if err := b.UpdatePassword(ctx, "brand-new"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	_ = b.SignOut(ctx)

	if _, err := b.SignInWithPassword(ctx, "ada@example.com", "secret1"); !errors.Is(err, backend.ErrInvalidCredentials) {
		t.Fatalf("old password should no longer work, got %v", err)
	}
	if _, err := b.SignInWithPassword(ctx, "ada@example.com", "brand-new"); err != nil {
		t.Fatalf("sign in with new password: %v", err)
	}
}

func TestExchangeRecoveryLink_Expired(t *testing.T) {
	ctx := context.Background()
	mailer := &captureMailer{}
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	b := openTestBackend(t, WithMailer(mailer), WithClock(clock.Now))

	if _, err := b.SignUp(ctx, "ada@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := b.ResetPasswordForEmail(ctx, "ada@example.com", ""); err != nil {
		t.Fatalf("reset: %v", err)
	}
	clock.Advance(2 * time.Hour)
	if err := b.ExchangeRecoveryLink(ctx, mailer.link("ada@example.com")); !errors.Is(err, backend.ErrInvalidRecovery) {
		t.Fatalf("expected expired link to fail, got %v", err)
	}
	if err := b.ExchangeRecoveryLink(ctx, "workdesk://reset-password"); !errors.Is(err, backend.ErrInvalidRecovery) {
		t.Fatalf("expected tokenless link to fail, got %v", err)
	}
}

func TestUpdatePassword_RequiresSession(t *testing.T) {
	b := openTestBackend(t)
	if err := b.UpdatePassword(context.Background(), "brand-new"); !errors.Is(err, backend.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

type noteRow struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UserID    string    `json:"user_id"`
}

func TestRecords_CRUDScopedToUser(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	b := openTestBackend(t, WithClock(clock.Now))

	var rows []noteRow
	if err := b.Select(ctx, "personal_notes", backend.Filter{}, backend.Order{}, &rows); !errors.Is(err, backend.ErrNoSession) {
		t.Fatalf("expected ErrNoSession before sign in, got %v", err)
	}

	ada, err := b.SignUp(ctx, "ada@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	for _, title := range []string{"t1", "t2", "t3"} {
		var created noteRow
		rec := map[string]any{"title": title, "content": "body " + title, "user_id": ada.User.ID}
		if err := b.Insert(ctx, "personal_notes", rec, &created); err != nil {
			t.Fatalf("insert %s: %v", title, err)
		}
		if created.ID == 0 || created.Title != title || created.UserID != ada.User.ID || created.CreatedAt.IsZero() {
			t.Fatalf("unexpected inserted row %+v", created)
		}
		clock.Advance(time.Second)
	}

	if err := b.Select(ctx, "personal_notes",
		backend.Filter{Field: "user_id", Value: ada.User.ID},
		backend.Order{Field: "created_at", Desc: true}, &rows); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 3 || rows[0].Title != "t3" || rows[1].Title != "t2" || rows[2].Title != "t1" {
		t.Fatalf("expected newest first, got %+v", rows)
	}

	if err := b.Update(ctx, "personal_notes", rows[0].ID, map[string]any{"title": "t3 edited"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	var one []noteRow
	if err := b.Select(ctx, "personal_notes", backend.Filter{Field: "id", Value: rows[0].ID}, backend.Order{}, &one); err != nil {
		t.Fatalf("select one: %v", err)
	}
	if len(one) != 1 || one[0].Title != "t3 edited" || one[0].Content != "body t3" {
		t.Fatalf("unexpected updated row %+v", one)
	}

	var byTitle []noteRow
	if err := b.Select(ctx, "personal_notes", backend.Filter{Field: "title", Value: "t1"}, backend.Order{}, &byTitle); err != nil {
		t.Fatalf("select by title: %v", err)
	}
	if len(byTitle) != 1 || byTitle[0].ID != rows[2].ID {
		t.Fatalf("unexpected filter result %+v", byTitle)
	}

	// A second user sees nothing and cannot touch the first user's rows.
	_ = b.SignOut(ctx)
	bob, err := b.SignUp(ctx, "bob@example.com", "secret1")
	if err != nil {
		t.Fatalf("sign up bob: %v", err)
	}
	var bobs []noteRow
	if err := b.Select(ctx, "personal_notes", backend.Filter{}, backend.Order{}, &bobs); err != nil {
		t.Fatalf("select as bob: %v", err)
	}
	if len(bobs) != 0 {
		t.Fatalf("expected bob to see no rows, got %+v", bobs)
	}
	if err := b.Insert(ctx, "personal_notes", map[string]any{"title": "x", "user_id": ada.User.ID}, nil); !errors.Is(err, errRowPolicy) {
		t.Fatalf("expected row policy error, got %v", err)
	}
	if err := b.Delete(ctx, "personal_notes", rows[1].ID); err != nil {
		t.Fatalf("delete as bob: %v", err)
	}
	_ = bob

	_ = b.SignOut(ctx)
	if _, err := b.SignInWithPassword(ctx, "ada@example.com", "secret1"); err != nil {
		t.Fatalf("sign in ada: %v", err)
	}
	if err := b.Delete(ctx, "personal_notes", rows[1].ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := b.Delete(ctx, "personal_notes", 9999); err != nil {
		t.Fatalf("deleting a missing row should succeed: %v", err)
	}
	if err := b.Select(ctx, "personal_notes", backend.Filter{}, backend.Order{Field: "created_at", Desc: true}, &rows); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 || rows[0].Title != "t3 edited" || rows[1].Title != "t1" {
		t.Fatalf("unexpected rows after delete %+v", rows)
	}
}

func TestRecords_RejectsBadIdentifiers(t *testing.T) {
	ctx := context.Background()
	b := openTestBackend(t)
	if _, err := b.SignUp(ctx, "ada@example.com", "secret1"); err != nil {
		t.Fatalf("sign up: %v", err)
	}
	var rows []noteRow
	if err := b.Select(ctx, "notes; DROP TABLE users", backend.Filter{}, backend.Order{}, &rows); err == nil {
		t.Fatalf("expected invalid table error")
	}
	if err := b.Select(ctx, "notes", backend.Filter{Field: "a') OR 1=1 --", Value: 1}, backend.Order{}, &rows); err == nil {
		t.Fatalf("expected invalid filter error")
	}
	if err := b.Delete(ctx, "notes", "abc"); err == nil {
		t.Fatalf("expected invalid id error")
	}
}
