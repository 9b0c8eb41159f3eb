package tui

import (
	"context"
	"io"
	"sync"

	"workdesk/internal/backend"
	"workdesk/internal/model"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
)

// fakeBackend records calls and returns canned results.
type fakeBackend struct {
	backend.Broadcaster

	mu    sync.Mutex
	calls map[string]int

	user      *model.User
	authErr   error
	recordErr error
}

func (f *fakeBackend) called(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) SignInWithPassword(context.Context, string, string) (*model.Session, error) {
	f.called("SignInWithPassword")
	return nil, f.authErr
}

func (f *fakeBackend) SignUp(context.Context, string, string) (*model.Session, error) {
	f.called("SignUp")
	return nil, f.authErr
}

func (f *fakeBackend) SignOut(context.Context) error {
	f.called("SignOut")
	return f.authErr
}

func (f *fakeBackend) GetUser(context.Context) (*model.User, error) {
	f.called("GetUser")
	return f.user, nil
}

func (f *fakeBackend) ResetPasswordForEmail(context.Context, string, string) error {
	f.called("ResetPasswordForEmail")
	return f.authErr
}

func (f *fakeBackend) UpdatePassword(context.Context, string) error {
	f.called("UpdatePassword")
	return f.authErr
}

func (f *fakeBackend) ExchangeRecoveryLink(context.Context, string) error {
	f.called("ExchangeRecoveryLink")
	return f.authErr
}

func (f *fakeBackend) Select(context.Context, string, backend.Filter, backend.Order, any) error {
	f.called("Select")
	return f.recordErr
}

func (f *fakeBackend) Insert(context.Context, string, any, any) error {
	f.called("Insert")
	return f.recordErr
}

func (f *fakeBackend) Update(context.Context, string, any, any) error {
	f.called("Update")
	return f.recordErr
}

func (f *fakeBackend) Delete(context.Context, string, any) error {
	f.called("Delete")
	return f.recordErr
}

func (f *fakeBackend) Close() error { return nil }

var _ backend.Backend = (*fakeBackend)(nil)

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

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func keyOf(t tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: t}
}
