// Package local is an embedded, single-file SQLite backend with the same auth
// and record boundary as the hosted service. It is used offline and in tests.
package local

import (
	"context"
	"crypto/rand"
	"database/sql"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"
	"time"

	"workdesk/internal/backend"
	"workdesk/internal/model"

	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const defaultTokenTTL = 7 * 24 * time.Hour

var _ backend.Backend = (*Backend)(nil)

type Backend struct {
	db       *sql.DB
	secret   []byte
	mailer   Mailer
	sessions backend.SessionStore
	log      logrus.FieldLogger
	now      func() time.Time
	tokenTTL time.Duration

	events backend.Broadcaster

	mu      sync.Mutex
	session *model.Session
}

type Option func(*Backend)

func WithMailer(m Mailer) Option {
	return func(b *Backend) {
		b.mailer = m
	}
}

func WithSessionStore(s backend.SessionStore) Option {
	return func(b *Backend) {
		b.sessions = s
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(b *Backend) {
		b.log = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

func WithTokenTTL(d time.Duration) Option {
	return func(b *Backend) {
		if d > 0 {
			b.tokenTTL = d
		}
	}
}

// Open opens (or creates) the database at path and runs migrations.
// Use ":memory:" for a throwaway backend.
func Open(ctx context.Context, path string, opts ...Option) (*Backend, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("local backend: missing database path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection keeps :memory: databases and per-connection pragmas consistent.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", p, err)
		}
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	b := &Backend{
		db:       db,
		log:      logrus.StandardLogger(),
		now:      time.Now,
		tokenTTL: defaultTokenTTL,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.WithField("component", "local-backend")
	if b.mailer == nil {
		b.mailer = LogMailer{Log: b.log}
	}

	b.secret, err = b.loadOrInitSecret(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	b.restoreSession(ctx)
	return b, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	p, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) Subscribe(fn func(backend.AuthEvent)) *backend.Subscription {
	return b.events.Subscribe(fn)
}

func (b *Backend) loadOrInitSecret(ctx context.Context) ([]byte, error) {
	var v string
	err := b.db.QueryRowContext(ctx, `SELECT v FROM meta WHERE k = 'jwt_secret'`).Scan(&v)
	if err == nil && v != "" {
		return []byte(v), nil
	}
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load jwt secret: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	v = base64.RawURLEncoding.EncodeToString(raw)
	if _, err := b.db.ExecContext(ctx, `INSERT OR REPLACE INTO meta(k, v) VALUES('jwt_secret', ?)`, v); err != nil {
		return nil, fmt.Errorf("store jwt secret: %w", err)
	}
	return []byte(v), nil
}

// restoreSession picks up a persisted session if its token still verifies
// against this database.
func (b *Backend) restoreSession(ctx context.Context) {
	if b.sessions == nil {
		return
	}
	s, err := b.sessions.LoadSession()
	if err != nil {
		b.log.WithError(err).Warn("load persisted session")
		return
	}
	if s == nil || s.AccessToken == "" {
		return
	}
	u, err := b.userFromToken(ctx, s.AccessToken)
	if err != nil || u == nil {
		b.log.WithError(err).Info("discarding persisted session")
		_ = b.sessions.ClearSession()
		return
	}
	s.User = *u
	b.mu.Lock()
	b.session = s
	b.mu.Unlock()
}

func (b *Backend) currentSession() *model.Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session
}

// setSession mirrors the hosted client: swap, persist, publish.
func (b *Backend) setSession(s *model.Session, kind backend.EventKind) {
	b.mu.Lock()
	b.session = s
	b.mu.Unlock()

	if b.sessions != nil {
		var err error
		if s == nil {
			err = b.sessions.ClearSession()
		} else {
			err = b.sessions.SaveSession(s)
		}
		if err != nil {
			b.log.WithError(err).Warn("persist session")
		}
	}
	b.log.WithField("event", kind).Debug("auth state change")
	b.events.Publish(backend.AuthEvent{Kind: kind, Session: s})
}

func (b *Backend) nowMs() int64 {
	return b.now().UTC().UnixMilli()
}
