package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"workdesk/internal/backend"
	"workdesk/internal/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const recoveryTTL = time.Hour

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

func (b *Backend) userByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	err := b.db.QueryRowContext(ctx, `SELECT id, email FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (b *Backend) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return nil, backend.ErrInvalidEmail
	}
	if len(password) < backend.MinPasswordLen {
		return nil, backend.ErrWeakPassword
	}

	var exists int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check user: %w", err)
	}
	if exists > 0 {
		return nil, backend.ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := model.User{ID: uuid.NewString(), Email: email}
	now := b.nowMs()
	if _, err := b.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at_unixms, updated_at_unixms) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, string(hash), now, now,
	); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s, err := b.issueSession(u)
	if err != nil {
		return nil, err
	}
	b.log.WithField("user_id", u.ID).Info("user signed up")
	b.setSession(s, backend.EventSignedIn)
	return s, nil
}

func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	email = normalizeEmail(email)
	var u model.User
	var hash string
	err := b.db.QueryRowContext(ctx, `SELECT id, email, password_hash FROM users WHERE email = ?`, email).Scan(&u.ID, &u.Email, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backend.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, backend.ErrInvalidCredentials
	}

	s, err := b.issueSession(u)
	if err != nil {
		return nil, err
	}
	b.setSession(s, backend.EventSignedIn)
	return s, nil
}

func (b *Backend) SignOut(ctx context.Context) error {
	b.setSession(nil, backend.EventSignedOut)
	return nil
}

func (b *Backend) GetUser(ctx context.Context) (*model.User, error) {
	s := b.currentSession()
	if s == nil {
		return nil, nil
	}
	u, err := b.userFromToken(ctx, s.AccessToken)
	if errors.Is(err, backend.ErrNoSession) {
		b.setSession(nil, backend.EventSignedOut)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// authedUser returns the signed-in user or ErrNoSession.
func (b *Backend) authedUser(ctx context.Context) (*model.User, error) {
	u, err := b.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, backend.ErrNoSession
	}
	return u, nil
}

// ResetPasswordForEmail mails a recovery link for known addresses. Unknown
// addresses succeed silently so the call cannot be used to probe accounts.
func (b *Backend) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return backend.ErrInvalidEmail
	}
	var userID string
	err := b.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		b.log.WithField("email", email).Debug("recovery requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	token := uuid.NewString()
	if _, err := b.db.ExecContext(ctx,
		`INSERT INTO recovery_tokens (token, user_id, expires_at_unixms) VALUES (?, ?, ?)`,
		token, userID, b.now().Add(recoveryTTL).UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert recovery token: %w", err)
	}

	link, err := recoveryLink(redirectTo, token)
	if err != nil {
		return err
	}
	if err := b.mailer.SendRecoveryLink(ctx, email, link); err != nil {
		return fmt.Errorf("send recovery link: %w", err)
	}
	return nil
}

func recoveryLink(redirectTo, token string) (string, error) {
	base := strings.TrimSpace(redirectTo)
	if base == "" {
		base = "workdesk://reset-password"
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse redirect url: %w", err)
	}
	q := u.Query()
	q.Set("type", "recovery")
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (b *Backend) ExchangeRecoveryLink(ctx context.Context, link string) error {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return fmt.Errorf("parse recovery link: %w", err)
	}
	token := u.Query().Get("token")
	if token == "" {
		if frag, err := url.ParseQuery(u.Fragment); err == nil {
			token = frag.Get("token")
		}
	}
	if token == "" {
		return backend.ErrInvalidRecovery
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var userID string
	var expiresAt int64
	var usedAt sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT user_id, expires_at_unixms, used_at_unixms FROM recovery_tokens WHERE token = ?`, token,
	).Scan(&userID, &expiresAt, &usedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return backend.ErrInvalidRecovery
	}
	if err != nil {
		return fmt.Errorf("get recovery token: %w", err)
	}
	if usedAt.Valid || b.nowMs() > expiresAt {
		return backend.ErrInvalidRecovery
	}
	if _, err := tx.ExecContext(ctx, `UPDATE recovery_tokens SET used_at_unixms = ? WHERE token = ?`, b.nowMs(), token); err != nil {
		return fmt.Errorf("mark recovery token used: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	usr, err := b.userByID(ctx, userID)
	if err != nil {
		return err
	}
	if usr == nil {
		return backend.ErrInvalidRecovery
	}
	s, err := b.issueSession(*usr)
	if err != nil {
		return err
	}
	b.setSession(s, backend.EventPasswordRecovery)
	return nil
}

func (b *Backend) UpdatePassword(ctx context.Context, password string) error {
	u, err := b.authedUser(ctx)
	if err != nil {
		return err
	}
	if len(password) < backend.MinPasswordLen {
		return backend.ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if _, err := b.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at_unixms = ? WHERE id = ?`,
		string(hash), b.nowMs(), u.ID,
	); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	b.setSession(b.currentSession(), backend.EventUserUpdated)
	return nil
}
