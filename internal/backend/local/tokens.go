package local

import (
	"context"
	"errors"
	"fmt"
	"time"

	"workdesk/internal/backend"
	"workdesk/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (b *Backend) issueSession(u model.User) (*model.Session, error) {
	now := b.now().UTC()
	exp := now.Add(b.tokenTTL)
	claims := accessClaims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &model.Session{
		AccessToken: tok,
		TokenType:   "bearer",
		ExpiresAt:   exp.Truncate(time.Second),
		User:        u,
	}, nil
}

// userFromToken verifies token and loads its subject. A nil user means the
// account no longer exists.
func (b *Backend) userFromToken(ctx context.Context, token string) (*model.User, error) {
	var claims accessClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return b.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(b.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, backend.ErrNoSession
		}
		return nil, fmt.Errorf("verify access token: %w", err)
	}
	return b.userByID(ctx, claims.Subject)
}
