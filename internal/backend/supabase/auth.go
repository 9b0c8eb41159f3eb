package supabase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"workdesk/internal/backend"
	"workdesk/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (u userResponse) toModel() model.User {
	return model.User{ID: u.ID, Email: u.Email}
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	RefreshToken string       `json:"refresh_token"`
	User         userResponse `json:"user"`
}

// signUpResponse is either a token response (auto-confirm) or a bare user
// (email confirmation pending).
type signUpResponse struct {
	tokenResponse
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (c *Client) sessionFromToken(tr tokenResponse) *model.Session {
	s := &model.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenType:    tr.TokenType,
		User:         tr.User.toModel(),
	}
	switch {
	case tr.ExpiresAt > 0:
		s.ExpiresAt = time.Unix(tr.ExpiresAt, 0).UTC()
	case tr.ExpiresIn > 0:
		s.ExpiresAt = c.now().Add(time.Duration(tr.ExpiresIn) * time.Second).UTC()
	default:
		s.ExpiresAt = tokenExpiry(tr.AccessToken)
	}
	return s
}

// tokenExpiry reads the exp claim without verifying the signature; the client
// only needs it to schedule refreshes.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time.UTC()
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*model.Session, error) {
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": strings.TrimSpace(email), "password": password},
	}, &tr)
	if err != nil {
		return nil, err
	}
	s := c.sessionFromToken(tr)
	c.setSession(s, backend.EventSignedIn)
	return s, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	var sr signUpResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   map[string]string{"email": strings.TrimSpace(email), "password": password},
	}, &sr)
	if err != nil {
		return nil, err
	}
	if sr.AccessToken == "" {
		c.log.WithField("email", sr.Email).Info("sign up pending email confirmation")
		return nil, nil
	}
	s := c.sessionFromToken(sr.tokenResponse)
	c.setSession(s, backend.EventSignedIn)
	return s, nil
}

// SignOut revokes the session server-side (best effort) and always clears it locally.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()

	var err error
	if s != nil {
		err = c.do(ctx, request{
			method: http.MethodPost,
			path:   "/auth/v1/logout",
			token:  s.AccessToken,
		}, nil)
		var be *backend.Error
		if errors.As(err, &be) && (be.Status == http.StatusUnauthorized || be.Status == http.StatusNotFound) {
			// Already revoked or expired.
			err = nil
		}
		if err != nil {
			c.log.WithError(err).Warn("logout request failed; clearing local session anyway")
		}
	}
	c.setSession(nil, backend.EventSignedOut)
	return err
}

func (c *Client) GetUser(ctx context.Context) (*model.User, error) {
	s, err := c.freshSession(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrNoSession) {
			return nil, nil
		}
		return nil, err
	}
	var ur userResponse
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/v1/user", token: s.AccessToken}, &ur); err != nil {
		return nil, err
	}
	u := ur.toModel()
	return &u, nil
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	q := url.Values{}
	if strings.TrimSpace(redirectTo) != "" {
		q.Set("redirect_to", strings.TrimSpace(redirectTo))
	}
	return c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/recover",
		query:  q,
		body:   map[string]string{"email": strings.TrimSpace(email)},
	}, nil)
}

func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	s, err := c.freshSession(ctx)
	if err != nil {
		return err
	}
	var ur userResponse
	if err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/auth/v1/user",
		token:  s.AccessToken,
		body:   map[string]string{"password": password},
	}, &ur); err != nil {
		return err
	}
	next := *s
	if ur.ID != "" {
		next.User = ur.toModel()
	}
	c.setSession(&next, backend.EventUserUpdated)
	return nil
}

// ExchangeRecoveryLink accepts the redirect URL from a reset email. The tokens
// arrive either in the fragment (implicit flow) or as a token_hash query
// parameter that has to be verified first.
func (c *Client) ExchangeRecoveryLink(ctx context.Context, link string) error {
	params, err := linkParams(link)
	if err != nil {
		return err
	}
	if desc := params.Get("error_description"); desc != "" {
		return &backend.Error{Status: http.StatusForbidden, Code: params.Get("error_code"), Message: desc}
	}

	var tr tokenResponse
	switch {
	case params.Get("access_token") != "":
		tr = tokenResponse{
			AccessToken:  params.Get("access_token"),
			RefreshToken: params.Get("refresh_token"),
			TokenType:    params.Get("token_type"),
		}
		tr.ExpiresAt, _ = strconv.ParseInt(params.Get("expires_at"), 10, 64)
		tr.ExpiresIn, _ = strconv.ParseInt(params.Get("expires_in"), 10, 64)
		var ur userResponse
		if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/v1/user", token: tr.AccessToken}, &ur); err != nil {
			return err
		}
		tr.User = ur
	case params.Get("token_hash") != "":
		if err := c.do(ctx, request{
			method: http.MethodPost,
			path:   "/auth/v1/verify",
			body:   map[string]string{"type": "recovery", "token_hash": params.Get("token_hash")},
		}, &tr); err != nil {
			return err
		}
	default:
		return backend.ErrInvalidRecovery
	}

	kind := backend.EventSignedIn
	if t := params.Get("type"); t == "" || t == "recovery" {
		kind = backend.EventPasswordRecovery
	}
	c.setSession(c.sessionFromToken(tr), kind)
	return nil
}

func linkParams(link string) (url.Values, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return nil, fmt.Errorf("parse recovery link: %w", err)
	}
	params := u.Query()
	if u.Fragment != "" {
		frag, err := url.ParseQuery(u.Fragment)
		if err != nil {
			return nil, fmt.Errorf("parse recovery link fragment: %w", err)
		}
		for k, vs := range frag {
			for _, v := range vs {
				params.Add(k, v)
			}
		}
	}
	return params, nil
}

// freshSession returns the current session, refreshing it first if the access
// token is about to expire.
func (c *Client) freshSession(ctx context.Context) (*model.Session, error) {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s == nil {
		return nil, backend.ErrNoSession
	}
	if !s.Expired(c.now(), refreshLeeway) {
		return s, nil
	}
	return c.refresh(ctx, s)
}

// refresh trades the refresh token of s for a new session. Concurrent
// refreshes of the same token share one request, and the result is only
// applied while s is still the current session.
func (c *Client) refresh(ctx context.Context, s *model.Session) (*model.Session, error) {
	ch := c.flights.DoChan(s.RefreshToken, func() (any, error) {
		return c.refreshOnce(context.WithoutCancel(ctx), s)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Session), nil
	}
}

func (c *Client) refreshOnce(ctx context.Context, s *model.Session) (*model.Session, error) {
	c.mu.Lock()
	current := c.session
	c.mu.Unlock()
	if current != s {
		if current == nil {
			return nil, backend.ErrNoSession
		}
		return current, nil
	}

	if s.RefreshToken == "" {
		c.replaceSession(s, nil, backend.EventSignedOut)
		return nil, backend.ErrNoSession
	}
	var tr tokenResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": s.RefreshToken},
	}, &tr)
	if err != nil {
		var be *backend.Error
		if errors.As(err, &be) && be.Status >= 400 && be.Status < 500 {
			if c.replaceSession(s, nil, backend.EventSignedOut) {
				c.log.WithError(err).Info("refresh token rejected; signed out")
			}
			return nil, backend.ErrNoSession
		}
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	next := c.sessionFromToken(tr)
	if next.User.ID == "" {
		next.User = s.User
	}
	if !c.replaceSession(s, next, backend.EventTokenRefreshed) {
		c.mu.Lock()
		current = c.session
		c.mu.Unlock()
		if current == nil {
			return nil, backend.ErrNoSession
		}
		return current, nil
	}
	return next, nil
}

// setSession swaps the cached session, persists it and notifies subscribers.
func (c *Client) setSession(s *model.Session, kind backend.EventKind) {
	c.mu.Lock()
	c.session = s
	c.scheduleRefreshLocked()
	c.mu.Unlock()
	c.commitSession(s, kind)
}

// replaceSession is setSession guarded on old still being the current
// session. It reports whether the swap happened.
func (c *Client) replaceSession(old, s *model.Session, kind backend.EventKind) bool {
	c.mu.Lock()
	if c.session != old {
		c.mu.Unlock()
		return false
	}
	c.session = s
	c.scheduleRefreshLocked()
	c.mu.Unlock()
	c.commitSession(s, kind)
	return true
}

func (c *Client) commitSession(s *model.Session, kind backend.EventKind) {

	if c.sessions != nil {
		var err error
		if s == nil {
			err = c.sessions.ClearSession()
		} else {
			err = c.sessions.SaveSession(s)
		}
		if err != nil {
			c.log.WithError(err).Warn("persist session")
		}
	}

	c.log.WithField("event", kind).Debug("auth state change")
	c.events.Publish(backend.AuthEvent{Kind: kind, Session: s})
}

func (c *Client) scheduleRefreshLocked() {
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	if c.closed || c.session == nil || c.session.RefreshToken == "" || c.session.ExpiresAt.IsZero() {
		return
	}
	wait := c.session.ExpiresAt.Sub(c.now()) - refreshLeeway
	if wait < 0 {
		wait = 0
	}
	s := c.session
	c.refreshTimer = time.AfterFunc(wait, func() {
		c.mu.Lock()
		current := c.session
		c.mu.Unlock()
		if current != s {
			return
		}
		if _, err := c.refresh(context.Background(), s); err != nil {
			c.log.WithError(err).Warn("background session refresh")
		}
	})
}
