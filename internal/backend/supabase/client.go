// Package supabase talks to a hosted Supabase project: GoTrue for auth and
// PostgREST for table access.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"workdesk/internal/backend"
	"workdesk/internal/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// refreshLeeway is how long before expiry the access token is refreshed.
const refreshLeeway = time.Minute

var _ backend.Backend = (*Client)(nil)

type Client struct {
	baseURL    *url.URL
	anonKey    string
	httpClient *http.Client
	sessions   backend.SessionStore
	log        logrus.FieldLogger
	now        func() time.Time

	events  backend.Broadcaster
	flights singleflight.Group

	mu           sync.Mutex
	session      *model.Session
	refreshTimer *time.Timer
	closed       bool
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithSessionStore persists sessions between runs.
func WithSessionStore(s backend.SessionStore) Option {
	return func(cl *Client) {
		cl.sessions = s
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(cl *Client) {
		cl.log = l
	}
}

func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		cl.now = now
	}
}

// New creates a client for the project at baseURL (e.g. https://xyz.supabase.co).
// A previously persisted session is restored when a session store is configured.
func New(baseURL, anonKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("supabase: missing project url")
	}
	if strings.TrimSpace(anonKey) == "" {
		return nil, errors.New("supabase: missing anon key")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("supabase: parse url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("supabase: invalid project url %q", baseURL)
	}

	c := &Client{
		baseURL:    u,
		anonKey:    strings.TrimSpace(anonKey),
		httpClient: http.DefaultClient,
		log:        logrus.StandardLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.WithField("component", "supabase")

	if c.sessions != nil {
		s, err := c.sessions.LoadSession()
		if err != nil {
			c.log.WithError(err).Warn("load persisted session")
		} else if s != nil && s.AccessToken != "" {
			c.mu.Lock()
			c.session = s
			c.scheduleRefreshLocked()
			c.mu.Unlock()
		}
	}
	return c, nil
}

// Close stops the background refresh timer.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.refreshTimer != nil {
		c.refreshTimer.Stop()
		c.refreshTimer = nil
	}
	return nil
}

func (c *Client) Subscribe(fn func(backend.AuthEvent)) *backend.Subscription {
	return c.events.Subscribe(fn)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

type request struct {
	method  string
	path    string
	query   url.Values
	body    any
	token   string
	headers map[string]string
}

// do sends req and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), body)
	if err != nil {
		return err
	}
	httpReq.Header.Set("apikey", c.anonKey)
	token := req.token
	if token == "" {
		token = c.anonKey
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", req.method, req.path, err)
	}
	return nil
}

// errorBody covers the shapes GoTrue and PostgREST use for failures.
type errorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Code             any    `json:"code"`
}

func decodeError(status int, raw []byte) error {
	e := &backend.Error{Status: status}
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		e.Message = strings.TrimSpace(string(raw))
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}

	for _, m := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
		if strings.TrimSpace(m) != "" {
			e.Message = strings.TrimSpace(m)
			break
		}
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}

	switch {
	case body.ErrorCode != "":
		e.Code = body.ErrorCode
	case body.Error != "" && body.ErrorDescription != "":
		e.Code = body.Error
	default:
		if s, ok := body.Code.(string); ok {
			e.Code = s
		}
	}
	// Older GoTrue versions report bad passwords as a bare invalid_grant.
	if e.Code == "invalid_grant" && strings.EqualFold(e.Message, backend.ErrInvalidCredentials.Message) {
		e.Code = backend.ErrInvalidCredentials.Code
	}
	return e
}
