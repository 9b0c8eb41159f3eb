package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"workdesk/internal/backend"
)

// accessToken returns the user's token for row-level security, or "" to fall
// back to the anon key.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	s, err := c.freshSession(ctx)
	if err != nil {
		if errors.Is(err, backend.ErrNoSession) {
			return "", nil
		}
		return "", err
	}
	return s.AccessToken, nil
}

func tablePath(table string) (string, error) {
	table = strings.TrimSpace(table)
	if table == "" || strings.ContainsAny(table, "/?#") {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return "/rest/v1/" + table, nil
}

func eq(v any) string {
	return "eq." + fmt.Sprint(v)
}

func (c *Client) Select(ctx context.Context, table string, filter backend.Filter, order backend.Order, out any) error {
	path, err := tablePath(table)
	if err != nil {
		return err
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	q := url.Values{"select": {"*"}}
	if filter.Field != "" {
		q.Set(filter.Field, eq(filter.Value))
	}
	if order.Field != "" {
		dir := "asc"
		if order.Desc {
			dir = "desc"
		}
		q.Set("order", order.Field+"."+dir)
	}
	return c.do(ctx, request{method: http.MethodGet, path: path, query: q, token: token}, out)
}

// Insert posts record and decodes the created row (with server-assigned
// columns) into out.
func (c *Client) Insert(ctx context.Context, table string, record any, out any) error {
	path, err := tablePath(table)
	if err != nil {
		return err
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	var rows []json.RawMessage
	err = c.do(ctx, request{
		method:  http.MethodPost,
		path:    path,
		query:   url.Values{"select": {"*"}},
		body:    record,
		token:   token,
		headers: map[string]string{"Prefer": "return=representation"},
	}, &rows)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if len(rows) == 0 {
		return fmt.Errorf("insert into %s: no row returned", table)
	}
	if err := json.Unmarshal(rows[0], out); err != nil {
		return fmt.Errorf("decode inserted %s row: %w", table, err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, table string, id any, patch any) error {
	path, err := tablePath(table)
	if err != nil {
		return err
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method:  http.MethodPatch,
		path:    path,
		query:   url.Values{"id": {eq(id)}},
		body:    patch,
		token:   token,
		headers: map[string]string{"Prefer": "return=minimal"},
	}, nil)
}

func (c *Client) Delete(ctx context.Context, table string, id any) error {
	path, err := tablePath(table)
	if err != nil {
		return err
	}
	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, request{
		method: http.MethodDelete,
		path:   path,
		query:  url.Values{"id": {eq(id)}},
		token:  token,
	}, nil)
}
