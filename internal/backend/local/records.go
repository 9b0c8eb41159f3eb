package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"workdesk/internal/backend"
)

// Rows are stored as a JSON document per record. id, user_id and created_at
// live in real columns and are merged back into the document on read. Every
// query is scoped to the signed-in user.

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var errRowPolicy = &backend.Error{
	Status:  http.StatusForbidden,
	Code:    "42501",
	Message: "new row violates row-level security policy",
}

func checkIdent(kind, name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}

// column maps a field to its SQL expression.
func column(field string) string {
	switch field {
	case "id":
		return "id"
	case "user_id":
		return "user_id"
	case "created_at":
		return "created_at_unixms"
	default:
		return "json_extract(json, '$." + field + "')"
	}
}

func parseID(id any) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(fmt.Sprint(id)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid record id %v", id)
	}
	return n, nil
}

func toDoc(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("record must encode to a JSON object: %w", err)
	}
	return doc, nil
}

func (b *Backend) Select(ctx context.Context, table string, filter backend.Filter, order backend.Order, out any) error {
	if err := checkIdent("table", table); err != nil {
		return err
	}
	u, err := b.authedUser(ctx)
	if err != nil {
		return err
	}

	query := `SELECT id, user_id, json, created_at_unixms FROM records WHERE tbl = ? AND user_id = ?`
	args := []any{table, u.ID}
	if filter.Field != "" {
		if err := checkIdent("filter", filter.Field); err != nil {
			return err
		}
		query += ` AND ` + column(filter.Field) + ` = ?`
		args = append(args, filter.Value)
	}
	if order.Field != "" {
		if err := checkIdent("order", order.Field); err != nil {
			return err
		}
		dir := "ASC"
		if order.Desc {
			dir = "DESC"
		}
		query += ` ORDER BY ` + column(order.Field) + ` ` + dir + `, id ` + dir
	} else {
		query += ` ORDER BY id ASC`
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	defer rows.Close()

	docs := []map[string]any{}
	for rows.Next() {
		var (
			id      int64
			userID  string
			body    string
			created int64
		)
		if err := rows.Scan(&id, &userID, &body, &created); err != nil {
			return err
		}
		doc, err := rowDoc(id, userID, body, created)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return decodeInto(docs, out)
}

func rowDoc(id int64, userID, body string, created int64) (map[string]any, error) {
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, fmt.Errorf("decode record %d: %w", id, err)
	}
	doc["id"] = id
	doc["user_id"] = userID
	doc["created_at"] = time.UnixMilli(created).UTC().Format(time.RFC3339Nano)
	return doc, nil
}

func decodeInto(v any, out any) error {
	if out == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// Insert stores record and decodes the created row into out. A user_id
// naming someone other than the caller is rejected.
func (b *Backend) Insert(ctx context.Context, table string, record any, out any) error {
	if err := checkIdent("table", table); err != nil {
		return err
	}
	u, err := b.authedUser(ctx)
	if err != nil {
		return err
	}
	doc, err := toDoc(record)
	if err != nil {
		return err
	}
	if owner, ok := doc["user_id"]; ok && owner != nil && fmt.Sprint(owner) != u.ID {
		return errRowPolicy
	}
	delete(doc, "id")
	delete(doc, "user_id")
	delete(doc, "created_at")
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	created := b.nowMs()
	res, err := b.db.ExecContext(ctx,
		`INSERT INTO records (tbl, user_id, json, created_at_unixms) VALUES (?, ?, ?, ?)`,
		table, u.ID, string(body), created,
	)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	row, err := rowDoc(id, u.ID, string(body), created)
	if err != nil {
		return err
	}
	return decodeInto(row, out)
}

// Update merges patch into the caller's row. Rows the caller does not own are
// left untouched, matching a filtered update that matches nothing.
func (b *Backend) Update(ctx context.Context, table string, id any, patch any) error {
	if err := checkIdent("table", table); err != nil {
		return err
	}
	rowID, err := parseID(id)
	if err != nil {
		return err
	}
	u, err := b.authedUser(ctx)
	if err != nil {
		return err
	}
	changes, err := toDoc(patch)
	if err != nil {
		return err
	}
	delete(changes, "id")
	delete(changes, "user_id")
	delete(changes, "created_at")

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT json FROM records WHERE id = ? AND tbl = ? AND user_id = ?`, rowID, table, u.ID,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s row: %w", table, err)
	}
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return fmt.Errorf("decode record %d: %w", rowID, err)
	}
	for k, v := range changes {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE records SET json = ? WHERE id = ?`, string(merged), rowID); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return tx.Commit()
}

func (b *Backend) Delete(ctx context.Context, table string, id any) error {
	if err := checkIdent("table", table); err != nil {
		return err
	}
	rowID, err := parseID(id)
	if err != nil {
		return err
	}
	u, err := b.authedUser(ctx)
	if err != nil {
		return err
	}
	if _, err := b.db.ExecContext(ctx,
		`DELETE FROM records WHERE id = ? AND tbl = ? AND user_id = ?`, rowID, table, u.ID,
	); err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	return nil
}
