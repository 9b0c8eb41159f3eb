// Package notes is a typed repository for the personal_notes table.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"workdesk/internal/backend"
	"workdesk/internal/model"
)

const Table = "personal_notes"

var ErrBlankTitle = errors.New("note title is required")

type Repo struct {
	rec backend.Records
}

func NewRepo(rec backend.Records) *Repo {
	return &Repo{rec: rec}
}

type createPayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	UserID  string `json:"user_id"`
}

type updatePayload struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// List returns userID's notes, newest first.
func (r *Repo) List(ctx context.Context, userID string) ([]model.Note, error) {
	var out []model.Note
	err := r.rec.Select(ctx, Table,
		backend.Filter{Field: "user_id", Value: userID},
		backend.Order{Field: "created_at", Desc: true},
		&out,
	)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return out, nil
}

// Create inserts a note owned by userID and returns the stored row.
func (r *Repo) Create(ctx context.Context, userID, title, content string) (model.Note, error) {
	if strings.TrimSpace(title) == "" {
		return model.Note{}, ErrBlankTitle
	}
	var n model.Note
	err := r.rec.Insert(ctx, Table, createPayload{Title: title, Content: content, UserID: userID}, &n)
	if err != nil {
		return model.Note{}, fmt.Errorf("create note: %w", err)
	}
	return n, nil
}

func (r *Repo) Update(ctx context.Context, id int64, title, content string) error {
	if strings.TrimSpace(title) == "" {
		return ErrBlankTitle
	}
	if err := r.rec.Update(ctx, Table, id, updatePayload{Title: title, Content: content}); err != nil {
		return fmt.Errorf("update note %d: %w", id, err)
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id int64) error {
	if err := r.rec.Delete(ctx, Table, id); err != nil {
		return fmt.Errorf("delete note %d: %w", id, err)
	}
	return nil
}
