package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"workdesk/internal/backend"
	"workdesk/internal/model"
	"workdesk/internal/notes"

	"github.com/spf13/cobra"
)

type noteList []model.Note

func (l noteList) Text() string {
	if len(l) == 0 {
		return "No notes."
	}
	var b strings.Builder
	for _, n := range l {
		fmt.Fprintf(&b, "%d\t%s\t%s\n", n.ID, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Title)
	}
	return b.String()
}

type noteResult struct {
	Note    *model.Note `json:"note,omitempty"`
	Deleted int64       `json:"deleted,omitempty"`
}

func (r noteResult) Text() string {
	if r.Note != nil {
		return fmt.Sprintf("%d\t%s", r.Note.ID, r.Note.Title)
	}
	return fmt.Sprintf("Deleted note %d.", r.Deleted)
}

func newNotesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Personal notes of the signed-in user",
	}
	cmd.AddCommand(newNotesListCmd(app))
	cmd.AddCommand(newNotesAddCmd(app))
	cmd.AddCommand(newNotesEditCmd(app))
	cmd.AddCommand(newNotesRmCmd(app))
	return cmd
}

// withNotes runs fn with a repository and the signed-in user.
func (app *App) withNotes(cmd *cobra.Command, fn func(ctx context.Context, repo *notes.Repo, user *model.User) error) error {
	return app.withBackend(cmd, func(ctx context.Context, be backend.Backend) error {
		u, err := requireUser(ctx, be)
		if err != nil {
			return err
		}
		return fn(ctx, notes.NewRepo(be), u)
	})
}

func newNotesListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withNotes(cmd, func(ctx context.Context, repo *notes.Repo, u *model.User) error {
				ns, err := repo.List(ctx, u.ID)
				if err != nil {
					return err
				}
				if ns == nil {
					ns = []model.Note{}
				}
				return writeOut(cmd, app, noteList(ns))
			})
		},
	}
}

func newNotesAddCmd(app *App) *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return writeErr(cmd, usageErrorf("missing --title"))
			}
			return app.withNotes(cmd, func(ctx context.Context, repo *notes.Repo, u *model.User) error {
				n, err := repo.Create(ctx, u.ID, title, content)
				if err != nil {
					return err
				}
				return writeOut(cmd, app, noteResult{Note: &n})
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Note title")
	cmd.Flags().StringVar(&content, "content", "", "Note body (markdown)")
	return cmd
}

func newNotesEditCmd(app *App) *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "edit <note-id>",
		Short: "Replace a note's title and content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNoteID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withNotes(cmd, func(ctx context.Context, repo *notes.Repo, u *model.User) error {
				n, err := findNote(ctx, repo, u.ID, id)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("title") {
					n.Title = title
				}
				if cmd.Flags().Changed("content") {
					n.Content = content
				}
				if err := repo.Update(ctx, id, n.Title, n.Content); err != nil {
					return err
				}
				return writeOut(cmd, app, noteResult{Note: &n})
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&content, "content", "", "New body (markdown)")
	return cmd
}

func newNotesRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <note-id>",
		Short: "Delete a note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseNoteID(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			return app.withNotes(cmd, func(ctx context.Context, repo *notes.Repo, u *model.User) error {
				if _, err := findNote(ctx, repo, u.ID, id); err != nil {
					return err
				}
				if err := repo.Delete(ctx, id); err != nil {
					return err
				}
				return writeOut(cmd, app, noteResult{Deleted: id})
			})
		},
	}
}

func parseNoteID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, usageErrorf("invalid note id %q", s)
	}
	return id, nil
}

// findNote loads a note of the user. Updates and deletes of missing rows are
// silent no-ops on both backends, so existence is checked first.
func findNote(ctx context.Context, repo *notes.Repo, userID string, id int64) (model.Note, error) {
	ns, err := repo.List(ctx, userID)
	if err != nil {
		return model.Note{}, err
	}
	for _, n := range ns {
		if n.ID == id {
			return n, nil
		}
	}
	return model.Note{}, errNotFound("note", strconv.FormatInt(id, 10))
}
