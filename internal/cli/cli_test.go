package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

// setupConfigDir points the CLI at a fresh config directory and the local backend.
func setupConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("WORKDESK_CONFIG_DIR", dir)
	t.Setenv("WORKDESK_BACKEND", "local")
	t.Setenv("WORKDESK_SUPABASE_URL", "")
	t.Setenv("WORKDESK_PASSWORD", "")
	t.Setenv("WORKDESK_FORMAT", "")
	return dir
}

func mustRun(t *testing.T, args ...string) map[string]any {
	t.Helper()
	out, errOut, err := runCLI(t, args)
	if err != nil {
		t.Fatalf("%v: %v\nstderr: %s", args, err, errOut)
	}
	var v map[string]any
	if err := json.Unmarshal(out, &v); err != nil {
		t.Fatalf("%v: invalid json %q: %v", args, out, err)
	}
	return v
}

func userEmail(t *testing.T, v map[string]any) string {
	t.Helper()
	u, ok := v["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user object, got %v", v)
	}
	s, _ := u["email"].(string)
	return s
}

func TestAuthAndNotesFlow(t *testing.T) {
	dir := setupConfigDir(t)

	v := mustRun(t, "auth", "signup", "--email", "alice@example.com", "--password", "secret123")
	if got := userEmail(t, v); got != "alice@example.com" {
		t.Fatalf("signup email: %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, "session.json")); err != nil {
		t.Fatalf("expected persisted session: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "workdesk.db")); err != nil {
		t.Fatalf("expected local database in config dir: %v", err)
	}

	// A fresh process picks the session up from disk.
	v = mustRun(t, "auth", "whoami")
	if got := userEmail(t, v); got != "alice@example.com" {
		t.Fatalf("whoami email: %q", got)
	}

	mustRun(t, "notes", "add", "--title", "First", "--content", "one")
	second := mustRun(t, "notes", "add", "--title", "Second")
	note, _ := second["note"].(map[string]any)
	id, _ := note["id"].(float64)
	if id == 0 {
		t.Fatalf("expected created note id, got %v", second)
	}

	out, errOut, err := runCLI(t, []string{"notes", "list"})
	if err != nil {
		t.Fatalf("notes list: %v\n%s", err, errOut)
	}
	var list []map[string]any
	if err := json.Unmarshal(out, &list); err != nil {
		t.Fatalf("notes list json: %v", err)
	}
	if len(list) != 2 || list[0]["title"] != "Second" || list[1]["title"] != "First" {
		t.Fatalf("expected newest first, got %v", list)
	}

	mustRun(t, "notes", "edit", "1", "--title", "Renamed")
	mustRun(t, "notes", "rm", "2")

	out, _, err = runCLI(t, []string{"--format", "text", "notes", "list"})
	if err != nil {
		t.Fatalf("notes list text: %v", err)
	}
	if !strings.Contains(string(out), "Renamed") || strings.Contains(string(out), "Second") {
		t.Fatalf("unexpected list:\n%s", out)
	}

	_, _, err = runCLI(t, []string{"notes", "rm", "2"})
	var nf notFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected not found, got %v", err)
	}

	mustRun(t, "auth", "logout")
	_, _, err = runCLI(t, []string{"auth", "whoami"})
	if !errors.Is(err, errNotSignedIn) {
		t.Fatalf("expected errNotSignedIn, got %v", err)
	}
}

func TestAuthLogin_WrongPassword(t *testing.T) {
	setupConfigDir(t)
	mustRun(t, "auth", "signup", "--email", "bob@example.com", "--password", "secret123")
	mustRun(t, "auth", "logout")

	_, errOut, err := runCLI(t, []string{"auth", "login", "--email", "bob@example.com", "--password", "nope-nope"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(string(errOut), "Invalid login credentials") {
		t.Fatalf("unexpected stderr %q", errOut)
	}
}

func TestAuthLogin_PasswordFromStdin(t *testing.T) {
	setupConfigDir(t)
	mustRun(t, "auth", "signup", "--email", "carol@example.com", "--password", "secret123")
	mustRun(t, "auth", "logout")

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("secret123\n"))
	cmd.SetArgs([]string{"auth", "login", "--email", "carol@example.com", "--password-stdin"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out.String(), "carol@example.com") {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestUsageErrors(t *testing.T) {
	setupConfigDir(t)
	cases := [][]string{
		{"auth", "login", "--password", "x"},
		{"auth", "login", "--email", "a@example.com"},
		{"notes", "add"},
		{"notes", "rm", "abc"},
		{"auth", "reset-password", "--link", "workdesk://reset-password?token=t", "--password", "abc"},
		{"config", "set", "nope", "1"},
		{"config", "set", "backend", "mysql"},
		{"--backend", "mysql", "auth", "whoami"},
	}
	for _, args := range cases {
		_, _, err := runCLI(t, args)
		var ue usageError
		if !errors.As(err, &ue) {
			t.Fatalf("%v: expected usage error, got %v", args, err)
		}
	}
}

func TestConfigSet(t *testing.T) {
	dir := setupConfigDir(t)
	mustRun(t, "config", "set", "supabase.url", "https://example.supabase.co")
	v := mustRun(t, "config", "set", "tui.theme", "dark")

	sb, _ := v["supabase"].(map[string]any)
	if sb["url"] != "https://example.supabase.co" {
		t.Fatalf("unexpected config %v", v)
	}
	b, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(b), `"theme": "dark"`) {
		t.Fatalf("unexpected config file:\n%s", b)
	}
}

func TestSupabaseBackendRequiresKey(t *testing.T) {
	setupConfigDir(t)
	_, errOut, err := runCLI(t, []string{"--backend", "supabase", "--url", "https://example.supabase.co", "auth", "whoami"})
	if err == nil || !strings.Contains(string(errOut), "missing anon key") {
		t.Fatalf("expected missing anon key, got %v / %q", err, errOut)
	}
}
