package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const (
	BackendSupabase = "supabase"
	BackendLocal    = "local"
)

type GlobalConfig struct {
	// Backend selects the implementation: "supabase" (default when a URL is
	// configured) or "local".
	Backend string `json:"backend,omitempty"`

	Supabase *SupabaseConfig `json:"supabase,omitempty"`
	Local    *LocalConfig    `json:"local,omitempty"`

	// LogLevel is a logrus level name.
	LogLevel string `json:"logLevel,omitempty"`

	// TUI holds optional user preferences for the interactive TUI.
	TUI *TUIConfig `json:"tui,omitempty"`
}

type SupabaseConfig struct {
	URL     string `json:"url,omitempty"`
	AnonKey string `json:"anonKey,omitempty"`
	// RedirectTo is where password reset emails send the user.
	RedirectTo string `json:"redirectTo,omitempty"`
	// TimeoutSeconds bounds each HTTP request; 0 means the default.
	TimeoutSeconds int `json:"timeoutSeconds,omitempty"`
}

type LocalConfig struct {
	// DBPath defaults to <config dir>/workdesk.db.
	DBPath string `json:"dbPath,omitempty"`
}

type TUIConfig struct {
	// Theme is "light", "dark" or "auto".
	Theme string `json:"theme,omitempty"`
}

func ConfigDir() (string, error) {
	// Test/advanced override (keeps unit tests from touching ~/.workdesk).
	if v := strings.TrimSpace(os.Getenv("WORKDESK_CONFIG_DIR")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".workdesk"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func LoadConfig() (*GlobalConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &GlobalConfig{}, nil
		}
		return nil, err
	}
	var cfg GlobalConfig
	if err := json.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

func SaveConfig(cfg *GlobalConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return atomicWriteFile(dir, "config.json.*.tmp", path, b, 0o600)
}

// ResolvedBackend returns the configured backend name, defaulting to supabase
// when a project URL is present and local otherwise.
func (c *GlobalConfig) ResolvedBackend() string {
	if c != nil {
		if v := strings.ToLower(strings.TrimSpace(c.Backend)); v != "" {
			return v
		}
		if c.Supabase != nil && strings.TrimSpace(c.Supabase.URL) != "" {
			return BackendSupabase
		}
	}
	return BackendLocal
}

// LocalDBPath returns the configured local database path or the default
// inside dir.
func (c *GlobalConfig) LocalDBPath(dir string) string {
	if c != nil && c.Local != nil {
		if p := strings.TrimSpace(c.Local.DBPath); p != "" {
			return p
		}
	}
	return filepath.Join(dir, "workdesk.db")
}

func (c *GlobalConfig) TUITheme() string {
	if c == nil || c.TUI == nil {
		return ""
	}
	return strings.TrimSpace(c.TUI.Theme)
}
