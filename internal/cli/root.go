package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"workdesk/internal/backend"
	"workdesk/internal/backend/local"
	"workdesk/internal/backend/supabase"
	"workdesk/internal/format"
	"workdesk/internal/logging"
	"workdesk/internal/store"
	"workdesk/internal/tui"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type App struct {
	Backend    string
	URL        string
	AnonKey    string
	DBPath     string
	LogLevel   string
	Recover    string
	PrettyJSON bool
	Format     string

	store store.Store
	cfg   *store.GlobalConfig
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "workdesk",
		Short:        "Workdesk: dashboard, task board and notes in the terminal",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive TUI
  workdesk

  # Open the password reset form from an emailed link
  workdesk --recover 'workdesk://reset-password?type=recovery&token=...'

  # Scriptable commands
  workdesk auth login --email you@example.com --password-stdin
  workdesk notes list
`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app)
		},
	}

	cmd.PersistentFlags().StringVar(&app.Backend, "backend", envOr("WORKDESK_BACKEND", ""), "Backend (supabase|local; default from config.json)")
	cmd.PersistentFlags().StringVar(&app.URL, "url", envOr("WORKDESK_SUPABASE_URL", ""), "Supabase project URL")
	cmd.PersistentFlags().StringVar(&app.AnonKey, "anon-key", envOr("WORKDESK_SUPABASE_ANON_KEY", ""), "Supabase anon key")
	cmd.PersistentFlags().StringVar(&app.DBPath, "db", envOr("WORKDESK_DB", ""), "Path to the local backend database")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("WORKDESK_LOG_LEVEL", ""), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print JSON output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("WORKDESK_FORMAT", "json"), "Output format (json|text)")
	cmd.Flags().StringVar(&app.Recover, "recover", "", "Password recovery link from a reset email")

	cmd.AddCommand(newAuthCmd(app))
	cmd.AddCommand(newNotesCmd(app))
	cmd.AddCommand(newConfigCmd(app))

	return cmd
}

func runTUI(cmd *cobra.Command, app *App) error {
	return app.withBackend(cmd, func(_ context.Context, be backend.Backend) error {
		return tui.Run(tui.Options{
			Backend:      be,
			Log:          log.StandardLogger(),
			RedirectTo:   app.redirectTo(),
			RecoveryLink: app.Recover,
			State:        app.store,
			Theme:        app.cfg.TUITheme(),
		})
	})
}

func (app *App) loadConfig() error {
	if app.cfg != nil {
		return nil
	}
	st, err := store.Open()
	if err != nil {
		return err
	}
	cfg, err := store.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app.store = st
	app.cfg = cfg
	return nil
}

// setupLogging sends the standard logger to the log file in the config dir.
func (app *App) setupLogging() (io.Closer, error) {
	level := app.LogLevel
	if level == "" {
		level = app.cfg.LogLevel
	}
	f, err := logging.OpenFile(app.store.Dir)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if _, err := logging.Setup(level, f); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// withBackend opens the log file and the configured backend, runs fn and
// releases both.
func (app *App) withBackend(cmd *cobra.Command, fn func(ctx context.Context, be backend.Backend) error) error {
	if err := app.loadConfig(); err != nil {
		return writeErr(cmd, err)
	}
	logFile, err := app.setupLogging()
	if err != nil {
		return writeErr(cmd, err)
	}
	defer func() {
		log.SetOutput(io.Discard)
		_ = logFile.Close()
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	be, err := app.openBackend(ctx)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer func() {
		if err := be.Close(); err != nil {
			log.WithError(err).Warn("close backend")
		}
	}()

	if err := fn(ctx, be); err != nil {
		log.WithError(err).WithField("command", cmd.CommandPath()).Info("command failed")
		return writeErr(cmd, err)
	}
	return nil
}

func (app *App) backendName() string {
	if v := strings.ToLower(strings.TrimSpace(app.Backend)); v != "" {
		return v
	}
	if strings.TrimSpace(app.URL) != "" {
		return store.BackendSupabase
	}
	return app.cfg.ResolvedBackend()
}

func (app *App) openBackend(ctx context.Context) (backend.Backend, error) {
	logger := log.StandardLogger()
	switch name := app.backendName(); name {
	case store.BackendSupabase:
		url, key := app.URL, app.AnonKey
		if sc := app.cfg.Supabase; sc != nil {
			if url == "" {
				url = sc.URL
			}
			if key == "" {
				key = sc.AnonKey
			}
		}
		opts := []supabase.Option{supabase.WithSessionStore(app.store), supabase.WithLogger(logger)}
		if t := app.timeout(); t > 0 {
			opts = append(opts, supabase.WithHTTPClient(&http.Client{Timeout: t}))
		}
		c, err := supabase.New(url, key, opts...)
		if err != nil {
			return nil, err
		}
		return c, nil
	case store.BackendLocal:
		path := app.DBPath
		if path == "" {
			path = app.cfg.LocalDBPath(app.store.Dir)
		}
		if err := app.store.Ensure(); err != nil {
			return nil, err
		}
		b, err := local.Open(ctx, path, local.WithSessionStore(app.store), local.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, usageErrorf("unknown backend %q (want supabase or local)", name)
	}
}

func (app *App) timeout() time.Duration {
	if app.cfg.Supabase == nil || app.cfg.Supabase.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(app.cfg.Supabase.TimeoutSeconds) * time.Second
}

func (app *App) redirectTo() string {
	if app.cfg.Supabase == nil {
		return ""
	}
	return strings.TrimSpace(app.cfg.Supabase.RedirectTo)
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
