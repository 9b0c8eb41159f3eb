package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"workdesk/internal/store"

	"github.com/spf13/cobra"
)

// configKeys maps `workdesk config set` keys to the fields they write.
var configKeys = map[string]func(cfg *store.GlobalConfig, v string) error{
	"backend": func(cfg *store.GlobalConfig, v string) error {
		switch v {
		case store.BackendSupabase, store.BackendLocal, "":
			cfg.Backend = v
			return nil
		}
		return usageErrorf("backend must be %q or %q", store.BackendSupabase, store.BackendLocal)
	},
	"supabase.url": func(cfg *store.GlobalConfig, v string) error {
		supabaseConfig(cfg).URL = v
		return nil
	},
	"supabase.anon-key": func(cfg *store.GlobalConfig, v string) error {
		supabaseConfig(cfg).AnonKey = v
		return nil
	},
	"supabase.redirect-to": func(cfg *store.GlobalConfig, v string) error {
		supabaseConfig(cfg).RedirectTo = v
		return nil
	},
	"supabase.timeout-seconds": func(cfg *store.GlobalConfig, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return usageErrorf("timeout-seconds must be a non-negative integer")
		}
		supabaseConfig(cfg).TimeoutSeconds = n
		return nil
	},
	"local.db": func(cfg *store.GlobalConfig, v string) error {
		if cfg.Local == nil {
			cfg.Local = &store.LocalConfig{}
		}
		cfg.Local.DBPath = v
		return nil
	},
	"log-level": func(cfg *store.GlobalConfig, v string) error {
		cfg.LogLevel = v
		return nil
	},
	"tui.theme": func(cfg *store.GlobalConfig, v string) error {
		switch v {
		case "light", "dark", "auto", "":
		default:
			return usageErrorf("theme must be light, dark or auto")
		}
		if cfg.TUI == nil {
			cfg.TUI = &store.TUIConfig{}
		}
		cfg.TUI.Theme = v
		return nil
	},
}

func supabaseConfig(cfg *store.GlobalConfig) *store.SupabaseConfig {
	if cfg.Supabase == nil {
		cfg.Supabase = &store.SupabaseConfig{}
	}
	return cfg.Supabase
}

func configKeyNames() []string {
	out := make([]string, 0, len(configKeys))
	for k := range configKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change ~/.workdesk/config.json",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadConfig(); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, app.cfg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value",
		Long:  fmt.Sprintf("Set a config value. Keys: %s.", strings.Join(configKeyNames(), ", ")),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, ok := configKeys[args[0]]
			if !ok {
				return writeErr(cmd, usageErrorf("unknown config key %q (known: %s)", args[0], strings.Join(configKeyNames(), ", ")))
			}
			if err := app.loadConfig(); err != nil {
				return writeErr(cmd, err)
			}
			if err := set(app.cfg, strings.TrimSpace(args[1])); err != nil {
				return writeErr(cmd, err)
			}
			if err := store.SaveConfig(app.cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, app.cfg)
		},
	})

	return cmd
}
