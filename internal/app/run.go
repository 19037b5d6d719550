package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/betweencoffee/baristaboard/internal/config"
	"github.com/betweencoffee/baristaboard/internal/prefs"
	"github.com/betweencoffee/baristaboard/internal/ui"
)

// Options configure the dashboard run.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/baristaboard/prefs.toml
}

// Run boots the dashboard until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	userPrefs := prefs.Load(opts.PrefsPath)

	// The terminal belongs to the UI; logs go to a file.
	if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := tea.LogToFile(cfg.LogFile, "baristaboard")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	a, err := New(cfg, userPrefs, Tuning{})
	if err != nil {
		return err
	}
	defer a.Close()

	a.Start(ctx)

	return ui.Run(ui.Options{
		Context:   ctx,
		Dashboard: a,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
	})
}
