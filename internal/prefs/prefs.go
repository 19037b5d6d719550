// Package prefs keeps the dashboard's per-user settings: theme, the tab to
// open on and whether new orders ring the terminal bell. They live in
// ~/.config/baristaboard/prefs.toml and are rewritten whenever the user
// changes one from the UI.
package prefs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/betweencoffee/baristaboard/internal/config"
)

// Prefs holds per-user dashboard preferences.
type Prefs struct {
	Theme    string `toml:"theme"`
	StartTab string `toml:"start_tab"`
	Sound    bool   `toml:"sound"`
}

const (
	defaultPrefsPath = "~/.config/baristaboard/prefs.toml"
	defaultTheme     = "Nightfox"
	defaultStartTab  = "waiting_orders"
)

// tabAliases lets the file use the short list names.
var tabAliases = map[string]string{
	"waiting":   "waiting_orders",
	"preparing": "preparing_orders",
	"ready":     "ready_orders",
	"completed": "completed_orders",
}

// Defaults returns the preferences used when nothing is saved.
func Defaults() Prefs {
	return Prefs{Theme: defaultTheme, StartTab: defaultStartTab, Sound: true}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Load reads preferences from path. Any problem degrades to the defaults;
// keys missing from the file keep their default values.
func Load(path string) Prefs {
	resolved, err := resolvePath(path)
	if err != nil {
		return Defaults()
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return Defaults()
	}

	p := Defaults()
	if err := toml.Unmarshal(data, &p); err != nil {
		return Defaults()
	}
	return p.normalized()
}

func (p Prefs) normalized() Prefs {
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = defaultTheme
	}
	tab := strings.ToLower(strings.TrimSpace(p.StartTab))
	if full, ok := tabAliases[tab]; ok {
		tab = full
	}
	if tab == "" {
		tab = defaultStartTab
	}
	p.StartTab = tab
	return p
}

// Save writes preferences to path, creating directories as needed. The
// file is replaced by rename so a crash never leaves it half written.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	data, err := toml.Marshal(p.normalized())
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultPrefsPath
	}
	return config.ExpandPath(path)
}
