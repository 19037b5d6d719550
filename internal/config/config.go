package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds what the dashboard needs to reach the shop backend.
type Config struct {
	BaseURL   string
	CSRFToken string
	StaffID   string
	LogFile   string
	// Path is the resolved file the values came from, set even when it
	// does not exist so it can be watched.
	Path string
}

// fileConfig mirrors the TOML keys.
type fileConfig struct {
	BaseURL   string `toml:"base_url"`
	CSRFToken string `toml:"csrf_token"`
	StaffID   string `toml:"staff_id"`
	LogFile   string `toml:"log_file"`
}

const (
	defaultConfigPath = "~/.config/baristaboard/config.toml"
	defaultLogFile    = "~/.local/state/baristaboard/baristaboard.log"
	defaultBaseURL    = "http://127.0.0.1:8000"
)

// Environment variables that win over the file.
const (
	EnvBaseURL   = "BARISTABOARD_BASE_URL"
	EnvCSRFToken = "BARISTABOARD_CSRF_TOKEN"
	EnvStaffID   = "BARISTABOARD_STAFF_ID"
)

// Load reads the config file, falling back to defaults when it is missing,
// then applies environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	var raw fileConfig
	data, err := os.ReadFile(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	override(&raw.BaseURL, EnvBaseURL)
	override(&raw.CSRFToken, EnvCSRFToken)
	override(&raw.StaffID, EnvStaffID)

	cfg := Config{
		BaseURL:   defaultBaseURL,
		CSRFToken: strings.TrimSpace(raw.CSRFToken),
		StaffID:   strings.TrimSpace(raw.StaffID),
		LogFile:   mustExpand(defaultLogFile),
		Path:      resolved,
	}
	if v := strings.TrimSpace(raw.BaseURL); v != "" {
		base, err := normalizeBaseURL(v)
		if err != nil {
			return Config{}, err
		}
		cfg.BaseURL = base
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	return cfg, nil
}

func override(dst *string, env string) {
	if v, ok := os.LookupEnv(env); ok && strings.TrimSpace(v) != "" {
		*dst = v
	}
}

// normalizeBaseURL accepts an absolute http(s) URL and drops trailing slashes.
func normalizeBaseURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("base_url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("base_url %q: missing host", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

// DefaultPath returns the unexpanded default config location.
func DefaultPath() string {
	return defaultConfigPath
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}
	return ExpandPath(path)
}

func mustExpand(path string) string {
	if expanded, err := ExpandPath(path); err == nil {
		return expanded
	}
	return path
}

// ExpandPath resolves a leading ~ to the home directory and makes the
// result absolute.
func ExpandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", errors.New("path is empty")
	}
	if rest, ok := strings.CutPrefix(trimmed, "~"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, rest)
	}
	return filepath.Abs(trimmed)
}
