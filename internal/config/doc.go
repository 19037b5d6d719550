// Package config loads the dashboard's connection settings.
//
// # Resolution
//
// Load reads a TOML file, by default ~/.config/baristaboard/config.toml.
// A missing file is not an error: every field has a default, so the
// dashboard runs against a local backend without any setup.
//
//	base_url   = "https://shop.example.com"   # default http://127.0.0.1:8000
//	csrf_token = "..."                        # sent as X-CSRFToken on POSTs
//	staff_id   = "barista-1"                  # user_id in the realtime connect frame
//	log_file   = "~/.local/state/baristaboard/baristaboard.log"
//
// BARISTABOARD_BASE_URL, BARISTABOARD_CSRF_TOKEN and BARISTABOARD_STAFF_ID
// override the file. Empty values fall back to defaults, base_url must be an
// absolute http(s) URL and loses a trailing slash, and paths starting with
// ~ are expanded.
//
// # Reloading
//
// Anti-forgery tokens rotate with the backend session. Watch follows the
// config file (through its parent directory, so editors that replace the
// file are seen too) and calls back with the reloaded Config after a short
// debounce. Files that fail to parse are logged and skipped.
package config
