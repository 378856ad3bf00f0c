// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Defaults used when neither the config file nor a flag sets a value.
const (
	DefaultStore      = "sqlite"
	DefaultBrowser    = "chromedp"
	DefaultTimeout    = "60s"
	DefaultListenAddr = "127.0.0.1:8787"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Storage
	Store       string `json:"store,omitempty"`        // memory, sqlite or postgres
	SQLitePath  string `json:"sqlite_path,omitempty"`  // SQLite database file
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	ProfileID   string `json:"profile_id,omitempty"`   // Profile UUID; empty selects the default profile

	// Browser
	Browser   string `json:"browser,omitempty"`    // chromedp or rod
	RemoteURL string `json:"remote_url,omitempty"` // DevTools endpoint of a running Chrome
	Timeout   string `json:"timeout,omitempty"`    // Session timeout, e.g. "60s"
	UserAgent string `json:"user_agent,omitempty"` // User agent for launched browsers and fetches

	// Matching
	AliasesFile string `json:"aliases_file,omitempty"` // YAML alias overlay

	// Server
	ListenAddr     string   `json:"listen_addr,omitempty"`     // Address for the serve command
	AllowedOrigins []string `json:"allowed_origins,omitempty"` // Browser origins allowed to call the API

	// Behavior
	Headless bool `json:"headless,omitempty"` // Launch Chrome without a window
	Verbose  bool `json:"verbose,omitempty"`  // Print detailed debug information
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Store:      DefaultStore,
		SQLitePath: DefaultSQLitePath(),
		Browser:    DefaultBrowser,
		Timeout:    DefaultTimeout,
		ListenAddr: DefaultListenAddr,
	}
}

// DefaultSQLitePath returns profile.db under the user's config directory, falling back
// to the working directory when it is unknown.
func DefaultSQLitePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "form-autofill.db"
	}
	return filepath.Join(dir, "form-autofill", "profile.db")
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	switch c.Store {
	case "", "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("config error: unknown store %q (want memory, sqlite or postgres)", c.Store)
	}
	if c.Store == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("config error: 'database_url' is required for the postgres store")
	}

	switch c.Browser {
	case "", "chromedp", "rod":
	default:
		return fmt.Errorf("config error: unknown browser %q (want chromedp or rod)", c.Browser)
	}

	if c.ProfileID != "" {
		if _, err := uuid.Parse(c.ProfileID); err != nil {
			return fmt.Errorf("config error: 'profile_id' is not a UUID: %w", err)
		}
	}

	if c.Timeout != "" {
		d, err := time.ParseDuration(c.Timeout)
		if err != nil {
			return fmt.Errorf("config error: invalid 'timeout': %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("config error: 'timeout' must be positive")
		}
	}

	for _, origin := range c.AllowedOrigins {
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" || strings.TrimSuffix(u.Path, "/") != "" {
			return fmt.Errorf("config error: invalid allowed origin %q (want scheme://host[:port])", origin)
		}
	}

	// Validate file paths exist (if specified)
	if c.AliasesFile != "" {
		if _, err := os.Stat(c.AliasesFile); os.IsNotExist(err) {
			return fmt.Errorf("config error: aliases file not found: %s", c.AliasesFile)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty string fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Store == "" {
		result.Store = defaults.Store
	}
	if result.SQLitePath == "" {
		result.SQLitePath = defaults.SQLitePath
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ProfileID == "" {
		result.ProfileID = defaults.ProfileID
	}
	if result.Browser == "" {
		result.Browser = defaults.Browser
	}
	if result.RemoteURL == "" {
		result.RemoteURL = defaults.RemoteURL
	}
	if result.Timeout == "" {
		result.Timeout = defaults.Timeout
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}
	if result.AliasesFile == "" {
		result.AliasesFile = defaults.AliasesFile
	}
	if result.ListenAddr == "" {
		result.ListenAddr = defaults.ListenAddr
	}
	if len(result.AllowedOrigins) == 0 {
		result.AllowedOrigins = defaults.AllowedOrigins
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// TimeoutDuration returns the parsed session timeout, or zero when unset or invalid.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ProfileUUID returns the configured profile ID, or uuid.Nil when unset or invalid.
func (c *Config) ProfileUUID() uuid.UUID {
	id, err := uuid.Parse(c.ProfileID)
	if err != nil {
		return uuid.Nil
	}
	return id
}
