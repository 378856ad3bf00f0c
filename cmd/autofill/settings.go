package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonathan/form-autofill/internal/browser"
	"github.com/jonathan/form-autofill/internal/config"
	"github.com/jonathan/form-autofill/internal/fill"
	"github.com/jonathan/form-autofill/internal/matching"
	"github.com/jonathan/form-autofill/internal/store"
	"github.com/spf13/cobra"
)

// Browser flags shared by fill and serve.
var (
	browserDriver string
	remoteURL     string
	headless      bool
	timeout       time.Duration
)

func addBrowserFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&browserDriver, "browser", "", "Browser driver: chromedp or rod (default chromedp)")
	cmd.Flags().StringVar(&remoteURL, "remote-url", "", "DevTools URL of a running Chrome to attach to")
	cmd.Flags().BoolVar(&headless, "headless", false, "Launch Chrome without a window")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Session timeout (default 60s)")
}

// loadSettings builds settings from the config file, explicitly set flags, the
// environment and defaults, in that order of precedence after flags.
func loadSettings(cmd *cobra.Command) error {
	settings = config.Config{}
	if configPath != "" {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		settings = *loaded
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		settings.Verbose = verbose
	}
	if flags.Changed("store") {
		settings.Store = storeDriver
	}
	if flags.Changed("sqlite-path") {
		settings.SQLitePath = sqlitePath
	}
	if flags.Changed("db-url") {
		settings.DatabaseURL = databaseURL
	}
	if flags.Changed("profile-id") {
		settings.ProfileID = profileID
	}
	if flags.Changed("aliases") {
		settings.AliasesFile = aliasesFile
	}
	if flags.Lookup("browser") != nil {
		if flags.Changed("browser") {
			settings.Browser = browserDriver
		}
		if flags.Changed("remote-url") {
			settings.RemoteURL = remoteURL
		}
		if flags.Changed("headless") {
			settings.Headless = headless
		}
		if flags.Changed("timeout") {
			settings.Timeout = timeout.String()
		}
	}

	defaults := config.Defaults()
	defaults.DatabaseURL = os.Getenv("DATABASE_URL")
	settings = settings.MergeWithDefaults(defaults)

	return settings.Validate()
}

func openStore(ctx context.Context) (store.Store, error) {
	s, err := store.Open(ctx, store.Options{
		Driver:      settings.Store,
		SQLitePath:  settings.SQLitePath,
		DatabaseURL: settings.DatabaseURL,
		ProfileID:   settings.ProfileUUID(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open profile store: %w", err)
	}
	return s, nil
}

// loadAliasOverlay returns the configured alias overlay, or nil when none is set.
func loadAliasOverlay() (*matching.AliasOverlay, error) {
	if settings.AliasesFile == "" {
		return nil, nil
	}
	return matching.LoadAliasOverlay(settings.AliasesFile)
}

func newEngine() (*fill.Engine, error) {
	overlay, err := loadAliasOverlay()
	if err != nil {
		return nil, err
	}
	return fill.NewEngine(logger, fill.WithAliasOverlay(overlay)), nil
}

func browserOptions() browser.Options {
	return browser.Options{
		RemoteURL: settings.RemoteURL,
		Headless:  settings.Headless,
		Timeout:   settings.TimeoutDuration(),
		UserAgent: settings.UserAgent,
	}
}
