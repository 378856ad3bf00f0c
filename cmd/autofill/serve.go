package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/form-autofill/internal/browser"
	"github.com/jonathan/form-autofill/internal/server"
	"github.com/jonathan/form-autofill/internal/server/ratelimit"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddr           string
	serveNoBrowser      bool
	serveAllowedOrigins string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the profile and form filling over a REST API.

Endpoints:
  GET  /health      - Health check
  GET  /profile     - Read the saved profile
  PUT  /profile     - Replace the saved profile
  POST /fill        - Fill a live page in Chrome ({"url": "..."})
  POST /fill/html   - Fill an HTML document ({"html": "...", "url": "..."})`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default 127.0.0.1:8787)")
	serveCmd.Flags().StringVar(&serveAllowedOrigins, "allowed-origins", "", "Comma-separated browser origins allowed to call the API (default none)")
	serveCmd.Flags().BoolVar(&serveNoBrowser, "no-browser", false, "Disable POST /fill (no Chrome is started)")
	addBrowserFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("addr") {
		settings.ListenAddr = serveAddr
	}
	if cmd.Flags().Changed("allowed-origins") {
		settings.AllowedOrigins = splitList(serveAllowedOrigins)
		if err := settings.Validate(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	engine, err := newEngine()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	var filler server.Filler
	if !serveNoBrowser {
		session, err := browser.NewSession(ctx, settings.Browser, browserOptions(), logger)
		if err != nil {
			return fmt.Errorf("failed to start browser session: %w", err)
		}
		filler = &browser.Filler{Session: session, Engine: engine}

		// Close the browser as soon as shutdown starts so in-flight fills fail fast.
		g.Go(func() error {
			<-gctx.Done()
			session.Close()
			return nil
		})
	}

	srv := server.New(server.Config{
		Addr:      settings.ListenAddr,
		Store:     s,
		Engine:    engine,
		Filler:    filler,
		RateLimit: ratelimit.LoadConfig(),
		Logger:    logger,

		AllowedOrigins: settings.AllowedOrigins,
	})

	logger.Info("starting server",
		zap.String("addr", settings.ListenAddr),
		zap.String("store", settings.Store),
		zap.Bool("browser", filler != nil),
		zap.Strings("allowed_origins", settings.AllowedOrigins))
	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s\n", settings.ListenAddr)

	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// splitList splits a comma-separated flag value, dropping empty items.
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
