package main

import (
	"context"
	"fmt"

	"github.com/jonathan/form-autofill/internal/browser"
	"github.com/jonathan/form-autofill/internal/fill"
	"github.com/jonathan/form-autofill/internal/observability"
	"github.com/jonathan/form-autofill/internal/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fillCmd = &cobra.Command{
	Use:   "fill [url]",
	Short: "Fill the form on a live page with the saved profile",
	Long: `Fill text inputs and textareas on a page opened in Chrome.

With a URL, a tab is opened on that page. Without one, --remote-url must point at a running
Chrome (started with --remote-debugging-port) and its active page is filled in place.`,
	Example: `  autofill fill https://jobs.example.com/apply --headless
  autofill fill --remote-url http://127.0.0.1:9222`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFill,
}

func init() {
	addBrowserFlags(fillCmd)
	rootCmd.AddCommand(fillCmd)
}

func runFill(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	targetURL := ""
	if len(args) == 1 {
		targetURL = args[0]
	}

	s, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	p, err := profile.Load(ctx, s)
	if err != nil {
		return err
	}
	engine, err := newEngine()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, settings.TimeoutDuration())
	defer cancel()

	logger.Debug("starting fill",
		zap.String("url", targetURL),
		zap.String("browser", settings.Browser),
		zap.Bool("remote", settings.RemoteURL != ""))

	session, err := browser.NewSession(ctx, settings.Browser, browserOptions(), logger)
	if err != nil {
		return reportFill(cmd, nil, err)
	}
	defer session.Close()

	report, err := browser.FillURL(ctx, session, engine, targetURL, p)
	return reportFill(cmd, report, err)
}

// reportFill prints the one-line status and, in verbose mode, the full report.
func reportFill(cmd *cobra.Command, report *fill.Report, err error) error {
	filled := 0
	if report != nil {
		filled = report.Filled
	}
	fmt.Fprintln(cmd.OutOrStdout(), observability.FillStatus(filled, err))
	if settings.Verbose && report != nil {
		observability.NewPrinter(cmd.ErrOrStderr()).PrintFillReport(report)
	}
	if err != nil {
		return &reportedError{err: err}
	}
	return nil
}
