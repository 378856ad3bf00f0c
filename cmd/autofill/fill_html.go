package main

import (
	"fmt"
	"os"

	"github.com/jonathan/form-autofill/internal/dom"
	"github.com/jonathan/form-autofill/internal/fetch"
	"github.com/jonathan/form-autofill/internal/fill"
	"github.com/jonathan/form-autofill/internal/observability"
	"github.com/jonathan/form-autofill/internal/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	htmlInPath  string
	htmlURL     string
	htmlPageURL string
	htmlOutPath string
	htmlRender  bool
)

var fillHTMLCmd = &cobra.Command{
	Use:   "fill-html",
	Short: "Fill the form in an HTML document and write the result",
	Long: `Fill a saved HTML file (--in) or a page fetched over HTTP (--url) without a live browser.
The filled document is written to --out, or to stdout when --out is not set.

Pages served without any form controls can be rendered in headless Chrome with --render.`,
	Args: cobra.NoArgs,
	RunE: runFillHTML,
}

func init() {
	fillHTMLCmd.Flags().StringVar(&htmlInPath, "in", "", "Path to an HTML file")
	fillHTMLCmd.Flags().StringVar(&htmlURL, "url", "", "URL of the page to fetch")
	fillHTMLCmd.Flags().StringVar(&htmlPageURL, "page-url", "", "Location reported for --in documents (selects the dialect)")
	fillHTMLCmd.Flags().StringVarP(&htmlOutPath, "out", "o", "", "Output path for the filled HTML (default stdout)")
	fillHTMLCmd.Flags().BoolVar(&htmlRender, "render", false, "Render in headless Chrome when the served HTML has no controls")
	fillHTMLCmd.MarkFlagsMutuallyExclusive("in", "url")
	fillHTMLCmd.MarkFlagsOneRequired("in", "url")
	rootCmd.AddCommand(fillHTMLCmd)
}

func runFillHTML(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var doc *dom.Document
	if htmlInPath != "" {
		f, err := os.Open(htmlInPath)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		doc, err = dom.Parse(f, htmlPageURL)
		_ = f.Close()
		if err != nil {
			return err
		}
	} else {
		opts := fetch.DefaultOptions()
		if settings.UserAgent != "" {
			opts.UserAgent = settings.UserAgent
		}
		result, err := fetch.Page(ctx, htmlURL, fill.ControlSelector, htmlRender, opts, logger)
		if err != nil {
			return err
		}
		logger.Debug("fetched page",
			zap.String("url", result.URL),
			zap.Int("status", result.StatusCode),
			zap.Bool("rendered", result.Rendered))
		doc, err = dom.ParseString(result.HTML, result.URL)
		if err != nil {
			return err
		}
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

	report, err := engine.Fill(ctx, doc, p)
	if err != nil {
		return reportFill(cmd, report, err)
	}

	html, err := doc.HTML()
	if err != nil {
		return err
	}
	if htmlOutPath == "" {
		fmt.Fprintln(cmd.OutOrStdout(), html)
		fmt.Fprintln(cmd.ErrOrStderr(), observability.FillStatus(report.Filled, nil))
		return nil
	}
	if err := os.WriteFile(htmlOutPath, []byte(html), 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return reportFill(cmd, report, nil)
}
