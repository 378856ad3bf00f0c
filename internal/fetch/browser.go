package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// ShouldUseBrowser reports whether html has no element matching selector, indicating the
// form is built by JavaScript after load.
func ShouldUseBrowser(html, selector string) bool {
	n, err := CountControls(html, selector)
	return err != nil || n == 0
}

// WithBrowser renders a page in a headless browser and returns the rendered HTML once an
// element matching waitSelector exists or the timeout expires.
// Requires Chrome/Chromium to be installed on the system.
func WithBrowser(ctx context.Context, url, waitSelector string, opts *Options, logger *zap.Logger) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Debug("starting headless browser", zap.String("url", url))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(opts.UserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, opts.Timeout)
	defer cancel()

	var html, location string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			// The form may never appear; wait briefly and render whatever is there.
			waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_ = chromedp.WaitReady(waitSelector, chromedp.ByQuery).Do(waitCtx)
			return nil
		}),
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, &Error{URL: url, Message: "browser rendering failed", Cause: err}
	}

	logger.Debug("rendered page", zap.String("url", location), zap.Int("bytes", len(html)))
	return &Result{
		URL:         location,
		HTML:        html,
		ContentType: "text/html",
		StatusCode:  200,
		Rendered:    true,
	}, nil
}

// Page fetches url over HTTP and falls back to browser rendering when render is set and
// the served HTML has no element matching selector.
func Page(ctx context.Context, url, selector string, render bool, opts *Options, logger *zap.Logger) (*Result, error) {
	result, err := URL(ctx, url, opts)
	if err != nil {
		return result, err
	}
	if !render || !ShouldUseBrowser(result.HTML, selector) {
		return result, nil
	}

	rendered, err := WithBrowser(ctx, url, selector, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("no form controls in served HTML: %w", err)
	}
	return rendered, nil
}
