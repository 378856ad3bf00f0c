// Package fetch retrieves form pages over HTTP, rendering them in a headless browser
// when the served markup carries no fillable controls.
package fetch

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; FormAutofill/1.0)"

// Result holds the content of a fetched page.
type Result struct {
	URL         string
	HTML        string
	ContentType string
	StatusCode  int
	Rendered    bool // HTML came from a headless browser
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// DefaultMaxBodyBytes bounds fetched documents. It matches the largest HTML document the
// API server accepts for filling.
const DefaultMaxBodyBytes = 5 << 20

// Options configures the fetch behavior.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	Headers      map[string]string
	MaxBodyBytes int64 // 0 means DefaultMaxBodyBytes
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// URL retrieves a form page. Result.URL is the location after redirects, so short links
// (forms.gle) report the form host that dialect detection needs. Bodies larger than
// MaxBodyBytes and responses that are not text or HTML are rejected.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	limit := opts.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	parsedURL, err := url.Parse(urlStr)
	if err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") || parsedURL.Host == "" {
		return nil, &Error{URL: urlStr, Message: "invalid URL (want http or https)", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	client := &http.Client{Timeout: opts.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "HTTP request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	finalURL := urlStr
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	result := &Result{
		URL:         finalURL,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}
	if resp.StatusCode != http.StatusOK {
		return result, &Error{URL: finalURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	if !isDocumentType(result.ContentType) {
		return result, &Error{URL: finalURL, Message: fmt.Sprintf("not an HTML page (content type %q)", result.ContentType)}
	}

	// One byte past the limit tells a full-size body from an oversized one.
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return result, &Error{URL: finalURL, Message: "failed to read response body", Cause: err}
	}
	if int64(len(body)) > limit {
		return result, &Error{URL: finalURL, Message: fmt.Sprintf("page larger than %d bytes", limit)}
	}
	result.HTML = string(body)
	return result, nil
}

// isDocumentType accepts missing, text and XHTML content types.
func isDocumentType(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "text/") || mediaType == "application/xhtml+xml"
}

// CountControls returns how many elements of html match selector.
func CountControls(html, selector string) (int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc.Find(selector).Length(), nil
}
