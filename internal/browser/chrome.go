package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/jonathan/form-autofill/internal/fill"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a whole fill session: launch or attach, navigation and the pass.
const DefaultTimeout = 60 * time.Second

// Options configures how a browser is obtained.
type Options struct {
	// RemoteURL attaches to a running Chrome (its DevTools websocket or http endpoint)
	// instead of launching one. Without a target URL the active page of that browser is
	// filled.
	RemoteURL string
	Headless  bool
	Timeout   time.Duration
	UserAgent string
}

// PageError reports that no page could be reached for filling.
type PageError struct {
	URL     string
	Message string
	Cause   error
}

func (e *PageError) Error() string {
	target := e.URL
	if target == "" {
		target = "active page"
	}
	if e.Cause != nil {
		return fmt.Sprintf("page error for %s: %s: %v", target, e.Message, e.Cause)
	}
	return fmt.Sprintf("page error for %s: %s", target, e.Message)
}

func (e *PageError) Unwrap() error {
	return e.Cause
}

// ChromeSession owns a chromedp allocator and browser.
type ChromeSession struct {
	opts       Options
	browserCtx context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger

	startOnce sync.Once
	startErr  error
}

// NewChromeSession prepares a browser: a remote allocator when opts.RemoteURL is set,
// otherwise a locally launched Chrome. Chrome/Chromium must be installed for the latter.
func NewChromeSession(ctx context.Context, opts Options, logger *zap.Logger) *ChromeSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		logger.Debug("connecting to chrome", zap.String("remote", opts.RemoteURL))
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if opts.UserAgent != "" {
			allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
		}
		logger.Debug("launching chrome", zap.Bool("headless", opts.Headless))
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocOpts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	return &ChromeSession{
		opts:       opts,
		browserCtx: browserCtx,
		cancel: func() {
			browserCancel()
			allocCancel()
		},
		logger: logger.Named("chrome"),
	}
}

// Close shuts the browser (or detaches from a remote one).
func (s *ChromeSession) Close() {
	s.cancel()
}

// OpenPage returns the page to fill. With targetURL set, a tab navigates there and waits
// for the body; otherwise the first ordinary page of an attached browser is used.
func (s *ChromeSession) OpenPage(_ context.Context, targetURL string) (Page, error) {
	if targetURL != "" {
		if err := s.start(); err != nil {
			return nil, &PageError{URL: targetURL, Message: "failed to start browser", Cause: err}
		}

		// Each page gets its own tab so concurrent fills do not share one target.
		tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
		tabCtx, timeoutCancel := context.WithTimeout(tabCtx, s.opts.Timeout)
		cancel := func() {
			timeoutCancel()
			tabCancel()
		}
		err := chromedp.Run(tabCtx,
			chromedp.Navigate(targetURL),
			chromedp.WaitReady("body"),
		)
		if err != nil {
			cancel()
			return nil, &PageError{URL: targetURL, Message: "navigation failed", Cause: err}
		}
		s.logger.Debug("page loaded", zap.String("url", targetURL))
		return &ChromePage{ctx: tabCtx, cancel: cancel}, nil
	}

	if s.opts.RemoteURL == "" {
		return nil, &PageError{Message: "no page to fill: a URL is required when launching a new browser"}
	}

	targets, err := chromedp.Targets(s.browserCtx)
	if err != nil {
		return nil, &PageError{Message: "failed to list browser targets", Cause: err}
	}
	info := activePage(targets)
	if info == nil {
		return nil, &PageError{Message: "no active page found"}
	}

	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx, chromedp.WithTargetID(info.TargetID))
	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, s.opts.Timeout)
	cancel := func() {
		timeoutCancel()
		tabCancel()
	}
	// The first Run attaches the target; its event loop lives as long as this context.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, &PageError{URL: info.URL, Message: "failed to attach to page", Cause: err}
	}
	s.logger.Debug("attached to page", zap.String("url", info.URL), zap.String("target", string(info.TargetID)))
	return &ChromePage{ctx: tabCtx, cancel: cancel}, nil
}

// start allocates the browser once; later tabs are created from it.
func (s *ChromeSession) start() error {
	s.startOnce.Do(func() {
		s.startErr = chromedp.Run(s.browserCtx)
	})
	return s.startErr
}

// internalURLPrefixes mark browser-internal pages that are never filled.
var internalURLPrefixes = []string{"chrome://", "devtools://", "chrome-extension://"}

// isFillablePage reports whether a page at pageURL is an ordinary web page.
func isFillablePage(pageURL string) bool {
	for _, prefix := range internalURLPrefixes {
		if strings.HasPrefix(pageURL, prefix) {
			return false
		}
	}
	return true
}

// activePage picks the first ordinary web page among targets.
func activePage(targets []*target.Info) *target.Info {
	for _, t := range targets {
		if t.Type == "page" && isFillablePage(t.URL) {
			return t
		}
	}
	return nil
}

// ChromePage is a live page reached through chromedp. It implements fill.Page.
type ChromePage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// Close releases the page's context.
func (p *ChromePage) Close() {
	if p.cancel != nil {
		p.cancel()
	}
}

// run executes actions on the page's tab. They are bounded by the page timeout and by ctx:
// cancelling ctx interrupts an in-flight CDP call without closing the tab.
func (p *ChromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// URL implements fill.Page.
func (p *ChromePage) URL(ctx context.Context) (string, error) {
	var location string
	if err := p.run(ctx, chromedp.Location(&location)); err != nil {
		return "", &PageError{Message: "failed to read location", Cause: err}
	}
	return location, nil
}

// Controls implements fill.Page.
func (p *ChromePage) Controls(ctx context.Context, selector string) ([]fill.Control, error) {
	var nodes []*cdp.Node
	if err := p.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, &PageError{Message: "failed to query controls", Cause: err}
	}

	controls := make([]fill.Control, 0, len(nodes))
	for _, n := range nodes {
		controls = append(controls, &chromeControl{page: p, node: n})
	}
	return controls, nil
}

type chromeControl struct {
	page *ChromePage
	node *cdp.Node
}

// call runs function with the control's DOM node as `this`.
func (c *chromeControl) call(ctx context.Context, function string, res any, args ...any) error {
	return c.page.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(c.node.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("failed to resolve node: %w", err)
		}
		// Fails once the page navigated away; the object is gone then anyway.
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()

		return chromedp.CallFunctionOn(function, res,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				return p.WithObjectID(obj.ObjectID)
			},
			args...,
		).Do(ctx)
	}))
}

func (c *chromeControl) Attr(_ context.Context, name string) (string, error) {
	return c.node.AttributeValue(name), nil
}

func (c *chromeControl) LabelFor(ctx context.Context) (string, error) {
	var text string
	if err := c.call(ctx, labelForJS, &text); err != nil {
		return "", fmt.Errorf("failed to read label of %s: %w", c.Describe(), err)
	}
	return text, nil
}

func (c *chromeControl) ContainerText(ctx context.Context, containers, targets []string) (string, bool, error) {
	var res containerResult
	if err := c.call(ctx, containerTextJS, &res, containers, targets); err != nil {
		return "", false, fmt.Errorf("failed to read question text of %s: %w", c.Describe(), err)
	}
	return res.Text, res.Found, nil
}

func (c *chromeControl) Inject(ctx context.Context, value string) error {
	if value == "" {
		return nil
	}
	var ok bool
	if err := c.call(ctx, injectJS, &ok, value); err != nil {
		return fmt.Errorf("failed to inject value into %s: %w", c.Describe(), err)
	}
	return nil
}

func (c *chromeControl) Describe() string {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(c.node.LocalName))
	if id := c.node.AttributeValue("id"); id != "" {
		sb.WriteString("#" + id)
	}
	if name := c.node.AttributeValue("name"); name != "" {
		sb.WriteString("[name=" + name + "]")
	}
	return sb.String()
}
