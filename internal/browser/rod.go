package browser

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/jonathan/form-autofill/internal/fill"
	"go.uber.org/zap"
)

// RodSession owns a go-rod browser connection.
type RodSession struct {
	opts     Options
	browser  *rod.Browser
	launcher *launcher.Launcher
	cancel   context.CancelFunc
	logger   *zap.Logger
}

// NewRodSession connects to opts.RemoteURL, or launches a local Chrome through the rod
// launcher when it is empty.
func NewRodSession(ctx context.Context, opts Options, logger *zap.Logger) (*RodSession, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	s := &RodSession{opts: opts, logger: logger.Named("rod")}

	controlURL := opts.RemoteURL
	if controlURL != "" {
		resolved, err := launcher.ResolveURL(controlURL)
		if err != nil {
			return nil, &PageError{Message: "failed to resolve debugger URL", Cause: err}
		}
		controlURL = resolved
	} else {
		s.launcher = launcher.New().Headless(opts.Headless)
		launched, err := s.launcher.Launch()
		if err != nil {
			return nil, &PageError{Message: "failed to launch chrome", Cause: err}
		}
		controlURL = launched
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	browser := rod.New().ControlURL(controlURL).Context(sessionCtx)
	if err := browser.Connect(); err != nil {
		cancel()
		if s.launcher != nil {
			s.launcher.Cleanup()
		}
		return nil, &PageError{Message: "failed to connect to chrome", Cause: err}
	}

	s.browser = browser
	s.cancel = cancel
	s.logger.Debug("connected to chrome", zap.String("control_url", controlURL))
	return s, nil
}

// Close closes a launched browser, or detaches from a remote one.
func (s *RodSession) Close() {
	if s.launcher != nil {
		_ = s.browser.Close()
		s.launcher.Cleanup()
	}
	s.cancel()
}

// OpenPage returns the page to fill, navigating a new tab when targetURL is set and using
// the first ordinary page of the browser otherwise.
func (s *RodSession) OpenPage(ctx context.Context, targetURL string) (Page, error) {
	if targetURL != "" {
		page, err := s.browser.Page(proto.TargetCreateTarget{URL: targetURL})
		if err != nil {
			return nil, &PageError{URL: targetURL, Message: "failed to open tab", Cause: err}
		}
		if err := page.Context(ctx).Timeout(s.opts.Timeout).WaitLoad(); err != nil {
			_ = page.Close()
			return nil, &PageError{URL: targetURL, Message: "navigation failed", Cause: err}
		}
		return &RodPage{page: page, owned: true}, nil
	}

	pages, err := s.browser.Pages()
	if err != nil {
		return nil, &PageError{Message: "failed to list pages", Cause: err}
	}
	for _, page := range pages {
		info, err := page.Info()
		if err != nil {
			continue
		}
		if info.Type != proto.TargetTargetInfoTypePage || !isFillablePage(info.URL) {
			continue
		}
		s.logger.Debug("attached to page", zap.String("url", info.URL))
		return &RodPage{page: page}, nil
	}
	return nil, &PageError{Message: "no active page found"}
}

// RodPage is a live page reached through go-rod. It implements fill.Page.
type RodPage struct {
	page  *rod.Page
	owned bool
}

// Close closes the tab if this session opened it.
func (p *RodPage) Close() {
	if p.owned {
		_ = p.page.Close()
	}
}

// URL implements fill.Page.
func (p *RodPage) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", &PageError{Message: "failed to read location", Cause: err}
	}
	return info.URL, nil
}

// Controls implements fill.Page.
func (p *RodPage) Controls(ctx context.Context, selector string) ([]fill.Control, error) {
	elements, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, &PageError{Message: "failed to query controls", Cause: err}
	}

	controls := make([]fill.Control, 0, len(elements))
	for _, el := range elements {
		desc := "element"
		if res, err := el.Context(ctx).Eval(describeJS); err == nil {
			desc = res.Value.Str()
		}
		controls = append(controls, &rodControl{el: el, desc: desc})
	}
	return controls, nil
}

type rodControl struct {
	el   *rod.Element
	desc string
}

func (c *rodControl) Attr(ctx context.Context, name string) (string, error) {
	value, err := c.el.Context(ctx).Attribute(name)
	if err != nil {
		return "", fmt.Errorf("failed to read %s of %s: %w", name, c.desc, err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

func (c *rodControl) LabelFor(ctx context.Context) (string, error) {
	res, err := c.el.Context(ctx).Eval(labelForJS)
	if err != nil {
		return "", fmt.Errorf("failed to read label of %s: %w", c.desc, err)
	}
	return res.Value.Str(), nil
}

func (c *rodControl) ContainerText(ctx context.Context, containers, targets []string) (string, bool, error) {
	res, err := c.el.Context(ctx).Eval(containerTextJS, containers, targets)
	if err != nil {
		return "", false, fmt.Errorf("failed to read question text of %s: %w", c.desc, err)
	}
	return res.Value.Get("text").Str(), res.Value.Get("found").Bool(), nil
}

func (c *rodControl) Inject(ctx context.Context, value string) error {
	if value == "" {
		return nil
	}
	if _, err := c.el.Context(ctx).Eval(injectJS, value); err != nil {
		return fmt.Errorf("failed to inject value into %s: %w", c.desc, err)
	}
	return nil
}

func (c *rodControl) Describe() string {
	return c.desc
}
