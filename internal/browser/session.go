package browser

import (
	"context"
	"fmt"

	"github.com/jonathan/form-autofill/internal/fill"
	"github.com/jonathan/form-autofill/internal/types"
	"go.uber.org/zap"
)

// Supported drivers.
const (
	DriverChromedp = "chromedp"
	DriverRod      = "rod"
)

// Session is a browser from which pages can be opened for filling.
type Session interface {
	OpenPage(ctx context.Context, targetURL string) (Page, error)
	Close()
}

// Page is a live page that must be closed after the fill pass.
type Page interface {
	fill.Page
	Close()
}

// NewSession starts a session with the named driver.
func NewSession(ctx context.Context, driver string, opts Options, logger *zap.Logger) (Session, error) {
	switch driver {
	case "", DriverChromedp:
		return NewChromeSession(ctx, opts, logger), nil
	case DriverRod:
		return NewRodSession(ctx, opts, logger)
	default:
		return nil, fmt.Errorf("unknown browser driver %q", driver)
	}
}

// FillURL opens targetURL (or the active page when empty) and runs one fill pass on it.
func FillURL(ctx context.Context, session Session, engine *fill.Engine, targetURL string, profile *types.Profile) (*fill.Report, error) {
	page, err := session.OpenPage(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	defer page.Close()

	return engine.Fill(ctx, page, profile)
}

// Filler fills pages opened from one session with one engine. It is safe for concurrent
// use when the session is.
type Filler struct {
	Session Session
	Engine  *fill.Engine
}

// FillURL implements a live-page fill for callers that only know a URL.
func (f *Filler) FillURL(ctx context.Context, targetURL string, profile *types.Profile) (*fill.Report, error) {
	return FillURL(ctx, f.Session, f.Engine, targetURL, profile)
}
