package fill

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jonathan/form-autofill/internal/matching"
	"github.com/jonathan/form-autofill/internal/types"
	"go.uber.org/zap"
)

// Engine runs fill passes. It keeps no state between passes: the field mapping is rebuilt
// from the profile on every call.
type Engine struct {
	dialects []Dialect
	overlay  *matching.AliasOverlay
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDialects registers extra dialects. They are consulted before the built-in ones.
func WithDialects(dialects ...Dialect) Option {
	return func(e *Engine) {
		e.dialects = append(append([]Dialect(nil), dialects...), e.dialects...)
	}
}

// WithAliasOverlay appends extra aliases to the standard fields.
func WithAliasOverlay(overlay *matching.AliasOverlay) Option {
	return func(e *Engine) {
		e.overlay = overlay
	}
}

// NewEngine creates an Engine with the built-in dialects.
func NewEngine(logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		dialects: DefaultDialects(),
		logger:   logger.Named("fill"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SelectDialect returns the first dialect that accepts pageURL, falling back to Generic.
func (e *Engine) SelectDialect(pageURL string) Dialect {
	u, err := url.Parse(pageURL)
	if err != nil {
		u = nil
	}
	for _, d := range e.dialects {
		if d.Detect(u) {
			return d
		}
	}
	return Generic{}
}

// Fill performs one pass over page: every candidate control is labelled, matched against
// the profile's field mapping and, when a non-empty value resolves, injected. Failures on
// a single control are recorded in the report and do not stop the pass. An error is
// returned only when the page itself cannot be read or ctx is cancelled; the report
// returned alongside it holds whatever was done before that point.
func (e *Engine) Fill(ctx context.Context, page Page, profile *types.Profile) (*Report, error) {
	if profile == nil {
		profile = &types.Profile{}
	}
	mapping := matching.BuildMapping(profile, e.overlay)

	pageURL, err := page.URL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page location: %w", err)
	}

	dialect := e.SelectDialect(pageURL)
	report := &Report{URL: pageURL, Dialect: dialect.Name()}
	log := e.logger.With(zap.String("url", pageURL), zap.String("dialect", dialect.Name()))
	log.Debug("scanning page")

	controls, err := page.Controls(ctx, dialect.Selector())
	if err != nil {
		return report, fmt.Errorf("failed to query form controls: %w", err)
	}

	for i, control := range controls {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		res := e.fillControl(ctx, dialect, mapping, profile, control)
		res.Index = i
		if res.Outcome == OutcomeFilled {
			report.Filled++
			if res.Custom {
				log.Info("filled custom field", zap.String("key", res.Key), zap.String("control", res.Control))
			} else {
				log.Info("filled field", zap.String("key", res.Key), zap.String("control", res.Control))
			}
		}
		if res.Outcome == OutcomeFailed {
			log.Warn("control skipped after error",
				zap.String("control", res.Control),
				zap.String("state", string(res.State)),
				zap.String("error", res.Error))
		}
		report.Results = append(report.Results, res)
	}

	log.Info("form fill completed", zap.Int("filled", report.Filled), zap.Int("controls", len(controls)))
	return report, nil
}

func (e *Engine) fillControl(ctx context.Context, dialect Dialect, mapping *matching.FieldMapping, profile *types.Profile, control Control) FieldResult {
	res := FieldResult{Control: control.Describe(), State: StateExtracting}

	label, err := dialect.Label(ctx, control)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}
	res.Label, res.Source = label.Text, label.Source
	if label.Text == "" {
		res.Outcome = OutcomeNoLabel
		return res
	}

	res.State = StateMatching
	key, ok := mapping.Match(label.Text)
	if !ok {
		res.Outcome = OutcomeNoMatch
		return res
	}
	res.Key = key

	value, custom := resolveValue(profile, key)
	res.Custom = custom
	if value == "" {
		res.Outcome = OutcomeNoValue
		return res
	}

	res.State = StateInjecting
	if err := control.Inject(ctx, value); err != nil {
		res.Outcome = OutcomeFailed
		res.Error = err.Error()
		return res
	}

	res.State = StateIdle
	res.Outcome = OutcomeFilled
	return res
}

// resolveValue prefers the standard profile value for key and falls back to the first
// custom field whose name equals key exactly.
func resolveValue(profile *types.Profile, key string) (value string, custom bool) {
	if v := profile.Value(key); v != "" {
		return v, false
	}
	if v, ok := profile.CustomValue(key); ok {
		return v, true
	}
	return "", false
}
