package fill

import (
	"context"
	"net/url"
	"strings"
)

// Label sources, in the order the generic dialect tries them.
const (
	SourceLabelFor    = "label"
	SourcePlaceholder = "placeholder"
	SourceName        = "name"
	SourceID          = "id"
	SourceAriaLabel   = "aria-label"
	SourceHeading     = "heading"
)

// Label is the text a dialect derived for a control and where it came from.
type Label struct {
	Text   string
	Source string
}

// Dialect is a label-extraction strategy for one family of form layouts.
type Dialect interface {
	// Name identifies the dialect in reports and logs.
	Name() string
	// Detect reports whether the dialect handles pages at u.
	Detect(u *url.URL) bool
	// Selector returns the CSS selector for candidate controls.
	Selector() string
	// Label derives the label text for c. A zero Label means no hint was found.
	Label(ctx context.Context, c Control) (Label, error)
}

// Generic handles ordinary HTML forms. The label is the first non-empty of: the
// associated <label for> text, placeholder, name, id, aria-label.
type Generic struct{}

// Name implements Dialect.
func (Generic) Name() string { return "generic" }

// Detect implements Dialect. Generic accepts every page.
func (Generic) Detect(*url.URL) bool { return true }

// Selector implements Dialect.
func (Generic) Selector() string { return ControlSelector }

// Label implements Dialect.
func (Generic) Label(ctx context.Context, c Control) (Label, error) {
	text, err := c.LabelFor(ctx)
	if err != nil {
		return Label{}, err
	}
	if strings.TrimSpace(text) != "" {
		return Label{Text: text, Source: SourceLabelFor}, nil
	}

	for _, attr := range []string{SourcePlaceholder, SourceName, SourceID, SourceAriaLabel} {
		value, err := c.Attr(ctx, attr)
		if err != nil {
			return Label{}, err
		}
		if strings.TrimSpace(value) != "" {
			return Label{Text: value, Source: attr}, nil
		}
	}
	return Label{}, nil
}

// GoogleForms handles forms hosted on docs.google.com/forms, where the visible question
// text lives in a heading inside the question container rather than in a <label>.
type GoogleForms struct{}

var (
	googleQuestionContainers = []string{`[role="listitem"]`, `.Qr7Oae`}
	googleQuestionHeadings   = []string{`[role="heading"]`, `.M7eMe`}
)

// Name implements Dialect.
func (GoogleForms) Name() string { return "google-forms" }

// Detect implements Dialect.
func (GoogleForms) Detect(u *url.URL) bool {
	if u == nil {
		return false
	}
	return strings.Contains(strings.ToLower(u.Host), "docs.google.com") &&
		strings.Contains(u.Path, "/forms")
}

// Selector implements Dialect.
func (GoogleForms) Selector() string { return ControlSelector }

// Label implements Dialect.
func (GoogleForms) Label(ctx context.Context, c Control) (Label, error) {
	text, found, err := c.ContainerText(ctx, googleQuestionContainers, googleQuestionHeadings)
	if err != nil {
		return Label{}, err
	}
	if found && strings.TrimSpace(text) != "" {
		return Label{Text: text, Source: SourceHeading}, nil
	}

	aria, err := c.Attr(ctx, SourceAriaLabel)
	if err != nil {
		return Label{}, err
	}
	if strings.TrimSpace(aria) != "" {
		return Label{Text: aria, Source: SourceAriaLabel}, nil
	}
	return Label{}, nil
}

// DefaultDialects returns the built-in dialects in detection order, generic last.
func DefaultDialects() []Dialect {
	return []Dialect{GoogleForms{}, Generic{}}
}
