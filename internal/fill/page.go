// Package fill identifies form fields on a page and writes profile values into them.
package fill

import (
	"context"
	"errors"
)

// ControlSelector matches the text-like controls a fill pass considers: text, email, tel
// and url inputs (an input without a type attribute is a text input), plus textareas.
const ControlSelector = `input[type="text"], input:not([type]), input[type="email"], input[type="tel"], input[type="url"], textarea`

// ErrNoNativeSetter is returned by Control.Inject when the platform setter for the
// control's element type cannot be resolved.
var ErrNoNativeSetter = errors.New("native value setter not found")

// Page is the DOM of one page, as seen by a fill pass.
type Page interface {
	// URL returns the page's current location.
	URL(ctx context.Context) (string, error)
	// Controls returns the controls matching selector in document order.
	Controls(ctx context.Context, selector string) ([]Control, error)
}

// Control is one live form control.
type Control interface {
	// Attr returns the value of attribute name, or "" when absent.
	Attr(ctx context.Context, name string) (string, error)
	// LabelFor returns the text of the <label> whose for attribute references the
	// control's id, or "" when there is none.
	LabelFor(ctx context.Context) (string, error)
	// ContainerText finds the nearest ancestor matching the first of containers that has a
	// match, then returns the text of the first descendant matching, in order, one of
	// targets. found is false when no container or no target exists.
	ContainerText(ctx context.Context, containers, targets []string) (text string, found bool, err error)
	// Inject writes value through the element type's native value setter and dispatches
	// bubbling input, change, blur, keydown and keyup events, followed by one more input
	// event. An empty value is a no-op.
	Inject(ctx context.Context, value string) error
	// Describe returns a short human-readable identifier for logs.
	Describe() string
}
