// Package dom provides a static, goquery-backed page for fill passes over parsed HTML.
// Injected values are written into the document markup so the filled form can be
// rendered back out; dispatched events are recorded rather than delivered.
package dom

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/form-autofill/internal/fill"
)

// EventTypes is the sequence of events Inject dispatches after writing a value.
var EventTypes = []string{"input", "change", "blur", "keydown", "keyup", "input"}

// Event records one dispatched event.
type Event struct {
	Control string
	Type    string
	Bubbles bool
}

// Document is a parsed HTML page.
type Document struct {
	doc    *goquery.Document
	url    string
	events []Event
}

// Parse reads HTML from r. pageURL is reported as the page location and drives dialect
// detection; it may be empty.
func Parse(r io.Reader, pageURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return &Document{doc: doc, url: pageURL}, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(html, pageURL string) (*Document, error) {
	return Parse(strings.NewReader(html), pageURL)
}

// URL implements fill.Page.
func (d *Document) URL(_ context.Context) (string, error) {
	return d.url, nil
}

// Controls implements fill.Page.
func (d *Document) Controls(_ context.Context, selector string) ([]fill.Control, error) {
	var controls []fill.Control
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		controls = append(controls, &control{doc: d, sel: s})
	})
	return controls, nil
}

// Events returns the events dispatched so far, in order.
func (d *Document) Events() []Event {
	return append([]Event(nil), d.events...)
}

// HTML renders the document, including injected values.
func (d *Document) HTML() (string, error) {
	html, err := d.doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render HTML: %w", err)
	}
	return html, nil
}

// Value returns the current value of the first control matching selector.
func (d *Document) Value(selector string) string {
	s := d.doc.Find(selector).First()
	if goquery.NodeName(s) == "textarea" {
		return s.Text()
	}
	return s.AttrOr("value", "")
}

type control struct {
	doc *Document
	sel *goquery.Selection
}

func (c *control) Attr(_ context.Context, name string) (string, error) {
	return c.sel.AttrOr(name, ""), nil
}

func (c *control) LabelFor(_ context.Context) (string, error) {
	id := c.sel.AttrOr("id", "")
	if id == "" {
		return "", nil
	}
	label := c.doc.doc.Find("label").FilterFunction(func(_ int, l *goquery.Selection) bool {
		return l.AttrOr("for", "") == id
	}).First()
	return label.Text(), nil
}

func (c *control) ContainerText(_ context.Context, containers, targets []string) (string, bool, error) {
	var box *goquery.Selection
	for _, sel := range containers {
		if found := c.sel.Closest(sel); found.Length() > 0 {
			box = found
			break
		}
	}
	if box == nil {
		return "", false, nil
	}
	for _, sel := range targets {
		if el := box.Find(sel).First(); el.Length() > 0 {
			return el.Text(), true, nil
		}
	}
	return "", false, nil
}

// valueSetters are the "native" setters of the static document, one per element type.
var valueSetters = map[string]func(*goquery.Selection, string){
	"input": func(s *goquery.Selection, v string) {
		s.SetAttr("value", v)
	},
	"textarea": func(s *goquery.Selection, v string) {
		s.SetText(v)
	},
}

func (c *control) Inject(_ context.Context, value string) error {
	if value == "" {
		return nil
	}

	tag := goquery.NodeName(c.sel)
	set, ok := valueSetters[tag]
	if !ok {
		return fmt.Errorf("<%s>: %w", tag, fill.ErrNoNativeSetter)
	}
	set(c.sel, value)

	name := c.Describe()
	for _, typ := range EventTypes {
		c.doc.events = append(c.doc.events, Event{Control: name, Type: typ, Bubbles: true})
	}
	return nil
}

func (c *control) Describe() string {
	var sb strings.Builder
	sb.WriteString(goquery.NodeName(c.sel))
	if id := c.sel.AttrOr("id", ""); id != "" {
		sb.WriteString("#" + id)
	}
	if name := c.sel.AttrOr("name", ""); name != "" {
		sb.WriteString(fmt.Sprintf("[name=%s]", name))
	}
	return sb.String()
}
