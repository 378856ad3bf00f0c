// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/form-autofill/internal/fill"
	"github.com/jonathan/form-autofill/internal/matching"
	"github.com/jonathan/form-autofill/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// FillStatus is the one-line status shown after a fill request.
func FillStatus(filled int, err error) string {
	if err != nil {
		return fmt.Sprintf("Error filling form: %s", err.Error())
	}
	return fmt.Sprintf("Form filled: %d fields", filled)
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintFillReport outputs the filled fields of a pass followed by a tally of skipped controls.
func (p *Printer) PrintFillReport(report *fill.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Page:     %s\n", orNone(report.URL)))
	sb.WriteString(fmt.Sprintf("Dialect:  %s\n", report.Dialect))
	sb.WriteString(fmt.Sprintf("Controls: %d\n", len(report.Results)))
	sb.WriteString(fmt.Sprintf("Filled:   %d\n", report.Filled))

	var filled []fill.FieldResult
	for _, r := range report.Results {
		if r.Outcome == fill.OutcomeFilled {
			filled = append(filled, r)
		}
	}
	if len(filled) > 0 {
		sb.WriteString("\n")
		count := min(len(filled), maxItemsToShow)
		for i := 0; i < count; i++ {
			r := filled[i]
			key := r.Key
			if r.Custom {
				key += " (custom)"
			}
			sb.WriteString(fmt.Sprintf("  • %s ← %q\n", key, strings.TrimSpace(r.Label)))
		}
		if len(filled) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(filled)-maxItemsToShow))
		}
	}

	skipped := []fill.Outcome{fill.OutcomeNoLabel, fill.OutcomeNoMatch, fill.OutcomeNoValue, fill.OutcomeFailed}
	var tally []string
	for _, o := range skipped {
		if n := report.Count(o); n > 0 {
			tally = append(tally, fmt.Sprintf("%s=%d", o, n))
		}
	}
	if len(tally) > 0 {
		sb.WriteString(fmt.Sprintf("\nSkipped: %s\n", strings.Join(tally, " ")))
	}

	p.printBox("FORM FILL REPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProfile outputs every standard field and the custom fields of a profile.
func (p *Printer) PrintProfile(profile *types.Profile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	for _, key := range types.StandardFields {
		sb.WriteString(fmt.Sprintf("%-15s %s\n", key+":", orNone(profile.Value(key))))
	}

	if len(profile.CustomFields) > 0 {
		sb.WriteString("\nCustom fields:\n")
		for _, f := range profile.CustomFields {
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", f.Name, f.Value))
		}
	}

	p.printBox("PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintMapping outputs the field keys in matching order with their alias phrases.
func (p *Printer) PrintMapping(m *matching.FieldMapping) {
	if m == nil {
		return
	}

	var sb strings.Builder
	for i, key := range m.Keys() {
		sb.WriteString(fmt.Sprintf("%2d. %-15s %s\n", i+1, key, strings.Join(m.Aliases(key), ", ")))
	}

	p.printBox(fmt.Sprintf("FIELD MAPPING (%d fields)", m.Len()), strings.TrimSuffix(sb.String(), "\n"))
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
