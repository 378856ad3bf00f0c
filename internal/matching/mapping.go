package matching

import (
	"strings"

	"github.com/jonathan/form-autofill/internal/types"
)

// FieldMapping is an insertion-ordered table of field key -> alias phrases.
// Iteration order is part of the matching contract: ambiguous labels resolve to the key
// inserted first.
type FieldMapping struct {
	keys    []string
	aliases map[string][]string
}

// NewFieldMapping returns an empty mapping.
func NewFieldMapping() *FieldMapping {
	return &FieldMapping{aliases: make(map[string][]string)}
}

// Add appends key with its aliases. A key already present keeps its position and its
// original aliases; Add reports false in that case.
func (m *FieldMapping) Add(key string, aliases ...string) bool {
	if _, exists := m.aliases[key]; exists {
		return false
	}
	m.keys = append(m.keys, key)
	m.aliases[key] = append([]string(nil), aliases...)
	return true
}

// extend appends aliases to an existing key without changing its position.
func (m *FieldMapping) extend(key string, aliases ...string) {
	if _, exists := m.aliases[key]; !exists {
		return
	}
	m.aliases[key] = append(m.aliases[key], aliases...)
}

// Keys returns the field keys in matching order.
func (m *FieldMapping) Keys() []string {
	return append([]string(nil), m.keys...)
}

// Aliases returns the alias phrases for key in matching order.
func (m *FieldMapping) Aliases(key string) []string {
	return append([]string(nil), m.aliases[key]...)
}

// Len returns the number of field keys.
func (m *FieldMapping) Len() int {
	return len(m.keys)
}

// Match resolves raw label text to a field key. The text is normalized, then keys are
// tried in insertion order and aliases in their declared order; an alias hits when either
// string contains the other. The first key with a hit wins, even if a later key would
// match more precisely. Empty text never matches.
func (m *FieldMapping) Match(rawText string) (string, bool) {
	normalized := Normalize(rawText)
	if normalized == "" {
		return "", false
	}

	for _, key := range m.keys {
		for _, alias := range m.aliases[key] {
			if alias == "" {
				continue
			}
			if strings.Contains(normalized, alias) || strings.Contains(alias, normalized) {
				return key, true
			}
		}
	}
	return "", false
}

// BuildMapping assembles the mapping for one fill: the standard fields with their built-in
// aliases (plus any overlay aliases appended after them), then one entry per custom field
// keyed by its name with its lower-cased name as the only alias. Custom fields whose name
// is already a key (a standard key or an earlier duplicate) are skipped, so the first
// insertion wins.
func BuildMapping(profile *types.Profile, overlay *AliasOverlay) *FieldMapping {
	m := NewFieldMapping()
	for _, key := range types.StandardFields {
		m.Add(key, builtinAliases[key]...)
	}

	if overlay != nil {
		for _, key := range types.StandardFields {
			for _, alias := range overlay.Aliases[key] {
				m.extend(key, strings.ToLower(alias))
			}
		}
	}

	if profile != nil {
		for _, f := range profile.CustomFields {
			if f.Name == "" {
				continue
			}
			m.Add(f.Name, strings.ToLower(f.Name))
		}
	}

	return m
}
