// Package profile loads and saves profiles through a store and converts them to and from
// portable JSON documents.
package profile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/form-autofill/internal/schemas"
	"github.com/jonathan/form-autofill/internal/store"
	"github.com/jonathan/form-autofill/internal/types"
)

// Load reads the profile from s. Keys that were never saved read as empty.
func Load(ctx context.Context, s store.Store) (*types.Profile, error) {
	keys := append(append([]string(nil), types.StandardFields...), store.CustomFieldsKey)
	values, err := s.Get(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return FromValues(values)
}

// Save writes every standard field and the compacted custom field list to s. The caller's
// profile is not modified.
func Save(ctx context.Context, s store.Store, p *types.Profile) error {
	values, err := ToValues(p)
	if err != nil {
		return err
	}
	if err := s.Set(ctx, values); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// FromValues decodes stored values into a profile.
func FromValues(values store.Values) (*types.Profile, error) {
	p := &types.Profile{}
	for _, key := range types.StandardFields {
		if err := p.SetValue(key, values[key]); err != nil {
			return nil, err
		}
	}

	if raw := values[store.CustomFieldsKey]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.CustomFields); err != nil {
			return nil, fmt.Errorf("failed to decode custom fields: %w", err)
		}
	}
	return p, nil
}

// ToValues encodes p for storage. Custom fields with an empty name or value are dropped.
func ToValues(p *types.Profile) (store.Values, error) {
	values := store.Values{}
	for _, key := range types.StandardFields {
		values[key] = p.Value(key)
	}

	compacted := types.Profile{CustomFields: p.CustomFields}
	compacted.CompactCustomFields()
	raw, err := json.Marshal(compacted.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode custom fields: %w", err)
	}
	values[store.CustomFieldsKey] = string(raw)
	return values, nil
}

// Import parses a profile document, checking it against the profile schema and the
// field rules. Incomplete custom fields are dropped.
func Import(data []byte) (*types.Profile, error) {
	if err := schemas.ValidateProfile(data); err != nil {
		return nil, err
	}

	var p types.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	p.CompactCustomFields()

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid profile: %w", err)
	}
	return &p, nil
}

// Export renders p as an indented profile document.
func Export(p *types.Profile) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	return append(data, '\n'), nil
}
