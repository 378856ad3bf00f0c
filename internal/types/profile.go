// Package types provides type definitions for structured data used throughout the form-autofill system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Standard profile field keys. The order of StandardFields is the order in which the
// matcher tries them, so it is part of the observable matching behavior.
const (
	FieldFullName       = "fullName"
	FieldEmail          = "email"
	FieldPhone          = "phone"
	FieldUniversity     = "university"
	FieldDepartment     = "department"
	FieldCGPA           = "cgpa"
	FieldGraduationYear = "graduationYear"
	FieldAddress        = "address"
	FieldLinkedIn       = "linkedIn"
	FieldGitHub         = "github"
)

// StandardFields lists the standard profile keys in declaration order.
var StandardFields = []string{
	FieldFullName,
	FieldEmail,
	FieldPhone,
	FieldUniversity,
	FieldDepartment,
	FieldCGPA,
	FieldGraduationYear,
	FieldAddress,
	FieldLinkedIn,
	FieldGitHub,
}

// IsStandardField reports whether key is one of the standard profile keys.
func IsStandardField(key string) bool {
	for _, f := range StandardFields {
		if f == key {
			return true
		}
	}
	return false
}

// CustomField is a user-defined profile entry. Name is both the display label and,
// lower-cased, the alias used to recognize the field on a form.
type CustomField struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value" validate:"required"`
}

// Profile holds the values used to fill forms.
type Profile struct {
	FullName       string        `json:"fullName,omitempty"`
	Email          string        `json:"email,omitempty" validate:"omitempty,email"`
	Phone          string        `json:"phone,omitempty"`
	University     string        `json:"university,omitempty"`
	Department     string        `json:"department,omitempty"`
	CGPA           string        `json:"cgpa,omitempty"`
	GraduationYear string        `json:"graduationYear,omitempty" validate:"omitempty,numeric"`
	Address        string        `json:"address,omitempty"`
	LinkedIn       string        `json:"linkedIn,omitempty"`
	GitHub         string        `json:"github,omitempty"`
	CustomFields   []CustomField `json:"customFields,omitempty" validate:"dive"`
}

// Value returns the standard value stored under key, or "" for unknown keys.
func (p *Profile) Value(key string) string {
	switch key {
	case FieldFullName:
		return p.FullName
	case FieldEmail:
		return p.Email
	case FieldPhone:
		return p.Phone
	case FieldUniversity:
		return p.University
	case FieldDepartment:
		return p.Department
	case FieldCGPA:
		return p.CGPA
	case FieldGraduationYear:
		return p.GraduationYear
	case FieldAddress:
		return p.Address
	case FieldLinkedIn:
		return p.LinkedIn
	case FieldGitHub:
		return p.GitHub
	default:
		return ""
	}
}

// SetValue stores value under a standard key.
func (p *Profile) SetValue(key, value string) error {
	switch key {
	case FieldFullName:
		p.FullName = value
	case FieldEmail:
		p.Email = value
	case FieldPhone:
		p.Phone = value
	case FieldUniversity:
		p.University = value
	case FieldDepartment:
		p.Department = value
	case FieldCGPA:
		p.CGPA = value
	case FieldGraduationYear:
		p.GraduationYear = value
	case FieldAddress:
		p.Address = value
	case FieldLinkedIn:
		p.LinkedIn = value
	case FieldGitHub:
		p.GitHub = value
	default:
		return fmt.Errorf("unknown profile field %q", key)
	}
	return nil
}

// CustomValue returns the value of the first custom field whose name equals name exactly.
// Duplicate names resolve first-match-wins.
func (p *Profile) CustomValue(name string) (string, bool) {
	for _, f := range p.CustomFields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// SetCustomField updates the first custom field named name, or appends a new one.
func (p *Profile) SetCustomField(name, value string) {
	for i := range p.CustomFields {
		if p.CustomFields[i].Name == name {
			p.CustomFields[i].Value = value
			return
		}
	}
	p.CustomFields = append(p.CustomFields, CustomField{Name: name, Value: value})
}

// RemoveCustomField deletes every custom field named name and reports whether any existed.
func (p *Profile) RemoveCustomField(name string) bool {
	kept := p.CustomFields[:0]
	removed := false
	for _, f := range p.CustomFields {
		if f.Name == name {
			removed = true
			continue
		}
		kept = append(kept, f)
	}
	p.CustomFields = kept
	return removed
}

// CompactCustomFields drops custom fields with an empty name or value, keeping order.
// This mirrors what the settings form persists: half-filled rows are never saved.
func (p *Profile) CompactCustomFields() {
	kept := make([]CustomField, 0, len(p.CustomFields))
	for _, f := range p.CustomFields {
		if f.Name == "" || f.Value == "" {
			continue
		}
		kept = append(kept, f)
	}
	p.CustomFields = kept
}

// Validate validates the Profile using the validator.
func (p *Profile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}
