package matching

import (
	"fmt"
	"os"

	"github.com/jonathan/form-autofill/internal/types"
	"gopkg.in/yaml.v3"
)

// builtinAliases holds the alias phrases for each standard field, in matching order.
// Broad phrases such as "name" and "year" sit next to specific ones on purpose: the
// matcher stops at the first field with any hit, so field order decides ambiguity.
var builtinAliases = map[string][]string{
	types.FieldFullName:       {"full name", "name", "your name", "full_name", "fullname", "applicant name", "candidate name"},
	types.FieldEmail:          {"email", "e-mail", "email address", "e mail", "mail", "your email"},
	types.FieldPhone:          {"phone", "telephone", "mobile", "phone number", "contact", "contact number", "mobile number", "cell"},
	types.FieldUniversity:     {"university", "college", "institution", "school", "university name", "alma mater", "educational institution"},
	types.FieldDepartment:     {"department", "major", "field of study", "program", "degree", "subject", "specialization", "dept", "discipline"},
	types.FieldCGPA:           {"cgpa", "gpa", "grade", "marks", "score", "cumulative gpa", "academic score"},
	types.FieldGraduationYear: {"graduation", "year", "graduation year", "passing year", "completion year", "grad year", "year of graduation"},
	types.FieldAddress:        {"address", "location", "residence", "home address", "full address", "street address", "residential address"},
	types.FieldLinkedIn:       {"linkedin", "linked in", "linkedin profile", "linkedin url"},
	types.FieldGitHub:         {"github", "git hub", "github profile", "github url"},
}

// AliasOverlay carries extra alias phrases for standard fields, loaded from YAML:
//
//	aliases:
//	  phone: [whatsapp, "mobile no"]
//	  github: [gitlab]
type AliasOverlay struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// LoadAliasOverlay reads an alias overlay file. Only standard field keys may be extended.
func LoadAliasOverlay(path string) (*AliasOverlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read alias file %s: %w", path, err)
	}

	var overlay AliasOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("failed to parse alias file %s: %w", path, err)
	}

	for key, aliases := range overlay.Aliases {
		if !types.IsStandardField(key) {
			return nil, fmt.Errorf("alias file %s: unknown field %q", path, key)
		}
		for _, alias := range aliases {
			if Normalize(alias) == "" {
				return nil, fmt.Errorf("alias file %s: empty alias for field %q", path, key)
			}
		}
	}

	return &overlay, nil
}
