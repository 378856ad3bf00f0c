package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonathan/form-autofill/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileCommands_RoundTrip(t *testing.T) {
	store := tempStore(t)
	run := func(args ...string) (string, error) {
		out, _, err := execute(t, append(args, store...)...)
		return out, err
	}

	_, err := run("profile", "set", "fullName", "Jane Doe")
	require.NoError(t, err)
	_, err = run("profile", "set", "email", "jane@x.com")
	require.NoError(t, err)
	_, err = run("profile", "add-field", "Favorite Color", "teal")
	require.NoError(t, err)

	out, err := run("profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "PROFILE")
	assert.Contains(t, out, "Jane Doe")
	assert.Contains(t, out, "Favorite Color")

	out, err = run("profile", "export")
	require.NoError(t, err)
	var exported types.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &exported))
	assert.Equal(t, "Jane Doe", exported.FullName)
	assert.Equal(t, "jane@x.com", exported.Email)
	assert.Equal(t, []types.CustomField{{Name: "Favorite Color", Value: "teal"}}, exported.CustomFields)

	_, err = run("profile", "remove-field", "Favorite Color")
	require.NoError(t, err)
	_, err = run("profile", "remove-field", "Favorite Color")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no custom field")

	_, err = run("profile", "set", "fullName", "")
	require.NoError(t, err)
	out, err = run("profile", "export")
	require.NoError(t, err)
	var cleared types.Profile
	require.NoError(t, json.Unmarshal([]byte(out), &cleared))
	assert.Empty(t, cleared.FullName)
	assert.Equal(t, "jane@x.com", cleared.Email)
	assert.Empty(t, cleared.CustomFields)
}

func TestProfileSet_Errors(t *testing.T) {
	store := tempStore(t)

	_, _, err := execute(t, append([]string{"profile", "set", "favorite_color", "teal"}, store...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown profile field")

	_, _, err = execute(t, append([]string{"profile", "set", "email", "not-an-email"}, store...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid profile")

	_, _, err = execute(t, append([]string{"profile", "set", "fullName"}, store...)...)
	require.Error(t, err)
}

func TestProfileImportExport(t *testing.T) {
	store := tempStore(t)
	dir := t.TempDir()

	in := filepath.Join(dir, "profile.json")
	require.NoError(t, os.WriteFile(in, []byte(`{
		"fullName": "Jane Doe",
		"graduationYear": "2024",
		"customFields": [{"name": "Pronouns", "value": "she/her"}, {"name": "", "value": "dropped"}]
	}`), 0644))

	_, _, err := execute(t, append([]string{"profile", "import", in}, store...)...)
	require.NoError(t, err)

	out := filepath.Join(dir, "export.json")
	_, _, err = execute(t, append([]string{"profile", "export", "--out", out}, store...)...)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var exported types.Profile
	require.NoError(t, json.Unmarshal(data, &exported))
	assert.Equal(t, "Jane Doe", exported.FullName)
	assert.Equal(t, "2024", exported.GraduationYear)
	assert.Equal(t, []types.CustomField{{Name: "Pronouns", Value: "she/her"}}, exported.CustomFields)
}

func TestProfileImport_RejectsInvalidDocument(t *testing.T) {
	store := tempStore(t)
	in := filepath.Join(t.TempDir(), "profile.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"fullName": "Jane", "shoeSize": "42"}`), 0644))

	_, _, err := execute(t, append([]string{"profile", "import", in}, store...)...)
	require.Error(t, err)
}

func TestProfileSchema(t *testing.T) {
	out, _, err := execute(t, append([]string{"profile", "schema"}, tempStore(t)...)...)
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &schema))
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Contains(t, schema["properties"], "customFields")
}
