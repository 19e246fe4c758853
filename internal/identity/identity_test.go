package identity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handbookflow/handbookflow/internal/models"
)

func TestParse_BareJSON(t *testing.T) {
	id, err := Parse(`{"university_name": "早稲田大学", "application_deadline": "2025/04/01"}`)
	require.NoError(t, err)
	assert.Equal(t, "早稲田大学", id.UniversityName)
	assert.Equal(t, "2025/04/01", id.ApplicationDeadline)
}

func TestParse_JSONSurroundedByProse(t *testing.T) {
	raw := "Here is the extracted information:\n```json\n" +
		`{"university_name": "東京大学", "application_deadline": "2026/01/15"}` +
		"\n```\nLet me know if you need anything else."
	id, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "東京大学", id.UniversityName)
}

func TestParse_BracesInsideStrings(t *testing.T) {
	id, err := Parse(`{"university_name": "A{B}大学", "application_deadline": "2099/01/01"}`)
	require.NoError(t, err)
	assert.Equal(t, "A{B}大学", id.UniversityName)
}

func TestParse_MissingField(t *testing.T) {
	_, err := Parse(`{"university_name": "東北大学"}`)
	assert.Error(t, err)
}

func TestParse_NoJSON(t *testing.T) {
	_, err := Parse("I could not determine the university from this document.")
	assert.Error(t, err)
}

func TestCanonicalName_SafeForFilesystem(t *testing.T) {
	name := CanonicalName(&models.Identity{
		UniversityName:      "○○大学",
		ApplicationDeadline: "2025/04/01",
	})
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, "\\")
	assert.False(t, strings.ContainsAny(name, " \t\n"))
	assert.Contains(t, name, "大学")
	// The placeholder circles are symbols, not letters, so they are stripped.
	assert.Equal(t, "大学_2025-04-01", name)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "a_b-c", Sanitize("a b/c"))
	assert.Equal(t, "", Sanitize("!@#$%"))
	assert.Equal(t, "募集要項2025", Sanitize("募集要項2025"))
}
