// Package identity parses the structured record the analyzer model returns
// for an aggregate document and derives the canonical, filesystem-safe name
// a finished work unit is renamed to.
package identity

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/handbookflow/handbookflow/internal/models"
)

// Parse extracts an Identity from raw model output. The model is asked for
// bare JSON, but surrounding prose is tolerated: the first balanced
// brace-delimited object found in the text is the one parsed. Both fields
// must be present and non-empty.
func Parse(raw string) (*models.Identity, error) {
	jsonStr := firstJSONObject(raw)
	if jsonStr == "" {
		return nil, fmt.Errorf("no JSON object found in analyzer response")
	}

	var id models.Identity
	if err := json.Unmarshal([]byte(jsonStr), &id); err != nil {
		return nil, fmt.Errorf("failed to parse analyzer response: %w", err)
	}
	if strings.TrimSpace(id.UniversityName) == "" {
		return nil, fmt.Errorf("analyzer response missing university_name")
	}
	if strings.TrimSpace(id.ApplicationDeadline) == "" {
		return nil, fmt.Errorf("analyzer response missing application_deadline")
	}
	return &id, nil
}

// CanonicalName derives the final unit name from an extracted identity.
func CanonicalName(id *models.Identity) string {
	return Sanitize(id.UniversityName + "_" + id.ApplicationDeadline)
}

// Sanitize makes a string safe for use as a file or directory name. Path
// separators become hyphens (so dates like 2025/04/01 stay readable),
// whitespace becomes underscores, and everything outside letters, digits,
// underscore, and hyphen is stripped. Letters and digits are Unicode-aware:
// Japanese university names survive intact.
func Sanitize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == '/' || r == '\\':
			b.WriteRune('-')
		case unicode.IsSpace(r):
			b.WriteRune('_')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// firstJSONObject returns the first balanced {...} span in s, or "".
func firstJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
