package services

import (
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
)

func responseWith(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: parts}},
		},
	}
}

func TestExtractText_StripsCodeFences(t *testing.T) {
	resp := responseWith(genai.Text("```markdown\n# Heading\n\nBody text.\n```"))
	assert.Equal(t, "# Heading\n\nBody text.", extractText(resp))
}

func TestExtractText_ConcatenatesTextParts(t *testing.T) {
	resp := responseWith(genai.Text("first "), genai.Text("second"))
	assert.Equal(t, "first second", extractText(resp))
}

func TestExtractText_EmptyResponse(t *testing.T) {
	assert.Empty(t, extractText(nil))
	assert.Empty(t, extractText(&genai.GenerateContentResponse{}))
}

func TestExtractText_JSONFence(t *testing.T) {
	resp := responseWith(genai.Text("```json\n{\"a\": 1}\n```"))
	assert.Equal(t, `{"a": 1}`, extractText(resp))
}
