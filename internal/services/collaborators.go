// Package services defines the external collaborator contracts the pipeline
// consumes (recognition, formatting, identity analysis, translation) and
// their production implementations.
package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/handbookflow/handbookflow/internal/gcp"
)

// Recognizer extracts raw text from a single page image.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Formatter reorganizes recognized text into structured Markdown. The page
// image is passed alongside the text for layout grounding.
type Formatter interface {
	Format(ctx context.Context, text, imagePath string) (string, error)
}

// Analyzer extracts the identity record from an aggregate document. It
// returns the raw model output; parsing is the caller's concern.
type Analyzer interface {
	Analyze(ctx context.Context, aggregate string) (string, error)
}

// Translator produces the Chinese translation of an aggregate document.
type Translator interface {
	Translate(ctx context.Context, aggregate string) (string, error)
}

// Collaborators bundles one implementation of each contract.
type Collaborators struct {
	Recognizer Recognizer
	Formatter  Formatter
	Analyzer   Analyzer
	Translator Translator
}

// NewVertexCollaborators wires every contract to the pre-configured Vertex
// AI models.
func NewVertexCollaborators(client *gcp.VertexClient) *Collaborators {
	return &Collaborators{
		Recognizer: &vertexRecognizer{client: client},
		Formatter:  &vertexFormatter{client: client},
		Analyzer:   &vertexAnalyzer{client: client},
		Translator: &vertexTranslator{client: client},
	}
}

type vertexRecognizer struct {
	client *gcp.VertexClient
}

func (r *vertexRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	imagePart, err := readImagePart(imagePath)
	if err != nil {
		return "", err
	}
	text, err := generate(ctx, r.client.RecognizerModel, imagePart, genai.Text(gcp.RecognizerUserPrompt))
	if err != nil {
		return "", fmt.Errorf("recognition failed for %s: %w", imagePath, err)
	}
	if text == "" {
		return "", fmt.Errorf("recognizer extracted no text from %s", imagePath)
	}
	return text, nil
}

type vertexFormatter struct {
	client *gcp.VertexClient
}

func (f *vertexFormatter) Format(ctx context.Context, text, imagePath string) (string, error) {
	imagePart, err := readImagePart(imagePath)
	if err != nil {
		return "", err
	}
	prompt := genai.Text(fmt.Sprintf(
		"Reorganize the following OCR text into Markdown, using the attached image as the layout reference:\n\n%s", text))
	formatted, err := generate(ctx, f.client.FormatterModel, imagePart, prompt)
	if err != nil {
		return "", fmt.Errorf("formatting failed for %s: %w", imagePath, err)
	}
	return formatted, nil
}

type vertexAnalyzer struct {
	client *gcp.VertexClient
}

func (a *vertexAnalyzer) Analyze(ctx context.Context, aggregate string) (string, error) {
	prompt := genai.Text(aggregate + "\n\n" + gcp.AnalyzerUserPrompt)
	raw, err := generate(ctx, a.client.AnalyzerModel, prompt)
	if err != nil {
		return "", fmt.Errorf("identity analysis failed: %w", err)
	}
	if raw == "" {
		return "", fmt.Errorf("analyzer returned an empty response instead of JSON")
	}
	return raw, nil
}

type vertexTranslator struct {
	client *gcp.VertexClient
}

func (t *vertexTranslator) Translate(ctx context.Context, aggregate string) (string, error) {
	prompt := genai.Text(fmt.Sprintf(
		"Translate the following Japanese Markdown text into Chinese:\n\n%s\n\nReturn only the translation.", aggregate))
	translated, err := generate(ctx, t.client.TranslatorModel, prompt)
	if err != nil {
		return "", fmt.Errorf("translation failed: %w", err)
	}
	if translated == "" {
		return "", fmt.Errorf("translator returned no content")
	}
	return translated, nil
}

// refusalPhrases are checked on every model response. If the model refuses
// to answer, the call must fail rather than persist the refusal as content.
var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// generate calls the model and robustly extracts the text content.
func generate(ctx context.Context, model *genai.GenerativeModel, parts ...genai.Part) (string, error) {
	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	content := extractText(resp)

	lower := strings.ToLower(content)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return "", fmt.Errorf("gemini response indicates refusal: %q", content)
		}
	}
	return content, nil
}

// extractText concatenates the text parts of the first candidate and strips
// any code fences the model wrapped the output in.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content.WriteString(string(txt))
		}
	}

	contentStr := strings.TrimSpace(content.String())
	contentStr = strings.TrimPrefix(contentStr, "```markdown")
	contentStr = strings.TrimPrefix(contentStr, "```json")
	contentStr = strings.TrimPrefix(contentStr, "```")
	contentStr = strings.TrimSuffix(contentStr, "```")
	return strings.TrimSpace(contentStr)
}

// readImagePart loads a page image from disk as an inline image part.
func readImagePart(path string) (genai.Part, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read page image %s: %w", path, err)
	}
	return genai.ImageData("png", data), nil
}
