package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/handbookflow/handbookflow/internal/models"
)

// TesseractRecognizer is an offline Recognizer backed by a local tesseract
// installation. It is not safe for concurrent use, which is fine: the
// pipeline converts pages strictly sequentially.
type TesseractRecognizer struct {
	languages []string
}

// NewTesseractRecognizer creates a recognizer for the given languages
// (e.g. "jpn+eng").
func NewTesseractRecognizer(lang string) *TesseractRecognizer {
	languages := strings.Split(lang, "+")
	if len(languages) == 0 {
		languages = []string{"jpn", "eng"}
	}
	return &TesseractRecognizer{languages: languages}
}

// Recognize runs tesseract over the page image. A page with no recognizable
// text is a valid empty page, not a failure, so it maps to the sentinel.
func (r *TesseractRecognizer) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(r.languages...); err != nil {
		return "", fmt.Errorf("failed to set tesseract languages: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("failed to load image %s into tesseract: %w", imagePath, err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract recognition failed for %s: %w", imagePath, err)
	}
	if strings.TrimSpace(text) == "" {
		return models.EmptyPageSentinel, nil
	}
	return text, nil
}
