package pipeline

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
)

// fakeRecognizer maps page-image file names to recognized text. Unmapped
// pages get a deterministic placeholder.
type fakeRecognizer struct {
	texts map[string]string
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(_ context.Context, imagePath string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	base := filepath.Base(imagePath)
	if text, ok := f.texts[base]; ok {
		return text, nil
	}
	return "text of " + base, nil
}

// fakeFormatter applies formatFn, defaulting to passthrough.
type fakeFormatter struct {
	formatFn func(text string) (string, error)
	calls    int
}

func (f *fakeFormatter) Format(_ context.Context, text, _ string) (string, error) {
	f.calls++
	if f.formatFn != nil {
		return f.formatFn(text)
	}
	return text, nil
}

// fakeAnalyzer returns a fixed response.
type fakeAnalyzer struct {
	response string
	err      error
	calls    int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.response, f.err
}

// fakeTranslator echoes the aggregate by default, so a freshly generated
// translation has a zero line delta.
type fakeTranslator struct {
	translateFn func(aggregate string) (string, error)
	calls       int
}

func (f *fakeTranslator) Translate(_ context.Context, aggregate string) (string, error) {
	f.calls++
	if f.translateFn != nil {
		return f.translateFn(aggregate)
	}
	return aggregate, nil
}

// fakeRaster produces n tiny page images.
type fakeRaster struct {
	pages int
	err   error
	calls int
}

func (f *fakeRaster) Render(_ context.Context, _ string) ([]image.Image, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return makeImages(f.pages), nil
}

// identityJSON builds a valid analyzer response.
func identityJSON(name, deadline string) string {
	return fmt.Sprintf(`{"university_name": %q, "application_deadline": %q}`, name, deadline)
}
