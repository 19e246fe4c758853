// Package rasterize turns a source PDF into ordered page images. The PDF is
// validated and optimized first so that a malformed file fails here, before
// any external service is invoked.
package rasterize

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Rasterizer renders PDF pages at a fixed resolution.
type Rasterizer struct {
	dpi int
}

// New creates a Rasterizer rendering at the given DPI.
func New(dpi int) *Rasterizer {
	return &Rasterizer{dpi: dpi}
}

// Render returns one image per page of the document, in page order. The
// source file is left untouched; optimization happens on a temp copy.
func (r *Rasterizer) Render(ctx context.Context, pdfPath string) ([]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "handbookflow-raster-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	optimizedPath := filepath.Join(tempDir, "optimized.pdf")
	if err := optimizePDF(pdfPath, optimizedPath); err != nil {
		return nil, fmt.Errorf("failed to validate/optimize PDF %s: %w", pdfPath, err)
	}

	pageCount, err := api.PageCountFile(optimizedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF %s has no pages", pdfPath)
	}

	doc, err := fitz.New(optimizedPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF for rendering: %w", err)
	}
	defer doc.Close()

	images := make([]image.Image, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(pageNum, float64(r.dpi))
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", pageNum, err)
		}
		images = append(images, img)
	}
	return images, nil
}

// optimizePDF rewrites the PDF with relaxed validation; scanned handbooks
// are frequently produced by sloppy generators.
func optimizePDF(inPath, outPath string) error {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed
	return api.OptimizeFile(inPath, outPath, cfg)
}
