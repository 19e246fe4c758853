package pipeline

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// PageImageName returns the on-disk name of the image for a page index.
func PageImageName(index int) string {
	return fmt.Sprintf("scan_%d.png", index)
}

// PageArtifactName returns the on-disk name of the converted artifact for a
// page index.
func PageArtifactName(index int) string {
	return fmt.Sprintf("scan_%d.md", index)
}

// ExportPages writes every page image into dir using a pool of workers.
// The images are split into contiguous chunks of size ceil(N/workers); each
// worker writes its chunk under the page's global index, so writers never
// touch the same file and the global order is recoverable from the names
// regardless of write order.
//
// All workers run to completion before any failure is reported: a partial
// export is self-correcting, because the caller only records rasterization
// as complete after a clean return.
func ExportPages(images []image.Image, dir string, workers int) error {
	total := len(images)
	if total == 0 {
		return nil
	}
	if workers < 1 {
		workers = 1
	}
	if workers > total {
		workers = total
	}

	chunkSize := (total + workers - 1) / workers

	// A plain errgroup (no context) gives join-all semantics: a failing
	// worker does not cancel its siblings.
	var g errgroup.Group
	for start := 0; start < total; start += chunkSize {
		end := start + chunkSize
		if end > total {
			end = total
		}
		chunk := images[start:end]
		base := start
		g.Go(func() error {
			for i, img := range chunk {
				if err := writePNG(filepath.Join(dir, PageImageName(base+i)), img); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create page image %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode page image %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to finalize page image %s: %w", path, err)
	}
	return nil
}
