package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeImages(n int) []image.Image {
	images := make([]image.Image, n)
	for i := range images {
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		img.Set(0, 0, color.RGBA{R: uint8(i), A: 255})
		images[i] = img
	}
	return images
}

func TestExportPages_ExactlyOneFilePerImage(t *testing.T) {
	dir := t.TempDir()
	const n = 5

	err := ExportPages(makeImages(n), dir, 2)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, n)

	for i := 0; i < n; i++ {
		f, err := os.Open(filepath.Join(dir, fmt.Sprintf("scan_%d.png", i)))
		require.NoError(t, err, "page %d missing", i)
		_, err = png.Decode(f)
		f.Close()
		assert.NoError(t, err, "page %d not a valid PNG", i)
	}
}

func TestExportPages_MoreWorkersThanImages(t *testing.T) {
	dir := t.TempDir()

	err := ExportPages(makeImages(3), dir, 16)
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestExportPages_NoImages(t *testing.T) {
	assert.NoError(t, ExportPages(nil, t.TempDir(), 4))
}

func TestExportPages_PropagatesWriteFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "does-not-exist")
	err := ExportPages(makeImages(4), missing, 2)
	assert.Error(t, err)
}
