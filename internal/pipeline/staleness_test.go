package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linesDoc(n int) string {
	return strings.Repeat("line\n", n)
}

func TestTranslationStale_AbsentIsStale(t *testing.T) {
	stale, _ := TranslationStale(linesDoc(10), filepath.Join(t.TempDir(), "missing.md"), 15)
	assert.True(t, stale)
}

func TestTranslationStale_DeltaAboveThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zh.md")
	require.NoError(t, os.WriteFile(path, []byte(linesDoc(80)), 0o644))

	stale, delta := TranslationStale(linesDoc(100), path, 15)
	assert.True(t, stale)
	assert.InDelta(t, 20.0, delta, 0.01)
}

func TestTranslationStale_DeltaWithinThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zh.md")
	require.NoError(t, os.WriteFile(path, []byte(linesDoc(88)), 0o644))

	stale, delta := TranslationStale(linesDoc(100), path, 15)
	assert.False(t, stale)
	assert.InDelta(t, 12.0, delta, 0.01)
}

func TestTranslationStale_HigherPresetTolerates20Percent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zh.md")
	require.NoError(t, os.WriteFile(path, []byte(linesDoc(80)), 0o644))

	stale, _ := TranslationStale(linesDoc(100), path, 20)
	assert.False(t, stale, "exactly at the threshold is not stale")
}

func TestLineDeltaPct_BothEmpty(t *testing.T) {
	assert.Zero(t, LineDeltaPct(0, 0))
}

func TestCountNonBlankLines(t *testing.T) {
	assert.Equal(t, 3, CountNonBlankLines("a\n\n  \nb\n\tc\n\n"))
	assert.Zero(t, CountNonBlankLines(""))
}
