package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handbookflow/handbookflow/internal/models"
)

func TestQuarantine_RenamePreservesArtifacts(t *testing.T) {
	root := t.TempDir()
	unitDir := filepath.Join(root, "some_handbook")
	require.NoError(t, os.MkdirAll(unitDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(unitDir, "scan_0.md"), []byte("partial"), 0o644))

	target, err := Quarantine(unitDir, models.ReasonOCRFailed)
	require.NoError(t, err)
	assert.Equal(t, unitDir+"_ocr_failed", target)

	_, err = os.Stat(unitDir)
	assert.True(t, os.IsNotExist(err), "original directory must be gone")

	data, err := os.ReadFile(filepath.Join(target, "scan_0.md"))
	require.NoError(t, err)
	assert.Equal(t, "partial", string(data), "intermediate artifacts survive quarantine")
}

func TestQuarantinedReason(t *testing.T) {
	reason, ok := QuarantinedReason("hokkaido_univ_ocr_failed")
	assert.True(t, ok)
	assert.Equal(t, models.ReasonOCRFailed, reason)

	reason, ok = QuarantinedReason("tohoku_univ_no_content")
	assert.True(t, ok)
	assert.Equal(t, models.ReasonNoContent, reason)

	reason, ok = QuarantinedReason("kyoto_univ_can_not_analyze")
	assert.True(t, ok)
	assert.Equal(t, models.ReasonCannotAnalyze, reason)

	_, ok = QuarantinedReason("早稲田大学_2025-04-01")
	assert.False(t, ok)
}
