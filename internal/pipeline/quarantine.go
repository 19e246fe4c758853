package pipeline

import (
	"fmt"
	"os"
	"strings"

	"github.com/handbookflow/handbookflow/internal/models"
)

// Quarantine relocates a unit directory into its reason-coded bucket by
// appending the reason suffix to the directory name. It is always a rename,
// never a delete: every intermediate artifact stays inspectable. The new
// directory path is returned.
func Quarantine(unitDir string, reason models.QuarantineReason) (string, error) {
	target := unitDir + string(reason)
	if err := os.Rename(unitDir, target); err != nil {
		return "", fmt.Errorf("failed to quarantine %s as %s: %w", unitDir, reason, err)
	}
	return target, nil
}

// QuarantinedReason reports which bucket a directory name belongs to, if
// any. Quarantined units are never auto-retried; re-entry requires moving
// the directory back under a clean name.
func QuarantinedReason(dirName string) (models.QuarantineReason, bool) {
	for _, reason := range models.QuarantineReasons {
		if strings.HasSuffix(dirName, string(reason)) {
			return reason, true
		}
	}
	return "", false
}
