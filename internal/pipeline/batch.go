package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/handbookflow/handbookflow/internal/identity"
	"github.com/handbookflow/handbookflow/internal/models"
)

// Controller iterates a set of work units strictly sequentially, invoking
// the orchestrator per unit and aggregating run statistics. Stage errors
// never abort the iteration over remaining units.
type Controller struct {
	orch *Orchestrator
}

// NewController creates a batch controller around an orchestrator.
func NewController(orch *Orchestrator) *Controller {
	return &Controller{orch: orch}
}

type unitSpec struct {
	pdfPath string
	unitDir string
}

// RunFresh enumerates source documents in pdfDir and processes each into a
// new timestamped output root, whose path is returned with the stats.
func (c *Controller) RunFresh(ctx context.Context, pdfDir string) (*models.RunStats, string, error) {
	docs, err := DiscoverInputs(pdfDir)
	if err != nil {
		return nil, "", err
	}
	if len(docs) == 0 {
		return nil, "", fmt.Errorf("no PDF documents found in %s", pdfDir)
	}

	outputRoot := fmt.Sprintf("pdf_with_md_%s", time.Now().Format("20060102_150405"))
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create output root: %w", err)
	}
	slog.Info("Starting fresh run.", "documents", len(docs), "outputRoot", outputRoot)

	units := make([]unitSpec, 0, len(docs))
	for _, doc := range docs {
		units = append(units, unitSpec{
			pdfPath: doc.Path,
			unitDir: filepath.Join(outputRoot, doc.ID),
		})
	}

	stats := c.run(ctx, units)
	return stats, outputRoot, nil
}

// Resume treats each first-level subdirectory of an existing output root as
// a work unit and re-applies the pipeline to it. Quarantined units are not
// retried; subdirectories without a source document are skipped with a
// notice.
func (c *Controller) Resume(ctx context.Context, outputRoot string) (*models.RunStats, error) {
	entries, err := os.ReadDir(outputRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read output root %s: %w", outputRoot, err)
	}

	stats := models.NewRunStats()
	var units []unitSpec
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		unitDir := filepath.Join(outputRoot, entry.Name())

		if reason, ok := QuarantinedReason(entry.Name()); ok {
			slog.Info("Skipping quarantined unit.", "unit", entry.Name(), "reason", reason)
			stats.Quarantined[reason]++
			continue
		}

		pdfPath, err := findSourceDocument(unitDir)
		if err != nil {
			slog.Warn("No source document found in unit, skipping.", "unit", entry.Name())
			stats.Skipped++
			continue
		}
		units = append(units, unitSpec{pdfPath: pdfPath, unitDir: unitDir})
	}

	slog.Info("Resuming run.", "units", len(units), "outputRoot", outputRoot)
	resumed := c.run(ctx, units)
	resumed.Skipped += stats.Skipped
	for reason, n := range stats.Quarantined {
		resumed.Quarantined[reason] += n
	}
	return resumed, nil
}

func (c *Controller) run(ctx context.Context, units []unitSpec) *models.RunStats {
	stats := models.NewRunStats()
	bar := progressbar.Default(int64(len(units)), "processing units")

	for _, unit := range units {
		stats.Documents++
		res, err := c.orch.Process(ctx, unit.pdfPath, unit.unitDir)
		stats.Pages += res.Pages
		switch {
		case err != nil:
			slog.Error("Unit left incomplete.", "unit", filepath.Base(unit.unitDir), "state", res.State, "error", err)
			stats.Incomplete++
		case res.State == models.StateQuarantined:
			stats.Quarantined[res.Reason]++
		case res.Renamed():
			stats.Renamed++
		}
		_ = bar.Add(1)

		if ctx.Err() != nil {
			// Interrupted: remaining units stay untouched and resumable.
			break
		}
	}
	_ = bar.Finish()
	return stats
}

// DiscoverInputs lists the source documents of a directory in stable order.
func DiscoverInputs(pdfDir string) ([]models.InputDocument, error) {
	matches, err := filepath.Glob(filepath.Join(pdfDir, "*.pdf"))
	if err != nil {
		return nil, fmt.Errorf("failed to list PDFs in %s: %w", pdfDir, err)
	}
	sort.Strings(matches)

	docs := make([]models.InputDocument, 0, len(matches))
	for _, path := range matches {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		docs = append(docs, models.InputDocument{
			Path: path,
			ID:   identity.Sanitize(base),
		})
	}
	return docs, nil
}

// findSourceDocument returns the first PDF inside a unit directory.
func findSourceDocument(unitDir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(unitDir, "*.pdf"))
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("no source document in %s", unitDir)
	}
	sort.Strings(matches)
	return matches[0], nil
}

// Summary renders the end-of-run report.
func Summary(stats *models.RunStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "documents processed: %d\n", stats.Documents)
	fmt.Fprintf(&b, "pages converted:     %d\n", stats.Pages)
	fmt.Fprintf(&b, "valid units:         %d\n", stats.Renamed)
	for _, reason := range models.QuarantineReasons {
		if n := stats.Quarantined[reason]; n > 0 {
			fmt.Fprintf(&b, "quarantined %s: %d\n", reason, n)
		}
	}
	if stats.Incomplete > 0 {
		fmt.Fprintf(&b, "incomplete units:    %d\n", stats.Incomplete)
	}
	if stats.Skipped > 0 {
		fmt.Fprintf(&b, "skipped (no source): %d\n", stats.Skipped)
	}
	return b.String()
}
