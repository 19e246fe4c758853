// Package pipeline contains the resumable per-document conversion pipeline:
// page export, per-page conversion caching, aggregation, classification,
// quarantine, and translation staleness. All state lives on the filesystem;
// the directory layout is both the durability and the resume mechanism.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/handbookflow/handbookflow/internal/identity"
	"github.com/handbookflow/handbookflow/internal/models"
	"github.com/handbookflow/handbookflow/internal/retry"
	"github.com/handbookflow/handbookflow/internal/services"
)

const (
	// ConversionLogName marks a unit whose rasterization completed. Its
	// presence is the sole signal for skipping rasterization on resume.
	ConversionLogName = "pdf2md.log"

	conversionDoneMarker = "Conversion completed"
	pageCountPrefix      = "Total pages: "

	// TranslationSuffix is appended to the canonical name for the derived
	// Chinese document.
	TranslationSuffix = "_中文"
)

// Rasterizer renders a source document into ordered page images.
type Rasterizer interface {
	Render(ctx context.Context, pdfPath string) ([]image.Image, error)
}

// UnitResult describes where one work unit ended up after a pipeline run.
type UnitResult struct {
	State    models.State
	Reason   models.QuarantineReason // set iff State is QUARANTINED
	Pages    int
	FinalDir string
}

// Renamed reports whether the unit reached its canonical name.
func (r *UnitResult) Renamed() bool {
	switch r.State {
	case models.StateRenamed, models.StateTranslationChecked, models.StateDone:
		return true
	}
	return false
}

// Orchestrator runs the per-document pipeline:
//
//	NEW → RASTERIZED → PAGES_CONVERTED → AGGREGATED → CLASSIFIED →
//	{RENAMED | QUARANTINED} → TRANSLATION_CHECKED → DONE
//
// Every stage is idempotent against the unit's on-disk state, so an
// interrupted run is resumed simply by running again.
type Orchestrator struct {
	raster     Rasterizer
	cache      *PageCache
	analyzer   services.Analyzer
	translator services.Translator

	workers           int
	staleThresholdPct float64
	retryAttempts     int
	retryBackoff      time.Duration
}

// NewOrchestrator assembles the pipeline from its stages.
func NewOrchestrator(raster Rasterizer, cache *PageCache, analyzer services.Analyzer, translator services.Translator,
	workers int, staleThresholdPct float64, retryAttempts int, retryBackoff time.Duration) *Orchestrator {
	return &Orchestrator{
		raster:            raster,
		cache:             cache,
		analyzer:          analyzer,
		translator:        translator,
		workers:           workers,
		staleThresholdPct: staleThresholdPct,
		retryAttempts:     retryAttempts,
		retryBackoff:      retryBackoff,
	}
}

// Process runs the full pipeline for one work unit. A returned error means
// the unit was left in a non-terminal state and is resumable; terminal
// outcomes (renamed or quarantined) are reported through the result.
func (o *Orchestrator) Process(ctx context.Context, pdfPath, unitDir string) (*UnitResult, error) {
	res := &UnitResult{State: models.StateNew, FinalDir: unitDir}
	log := slog.With("unit", filepath.Base(unitDir))

	// --- NEW → RASTERIZED ---
	if err := os.MkdirAll(unitDir, 0o755); err != nil {
		return res, fmt.Errorf("failed to create unit directory: %w", err)
	}
	localPDF, err := ensureSourceCopy(pdfPath, unitDir)
	if err != nil {
		return res, err
	}

	pageCount, rasterized := readConversionLog(unitDir)
	if !rasterized {
		log.Info("Rasterizing source document.")
		images, err := retry.Do(ctx, o.retryAttempts, o.retryBackoff, func() ([]image.Image, error) {
			return o.raster.Render(ctx, localPDF)
		})
		if err != nil {
			// An I/O or rendering failure is an environment problem, not a
			// content problem: leave the unit non-terminal for a future
			// resume instead of quarantining it.
			return res, fmt.Errorf("rasterization failed: %w", err)
		}
		if err := ExportPages(images, unitDir, o.workers); err != nil {
			return res, fmt.Errorf("page export failed: %w", err)
		}
		pageCount = len(images)
		if err := writeConversionLog(unitDir, localPDF, pageCount); err != nil {
			return res, err
		}
		log.Info("Rasterization complete.", "pages", pageCount)
	} else {
		log.Info("Conversion log found, skipping rasterization.", "pages", pageCount)
	}
	res.State = models.StateRasterized
	res.Pages = pageCount

	// --- RASTERIZED → PAGES_CONVERTED ---
	var agg strings.Builder
	failures := 0
	for i := 0; i < pageCount; i++ {
		content, err := o.cache.ConvertPage(ctx, unitDir, i, log)
		if err != nil {
			log.Error("Page conversion failed.", "page", i, "error", err)
			failures++
			continue
		}
		if content != "" {
			agg.WriteString(content)
			agg.WriteString("\n\n")
		}
	}
	res.State = models.StatePagesConverted

	// --- PAGES_CONVERTED → AGGREGATED ---
	if pageCount > 0 && failures == pageCount {
		log.Error("Every page failed recognition, quarantining unit.")
		return o.quarantine(res, unitDir, models.ReasonOCRFailed)
	}
	aggregate := agg.String()
	if strings.TrimSpace(aggregate) == "" {
		log.Warn("No usable content extracted, quarantining unit.")
		return o.quarantine(res, unitDir, models.ReasonNoContent)
	}
	res.State = models.StateAggregated

	// --- AGGREGATED → CLASSIFIED ---
	raw, err := retry.Do(ctx, o.retryAttempts, o.retryBackoff, func() (string, error) {
		return o.analyzer.Analyze(ctx, aggregate)
	})
	if err != nil {
		return res, fmt.Errorf("identity analysis aborted: %w", err)
	}
	id, err := identity.Parse(raw)
	if err != nil {
		log.Warn("Analyzer response not parseable, quarantining unit.", "error", err)
		return o.quarantine(res, unitDir, models.ReasonCannotAnalyze)
	}
	res.State = models.StateClassified

	// --- CLASSIFIED → RENAMED ---
	canonical := identity.CanonicalName(id)
	log = log.With("canonical", canonical)
	aggregatePath := filepath.Join(unitDir, canonical+".md")
	if err := os.WriteFile(aggregatePath, []byte(aggregate), 0o644); err != nil {
		return res, fmt.Errorf("failed to persist aggregate document: %w", err)
	}

	// The directory and source document are renamed last, so a crash
	// anywhere earlier leaves the unit resumable under its original name.
	finalDir := filepath.Join(filepath.Dir(unitDir), canonical)
	if finalDir != unitDir {
		if err := os.Rename(unitDir, finalDir); err != nil {
			return res, fmt.Errorf("failed to rename unit directory: %w", err)
		}
	}
	res.FinalDir = finalDir
	canonicalPDF := filepath.Join(finalDir, canonical+".pdf")
	movedPDF := filepath.Join(finalDir, filepath.Base(localPDF))
	if movedPDF != canonicalPDF {
		if err := os.Rename(movedPDF, canonicalPDF); err != nil {
			return res, fmt.Errorf("failed to rename source document: %w", err)
		}
	}
	res.State = models.StateRenamed
	log.Info("Unit renamed by identity.")

	// --- RENAMED → TRANSLATION_CHECKED ---
	translationPath := filepath.Join(finalDir, canonical+TranslationSuffix+".md")
	stale, delta := TranslationStale(aggregate, translationPath, o.staleThresholdPct)
	if stale {
		log.Info("Translation stale, regenerating.", "lineDeltaPct", fmt.Sprintf("%.1f", delta))
		translated, err := retry.Do(ctx, o.retryAttempts, o.retryBackoff, func() (string, error) {
			return o.translator.Translate(ctx, aggregate)
		})
		if err != nil {
			// The unit keeps its canonical name; the absent or stale
			// translation makes the staleness check fire again next run.
			return res, fmt.Errorf("translation failed: %w", err)
		}
		if err := os.WriteFile(translationPath, []byte(translated), 0o644); err != nil {
			return res, fmt.Errorf("failed to persist translation: %w", err)
		}
	} else {
		log.Info("Translation up to date.", "lineDeltaPct", fmt.Sprintf("%.1f", delta))
	}

	res.State = models.StateDone
	return res, nil
}

func (o *Orchestrator) quarantine(res *UnitResult, unitDir string, reason models.QuarantineReason) (*UnitResult, error) {
	target, err := Quarantine(unitDir, reason)
	if err != nil {
		return res, err
	}
	res.State = models.StateQuarantined
	res.Reason = reason
	res.FinalDir = target
	return res, nil
}

// ensureSourceCopy copies the source document into the unit directory if it
// is not already there, and returns the in-unit path.
func ensureSourceCopy(pdfPath, unitDir string) (string, error) {
	dest := filepath.Join(unitDir, filepath.Base(pdfPath))
	if sameFile(pdfPath, dest) {
		return dest, nil
	}
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}
	if err := copyFile(pdfPath, dest); err != nil {
		return "", fmt.Errorf("failed to copy source document into unit: %w", err)
	}
	return dest, nil
}

func sameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// readConversionLog reports whether rasterization completed for a unit and
// the page count it recorded.
func readConversionLog(unitDir string) (pages int, done bool) {
	data, err := os.ReadFile(filepath.Join(unitDir, ConversionLogName))
	if err != nil {
		return 0, false
	}
	content := string(data)
	if !strings.Contains(content, conversionDoneMarker) {
		return 0, false
	}
	for _, line := range strings.Split(content, "\n") {
		if rest, ok := strings.CutPrefix(line, pageCountPrefix); ok {
			n, err := strconv.Atoi(strings.TrimSpace(rest))
			if err == nil && n >= 0 {
				return n, true
			}
		}
	}
	// Marker present but page count unreadable: fall back to counting the
	// exported images.
	return countPageImages(unitDir), true
}

func writeConversionLog(unitDir, pdfPath string, pages int) error {
	content := fmt.Sprintf("PDF: %s\n%s%d\n%s\n", pdfPath, pageCountPrefix, pages, conversionDoneMarker)
	if err := os.WriteFile(filepath.Join(unitDir, ConversionLogName), []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write conversion log: %w", err)
	}
	return nil
}

func countPageImages(unitDir string) int {
	count := 0
	for i := 0; ; i++ {
		if _, err := os.Stat(filepath.Join(unitDir, PageImageName(i))); err != nil {
			break
		}
		count++
	}
	return count
}
