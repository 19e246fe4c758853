package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/handbookflow/handbookflow/internal/models"
	"github.com/handbookflow/handbookflow/internal/retry"
	"github.com/handbookflow/handbookflow/internal/services"
)

// PageCache is the per-page idempotency layer. A page is (re-)converted iff
// its persisted artifact is absent or empty after trimming; a present,
// non-empty artifact is trusted without re-invoking external services.
type PageCache struct {
	recognizer services.Recognizer
	formatter  services.Formatter

	retryAttempts int
	retryBackoff  time.Duration
	ocrDelay      time.Duration
}

// NewPageCache wires the cache to its recognize and format collaborators.
func NewPageCache(recognizer services.Recognizer, formatter services.Formatter, retryAttempts int, retryBackoff, ocrDelay time.Duration) *PageCache {
	return &PageCache{
		recognizer:    recognizer,
		formatter:     formatter,
		retryAttempts: retryAttempts,
		retryBackoff:  retryBackoff,
		ocrDelay:      ocrDelay,
	}
}

// ConvertPage produces the content of one page of a unit, reusing the
// persisted artifact when possible. The returned content is "" for pages
// that processed successfully but contribute nothing (the empty-page
// sentinel); a non-nil error means the page failed and was left absent, so
// the next run retries it.
func (c *PageCache) ConvertPage(ctx context.Context, unitDir string, index int, log *slog.Logger) (string, error) {
	artifactPath := filepath.Join(unitDir, PageArtifactName(index))
	imagePath := filepath.Join(unitDir, PageImageName(index))

	// --- 1. Reuse a valid persisted artifact ---
	if data, err := os.ReadFile(artifactPath); err == nil {
		content := strings.TrimSpace(string(data))
		if content == models.EmptyPageSentinel {
			log.Debug("Reusing existing artifact (empty page).", "page", index)
			return "", nil
		}
		if content != "" {
			log.Debug("Reusing existing artifact.", "page", index)
			return content, nil
		}
		// Present but empty: delete and treat as absent.
		log.Info("Deleting empty page artifact.", "page", index)
		if err := os.Remove(artifactPath); err != nil {
			return "", fmt.Errorf("failed to remove empty artifact for page %d: %w", index, err)
		}
	}

	// --- 2. Recognize ---
	text, err := retry.Do(ctx, c.retryAttempts, c.retryBackoff, func() (string, error) {
		return c.recognizer.Recognize(ctx, imagePath)
	})
	c.pause(ctx)
	if err != nil {
		c.discardPartial(artifactPath)
		return "", fmt.Errorf("page %d: %w", index, err)
	}
	if strings.TrimSpace(text) == models.EmptyPageSentinel {
		return "", c.persist(artifactPath, models.EmptyPageSentinel, index)
	}

	// --- 3. Format, with the image for layout grounding ---
	formatted, err := retry.Do(ctx, c.retryAttempts, c.retryBackoff, func() (string, error) {
		return c.formatter.Format(ctx, text, imagePath)
	})
	if err != nil {
		c.discardPartial(artifactPath)
		return "", fmt.Errorf("page %d: %w", index, err)
	}

	formatted = strings.TrimSpace(formatted)
	if formatted == models.EmptyPageSentinel {
		return "", c.persist(artifactPath, models.EmptyPageSentinel, index)
	}
	if formatted == "" {
		c.discardPartial(artifactPath)
		return "", fmt.Errorf("page %d: formatter returned no content", index)
	}

	if err := c.persist(artifactPath, formatted, index); err != nil {
		return "", err
	}
	return formatted, nil
}

// persist writes an artifact; a persisted artifact is what makes the page
// skippable on the next run.
func (c *PageCache) persist(path, content string, index int) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to persist artifact for page %d: %w", index, err)
	}
	return nil
}

// discardPartial removes any half-written artifact so the page reads as
// absent, and therefore retry-eligible, on the next run.
func (c *PageCache) discardPartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to remove partial page artifact.", "path", path, "error", err)
	}
}

// pause is the politeness delay after a recognition call.
func (c *PageCache) pause(ctx context.Context) {
	if c.ocrDelay <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.ocrDelay):
	}
}
