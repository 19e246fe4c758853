package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/handbookflow/handbookflow/internal/config"
	"github.com/handbookflow/handbookflow/internal/gcp"
	"github.com/handbookflow/handbookflow/internal/models"
	"github.com/handbookflow/handbookflow/internal/pipeline"
	"github.com/handbookflow/handbookflow/internal/rasterize"
	"github.com/handbookflow/handbookflow/internal/services"
)

var (
	flagDPI            int
	flagWorkers        int
	flagStaleThreshold float64
	flagOCREngine      string
)

var rootCmd = &cobra.Command{
	Use:   "handbookflow",
	Short: "Convert scanned admission-handbook PDFs into validated, translated Markdown",
	Long: `handbookflow converts multi-page scanned handbook PDFs into per-page
Markdown, aggregates and classifies the result, renames each unit after the
extracted university and deadline, and maintains a derived Chinese
translation. Runs are safe to interrupt: completed work is never redone.`,
	SilenceUsage: true,
}

var convertCmd = &cobra.Command{
	Use:   "convert <pdf-dir>",
	Short: "Process every PDF in a directory into a new timestamped output root",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, cleanup, err := buildController(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		stats, outputRoot, err := ctrl.RunFresh(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		report(stats, outputRoot)
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume <output-root>",
	Short: "Re-apply the pipeline to an existing output root, redoing only missing work",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctrl, cleanup, err := buildController(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		stats, err := ctrl.Resume(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		report(stats, args[0])
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{convertCmd, resumeCmd} {
		cmd.Flags().IntVar(&flagDPI, "dpi", 0, "rasterization resolution (overrides DPI env)")
		cmd.Flags().IntVar(&flagWorkers, "workers", 0, "page-export workers (default: CPUs-1)")
		cmd.Flags().Float64Var(&flagStaleThreshold, "stale-threshold", 0, "translation staleness threshold in percent (overrides env; presets: 15, 20)")
		cmd.Flags().StringVar(&flagOCREngine, "ocr-engine", "", "recognition engine: gemini or tesseract")
	}
	rootCmd.AddCommand(convertCmd, resumeCmd)
}

// buildController loads configuration and wires the full pipeline.
func buildController(cmd *cobra.Command) (*pipeline.Controller, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cmd.Flags().Changed("dpi") {
		cfg.DPI = flagDPI
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = flagWorkers
	}
	if cmd.Flags().Changed("stale-threshold") {
		cfg.StaleThresholdPct = flagStaleThreshold
	}
	if cmd.Flags().Changed("ocr-engine") {
		cfg.OCREngine = flagOCREngine
	}

	vertexClient, err := gcp.NewVertexClient(cmd.Context(), cfg.ProjectID, cfg.VertexAIRegion, cfg.Model, cfg.OCRModel)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	cleanup := func() {
		if err := vertexClient.Close(); err != nil {
			slog.Warn("Failed to close vertex client.", "error", err)
		}
	}

	collabs := services.NewVertexCollaborators(vertexClient)
	if cfg.OCREngine == config.EngineTesseract {
		collabs.Recognizer = services.NewTesseractRecognizer(cfg.TesseractLang)
	}

	cache := pipeline.NewPageCache(collabs.Recognizer, collabs.Formatter, cfg.RetryAttempts, cfg.RetryBackoff, cfg.OCRDelay)
	orch := pipeline.NewOrchestrator(
		rasterize.New(cfg.DPI),
		cache,
		collabs.Analyzer,
		collabs.Translator,
		cfg.EffectiveWorkers(),
		cfg.StaleThresholdPct,
		cfg.RetryAttempts,
		cfg.RetryBackoff,
	)

	slog.Info("Pipeline configured.",
		"dpi", cfg.DPI,
		"workers", cfg.EffectiveWorkers(),
		"ocrEngine", cfg.OCREngine,
		"staleThresholdPct", cfg.StaleThresholdPct,
	)
	return pipeline.NewController(orch), cleanup, nil
}

func report(stats *models.RunStats, outputRoot string) {
	fmt.Println()
	fmt.Print(pipeline.Summary(stats))
	fmt.Printf("output root:         %s\n", outputRoot)
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
