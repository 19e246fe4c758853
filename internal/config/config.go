package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// OCR engine selection values.
const (
	EngineGemini    = "gemini"
	EngineTesseract = "tesseract"
)

// Config holds every tunable of the pipeline. It is constructed once in the
// CLI and passed explicitly into each component.
type Config struct {
	ProjectID      string
	VertexAIRegion string
	Model          string // formatter/analyzer/translator model
	OCRModel       string // recognizer model

	DPI     int
	Workers int // page-export workers; 0 means NumCPU-1, floor 1

	OCREngine     string
	TesseractLang string

	// StaleThresholdPct is the line-count-delta percentage above which a
	// translation is regenerated. 15 and 20 are the known-good presets.
	StaleThresholdPct float64

	// OCRDelay is a politeness pause after each recognition call, not a
	// correctness requirement.
	OCRDelay time.Duration

	// RetryAttempts and RetryBackoff parameterize every external call site:
	// one initial attempt plus one retry with a fixed delay.
	RetryAttempts int
	RetryBackoff  time.Duration
}

// Load builds a Config from the environment. A .env file in the working
// directory is honored when present, matching how operators run the tool.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ProjectID:         getEnv("GOOGLE_CLOUD_PROJECT_ID", ""),
		VertexAIRegion:    getEnv("VERTEX_AI_REGION", "us-central1"),
		Model:             getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
		OCRModel:          getEnv("GEMINI_OCR_MODEL", "gemini-1.5-flash"),
		DPI:               getEnvInt("DPI", 150),
		Workers:           getEnvInt("WORKERS", 0),
		OCREngine:         getEnv("OCR_ENGINE", EngineGemini),
		TesseractLang:     getEnv("TESSERACT_LANG", "jpn+eng"),
		StaleThresholdPct: getEnvFloat("STALE_THRESHOLD_PCT", 15),
		OCRDelay:          time.Duration(getEnvInt("OCR_DELAY_MS", 500)) * time.Millisecond,
		RetryAttempts:     2,
		RetryBackoff:      time.Duration(getEnvInt("RETRY_BACKOFF_MS", 2000)) * time.Millisecond,
	}

	if cfg.OCREngine != EngineGemini && cfg.OCREngine != EngineTesseract {
		return nil, fmt.Errorf("unsupported OCR_ENGINE %q", cfg.OCREngine)
	}
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID environment variable must be set")
	}
	if cfg.DPI <= 0 {
		return nil, fmt.Errorf("DPI must be positive, got %d", cfg.DPI)
	}
	if cfg.StaleThresholdPct < 0 || cfg.StaleThresholdPct > 100 {
		return nil, fmt.Errorf("STALE_THRESHOLD_PCT must be within [0,100], got %g", cfg.StaleThresholdPct)
	}
	return cfg, nil
}

// EffectiveWorkers resolves the worker bound: available parallelism minus
// one, never below one.
func (c *Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}
