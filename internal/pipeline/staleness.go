package pipeline

import (
	"os"
	"strings"
)

// TranslationStale reports whether a derived translation no longer
// represents the aggregate it was computed from. An absent translation is
// always stale. Otherwise the non-blank line counts of both documents are
// compared: line-count parity is a cheap, format-agnostic proxy for "the
// translation still covers the same structural content", catching gross
// truncation, duplication, or a failed partial regeneration without content
// diffing.
func TranslationStale(aggregate string, translationPath string, thresholdPct float64) (bool, float64) {
	data, err := os.ReadFile(translationPath)
	if err != nil {
		return true, 100
	}
	delta := LineDeltaPct(CountNonBlankLines(aggregate), CountNonBlankLines(string(data)))
	return delta > thresholdPct, delta
}

// LineDeltaPct is the relative line-count difference between two documents,
// as a percentage of the larger count.
func LineDeltaPct(aggregateLines, derivedLines int) float64 {
	diff := aggregateLines - derivedLines
	if diff < 0 {
		diff = -diff
	}
	max := aggregateLines
	if derivedLines > max {
		max = derivedLines
	}
	if max < 1 {
		max = 1
	}
	return float64(diff) / float64(max) * 100
}

// CountNonBlankLines counts lines containing anything but whitespace.
func CountNonBlankLines(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
