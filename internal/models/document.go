package models

// EmptyPageSentinel is what the recognizer or formatter returns for a page
// that was processed successfully but intentionally has nothing to extract
// (blank page, pure imagery). It is persisted to the page artifact so the
// page is never retried, but it contributes nothing to the aggregate.
const EmptyPageSentinel = "EMPTY_PAGE"

// State tracks how far a work unit has progressed through the pipeline.
type State string

const (
	StateNew                State = "NEW"
	StateRasterized         State = "RASTERIZED"
	StatePagesConverted     State = "PAGES_CONVERTED"
	StateAggregated         State = "AGGREGATED"
	StateClassified         State = "CLASSIFIED"
	StateRenamed            State = "RENAMED"
	StateQuarantined        State = "QUARANTINED"
	StateTranslationChecked State = "TRANSLATION_CHECKED"
	StateDone               State = "DONE"
)

// QuarantineReason is the directory-name suffix a terminally failed unit is
// relocated under. The suffix itself is the whole quarantine record.
type QuarantineReason string

const (
	ReasonOCRFailed     QuarantineReason = "_ocr_failed"
	ReasonNoContent     QuarantineReason = "_no_content"
	ReasonCannotAnalyze QuarantineReason = "_can_not_analyze"
)

// QuarantineReasons lists every recognized bucket suffix.
var QuarantineReasons = []QuarantineReason{ReasonOCRFailed, ReasonNoContent, ReasonCannotAnalyze}

// InputDocument is a source PDF discovered by the batch controller.
type InputDocument struct {
	Path string
	ID   string // sanitized base name, used as the initial unit directory name
}

// Identity is the record extracted from an aggregate document. Both fields
// are required; the deadline uses YYYY/MM/DD with 2099/01/01 as the
// model-side fallback when no deadline can be determined.
type Identity struct {
	UniversityName      string `json:"university_name"`
	ApplicationDeadline string `json:"application_deadline"`
}

// RunStats is the end-of-run summary for one batch invocation.
type RunStats struct {
	Documents   int
	Pages       int
	Renamed     int
	Incomplete  int
	Skipped     int
	Quarantined map[QuarantineReason]int
}

// NewRunStats returns a RunStats with the quarantine map initialized.
func NewRunStats() *RunStats {
	return &RunStats{Quarantined: make(map[QuarantineReason]int)}
}
