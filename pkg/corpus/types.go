// Package corpus provides public types shared by the corpus cleaning pipeline.
// This package is intended to be importable by external projects that drive
// the cleaner programmatically or consume its run reports.
package corpus

import "time"

// Run status values.
const (
	StatusSuccess   = "success"
	StatusPartial   = "partial"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// Record is one decoded line of corpus input.
// It keeps the original line bytes next to the decoded tree so that an
// admitted record can be re-emitted without reordering keys or reformatting
// numbers. A Record is never mutated once decoded.
type Record struct {
	raw   []byte
	value interface{}
}

// NewRecord wraps a decoded value and the line it was decoded from.
// The caller must not modify raw afterwards.
func NewRecord(raw []byte, value interface{}) Record {
	return Record{raw: raw, value: value}
}

// Raw returns the line the record was decoded from.
func (r Record) Raw() []byte {
	return r.raw
}

// Value returns the decoded tree: nil, bool, json.Number, string,
// []interface{} or map[string]interface{}.
func (r Record) Value() interface{} {
	return r.value
}

// Object returns the record as a JSON object, if it is one.
func (r Record) Object() (map[string]interface{}, bool) {
	m, ok := r.value.(map[string]interface{})
	return m, ok
}

// FilterConfig describes one stage of the filter chain.
type FilterConfig struct {
	// Type identifies the filter (e.g. "status", "spam", "condition")
	Type string `json:"type" yaml:"type"`

	// Config contains the filter-specific parameters
	Config map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}

// FileOutcome is the result of streaming one input file through the pipeline.
type FileOutcome struct {
	// Input is the path of the input file
	Input string `json:"input"`

	// Output is the path of the output file (empty if it was never created)
	Output string `json:"output,omitempty"`

	// Admitted is the number of records written to the output
	Admitted int `json:"admitted"`

	// LinesRead is the number of lines read from the input, blank lines included
	LinesRead int `json:"linesRead"`

	// Blank is the number of empty or whitespace-only lines
	Blank int `json:"blank"`

	// Malformed is the number of lines that could not be decoded
	Malformed int `json:"malformed"`

	// Filtered is the number of records dropped by the filter chain
	Filtered int `json:"filtered"`

	// MissingIdentity is the number of records without a usable identity
	MissingIdentity int `json:"missingIdentity"`

	// Duplicates is the number of records whose identity was already claimed
	Duplicates int `json:"duplicates"`

	// Duration is the wall time spent on the file
	Duration time.Duration `json:"duration"`

	// Error describes why the file failed, if it did
	Error string `json:"error,omitempty"`

	// Cancelled is set when the run was cancelled before the file started
	Cancelled bool `json:"cancelled,omitempty"`
}

// Failed reports whether the file could not be processed.
func (o FileOutcome) Failed() bool {
	return o.Error != ""
}

// RunResult aggregates the outcomes of one cleaning run.
type RunResult struct {
	// RunID uniquely identifies the run in logs and reports
	RunID string `json:"runId"`

	// Status is the run status ("success", "partial", "error", "cancelled")
	Status string `json:"status"`

	// StartedAt is when processing started
	StartedAt time.Time `json:"startedAt"`

	// CompletedAt is when the last file finished
	CompletedAt time.Time `json:"completedAt"`

	// Elapsed is the wall time of the run
	Elapsed time.Duration `json:"elapsed"`

	// Workers is the effective worker pool size
	Workers int `json:"workers"`

	// TotalFiles is the number of discovered input files
	TotalFiles int `json:"totalFiles"`

	// FailedFiles is the number of files that could not be processed
	FailedFiles int `json:"failedFiles"`

	// TotalAdmitted is the number of records admitted across all files
	TotalAdmitted int `json:"totalAdmitted"`

	// DistinctIdentities is the size of the seen-set at the end of the run
	DistinctIdentities int `json:"distinctIdentities"`

	// Files holds one outcome per input file, in discovery order
	Files []FileOutcome `json:"files"`
}
