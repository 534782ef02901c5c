// Package report publishes the outcome of a cleaning run.
//
// Progress is printed per finished file while the run is in flight; the final
// RunResult is handed to one or more Reporters (JSON file, ClickHouse) once
// the run is over. A failing reporter never changes the run's outcome.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"

	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// Reporter receives the final result of a run.
type Reporter interface {
	Report(ctx context.Context, result *corpus.RunResult) error
	Close() error
}

// Multi fans a result out to several reporters. Every reporter is called even
// when an earlier one fails; the errors are joined.
type Multi []Reporter

// Report implements Reporter.
func (m Multi) Report(ctx context.Context, result *corpus.RunResult) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Reporter.
func (m Multi) Close() error {
	var errs []error
	for _, r := range m {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Progress prints one line per finished file:
//
//	[3/10] tx_003.jsonl: 1250 records
type Progress struct {
	mu sync.Mutex
	w  io.Writer
}

// NewProgress creates a Progress writing to w.
func NewProgress(w io.Writer) *Progress {
	return &Progress{w: w}
}

// FileDone prints the outcome of one file. It is safe for concurrent use.
func (p *Progress) FileDone(done, total int, o corpus.FileOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, ProgressLine(done, total, o))
}

// ProgressLine formats the progress message for one file.
func ProgressLine(done, total int, o corpus.FileOutcome) string {
	name := filepath.Base(o.Input)
	switch {
	case o.Cancelled:
		return fmt.Sprintf("[%d/%d] %s: cancelled", done, total, name)
	case o.Failed():
		return fmt.Sprintf("[%d/%d] %s: failed: %s", done, total, name, o.Error)
	default:
		return fmt.Sprintf("[%d/%d] %s: %d records", done, total, name, o.Admitted)
	}
}
