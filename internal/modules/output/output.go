// Package output provides the destination side of a cleaning run.
// Every input file gets its own Writer; admitted records are appended to it
// in input order and the result becomes visible only on Commit.
package output

import "github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"

// Writer receives the admitted records of one input file.
type Writer interface {
	// Write appends one record.
	Write(rec corpus.Record) error

	// Commit flushes buffered records and publishes the output.
	Commit() error

	// Abort discards everything written so far. It is safe after Commit.
	Abort() error

	// Path returns the final output path.
	Path() string
}

// Sink creates one Writer per input file.
type Sink interface {
	// PathFor returns the output path an input file maps to.
	PathFor(inputPath string) string

	// Create opens the Writer for an input file.
	Create(inputPath string) (Writer, error)
}
