package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/projectyurei/corpus-cleaner-cli/internal/codec"
	"github.com/projectyurei/corpus-cleaner-cli/internal/errhandling"
	"github.com/projectyurei/corpus-cleaner-cli/internal/logger"
	"github.com/projectyurei/corpus-cleaner-cli/internal/modules/input"
	"github.com/projectyurei/corpus-cleaner-cli/internal/modules/output"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// Processor streams single files through a Pipeline into a Sink.
type Processor struct {
	pipeline *Pipeline
	sink     output.Sink
	maxLine  int
}

// NewProcessor creates a processor. A maxLine of zero uses
// input.DefaultMaxLineBytes.
func NewProcessor(pipeline *Pipeline, sink output.Sink, maxLine int) *Processor {
	return &Processor{pipeline: pipeline, sink: sink, maxLine: maxLine}
}

// ProcessFile streams inputPath line by line and writes admitted records, in
// input order, to the sink's output for that file.
//
// Blank, malformed and oversized lines are counted and skipped. A read or
// write failure stops this file only and returns a file_io
// *errhandling.ClassifiedError alongside the counts gathered so far. The
// records admitted before the failure already hold their identity claims,
// so they are committed rather than discarded; an output with nothing
// admitted is removed. A file is not started once ctx is done.
func (p *Processor) ProcessFile(ctx context.Context, inputPath string, runID string) (corpus.FileOutcome, error) {
	started := time.Now()
	outcome := corpus.FileOutcome{Input: inputPath}
	fileCtx := logger.FileContext{RunID: runID, File: inputPath}

	fail := func(msg string, err error) (corpus.FileOutcome, error) {
		outcome.Duration = time.Since(started)
		ferr := errhandling.NewFileIOError(inputPath, fmt.Sprintf("%s: %v", msg, err), err)
		outcome.Error = ferr.Error()
		logger.LogFileEnd(fileCtx, fileCounts(outcome), outcome.Duration, ferr)
		return outcome, ferr
	}

	if ctx.Err() != nil {
		outcome.Cancelled = true
		outcome.Error = ErrFileCancelled.Error()
		return outcome, errhandling.ClassifyError(fmt.Errorf("%w: %w", ErrFileCancelled, ctx.Err()))
	}
	logger.LogFileStart(fileCtx)

	in, err := os.Open(inputPath)
	if err != nil {
		return fail("opening input", err)
	}
	defer func() { _ = in.Close() }()

	w, err := p.sink.Create(inputPath)
	if err != nil {
		return fail("creating output", err)
	}
	outcome.Output = w.Path()

	if op, err := p.stream(in, w, &outcome, fileCtx); err != nil {
		p.salvage(w, &outcome)
		return fail(op, err)
	}
	if err := w.Commit(); err != nil {
		outcome.Admitted = 0
		outcome.Output = ""
		return fail("committing output", err)
	}

	outcome.Duration = time.Since(started)
	logger.LogFileEnd(fileCtx, fileCounts(outcome), outcome.Duration, nil)
	return outcome, nil
}

// salvage keeps the admitted prefix of a failed file. If the commit itself
// fails the records are gone, and Admitted is zeroed to match.
func (p *Processor) salvage(w output.Writer, outcome *corpus.FileOutcome) {
	if outcome.Admitted > 0 {
		err := w.Commit()
		if err == nil {
			return
		}
		logger.Warn("failed to commit partial output",
			slog.String("file", outcome.Input),
			slog.Int("admitted", outcome.Admitted),
			slog.String("error", err.Error()),
		)
		outcome.Admitted = 0
	}
	if err := w.Abort(); err != nil {
		logger.Warn("failed to discard partial output",
			slog.String("file", outcome.Input),
			slog.String("error", err.Error()),
		)
	}
	outcome.Output = ""
}

// stream copies admitted records from in to w. On failure it returns the
// failing operation and its error.
func (p *Processor) stream(in io.Reader, w output.Writer, outcome *corpus.FileOutcome, fileCtx logger.FileContext) (string, error) {
	lr := input.NewLineReader(in, p.maxLine)
	for {
		line, err := lr.Next()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return "", nil
		case errors.Is(err, input.ErrLineTooLong):
			outcome.LinesRead++
			outcome.Malformed++
			logger.Debug("skipping oversized line",
				slog.String("file", fileCtx.File),
				slog.Int("line", lr.LineNumber()),
			)
			continue
		default:
			return "reading input", err
		}

		outcome.LinesRead++
		if codec.IsBlank(line) {
			outcome.Blank++
			continue
		}

		rec, err := codec.Decode(line)
		if err != nil {
			outcome.Malformed++
			logger.Debug("skipping malformed line",
				slog.String("file", fileCtx.File),
				slog.Int("line", lr.LineNumber()),
				slog.String("error", err.Error()),
			)
			continue
		}

		switch p.pipeline.Decide(rec) {
		case DecisionAdmit:
			if err := w.Write(rec); err != nil {
				return "writing output", err
			}
			outcome.Admitted++
		case DecisionFiltered:
			outcome.Filtered++
		case DecisionMissingIdentity:
			outcome.MissingIdentity++
		case DecisionDuplicate:
			outcome.Duplicates++
		}
	}
}

func fileCounts(o corpus.FileOutcome) logger.FileCounts {
	return logger.FileCounts{
		LinesRead:       o.LinesRead,
		Blank:           o.Blank,
		Malformed:       o.Malformed,
		Filtered:        o.Filtered,
		MissingIdentity: o.MissingIdentity,
		Duplicates:      o.Duplicates,
		Admitted:        o.Admitted,
	}
}
