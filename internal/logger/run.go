package logger

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// RunContext identifies a cleaning run in logs.
type RunContext struct {
	// RunID is the unique identifier of the run (required)
	RunID string
	// InputRoot is the input directory or file
	InputRoot string
	// OutputRoot is the output directory
	OutputRoot string
	// Workers is the effective worker pool size
	Workers int
	// IdentityField is the record field used for deduplication
	IdentityField string
	// Filters lists the filter chain stage types in order
	Filters []string
}

// FileContext identifies one input file within a run.
type FileContext struct {
	RunID string
	File  string
}

// FileCounts are the per-file record counters reported when a file finishes.
type FileCounts struct {
	LinesRead       int
	Blank           int
	Malformed       int
	Filtered        int
	MissingIdentity int
	Duplicates      int
	Admitted        int
}

// RunMetrics summarizes a finished run.
type RunMetrics struct {
	// Elapsed is the wall time of the run
	Elapsed time.Duration
	// Files is the number of input files
	Files int
	// FailedFiles is the number of files that failed
	FailedFiles int
	// RecordsRead is the number of lines read across all files
	RecordsRead int
	// RecordsAdmitted is the number of records written across all files
	RecordsAdmitted int
	// DistinctIdentities is the final size of the seen-set
	DistinctIdentities int
	// RecordsPerSecond is lines read per second of wall time
	RecordsPerSecond float64
}

// ErrorContext carries structured context for LogError.
type ErrorContext struct {
	RunID string
	File  string
	Line  int

	ErrorCategory string
	Err           error

	Extra map[string]interface{}
}

// WithRun returns a logger carrying the run context.
func WithRun(ctx RunContext) *slog.Logger {
	return Logger.With(runAttrs(ctx)...)
}

// WithFile returns a logger carrying the file context.
func WithFile(ctx FileContext) *slog.Logger {
	return Logger.With(fileAttrs(ctx)...)
}

// LogRunStart logs the start of a cleaning run.
func LogRunStart(ctx RunContext, files int) {
	attrs := runAttrs(ctx)
	attrs = append(attrs, slog.Int("files", files))
	Logger.Info("run started", attrs...)
}

// LogRunEnd logs the end of a cleaning run with its final status.
func LogRunEnd(ctx RunContext, status string, metrics RunMetrics) {
	attrs := []any{
		slog.String("run_id", ctx.RunID),
		slog.String("status", status),
		slog.Int("files", metrics.Files),
		slog.Int("files_failed", metrics.FailedFiles),
		slog.Int("records_read", metrics.RecordsRead),
		slog.Int("records_admitted", metrics.RecordsAdmitted),
		slog.Int("distinct_identities", metrics.DistinctIdentities),
		slog.Float64("records_per_second", metrics.RecordsPerSecond),
		slog.Duration("duration", metrics.Elapsed),
	}
	if status == "success" {
		Logger.Info("run completed", attrs...)
		return
	}
	Logger.Warn("run finished with failures", attrs...)
}

// LogFileStart logs that a worker picked up a file.
func LogFileStart(ctx FileContext) {
	Logger.Debug("file started", fileAttrs(ctx)...)
}

// LogFileEnd logs the outcome of one file. A non-nil err logs at error level.
func LogFileEnd(ctx FileContext, counts FileCounts, duration time.Duration, err error) {
	attrs := fileAttrs(ctx)
	attrs = append(attrs,
		slog.Int("lines_read", counts.LinesRead),
		slog.Int("records_admitted", counts.Admitted),
		slog.Int("duplicates", counts.Duplicates),
		slog.Int("filtered", counts.Filtered),
		slog.Int("malformed", counts.Malformed),
		slog.Int("missing_identity", counts.MissingIdentity),
		slog.Int("blank", counts.Blank),
		slog.Duration("duration", duration),
	)
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		Logger.Error("file failed", attrs...)
		return
	}
	Logger.Info("file completed", attrs...)
}

// LogError logs an error with its run and file context and the unwrapped
// error chain.
func LogError(message string, errCtx ErrorContext) {
	attrs := make([]any, 0, 8+len(errCtx.Extra))

	if errCtx.RunID != "" {
		attrs = append(attrs, slog.String("run_id", errCtx.RunID))
	}
	if errCtx.File != "" {
		attrs = append(attrs, slog.String("file", errCtx.File))
	}
	if errCtx.Line > 0 {
		attrs = append(attrs, slog.Int("line", errCtx.Line))
	}
	if errCtx.ErrorCategory != "" {
		attrs = append(attrs, slog.String("error_category", errCtx.ErrorCategory))
	}
	if errCtx.Err != nil {
		attrs = append(attrs,
			slog.String("error", errCtx.Err.Error()),
			slog.String("error_type", fmt.Sprintf("%T", errCtx.Err)),
		)
		if chain := errorChain(errCtx.Err); len(chain) > 1 {
			attrs = append(attrs, slog.String("error_chain", strings.Join(chain, " -> ")))
		}
	}
	for k, v := range errCtx.Extra {
		attrs = append(attrs, slog.Any(k, v))
	}

	Logger.Error(message, attrs...)
}

// FormatMetricsHuman formats run metrics as one readable sentence.
func FormatMetricsHuman(metrics RunMetrics) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Admitted %d of %d records from %d files in %s",
		metrics.RecordsAdmitted,
		metrics.RecordsRead,
		metrics.Files,
		formatDuration(metrics.Elapsed))

	if metrics.RecordsPerSecond > 0 {
		fmt.Fprintf(&sb, " (%.1f records/sec)", metrics.RecordsPerSecond)
	}
	if metrics.FailedFiles > 0 {
		fmt.Fprintf(&sb, ", %d files failed", metrics.FailedFiles)
	}

	return sb.String()
}

func errorChain(err error) []string {
	chain := []string{err.Error()}
	for {
		err = errors.Unwrap(err)
		if err == nil {
			return chain
		}
		chain = append(chain, err.Error())
	}
}

func runAttrs(ctx RunContext) []any {
	attrs := make([]any, 0, 6)
	attrs = append(attrs, slog.String("run_id", ctx.RunID))
	if ctx.InputRoot != "" {
		attrs = append(attrs, slog.String("input", ctx.InputRoot))
	}
	if ctx.OutputRoot != "" {
		attrs = append(attrs, slog.String("output", ctx.OutputRoot))
	}
	if ctx.Workers > 0 {
		attrs = append(attrs, slog.Int("workers", ctx.Workers))
	}
	if ctx.IdentityField != "" {
		attrs = append(attrs, slog.String("identity_field", ctx.IdentityField))
	}
	if len(ctx.Filters) > 0 {
		attrs = append(attrs, slog.String("filters", strings.Join(ctx.Filters, ",")))
	}
	return attrs
}

func fileAttrs(ctx FileContext) []any {
	attrs := make([]any, 0, 2)
	if ctx.RunID != "" {
		attrs = append(attrs, slog.String("run_id", ctx.RunID))
	}
	return append(attrs, slog.String("file", ctx.File))
}
