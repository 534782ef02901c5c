package runtime

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	goruntime "runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/projectyurei/corpus-cleaner-cli/internal/errhandling"
	"github.com/projectyurei/corpus-cleaner-cli/internal/logger"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// Common errors
var (
	// ErrNilProcessor is returned when an executor has no processor.
	ErrNilProcessor = errors.New("file processor is nil")

	// ErrOutputCollision is returned when two inputs map to the same output.
	ErrOutputCollision = errors.New("inputs map to the same output file")

	// ErrOutputIsInput is returned when an output path would overwrite its input.
	ErrOutputIsInput = errors.New("output file would overwrite its input")

	// ErrFileCancelled is recorded for files skipped because the run was cancelled.
	ErrFileCancelled = errors.New("run cancelled before file started")
)

// ProgressFunc is called once per finished file, in completion order.
// Calls are serialized; done counts files finished so far, including this one.
type ProgressFunc func(done, total int, outcome corpus.FileOutcome)

// Options configures an Executor.
type Options struct {
	// Workers is the worker pool size. Zero or less uses all CPUs.
	Workers int

	// RunID identifies the run. Empty generates a random UUID.
	RunID string

	// InputRoot and OutputRoot are only used for logging.
	InputRoot  string
	OutputRoot string

	// Progress, when set, receives every file outcome.
	Progress ProgressFunc
}

// Executor runs many files through one Processor on a bounded worker pool.
// The processor's dedup engine is the only state shared between files.
type Executor struct {
	processor *Processor
	opts      Options
}

// NewExecutor creates an executor for processor.
func NewExecutor(processor *Processor, opts Options) *Executor {
	return &Executor{processor: processor, opts: opts}
}

// Workers returns the effective worker pool size.
func (e *Executor) Workers() int {
	return effectiveWorkers(e.opts.Workers)
}

func effectiveWorkers(n int) int {
	if n <= 0 {
		return goruntime.NumCPU()
	}
	return n
}

// Run processes every file exactly once and returns the aggregated result.
//
// A file that fails is reported in its outcome and never affects other files.
// When ctx is cancelled, files not yet started are marked cancelled and files
// in flight finish. The returned error is non-nil only for a configuration
// problem detected before any file is processed.
func (e *Executor) Run(ctx context.Context, files []string) (*corpus.RunResult, error) {
	if e.processor == nil || e.processor.pipeline == nil || e.processor.sink == nil {
		return nil, errhandling.NewConfigurationError("executor is not configured", ErrNilProcessor)
	}
	if err := e.checkTargets(files); err != nil {
		return nil, err
	}

	runID := e.opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	workers := e.Workers()
	engine := e.processor.pipeline.Engine()

	runCtx := logger.RunContext{
		RunID:         runID,
		InputRoot:     e.opts.InputRoot,
		OutputRoot:    e.opts.OutputRoot,
		Workers:       workers,
		IdentityField: engine.Field(),
		Filters:       e.processor.pipeline.Chain().Types(),
	}
	logger.LogRunStart(runCtx, len(files))

	result := &corpus.RunResult{
		RunID:      runID,
		StartedAt:  time.Now(),
		Workers:    workers,
		TotalFiles: len(files),
		Files:      make([]corpus.FileOutcome, len(files)),
	}

	var (
		mu   sync.Mutex
		done int
	)
	report := func(outcome corpus.FileOutcome) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if e.opts.Progress != nil {
			e.opts.Progress(done, len(files), outcome)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			// Errors are per file; returning nil keeps siblings running.
			outcome, _ := e.processor.ProcessFile(gctx, path, runID)
			result.Files[i] = outcome
			report(outcome)
			return nil
		})
	}
	_ = g.Wait()

	result.CompletedAt = time.Now()
	result.Elapsed = result.CompletedAt.Sub(result.StartedAt)
	result.DistinctIdentities = engine.Len()

	linesRead := 0
	cancelled := 0
	for _, o := range result.Files {
		result.TotalAdmitted += o.Admitted
		linesRead += o.LinesRead
		if o.Failed() {
			result.FailedFiles++
		}
		if o.Cancelled {
			cancelled++
		}
	}
	result.Status = runStatus(result.TotalFiles, result.FailedFiles, cancelled)

	metrics := logger.RunMetrics{
		Elapsed:            result.Elapsed,
		Files:              result.TotalFiles,
		FailedFiles:        result.FailedFiles,
		RecordsRead:        linesRead,
		RecordsAdmitted:    result.TotalAdmitted,
		DistinctIdentities: result.DistinctIdentities,
	}
	if secs := result.Elapsed.Seconds(); secs > 0 {
		metrics.RecordsPerSecond = float64(linesRead) / secs
	}
	logger.LogRunEnd(runCtx, result.Status, metrics)

	return result, nil
}

// checkTargets rejects file lists whose outputs would collide with each other
// or overwrite an input.
func (e *Executor) checkTargets(files []string) error {
	outputs := make(map[string]string, len(files))
	inputs := make(map[string]bool, len(files))
	for _, in := range files {
		if abs, err := filepath.Abs(in); err == nil {
			inputs[abs] = true
		}
	}
	for _, in := range files {
		out, err := filepath.Abs(e.processor.sink.PathFor(in))
		if err != nil {
			return errhandling.NewConfigurationError("resolving output path", err)
		}
		if prev, ok := outputs[out]; ok {
			return errhandling.NewConfigurationError(
				fmt.Sprintf("%s and %s both write %s", prev, in, out), ErrOutputCollision)
		}
		outputs[out] = in
		if inputs[out] {
			return errhandling.NewConfigurationError(
				fmt.Sprintf("output %s is an input file", out), ErrOutputIsInput)
		}
	}
	return nil
}

func runStatus(total, failed, cancelled int) string {
	switch {
	case cancelled > 0:
		return corpus.StatusCancelled
	case failed == 0:
		return corpus.StatusSuccess
	case failed == total:
		return corpus.StatusError
	default:
		return corpus.StatusPartial
	}
}
