// Package main provides the CLI entry point for the corpus cleaner.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/projectyurei/corpus-cleaner-cli/internal/cli"
	"github.com/projectyurei/corpus-cleaner-cli/internal/config"
	"github.com/projectyurei/corpus-cleaner-cli/internal/factory"
	"github.com/projectyurei/corpus-cleaner-cli/internal/logger"
	"github.com/projectyurei/corpus-cleaner-cli/internal/modules/input"
	"github.com/projectyurei/corpus-cleaner-cli/internal/modules/output"
	"github.com/projectyurei/corpus-cleaner-cli/internal/registry"
	"github.com/projectyurei/corpus-cleaner-cli/internal/report"
	"github.com/projectyurei/corpus-cleaner-cli/internal/runtime"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// Exit codes
const (
	ExitSuccess         = 0
	ExitValidationError = 1
	ExitParseError      = 2
	ExitRuntimeError    = 3
	ExitFilesFailed     = 4
)

const reportTimeout = 30 * time.Second

// Build information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// exitError carries an exit code out of a cobra command. The message has
// already been printed when err is nil.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitWith(code int) error {
	return &exitError{code: code}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI with args and returns the process exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	defer logger.CloseLogFile()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(stderr, "✗ %v\n", ee.err)
		}
		return ee.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitRuntimeError
}

// app holds the flag values and output streams of one invocation.
type app struct {
	cfg       config.Config
	verbose   bool
	quiet     bool
	logFormat string
	stdout    io.Writer
	stderr    io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{cfg: config.DefaultConfig(), stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "corpus-cleaner",
		Short: "Corpus Cleaner - parallel JSONL filter and deduplicator",
		Long: `Corpus Cleaner streams JSONL transaction corpora through a filter chain
and a global deduplication stage, writing one cleaned file per input.

Records whose meta.err is set are dropped, then every record is
deduplicated on its signature across all input files. Files are
processed in parallel; a file that cannot be read is reported and the
rest of the run continues.

Exit codes:
  0 - Run completed (per-file failures are reported, not fatal)
  1 - Invalid configuration or filter configuration
  2 - Filter configuration could not be parsed
  3 - Run aborted before or while processing files
  4 - Files failed and --strict was set

Examples:
  # Clean ./data/raw into ./data/clean using every CPU
  corpus-cleaner

  # Explicit paths, eight workers, custom filters
  corpus-cleaner -i raw/ -o clean/ -t 8 -f filters.yaml

  # Write a JSON run report
  corpus-cleaner -i raw/ -o clean/ --report reports/run.json`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.configureLogging,
		RunE:              a.runClean,
	}

	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose output")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "Suppress non-error output")
	pf.StringVar(&a.cfg.LogLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	pf.StringVar(&a.logFormat, "log-format", "json", "Console log format (json, human)")
	pf.StringVar(&a.cfg.LogFile, "log-file", "", "Also write JSON logs to this file")

	f := rootCmd.Flags()
	f.StringVarP(&a.cfg.InputPath, "input", "i", a.cfg.InputPath, "Input directory or file")
	f.StringVarP(&a.cfg.OutputPath, "output", "o", a.cfg.OutputPath, "Output directory")
	f.IntVarP(&a.cfg.Threads, "threads", "t", 0, "Worker threads (0 = all CPUs)")
	f.StringVarP(&a.cfg.FiltersFile, "filters", "f", "", "Filter configuration file (JSON or YAML)")
	f.StringVar(&a.cfg.IdentityField, "identity-field", a.cfg.IdentityField, "Dot path of the deduplication identity")
	f.StringVar(&a.cfg.ReportFile, "report", "", "Write the run report as JSON to this file")
	f.StringSliceVar(&a.cfg.ClickHouse.Addr, "clickhouse-addr", nil, "ClickHouse address(es) for per-file outcome reports")
	f.StringVar(&a.cfg.ClickHouse.Database, "clickhouse-database", report.DefaultClickHouseDatabase, "ClickHouse database")
	f.StringVar(&a.cfg.ClickHouse.Table, "clickhouse-table", report.DefaultClickHouseTable, "ClickHouse table")
	f.StringVar(&a.cfg.ClickHouse.Username, "clickhouse-user", "default", "ClickHouse user")
	f.StringVar(&a.cfg.ClickHouse.Password, "clickhouse-password", "", "ClickHouse password")
	f.DurationVar(&a.cfg.ClickHouse.Timeout, "clickhouse-timeout", report.DefaultDialTimeout, "ClickHouse dial timeout")
	f.BoolVar(&a.cfg.Strict, "strict", false, "Exit with status 4 when any file fails")

	rootCmd.AddCommand(a.newValidateCmd(), a.newFiltersCmd(), a.newVersionCmd())
	return rootCmd
}

func (a *app) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <filters-file>",
		Short: "Validate a filter configuration file",
		Long: `Validate a filter configuration file without processing any input.

The file is parsed (JSON or YAML, detected from the extension or the
content), checked against the embedded schema and then used to build the
filter chain, so unknown filter types and bad parameters are reported.

Exit codes:
  0 - Configuration is valid
  1 - Validation errors
  2 - Parse errors`,
		Args: cobra.ExactArgs(1),
		RunE: a.runValidate,
	}
}

func (a *app) newFiltersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List available filter types",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cli.PrintFilterTypes(a.stdout, registry.ListFilterTypes(), registry.Descriptions)
			return nil
		},
	}
}

func (a *app) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Fprintf(a.stdout, "Version: %s\n", version)
			fmt.Fprintf(a.stdout, "Commit: %s\n", commit)
			fmt.Fprintf(a.stdout, "Build Date: %s\n", buildDate)
			return nil
		},
	}
}

func (a *app) configureLogging(_ *cobra.Command, _ []string) error {
	level, ok := logger.ParseLevel(a.cfg.LogLevel)
	if !ok {
		return &exitError{code: ExitValidationError, err: fmt.Errorf("invalid log level %q", a.cfg.LogLevel)}
	}
	switch {
	case a.verbose:
		level = slog.LevelDebug
	case a.quiet:
		level = slog.LevelError
	}
	format := logger.ParseFormat(a.logFormat)
	logger.SetOutput(a.stderr, level, format)

	if a.cfg.LogFile != "" {
		if err := logger.SetLogFile(a.cfg.LogFile, level, format); err != nil {
			return &exitError{code: ExitRuntimeError, err: err}
		}
	}
	return nil
}

// loadFilters reads the filter configuration file, printing parse and
// validation errors. A nil slice selects the default chain.
func (a *app) loadFilters(path string) (*config.FilterFile, error) {
	ff, result, err := config.LoadFilterFile(path)
	if len(result.ParseErrors) > 0 {
		cli.PrintParseErrors(a.stderr, result.ParseErrors, a.verbose)
		return nil, exitWith(ExitParseError)
	}
	if len(result.ValidationErrors) > 0 {
		cli.PrintValidationErrors(a.stderr, result.ValidationErrors, a.verbose, a.quiet)
		return nil, exitWith(ExitValidationError)
	}
	if err != nil {
		return nil, &exitError{code: ExitValidationError, err: err}
	}
	return ff, nil
}

func (a *app) runValidate(_ *cobra.Command, args []string) error {
	path := args[0]
	if !a.quiet {
		fmt.Fprintf(a.stdout, "Validating filter configuration: %s\n", path)
	}

	ff, err := a.loadFilters(path)
	if err != nil {
		return err
	}
	chain, err := factory.BuildChain(ff.Filters)
	if err != nil {
		return &exitError{code: ExitValidationError, err: err}
	}

	if !a.quiet {
		fmt.Fprintln(a.stdout, "✓ Filter configuration is valid")
		if a.verbose {
			identity := ff.IdentityField
			if identity == "" {
				identity = a.cfg.IdentityField + " (default)"
			}
			fmt.Fprintf(a.stdout, "  Identity: %s\n", identity)
			fmt.Fprintf(a.stdout, "  Filters:  %v\n", chain.Types())
		}
	}
	return nil
}

func (a *app) runClean(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg := a.cfg

	var filterCfgs []corpus.FilterConfig
	if cfg.FiltersFile != "" {
		ff, err := a.loadFilters(cfg.FiltersFile)
		if err != nil {
			return err
		}
		if ff.IdentityField != "" && !cmd.Flags().Changed("identity-field") {
			cfg.IdentityField = ff.IdentityField
		}
		filterCfgs = ff.Filters
	}

	if err := cfg.Validate(); err != nil {
		return &exitError{code: ExitValidationError, err: fmt.Errorf("invalid configuration: %w", err)}
	}
	pipeline, err := factory.BuildPipeline(filterCfgs, cfg.IdentityField)
	if err != nil {
		return &exitError{code: ExitValidationError, err: err}
	}
	reporters, err := buildReporters(cfg)
	if err != nil {
		return &exitError{code: ExitValidationError, err: err}
	}
	defer func() {
		if err := reporters.Close(); err != nil {
			logger.Warn("closing reporters", slog.String("error", err.Error()))
		}
	}()

	if err := cfg.ValidatePaths(); err != nil {
		return &exitError{code: ExitRuntimeError, err: err}
	}
	files, err := input.Discover(cfg.InputPath, nil)
	if err != nil {
		return &exitError{code: ExitRuntimeError, err: err}
	}
	sink, err := output.NewFileSink(cfg.OutputPath)
	if err != nil {
		return &exitError{code: ExitRuntimeError, err: err}
	}

	if !a.quiet {
		cli.PrintBanner(a.stdout, cli.Banner{
			Input:   cfg.InputPath,
			Output:  cfg.OutputPath,
			Threads: cfg.Threads,
			Filters: pipeline.Chain().Types(),
			Version: version,
		})
	}

	opts := runtime.Options{
		Workers:    cfg.Threads,
		InputRoot:  cfg.InputPath,
		OutputRoot: cfg.OutputPath,
	}
	if !a.quiet {
		opts.Progress = report.NewProgress(a.stdout).FileDone
	}
	processor := runtime.NewProcessor(pipeline, sink, input.DefaultMaxLineBytes)
	result, err := runtime.NewExecutor(processor, opts).Run(ctx, files)
	if err != nil {
		return &exitError{code: ExitRuntimeError, err: err}
	}

	if len(reporters) > 0 {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
		if err := reporters.Report(rctx, result); err != nil {
			logger.Warn("run report failed", slog.String("run_id", result.RunID), slog.String("error", err.Error()))
		}
		cancel()
	}

	cli.PrintRunResult(a.stdout, result, cli.OutputOptions{Verbose: a.verbose, Quiet: a.quiet})

	switch {
	case result.Status == corpus.StatusCancelled:
		return exitWith(ExitRuntimeError)
	case cfg.Strict && result.FailedFiles > 0:
		return exitWith(ExitFilesFailed)
	}
	return nil
}

func buildReporters(cfg config.Config) (report.Multi, error) {
	var reporters report.Multi
	if cfg.ReportFile != "" {
		jf, err := report.NewJSONFile(cfg.ReportFile)
		if err != nil {
			return nil, fmt.Errorf("report file: %w", err)
		}
		reporters = append(reporters, jf)
	}
	if cfg.ClickHouse.Enabled() {
		ch, err := report.NewClickHouse(report.ClickHouseConfig{
			Addr:        cfg.ClickHouse.Addr,
			Database:    cfg.ClickHouse.Database,
			Username:    cfg.ClickHouse.Username,
			Password:    cfg.ClickHouse.Password,
			Table:       cfg.ClickHouse.Table,
			DialTimeout: cfg.ClickHouse.Timeout,
		})
		if err != nil {
			if cerr := reporters.Close(); cerr != nil {
				logger.Warn("closing reporters", slog.String("error", cerr.Error()))
			}
			return nil, err
		}
		reporters = append(reporters, ch)
	}
	return reporters, nil
}
