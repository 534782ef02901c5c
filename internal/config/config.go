package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/projectyurei/corpus-cleaner-cli/internal/dedup"
	"github.com/projectyurei/corpus-cleaner-cli/internal/errhandling"
	"github.com/projectyurei/corpus-cleaner-cli/internal/pathutil"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// Defaults.
const (
	DefaultInputPath  = "./data/raw"
	DefaultOutputPath = "./data/clean"
	DefaultLogLevel   = "info"
)

// Run configuration errors.
var (
	ErrMissingInput      = errors.New("input path is required")
	ErrMissingOutput     = errors.New("output path is required")
	ErrNegativeThreads   = errors.New("threads must not be negative")
	ErrOutputInsideInput = errors.New("output directory must not be inside the input directory")
)

// ClickHouse holds the optional ClickHouse report sink settings. No
// addresses disables the sink.
type ClickHouse struct {
	Addr     []string
	Database string
	Username string
	Password string
	Table    string
	Timeout  time.Duration
}

// Enabled reports whether the sink was configured.
func (c ClickHouse) Enabled() bool {
	return len(c.Addr) > 0
}

// Config is the configuration of one cleaning run.
type Config struct {
	// InputPath is a directory of JSONL files or a single file
	InputPath string

	// OutputPath is the directory cleaned files are written to
	OutputPath string

	// Threads is the worker count; 0 uses every CPU
	Threads int

	// FiltersFile is an optional JSON/YAML filter configuration
	FiltersFile string

	// IdentityField is the dot path of the dedup identity
	IdentityField string

	// ReportFile receives the JSON run report when set
	ReportFile string

	ClickHouse ClickHouse

	LogLevel  string
	LogFormat string
	LogFile   string

	// Strict turns failed files into a failing exit status
	Strict bool
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig() Config {
	return Config{
		InputPath:     DefaultInputPath,
		OutputPath:    DefaultOutputPath,
		IdentityField: dedup.DefaultIdentityField,
		LogLevel:      DefaultLogLevel,
	}
}

// Validate checks values without touching the filesystem.
func (c Config) Validate() error {
	var errs []error
	if c.InputPath == "" {
		errs = append(errs, ErrMissingInput)
	}
	if c.OutputPath == "" {
		errs = append(errs, ErrMissingOutput)
	}
	if c.Threads < 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrNegativeThreads, c.Threads))
	}
	if err := corpus.ValidatePath(c.IdentityField); err != nil {
		errs = append(errs, fmt.Errorf("identity field %q: %w", c.IdentityField, err))
	}
	if c.ReportFile != "" {
		if err := pathutil.ValidateFilePath(c.ReportFile); err != nil {
			errs = append(errs, fmt.Errorf("report file: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ValidatePaths checks the input exists, keeps the output out of the input
// tree and creates the output directory. Failures are configuration errors.
func (c Config) ValidatePaths() error {
	info, err := os.Stat(c.InputPath)
	if err != nil {
		return errhandling.NewConfigurationError(fmt.Sprintf("input path %q is not accessible", c.InputPath), err)
	}
	if info.IsDir() {
		inside, err := pathutil.IsWithin(c.InputPath, c.OutputPath)
		if err != nil {
			return errhandling.NewConfigurationError("resolving paths", err)
		}
		if inside {
			return errhandling.NewConfigurationError(
				fmt.Sprintf("output %q is inside input %q", c.OutputPath, c.InputPath), ErrOutputInsideInput)
		}
	}
	if err := os.MkdirAll(c.OutputPath, 0o755); err != nil {
		return errhandling.NewConfigurationError(fmt.Sprintf("cannot create output directory %q", c.OutputPath), err)
	}
	return nil
}
