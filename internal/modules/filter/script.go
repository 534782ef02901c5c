package filter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/projectyurei/corpus-cleaner-cli/internal/logger"
	"github.com/projectyurei/corpus-cleaner-cli/internal/pathutil"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// Error codes for script filters
const (
	ErrCodeScriptEmpty          = "SCRIPT_EMPTY"
	ErrCodeScriptTooLong        = "SCRIPT_TOO_LONG"
	ErrCodeCompilationFailed    = "COMPILATION_FAILED"
	ErrCodeMissingKeep          = "MISSING_KEEP"
	ErrCodeNotFunction          = "NOT_FUNCTION"
	ErrCodeInvalidScriptFile    = "INVALID_SCRIPT_FILE"
	ErrCodeScriptFileReadFailed = "SCRIPT_FILE_READ_FAILED"
)

// Script limits
const (
	// MaxScriptLength is the maximum allowed script length in bytes (100KB)
	MaxScriptLength = 100 * 1024
	// DefaultScriptTimeout bounds a single keep() call
	DefaultScriptTimeout = time.Second
)

// Common errors for script filters
var (
	ErrScriptEmpty     = errors.New("script cannot be empty")
	ErrScriptTooLong   = errors.New("script exceeds maximum length")
	ErrMissingKeepFunc = errors.New("keep function not found in script")
	ErrKeepNotFunction = errors.New("keep is not a function")
)

const interruptReason = "script timed out"

// ScriptConfig represents the configuration for a script filter.
// Either Script or ScriptFile must be provided (but not both).
type ScriptConfig struct {
	// Script is inline JavaScript defining keep(record)
	Script string `json:"script,omitempty"`
	// ScriptFile is the path to a JavaScript file defining keep(record)
	ScriptFile string `json:"scriptFile,omitempty"`
	// OnError decides the verdict when the script throws: "drop" (default) or "keep"
	OnError string `json:"onError,omitempty"`
	// Timeout bounds each call (DefaultScriptTimeout when zero)
	Timeout time.Duration `json:"-"`
}

// ScriptError carries structured context for script failures.
type ScriptError struct {
	Code    string
	Message string
	Err     error
}

func (e *ScriptError) Error() string {
	return e.Message
}

func (e *ScriptError) Unwrap() error {
	return e.Err
}

func newScriptError(code, message string, err error) *ScriptError {
	return &ScriptError{Code: code, Message: message, Err: err}
}

// ScriptFilter keeps records for which the script's keep(record) returns a
// truthy value.
//
// A goja runtime is not goroutine-safe, so the compiled program is shared and
// each worker borrows its own runtime from a pool.
type ScriptFilter struct {
	program *goja.Program
	onError string
	timeout time.Duration
	pool    sync.Pool
}

// scriptVM is one runtime with the keep function already resolved.
type scriptVM struct {
	rt   *goja.Runtime
	keep goja.Callable
}

// NewScriptFromConfig compiles the script and verifies that it defines keep.
func NewScriptFromConfig(config ScriptConfig) (*ScriptFilter, error) {
	source, err := resolveScriptSource(config)
	if err != nil {
		return nil, err
	}
	if err := validateScript(source); err != nil {
		return nil, err
	}

	onError, err := onErrorMode(config.OnError)
	if err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultScriptTimeout
	}

	program, err := goja.Compile("filter.js", source, false)
	if err != nil {
		return nil, newScriptError(ErrCodeCompilationFailed, fmt.Sprintf("script compilation failed: %v", err), err)
	}

	f := &ScriptFilter{program: program, onError: onError, timeout: timeout}

	// Build the first runtime eagerly so that a script without keep() is
	// rejected at construction time.
	first, err := f.newVM()
	if err != nil {
		return nil, err
	}
	f.pool.Put(first)

	logger.Debug("script filter initialized",
		slog.Int("script_length", len(source)),
		slog.String("on_error", onError),
		slog.Bool("from_file", config.ScriptFile != ""),
	)
	return f, nil
}

func (f *ScriptFilter) newVM() (*scriptVM, error) {
	rt := goja.New()
	if _, err := rt.RunProgram(f.program); err != nil {
		return nil, newScriptError(ErrCodeCompilationFailed, fmt.Sprintf("script evaluation failed: %v", err), err)
	}
	keepVal := rt.Get("keep")
	if keepVal == nil || goja.IsUndefined(keepVal) {
		return nil, newScriptError(ErrCodeMissingKeep, "keep function not found in script", ErrMissingKeepFunc)
	}
	keep, ok := goja.AssertFunction(keepVal)
	if !ok {
		return nil, newScriptError(ErrCodeNotFunction, "keep is not a function", ErrKeepNotFunction)
	}
	return &scriptVM{rt: rt, keep: keep}, nil
}

func (f *ScriptFilter) acquire() (*scriptVM, error) {
	if v, ok := f.pool.Get().(*scriptVM); ok {
		return v, nil
	}
	return f.newVM()
}

// Keep implements Filter.
func (f *ScriptFilter) Keep(rec corpus.Record) bool {
	v, err := f.acquire()
	if err != nil {
		logger.Warn("script runtime unavailable", slog.String("error", err.Error()))
		return f.onError == OnErrorKeep
	}

	timer := time.AfterFunc(f.timeout, func() {
		v.rt.Interrupt(interruptReason)
	})
	result, err := v.keep(goja.Undefined(), v.rt.ToValue(plain(rec.Value())))

	// A timer that already fired may still deliver its interrupt, so the
	// runtime is only reused when the timer was stopped in time.
	if timer.Stop() {
		v.rt.ClearInterrupt()
		defer f.pool.Put(v)
	}

	if err != nil {
		logger.Debug("script evaluation failed",
			slog.String("on_error", f.onError),
			slog.String("error", err.Error()),
		)
		return f.onError == OnErrorKeep
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return false
	}
	return result.ToBoolean()
}

// resolveScriptSource returns the script source, either inline or from file.
func resolveScriptSource(config ScriptConfig) (string, error) {
	if config.Script != "" && config.ScriptFile != "" {
		return "", newScriptError(ErrCodeInvalidScriptFile, "cannot specify both 'script' and 'scriptFile' - use only one", nil)
	}
	if config.Script != "" {
		return config.Script, nil
	}
	if config.ScriptFile == "" {
		return "", newScriptError(ErrCodeScriptEmpty, "either 'script' or 'scriptFile' must be provided", ErrScriptEmpty)
	}

	if err := pathutil.ValidateFilePath(config.ScriptFile); err != nil {
		return "", newScriptError(ErrCodeInvalidScriptFile, fmt.Sprintf("invalid scriptFile: %v", err), err)
	}

	file, err := os.Open(config.ScriptFile)
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to open script file %q: %v", config.ScriptFile, err), err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			logger.Warn("failed to close script file",
				slog.String("file", config.ScriptFile),
				slog.String("error", closeErr.Error()),
			)
		}
	}()

	// Read one byte past the limit to detect oversized files without loading them.
	content, err := io.ReadAll(io.LimitReader(file, MaxScriptLength+1))
	if err != nil {
		return "", newScriptError(ErrCodeScriptFileReadFailed, fmt.Sprintf("failed to read script file %q: %v", config.ScriptFile, err), err)
	}
	if len(content) > MaxScriptLength {
		return "", newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script file %q is larger than %d bytes", config.ScriptFile, MaxScriptLength), ErrScriptTooLong)
	}
	return string(content), nil
}

// validateScript validates the script is non-empty and within length limits.
func validateScript(script string) error {
	if isWhitespaceOnly(script) {
		return newScriptError(ErrCodeScriptEmpty, "script cannot be empty", ErrScriptEmpty)
	}
	if len(script) > MaxScriptLength {
		return newScriptError(ErrCodeScriptTooLong, fmt.Sprintf("script exceeds maximum length: %d bytes exceeds maximum %d bytes", len(script), MaxScriptLength), ErrScriptTooLong)
	}
	return nil
}

// ParseScriptConfig parses a script filter configuration from raw config.
func ParseScriptConfig(cfg map[string]interface{}) (ScriptConfig, error) {
	config := ScriptConfig{}

	script, hasScript := cfg["script"].(string)
	scriptFile, hasScriptFile := cfg["scriptFile"].(string)

	if hasScript && hasScriptFile {
		return config, fmt.Errorf("cannot specify both 'script' and 'scriptFile' - use only one")
	}
	if !hasScript && !hasScriptFile {
		if cfg["script"] != nil {
			return config, fmt.Errorf("field 'script' must be a string")
		}
		if cfg["scriptFile"] != nil {
			return config, fmt.Errorf("field 'scriptFile' must be a string")
		}
		return config, fmt.Errorf("either 'script' or 'scriptFile' is required in script config")
	}
	config.Script = script
	config.ScriptFile = scriptFile

	onError, err := optionalString(cfg, "onError")
	if err != nil {
		return config, err
	}
	config.OnError = onError

	timeoutMs, err := optionalInt(cfg, "timeoutMs")
	if err != nil {
		return config, err
	}
	if timeoutMs < 0 {
		return config, fmt.Errorf("%w: timeoutMs must not be negative", ErrInvalidConfig)
	}
	config.Timeout = time.Duration(timeoutMs) * time.Millisecond

	return config, nil
}
