package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/projectyurei/corpus-cleaner-cli/internal/logger"
	"github.com/projectyurei/corpus-cleaner-cli/internal/pathutil"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// JSONFile writes the run result as indented JSON to a file.
type JSONFile struct {
	path string
}

// NewJSONFile creates a reporter writing to path.
func NewJSONFile(path string) (*JSONFile, error) {
	if err := pathutil.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid report path: %w", err)
	}
	return &JSONFile{path: path}, nil
}

// Path returns the report file path.
func (j *JSONFile) Path() string {
	return j.path
}

// Report writes result next to the target and renames it into place, so a
// reader never sees a partially written report.
func (j *JSONFile) Report(_ context.Context, result *corpus.RunResult) error {
	if result == nil {
		return fmt.Errorf("run result is nil")
	}

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}
	data = append(data, '\n')

	tempPath := j.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("writing temp report file: %w", err)
	}
	if err := os.Rename(tempPath, j.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming report file: %w", err)
	}

	logger.Debug("run report written",
		"run_id", result.RunID,
		"path", j.path,
	)
	return nil
}

// Close implements Reporter.
func (j *JSONFile) Close() error {
	return nil
}
