package output

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/projectyurei/corpus-cleaner-cli/internal/codec"
	"github.com/projectyurei/corpus-cleaner-cli/internal/logger"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

const writeBufferSize = 256 << 10

// ErrWriterClosed is returned when writing to a committed or aborted writer.
var ErrWriterClosed = errors.New("output writer is closed")

// FileSink writes one JSONL file per input into a flat output directory.
// The output file keeps the base name of its input.
type FileSink struct {
	root string
}

// NewFileSink creates the output directory if needed and returns a sink for it.
func NewFileSink(root string) (*FileSink, error) {
	if root == "" {
		return nil, errors.New("output directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &FileSink{root: root}, nil
}

// Root returns the output directory.
func (s *FileSink) Root() string {
	return s.root
}

// PathFor returns the output path for an input file.
func (s *FileSink) PathFor(inputPath string) string {
	return filepath.Join(s.root, filepath.Base(inputPath))
}

// Create opens a temporary file next to the final output path.
// Nothing appears under the final name until Commit succeeds.
func (s *FileSink) Create(inputPath string) (Writer, error) {
	final := s.PathFor(inputPath)
	tmp, err := os.CreateTemp(s.root, "."+filepath.Base(final)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp output for %s: %w", final, err)
	}
	return &fileWriter{
		file:  tmp,
		buf:   bufio.NewWriterSize(tmp, writeBufferSize),
		final: final,
	}, nil
}

type fileWriter struct {
	file    *os.File
	buf     *bufio.Writer
	final   string
	scratch []byte
	closed  bool
}

func (w *fileWriter) Path() string {
	return w.final
}

func (w *fileWriter) Write(rec corpus.Record) error {
	if w.closed {
		return ErrWriterClosed
	}
	line, err := codec.AppendLine(w.scratch[:0], rec)
	if err != nil {
		return err
	}
	w.scratch = line
	if _, err := w.buf.Write(line); err != nil {
		return fmt.Errorf("writing %s: %w", w.final, err)
	}
	return nil
}

func (w *fileWriter) Commit() error {
	if w.closed {
		return ErrWriterClosed
	}
	w.closed = true
	tmpPath := w.file.Name()

	if err := w.buf.Flush(); err != nil {
		w.discard()
		return fmt.Errorf("flushing %s: %w", w.final, err)
	}
	if err := w.file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("closing %s: %w", w.final, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		logger.Debug("could not set output permissions", "path", tmpPath, "error", err.Error())
	}
	if err := os.Rename(tmpPath, w.final); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("renaming output %s: %w", w.final, err)
	}
	return nil
}

func (w *fileWriter) Abort() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.discard()
}

func (w *fileWriter) discard() error {
	tmpPath := w.file.Name()
	_ = w.file.Close()
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		logger.Warn("failed to remove temp output",
			"path", tmpPath,
			"error", err.Error(),
		)
		return fmt.Errorf("removing temp output: %w", err)
	}
	return nil
}
