package input

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// DefaultMaxLineBytes caps a single line. Longer lines are skipped.
const DefaultMaxLineBytes = 64 << 20

// readBufferSize is the bufio buffer size used for corpus files.
const readBufferSize = 256 << 10

// ErrLineTooLong is returned by Next when a line exceeds the maximum length.
// The reader has already skipped past the line and can continue.
var ErrLineTooLong = errors.New("line exceeds maximum length")

// LineReader reads newline-delimited lines without a fixed token size.
// Memory use is bounded by the longest accepted line.
type LineReader struct {
	r       *bufio.Reader
	buf     []byte
	maxLine int
	lineNo  int
}

// NewLineReader creates a LineReader over r. A maxLine of zero or less uses
// DefaultMaxLineBytes.
func NewLineReader(r io.Reader, maxLine int) *LineReader {
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}
	return &LineReader{
		r:       bufio.NewReaderSize(r, readBufferSize),
		maxLine: maxLine,
	}
}

// Next returns the next line without its terminator ("\n" or "\r\n").
// The returned slice is only valid until the following call.
// It returns io.EOF after the last line.
func (lr *LineReader) Next() ([]byte, error) {
	lr.buf = lr.buf[:0]
	tooLong := false

	for {
		chunk, err := lr.r.ReadSlice('\n')
		if !tooLong {
			if len(lr.buf)+len(chunk) > lr.maxLine+2 {
				tooLong = true
				lr.buf = lr.buf[:0]
			} else {
				lr.buf = append(lr.buf, chunk...)
			}
		}

		switch {
		case err == nil:
			lr.lineNo++
			if tooLong {
				return nil, ErrLineTooLong
			}
			return trimEOL(lr.buf), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(lr.buf) == 0 && !tooLong {
				return nil, io.EOF
			}
			lr.lineNo++
			if tooLong {
				return nil, ErrLineTooLong
			}
			return trimEOL(lr.buf), nil
		default:
			return nil, err
		}
	}
}

// LineNumber returns the 1-based number of the line last returned.
func (lr *LineReader) LineNumber() int {
	return lr.lineNo
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte("\n"))
	return bytes.TrimSuffix(line, []byte("\r"))
}
