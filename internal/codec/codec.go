// Package codec converts between corpus lines and records.
//
// One record is one JSON value on one line. Decoding keeps the original
// bytes so that encoding an unmodified record reproduces the same content
// with insignificant whitespace removed.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// ErrMalformedRecord is returned when a line is not a single valid JSON value.
var ErrMalformedRecord = errors.New("malformed record")

// IsBlank reports whether a line is empty or whitespace-only.
// Blank lines are skipped before decoding.
func IsBlank(line []byte) bool {
	return len(bytes.TrimSpace(line)) == 0
}

// Decode parses one line into a Record. Numbers are kept as json.Number.
// The line is copied, so callers may reuse their buffer. Lines that are not
// valid UTF-8 are malformed: encoding/json would replace the bad bytes with
// U+FFFD and distinct lines would decode to the same identity.
func Decode(line []byte) (corpus.Record, error) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 {
		return corpus.Record{}, fmt.Errorf("%w: empty line", ErrMalformedRecord)
	}
	if !utf8.Valid(trimmed) {
		return corpus.Record{}, fmt.Errorf("%w: invalid UTF-8", ErrMalformedRecord)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var value interface{}
	if err := dec.Decode(&value); err != nil {
		return corpus.Record{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	// A second value on the same line means the line is not one record.
	if _, err := dec.Token(); err != io.EOF {
		return corpus.Record{}, fmt.Errorf("%w: trailing data after value", ErrMalformedRecord)
	}

	raw := make([]byte, len(trimmed))
	copy(raw, trimmed)
	return corpus.NewRecord(raw, value), nil
}

// Encode serializes a record to a single line without the trailing newline.
func Encode(rec corpus.Record) ([]byte, error) {
	if raw := rec.Raw(); len(raw) > 0 {
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return nil, fmt.Errorf("compacting record: %w", err)
		}
		return buf.Bytes(), nil
	}

	// Records built in memory have no source line.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec.Value()); err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// AppendLine encodes rec and appends it to dst followed by a newline.
func AppendLine(dst []byte, rec corpus.Record) ([]byte, error) {
	line, err := Encode(rec)
	if err != nil {
		return dst, err
	}
	dst = append(dst, line...)
	return append(dst, '\n'), nil
}
