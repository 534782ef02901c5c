package config

import (
	"fmt"
	"strings"
)

// Format names for filter configuration files.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Parse error types.
const (
	ErrorTypeIO     = "io"
	ErrorTypeSyntax = "syntax"
	ErrorTypeFormat = "format"
)

// ParseResult holds the decoded document of a filter configuration file.
type ParseResult struct {
	Data     map[string]interface{}
	Errors   []ParseError
	FilePath string
	Format   string
}

// IsValid returns true if no parsing errors occurred.
func (r *ParseResult) IsValid() bool {
	return len(r.Errors) == 0
}

// ParseError is a decoding failure with location information.
type ParseError struct {
	// Path is the file being parsed
	Path string
	// Line is 1-based, 0 if unknown
	Line int
	// Column is 1-based, 0 if unknown
	Column int
	// Offset is the byte offset in the file (0 if unknown)
	Offset  int64
	Message string
	// Type is one of ErrorTypeIO, ErrorTypeSyntax, ErrorTypeFormat
	Type string
}

func (e ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&sb, ", column %d", e.Column)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// ValidationResult is the outcome of checking a document against the schema.
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError is one schema violation.
type ValidationError struct {
	// Path is a JSON pointer into the document (e.g. "/filters/2/config")
	Path string
	// Type is a short keyword such as required, type, enum or pattern
	Type     string
	Expected string
	Message  string
}

func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result combines parsing and validation of one filter configuration.
type Result struct {
	Data             map[string]interface{}
	ParseErrors      []ParseError
	ValidationErrors []ValidationError
	FilePath         string
	Format           string
}

// IsValid returns true if the document parsed and passed validation.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}

// AllErrors returns parse errors followed by validation errors.
func (r *Result) AllErrors() []error {
	errs := make([]error, 0, len(r.ParseErrors)+len(r.ValidationErrors))
	for _, e := range r.ParseErrors {
		errs = append(errs, e)
	}
	for _, e := range r.ValidationErrors {
		errs = append(errs, e)
	}
	return errs
}
