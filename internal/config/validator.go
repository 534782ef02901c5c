package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/cleaner-schema.json
var embeddedSchema []byte

const schemaURL = "https://projectyurei.dev/schemas/corpus-cleaner/v1/filters.json"

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaInitErr  error
)

// Schema returns the embedded filter configuration schema.
func Schema() []byte {
	return embeddedSchema
}

func getCompiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(embeddedSchema))
		if err != nil {
			schemaInitErr = fmt.Errorf("failed to parse embedded schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, doc); err != nil {
			schemaInitErr = fmt.Errorf("failed to add schema resource: %w", err)
			return
		}
		compiledSchema, schemaInitErr = compiler.Compile(schemaURL)
		if schemaInitErr != nil {
			schemaInitErr = fmt.Errorf("failed to compile schema: %w", schemaInitErr)
		}
	})
	return compiledSchema, schemaInitErr
}

// ValidateConfig checks a decoded filter configuration against the schema.
func ValidateConfig(data map[string]interface{}) *ValidationResult {
	result := &ValidationResult{Valid: true}

	if len(data) == 0 {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Path:    "/",
			Type:    "required",
			Message: "configuration is empty: expected identity or filters",
		})
		return result
	}

	schema, err := getCompiledSchema()
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, ValidationError{
			Path:    "/",
			Type:    "schema",
			Message: fmt.Sprintf("failed to load schema: %v", err),
		})
		return result
	}

	if err := schema.Validate(data); err != nil {
		result.Valid = false
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			result.Errors = leafErrors(verr, nil)
		}
		if len(result.Errors) == 0 {
			result.Errors = append(result.Errors, ValidationError{
				Path:    "/",
				Type:    "validation",
				Message: err.Error(),
			})
		}
	}
	return result
}

// leafErrors flattens the error tree to its leaves, which name the keyword
// that actually failed.
func leafErrors(err *jsonschema.ValidationError, out []ValidationError) []ValidationError {
	if len(err.Causes) == 0 {
		msg := leafMessage(err.Error())
		return append(out, ValidationError{
			Path:    instancePath(err.InstanceLocation),
			Type:    errorType(msg),
			Message: msg,
		})
	}
	for _, cause := range err.Causes {
		out = leafErrors(cause, out)
	}
	return out
}

// leafMessage drops the schema URL header jsonschema puts before the
// keyword message.
func leafMessage(msg string) string {
	lines := strings.Split(strings.TrimSpace(msg), "\n")
	last := strings.TrimSpace(lines[len(lines)-1])
	last = strings.TrimPrefix(last, "- ")
	if i := strings.Index(last, "': "); strings.HasPrefix(last, "at '") && i > 0 {
		return last[i+3:]
	}
	return last
}

func instancePath(loc []string) string {
	if len(loc) == 0 {
		return "/"
	}
	return "/" + strings.Join(loc, "/")
}

func errorType(msg string) string {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "missing propert"):
		return "required"
	case strings.Contains(msg, "additional propert"):
		return "additionalProperties"
	case strings.Contains(msg, "got ") && strings.Contains(msg, "want "):
		if strings.Contains(msg, "value must be one of") {
			return "enum"
		}
		return "type"
	case strings.Contains(msg, "must be one of"):
		return "enum"
	case strings.Contains(msg, "does not match pattern"):
		return "pattern"
	case strings.Contains(msg, "minimum") || strings.Contains(msg, "maximum") ||
		strings.Contains(msg, "must be >=") || strings.Contains(msg, "must be <="):
		return "range"
	case strings.Contains(msg, "minlength") || strings.Contains(msg, "length must be"):
		return "length"
	default:
		return "validation"
	}
}
