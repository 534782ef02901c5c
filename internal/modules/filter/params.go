package filter

import (
	"encoding/json"
	"fmt"
	"math"
)

// optionalString reads a string parameter. A missing key yields "".
func optionalString(cfg map[string]interface{}, key string) (string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: field '%s' must be a string", ErrInvalidConfig, key)
	}
	return s, nil
}

// optionalInt reads an integer parameter. JSON configs decode numbers as
// float64 and YAML configs as int, both are accepted.
func optionalInt(cfg map[string]interface{}, key string) (int64, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return 0, nil
	}
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%w: field '%s' must be an integer", ErrInvalidConfig, key)
		}
		return int64(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: field '%s' must be an integer", ErrInvalidConfig, key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: field '%s' must be an integer", ErrInvalidConfig, key)
	}
}

// stringList reads a list of strings.
func stringList(cfg map[string]interface{}, key string) ([]string, error) {
	raw, ok := cfg[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s[%d] must be a string", ErrInvalidConfig, key, i)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: field '%s' must be a list of strings", ErrInvalidConfig, key)
	}
}

// onErrorMode validates an onError setting. Empty means drop.
func onErrorMode(mode string) (string, error) {
	switch mode {
	case "":
		return OnErrorDrop, nil
	case OnErrorDrop, OnErrorKeep:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: onError must be '%s' or '%s', got %q", ErrInvalidConfig, OnErrorDrop, OnErrorKeep, mode)
	}
}

// plain converts json.Number leaves to int64 or float64 so that expression
// and script engines can compare them as numbers.
func plain(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[k] = plain(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}

// toBool converts an evaluation result to a verdict.
func toBool(value interface{}) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}

// isWhitespaceOnly checks if a string contains only whitespace characters.
func isWhitespaceOnly(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}
