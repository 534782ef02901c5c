package corpus

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Path parsing errors
var (
	ErrEmptyPath         = errors.New("empty path")
	ErrInvalidArrayIndex = errors.New("invalid array index in path")
)

// Lookup extracts a value from the record using dot notation.
// Supports paths like "meta.err" and array indexing like "accounts[0].key".
// Returns the value and whether the path was found. A path that resolves to
// an explicit JSON null is found with a nil value.
func (r Record) Lookup(path string) (interface{}, bool) {
	return LookupValue(r.value, path)
}

// LookupValue walks path through nested objects and arrays starting at root.
func LookupValue(root interface{}, path string) (interface{}, bool) {
	if path == "" {
		return nil, false
	}
	current := root
	for _, part := range strings.Split(path, ".") {
		next, ok := step(current, part)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// ValidatePath reports whether path is well formed.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	for _, part := range strings.Split(path, ".") {
		key, _, _, err := ParsePathPart(part)
		if err != nil {
			return err
		}
		if key == "" {
			return fmt.Errorf("empty segment in path %q", path)
		}
	}
	return nil
}

// step advances one path segment (e.g. "key" or "items[0]").
func step(current interface{}, part string) (interface{}, bool) {
	key, index, hasIndex, err := ParsePathPart(part)
	if err != nil {
		return nil, false
	}
	m, ok := current.(map[string]interface{})
	if !ok {
		return nil, false
	}
	next, ok := m[key]
	if !ok {
		return nil, false
	}
	if !hasIndex {
		return next, true
	}
	arr, ok := next.([]interface{})
	if !ok || index >= len(arr) {
		return nil, false
	}
	return arr[index], true
}

// ParsePathPart parses a path segment and extracts the key and optional array index.
// For "items[0]" returns ("items", 0, true, nil)
// For "name" returns ("name", -1, false, nil)
func ParsePathPart(part string) (key string, index int, hasIndex bool, err error) {
	open := strings.Index(part, "[")
	if open == -1 {
		return part, -1, false, nil
	}
	end := strings.Index(part, "]")
	if end == -1 || end < open+1 || end != len(part)-1 {
		return "", -1, false, fmt.Errorf("%w: %q", ErrInvalidArrayIndex, part)
	}
	n, convErr := strconv.Atoi(part[open+1 : end])
	if convErr != nil || n < 0 {
		return "", -1, false, fmt.Errorf("%w: %q", ErrInvalidArrayIndex, part)
	}
	return part[:open], n, true, nil
}
