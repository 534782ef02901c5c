package filter

import (
	"fmt"

	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// DefaultStatusPath is where transaction records carry their error indicator.
const DefaultStatusPath = "meta.err"

// StatusFilter drops records whose error indicator is present and non-null.
// A null or absent indicator means the transaction succeeded.
type StatusFilter struct {
	path string
}

// NewStatus creates a status filter reading the indicator at path.
// An empty path uses DefaultStatusPath.
func NewStatus(path string) (*StatusFilter, error) {
	if path == "" {
		path = DefaultStatusPath
	}
	if err := corpus.ValidatePath(path); err != nil {
		return nil, fmt.Errorf("%w: status path: %v", ErrInvalidConfig, err)
	}
	return &StatusFilter{path: path}, nil
}

// ParseStatusConfig creates a status filter from raw config.
func ParseStatusConfig(cfg map[string]interface{}) (*StatusFilter, error) {
	path, err := optionalString(cfg, "path")
	if err != nil {
		return nil, err
	}
	return NewStatus(path)
}

// Keep implements Filter.
func (f *StatusFilter) Keep(rec corpus.Record) bool {
	v, found := rec.Lookup(f.path)
	return !found || v == nil
}

// Path returns the indicator path.
func (f *StatusFilter) Path() string {
	return f.path
}
