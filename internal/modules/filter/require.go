package filter

import (
	"fmt"

	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// RequireFilter keeps records where every listed path resolves to a non-null value.
type RequireFilter struct {
	paths []string
}

// NewRequire creates a require filter over the given paths.
func NewRequire(paths []string) (*RequireFilter, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: require filter needs at least one path", ErrInvalidConfig)
	}
	for _, p := range paths {
		if err := corpus.ValidatePath(p); err != nil {
			return nil, fmt.Errorf("%w: require path %q: %v", ErrInvalidConfig, p, err)
		}
	}
	return &RequireFilter{paths: append([]string(nil), paths...)}, nil
}

// ParseRequireConfig creates a require filter from raw config.
func ParseRequireConfig(cfg map[string]interface{}) (*RequireFilter, error) {
	paths, err := stringList(cfg, "paths")
	if err != nil {
		return nil, err
	}
	return NewRequire(paths)
}

// Keep implements Filter.
func (f *RequireFilter) Keep(rec corpus.Record) bool {
	for _, p := range f.paths {
		if v, found := rec.Lookup(p); !found || v == nil {
			return false
		}
	}
	return true
}
