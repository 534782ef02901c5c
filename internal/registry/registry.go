// Package registry maps filter type strings to their constructors.
//
// # Overview
//
// Filter chains are built from configuration by type string. Instead of a
// hard-coded switch, each filter type registers a constructor here; the
// factory looks constructors up when it builds a chain.
//
// # Adding a New Filter
//
// To add a new filter type (e.g., a "lang" filter):
//
//  1. Implement filter.Filter (a Keep(corpus.Record) bool method)
//  2. Write a constructor matching FilterConstructor
//  3. Register it in an init() function
//
// Example:
//
//	func init() {
//	    registry.RegisterFilter("lang", func(cfg corpus.FilterConfig, index int) (filter.Filter, error) {
//	        return NewLangFilter(cfg.Config)
//	    })
//	}
//
// # Built-in Filters
//
// status, spam, utf8, require, condition and script are registered at
// startup. Unknown types are a configuration error; there is no fallback.
package registry

import (
	"sort"
	"sync"

	"github.com/projectyurei/corpus-cleaner-cli/internal/modules/filter"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// FilterConstructor creates a filter from its configuration.
// index is the filter's position in the chain, used in error messages.
type FilterConstructor func(cfg corpus.FilterConfig, index int) (filter.Filter, error)

var (
	filterMu       sync.RWMutex
	filterRegistry = make(map[string]FilterConstructor)
)

// RegisterFilter registers a filter constructor by type string.
// Registering an existing type overwrites the previous constructor.
// It is safe for concurrent use.
func RegisterFilter(filterType string, constructor FilterConstructor) {
	filterMu.Lock()
	defer filterMu.Unlock()
	filterRegistry[filterType] = constructor
}

// GetFilterConstructor returns the constructor for a filter type, or nil.
func GetFilterConstructor(filterType string) FilterConstructor {
	filterMu.RLock()
	defer filterMu.RUnlock()
	return filterRegistry[filterType]
}

// ListFilterTypes returns all registered filter types, sorted.
func ListFilterTypes() []string {
	filterMu.RLock()
	defer filterMu.RUnlock()
	types := make([]string, 0, len(filterRegistry))
	for t := range filterRegistry {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ClearRegistries removes all registered constructors, built-ins included.
// This is intended for testing purposes only.
func ClearRegistries() {
	filterMu.Lock()
	filterRegistry = make(map[string]FilterConstructor)
	filterMu.Unlock()
}
