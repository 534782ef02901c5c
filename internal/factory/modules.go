// Package factory builds the cleaning pipeline from configuration.
//
// # Filter Creation
//
// The factory looks filter constructors up by type in the registry package.
// Built-in filters are registered at startup. An unknown type is a
// configuration error.
//
// # Adding New Filter Types
//
// To add a new filter type, see the documentation in internal/registry.
// You do NOT need to modify this factory; just register your constructor.
package factory

import (
	"errors"
	"fmt"

	"github.com/projectyurei/corpus-cleaner-cli/internal/dedup"
	"github.com/projectyurei/corpus-cleaner-cli/internal/modules/filter"
	"github.com/projectyurei/corpus-cleaner-cli/internal/registry"
	"github.com/projectyurei/corpus-cleaner-cli/internal/runtime"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// ErrUnknownFilterType is returned for a filter type with no registered constructor.
var ErrUnknownFilterType = errors.New("unknown filter type")

// DefaultFilters is the chain used when no filter configuration is given:
// the validity filter on meta.err.
func DefaultFilters() []corpus.FilterConfig {
	return []corpus.FilterConfig{{Type: registry.TypeStatus}}
}

// CreateFilters creates one filter per configuration, in order.
func CreateFilters(cfgs []corpus.FilterConfig) ([]filter.Stage, error) {
	stages := make([]filter.Stage, 0, len(cfgs))
	for i, cfg := range cfgs {
		f, err := createFilter(cfg, i)
		if err != nil {
			return nil, err
		}
		stages = append(stages, filter.Stage{Type: cfg.Type, Filter: f})
	}
	return stages, nil
}

func createFilter(cfg corpus.FilterConfig, index int) (filter.Filter, error) {
	constructor := registry.GetFilterConstructor(cfg.Type)
	if constructor == nil {
		return nil, fmt.Errorf("%w %q at index %d", ErrUnknownFilterType, cfg.Type, index)
	}
	f, err := constructor(cfg, index)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("filter %q at index %d: constructor returned nil", cfg.Type, index)
	}
	return f, nil
}

// BuildChain creates the filter chain. A nil cfgs uses DefaultFilters;
// an empty non-nil slice builds a chain that keeps everything.
func BuildChain(cfgs []corpus.FilterConfig) (*filter.Chain, error) {
	if cfgs == nil {
		cfgs = DefaultFilters()
	}
	stages, err := CreateFilters(cfgs)
	if err != nil {
		return nil, err
	}
	return filter.NewChain(stages...), nil
}

// BuildPipeline creates the filter chain and a fresh dedup engine reading
// identities from identityField.
func BuildPipeline(cfgs []corpus.FilterConfig, identityField string) (*runtime.Pipeline, error) {
	chain, err := BuildChain(cfgs)
	if err != nil {
		return nil, err
	}
	engine, err := dedup.New(identityField)
	if err != nil {
		return nil, err
	}
	return runtime.NewPipeline(chain, engine)
}
