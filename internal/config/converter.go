package config

import (
	"errors"
	"fmt"

	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// ErrInvalidFilterFile is returned when a validated document still cannot
// be turned into a filter configuration.
var ErrInvalidFilterFile = errors.New("invalid filter configuration")

// FilterFile is the converted content of a filter configuration file.
type FilterFile struct {
	// IdentityField is empty when the file does not set one
	IdentityField string

	// Filters is nil when the file has no filters key, which selects the
	// default chain. An empty list disables filtering.
	Filters []corpus.FilterConfig
}

// ConvertFilterFile converts a parsed document into a FilterFile. The
// document should have passed ValidateConfig first.
//
// Expected shape:
//
//	identity:
//	  field: signature
//	filters:
//	  - type: status
//	    config: { path: meta.err }
func ConvertFilterFile(data map[string]interface{}) (*FilterFile, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: configuration data is nil", ErrInvalidFilterFile)
	}

	out := &FilterFile{}

	if raw, ok := data["identity"]; ok && raw != nil {
		identity, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: 'identity' must be an object", ErrInvalidFilterFile)
		}
		field, ok := identity["field"].(string)
		if !ok || field == "" {
			return nil, fmt.Errorf("%w: 'identity.field' must be a non-empty string", ErrInvalidFilterFile)
		}
		if err := corpus.ValidatePath(field); err != nil {
			return nil, fmt.Errorf("%w: identity.field: %w", ErrInvalidFilterFile, err)
		}
		out.IdentityField = field
	}

	raw, ok := data["filters"]
	if !ok || raw == nil {
		return out, nil
	}
	list, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: 'filters' must be an array", ErrInvalidFilterFile)
	}
	out.Filters = make([]corpus.FilterConfig, 0, len(list))
	for i, item := range list {
		cfg, err := convertFilter(item)
		if err != nil {
			return nil, fmt.Errorf("%w: filters[%d]: %w", ErrInvalidFilterFile, i, err)
		}
		out.Filters = append(out.Filters, cfg)
	}
	return out, nil
}

func convertFilter(item interface{}) (corpus.FilterConfig, error) {
	m, ok := item.(map[string]interface{})
	if !ok {
		return corpus.FilterConfig{}, fmt.Errorf("expected object, got %T", item)
	}
	typ, ok := m["type"].(string)
	if !ok || typ == "" {
		return corpus.FilterConfig{}, errors.New("'type' must be a non-empty string")
	}
	cfg := corpus.FilterConfig{Type: typ}
	if raw, ok := m["config"]; ok && raw != nil {
		params, ok := raw.(map[string]interface{})
		if !ok {
			return corpus.FilterConfig{}, fmt.Errorf("'config' must be an object, got %T", raw)
		}
		cfg.Config = params
	}
	return cfg, nil
}

// LoadFilterFile parses, validates and converts a filter configuration
// file. The returned Result carries parse and validation errors; err is
// set only when a valid document fails conversion.
func LoadFilterFile(path string) (*FilterFile, *Result, error) {
	result := ParseConfig(path)
	if !result.IsValid() {
		return nil, result, nil
	}
	ff, err := ConvertFilterFile(result.Data)
	return ff, result, err
}
