package registry

import (
	"fmt"

	"github.com/projectyurei/corpus-cleaner-cli/internal/modules/filter"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// Built-in filter type names.
const (
	TypeStatus    = "status"
	TypeSpam      = "spam"
	TypeUTF8      = "utf8"
	TypeRequire   = "require"
	TypeCondition = "condition"
	TypeScript    = "script"
)

// Descriptions are one-line summaries of the built-in filters.
var Descriptions = map[string]string{
	TypeStatus:    "drop records whose error field (default meta.err) is present and not null",
	TypeSpam:      "minimum-value threshold (placeholder, keeps every record)",
	TypeUTF8:      "payload encoding check (placeholder, keeps every record)",
	TypeRequire:   "drop records missing any of the listed paths",
	TypeCondition: "keep records for which an expr-lang expression is true",
	TypeScript:    "keep records for which a JavaScript keep(record) function returns true",
}

func init() {
	registerBuiltinFilters()
}

func registerBuiltinFilters() {
	RegisterFilter(TypeStatus, func(cfg corpus.FilterConfig, index int) (filter.Filter, error) {
		f, err := filter.ParseStatusConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid status config at index %d: %w", index, err)
		}
		return f, nil
	})

	RegisterFilter(TypeSpam, func(cfg corpus.FilterConfig, index int) (filter.Filter, error) {
		f, err := filter.ParseSpamConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid spam config at index %d: %w", index, err)
		}
		return f, nil
	})

	RegisterFilter(TypeUTF8, func(corpus.FilterConfig, int) (filter.Filter, error) {
		return filter.UTF8Filter{}, nil
	})

	RegisterFilter(TypeRequire, func(cfg corpus.FilterConfig, index int) (filter.Filter, error) {
		f, err := filter.ParseRequireConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid require config at index %d: %w", index, err)
		}
		return f, nil
	})

	RegisterFilter(TypeCondition, func(cfg corpus.FilterConfig, index int) (filter.Filter, error) {
		condConfig, err := filter.ParseConditionConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid condition config at index %d: %w", index, err)
		}
		f, err := filter.NewConditionFromConfig(condConfig)
		if err != nil {
			return nil, fmt.Errorf("invalid condition config at index %d: %w", index, err)
		}
		return f, nil
	})

	RegisterFilter(TypeScript, func(cfg corpus.FilterConfig, index int) (filter.Filter, error) {
		scriptConfig, err := filter.ParseScriptConfig(cfg.Config)
		if err != nil {
			return nil, fmt.Errorf("invalid script config at index %d: %w", index, err)
		}
		f, err := filter.NewScriptFromConfig(scriptConfig)
		if err != nil {
			return nil, fmt.Errorf("invalid script config at index %d: %w", index, err)
		}
		return f, nil
	})
}
