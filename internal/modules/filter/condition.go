package filter

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/projectyurei/corpus-cleaner-cli/internal/logger"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// Common errors for condition filters
var (
	// ErrEmptyExpression is returned when no expression is configured
	ErrEmptyExpression = errors.New("expression cannot be empty")
	// ErrInvalidExpression is returned when the expression syntax is invalid
	ErrInvalidExpression = errors.New("invalid expression syntax")
)

// ConditionConfig represents the configuration for a condition filter.
type ConditionConfig struct {
	// Expression is evaluated with the record's top-level fields as variables (required)
	Expression string `json:"expression"`
	// OnError decides the verdict when evaluation fails: "drop" (default) or "keep"
	OnError string `json:"onError,omitempty"`
}

// ConditionFilter keeps records for which a boolean expression holds.
// Fields missing from a record evaluate to nil. Non-boolean results are
// interpreted by truthiness.
//
// The compiled program is immutable and expr.Run allocates its own VM per
// call, so one ConditionFilter serves all workers.
type ConditionFilter struct {
	expression string
	onError    string
	program    *vm.Program
}

// NewConditionFromConfig compiles the expression and returns the filter.
func NewConditionFromConfig(config ConditionConfig) (*ConditionFilter, error) {
	if config.Expression == "" || isWhitespaceOnly(config.Expression) {
		return nil, ErrEmptyExpression
	}

	onError, err := onErrorMode(config.OnError)
	if err != nil {
		return nil, err
	}

	program, err := expr.Compile(config.Expression, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	logger.Debug("condition filter initialized",
		slog.String("expression", config.Expression),
		slog.String("on_error", onError),
	)

	return &ConditionFilter{
		expression: config.Expression,
		onError:    onError,
		program:    program,
	}, nil
}

// ParseConditionConfig parses a condition filter configuration from raw config.
func ParseConditionConfig(cfg map[string]interface{}) (ConditionConfig, error) {
	config := ConditionConfig{}

	expression, ok := cfg["expression"].(string)
	if !ok || expression == "" {
		return config, fmt.Errorf("required field 'expression' is missing or empty in condition config")
	}
	config.Expression = expression

	onError, err := optionalString(cfg, "onError")
	if err != nil {
		return config, err
	}
	config.OnError = onError
	return config, nil
}

// Keep implements Filter.
func (c *ConditionFilter) Keep(rec corpus.Record) bool {
	env := map[string]interface{}{}
	if obj, ok := rec.Object(); ok {
		env = plain(obj).(map[string]interface{})
	}

	output, err := expr.Run(c.program, env)
	if err != nil {
		logger.Debug("condition evaluation failed",
			slog.String("expression", c.expression),
			slog.String("on_error", c.onError),
			slog.String("error", err.Error()),
		)
		return c.onError == OnErrorKeep
	}

	if b, ok := output.(bool); ok {
		return b
	}
	return toBool(output)
}

// Expression returns the source expression.
func (c *ConditionFilter) Expression() string {
	return c.expression
}
