// Package filter provides the stateless predicates of the cleaning pipeline.
//
// A filter decides keep or drop for one record at a time. Filters hold only
// construction-time parameters and must be safe for concurrent use: the same
// chain is shared by every worker of a run.
package filter

import (
	"errors"

	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// Error handling modes for filters whose evaluation can fail.
const (
	// OnErrorDrop drops a record whose evaluation failed (default)
	OnErrorDrop = "drop"
	// OnErrorKeep keeps a record whose evaluation failed
	OnErrorKeep = "keep"
)

// ErrInvalidConfig is returned when a filter configuration cannot be used.
var ErrInvalidConfig = errors.New("invalid filter config")

// Filter is a keep/drop predicate over a single record.
type Filter interface {
	// Keep reports whether the record survives this filter.
	Keep(rec corpus.Record) bool
}

// Func adapts an ordinary function to the Filter interface.
type Func func(rec corpus.Record) bool

// Keep calls f(rec).
func (f Func) Keep(rec corpus.Record) bool {
	return f(rec)
}

// Stage is a filter together with the type name it was configured under.
type Stage struct {
	Type   string
	Filter Filter
}

// Chain evaluates filters in configured order and stops at the first drop.
// A Chain with no stages keeps every record.
type Chain struct {
	stages []Stage
}

// NewChain creates a chain from the given stages. Nil filters are skipped.
func NewChain(stages ...Stage) *Chain {
	kept := make([]Stage, 0, len(stages))
	for _, s := range stages {
		if s.Filter != nil {
			kept = append(kept, s)
		}
	}
	return &Chain{stages: kept}
}

// Keep reports whether every filter keeps the record.
func (c *Chain) Keep(rec corpus.Record) bool {
	keep, _ := c.Evaluate(rec)
	return keep
}

// Evaluate runs the chain and returns the verdict together with the index
// of the stage that dropped the record, or -1 when it was kept.
func (c *Chain) Evaluate(rec corpus.Record) (bool, int) {
	if c == nil {
		return true, -1
	}
	for i, s := range c.stages {
		if !s.Filter.Keep(rec) {
			return false, i
		}
	}
	return true, -1
}

// Len returns the number of stages.
func (c *Chain) Len() int {
	if c == nil {
		return 0
	}
	return len(c.stages)
}

// Types returns the configured type of each stage, in order.
func (c *Chain) Types() []string {
	if c == nil {
		return nil
	}
	types := make([]string, len(c.stages))
	for i, s := range c.stages {
		types[i] = s.Type
	}
	return types
}

var _ Filter = (*Chain)(nil)
