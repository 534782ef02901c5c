// Package runtime drives corpus files through the cleaning pipeline.
// A Pipeline decides the fate of one record, a Processor streams one file
// through it, and an Executor runs many files on a bounded worker pool
// sharing a single deduplication engine.
package runtime

import (
	"errors"
	"fmt"

	"github.com/projectyurei/corpus-cleaner-cli/internal/dedup"
	"github.com/projectyurei/corpus-cleaner-cli/internal/modules/filter"
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// ErrNilEngine is returned when a pipeline is built without a dedup engine.
var ErrNilEngine = errors.New("dedup engine is nil")

// Decision is what the pipeline did with a record.
type Decision int

const (
	// DecisionAdmit means the record passed every filter and won its claim.
	DecisionAdmit Decision = iota
	// DecisionFiltered means a filter in the chain dropped the record.
	DecisionFiltered
	// DecisionMissingIdentity means the record has no usable identity.
	DecisionMissingIdentity
	// DecisionDuplicate means the record's identity was already admitted.
	DecisionDuplicate
)

func (d Decision) String() string {
	switch d {
	case DecisionAdmit:
		return "admit"
	case DecisionFiltered:
		return "filtered"
	case DecisionMissingIdentity:
		return "missing_identity"
	case DecisionDuplicate:
		return "duplicate"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

// Pipeline runs the filter chain and then the dedup claim.
// Only records kept by every filter reach the shared seen-set.
// It is safe for concurrent use when its filters are.
type Pipeline struct {
	chain  *filter.Chain
	engine *dedup.Engine
}

// NewPipeline creates a pipeline. A nil chain keeps every record.
func NewPipeline(chain *filter.Chain, engine *dedup.Engine) (*Pipeline, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}
	if chain == nil {
		chain = filter.NewChain()
	}
	return &Pipeline{chain: chain, engine: engine}, nil
}

// Process reports whether rec is admitted.
func (p *Pipeline) Process(rec corpus.Record) bool {
	return p.Decide(rec) == DecisionAdmit
}

// Decide is Process with the reason a record was not admitted.
func (p *Pipeline) Decide(rec corpus.Record) Decision {
	if keep, _ := p.chain.Evaluate(rec); !keep {
		return DecisionFiltered
	}
	switch p.engine.Offer(rec) {
	case dedup.Admitted:
		return DecisionAdmit
	case dedup.Duplicate:
		return DecisionDuplicate
	default:
		return DecisionMissingIdentity
	}
}

// Engine returns the shared dedup engine.
func (p *Pipeline) Engine() *dedup.Engine {
	return p.engine
}

// Chain returns the filter chain.
func (p *Pipeline) Chain() *filter.Chain {
	return p.chain
}
