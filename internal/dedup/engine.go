// Package dedup implements the run-wide seen-set that enforces at-most-once
// admission of every record identity.
//
// Identities are hashed with SHA-256 and the 32-byte digests are stored in a
// fixed number of mutex-guarded shards. The only mutation is an atomic
// test-and-insert under the shard lock, so two workers claiming the same
// identity at the same instant can never both win.
package dedup

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// shardCount must be a power of two.
const shardCount = 64

// Digest is the SHA-256 of an identity.
type Digest [sha256.Size]byte

// Sum hashes an identity.
func Sum(identity []byte) Digest {
	return sha256.Sum256(identity)
}

// Verdict is the outcome of offering a record to the engine.
type Verdict int

const (
	// Admitted means this call inserted the identity.
	Admitted Verdict = iota
	// Duplicate means the identity had already been admitted.
	Duplicate
	// NoIdentity means the record carries no usable identity.
	NoIdentity
)

// String returns the verdict name used in logs.
func (v Verdict) String() string {
	switch v {
	case Admitted:
		return "admitted"
	case Duplicate:
		return "duplicate"
	case NoIdentity:
		return "missing_identity"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

type shard struct {
	mu   sync.Mutex
	seen map[Digest]struct{}
	// pad keeps neighbouring shard locks on separate cache lines
	_ [48]byte
}

// Engine is a concurrency-safe seen-set shared by all workers of one run.
// Entries are never removed; the set lives until the engine is discarded.
type Engine struct {
	field  string
	shards [shardCount]shard
	size   atomic.Int64
}

// New creates an engine reading identities from field.
// An empty field uses DefaultIdentityField.
func New(field string) (*Engine, error) {
	if field == "" {
		field = DefaultIdentityField
	}
	if err := corpus.ValidatePath(field); err != nil {
		return nil, fmt.Errorf("invalid identity field: %w", err)
	}
	e := &Engine{field: field}
	for i := range e.shards {
		e.shards[i].seen = make(map[Digest]struct{})
	}
	return e, nil
}

// Field returns the identity field path.
func (e *Engine) Field() string {
	return e.field
}

// Claim reports whether rec is the first record of its identity in this run.
// Records without an identity are never claimed.
func (e *Engine) Claim(rec corpus.Record) bool {
	return e.Offer(rec) == Admitted
}

// Offer is Claim with the reason for a refusal.
func (e *Engine) Offer(rec corpus.Record) Verdict {
	id, err := ExtractIdentity(rec, e.field)
	if err != nil {
		return NoIdentity
	}
	if e.ClaimDigest(Sum(id)) {
		return Admitted
	}
	return Duplicate
}

// ClaimDigest atomically inserts d and reports whether this call inserted it.
func (e *Engine) ClaimDigest(d Digest) bool {
	s := &e.shards[binary.LittleEndian.Uint64(d[:8])&(shardCount-1)]

	s.mu.Lock()
	_, dup := s.seen[d]
	if !dup {
		s.seen[d] = struct{}{}
	}
	s.mu.Unlock()

	if dup {
		return false
	}
	e.size.Add(1)
	return true
}

// Len returns the number of distinct identities admitted so far.
func (e *Engine) Len() int {
	return int(e.size.Load())
}
