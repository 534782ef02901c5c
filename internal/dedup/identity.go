package dedup

import (
	"errors"
	"fmt"

	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// DefaultIdentityField is the field that carries a transaction's signature.
const DefaultIdentityField = "signature"

// Errors for identity extraction
var (
	// ErrMissingIdentity is returned when a record has no usable identity.
	ErrMissingIdentity = errors.New("missing identity")

	// ErrIdentityNotString is returned when the identity field holds a non-string value.
	ErrIdentityNotString = fmt.Errorf("%w: identity field is not a string", ErrMissingIdentity)
)

// ExtractIdentity returns the identity of rec read at field (dot notation).
// Only string values are identities; an absent, null, or non-string field
// means the record has none.
func ExtractIdentity(rec corpus.Record, field string) ([]byte, error) {
	value, found := rec.Lookup(field)
	if !found || value == nil {
		return nil, fmt.Errorf("%w: %q not found", ErrMissingIdentity, field)
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %q holds %T", ErrIdentityNotString, field, value)
	}
	return []byte(s), nil
}
