package filter

import (
	"github.com/projectyurei/corpus-cleaner-cli/pkg/corpus"
)

// SpamFilter reserves the chain slot for a minimum-value threshold.
// The threshold is parsed and carried, but no record is dropped yet: the
// policy that decides what counts as spam is not defined.
type SpamFilter struct {
	MinLamports int64
}

// ParseSpamConfig creates a spam filter from raw config.
func ParseSpamConfig(cfg map[string]interface{}) (*SpamFilter, error) {
	threshold, err := optionalInt(cfg, "minLamports")
	if err != nil {
		return nil, err
	}
	return &SpamFilter{MinLamports: threshold}, nil
}

// Keep implements Filter.
func (f *SpamFilter) Keep(corpus.Record) bool {
	return true
}

// UTF8Filter reserves the chain slot for a payload-encoding check.
// Like SpamFilter it keeps every record.
type UTF8Filter struct{}

// Keep implements Filter.
func (UTF8Filter) Keep(corpus.Record) bool {
	return true
}
