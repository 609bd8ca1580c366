package storage

import (
	"fmt"

	"github.com/rs/zerolog"
)

// NewBackend constructs a Backend for kind. KindLocal is rooted at dir
// and requires no retry wrapper (filesystem errors aren't the transient
// class spec.md §4.2 describes). Every remote kind gets the
// unconfigured Remote stub wrapped in WithRetry, so the retry policy is
// already in place the day real client wiring lands.
func NewBackend(kind Kind, dir string, logger zerolog.Logger) (Backend, error) {
	switch kind {
	case KindLocal:
		return NewLocal(dir, logger)
	case KindS3, KindGCS, KindAzure, KindB2, KindMinIO:
		return WithRetry(NewRemote(kind), logger), nil
	default:
		return nil, fmt.Errorf("storage: unknown backend kind %q", kind)
	}
}
