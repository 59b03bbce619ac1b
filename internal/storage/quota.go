package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type quotaSubstrate struct {
	Substrate
	mu       sync.Mutex
	maxBytes int64
}

// WithQuota rejects writes that would push the substrate's usage past maxBytes.
// A non-positive maxBytes returns inner unchanged.
func WithQuota(inner Substrate, maxBytes int64) Substrate {
	if maxBytes <= 0 {
		return inner
	}
	return &quotaSubstrate{Substrate: inner, maxBytes: maxBytes}
}

func (q *quotaSubstrate) Set(ctx context.Context, key, value string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	usage, err := q.Substrate.Usage(ctx)
	if err != nil {
		return err
	}

	projected := usage + int64(len(key)+len(value))
	existing, err := q.Substrate.Get(ctx, key)
	switch {
	case err == nil:
		projected -= int64(len(key) + len(existing))
	case !errors.Is(err, ErrNotFound):
		return err
	}

	if projected > q.maxBytes {
		return fmt.Errorf("%w: writing %q needs %d of %d bytes", ErrQuotaExceeded, key, projected, q.maxBytes)
	}

	return q.Substrate.Set(ctx, key, value)
}
