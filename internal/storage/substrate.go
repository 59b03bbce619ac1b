package storage

import "context"

// Substrate is the raw keyed byte store behind the Store. Implementations return ErrNotFound for
// missing keys and wrap transport failures in ErrUnavailable or ErrQuotaExceeded.
type Substrate interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Usage reports the bytes held (keys plus values).
	Usage(ctx context.Context) (int64, error)
}
