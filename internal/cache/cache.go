// Package cache holds the bounded, time-expiring lookup caches used by the
// GitHub enrichment pipeline.
package cache

import "context"

// Store is a keyed cache of T. A miss and an expired entry look the same.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, value T)
}
