// Package kvstore provides the key-value persistence used for
// session-scoped records such as the per-user cart.
package kvstore

import "context"

// Store is a minimal durable key-value store. Get returns ErrNotFound
// for missing keys; Delete on a missing key is a no-op.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
