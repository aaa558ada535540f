package cache

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("cache entry not found")

// Store is a namespaced key-value store of response snapshots.
// All writes are whole-entry replacements; concurrent writes to the same
// key are last-write-wins.
type Store interface {
	Get(ctx context.Context, namespace, key string) (Entry, error)
	Put(ctx context.Context, namespace string, ent Entry) error
	Delete(ctx context.Context, namespace, key string) error
	// Keys returns the stored keys of a namespace.
	Keys(ctx context.Context, namespace string) ([]string, error)
	// Namespaces enumerates every namespace present in the store,
	// including stale versions from previous deploys.
	Namespaces(ctx context.Context) ([]string, error)
	// Drop removes a namespace and all its entries.
	Drop(ctx context.Context, namespace string) error
}
