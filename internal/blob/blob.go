// Package blob stores opaque values under string keys. Every backend
// overwrites a value as a whole; there are no partial updates.
package blob

import (
	"context"
	stderrors "errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = stderrors.New("blob: not found")

// Store is the persistence capability the visit tracker depends on.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
