package repository

import (
	"context"
	"errors"
)

// ErrNotFound is returned by KV.Get when the key has never been written
// or was deleted.
var ErrNotFound = errors.New("entry not found")

// KV is the local persisted key-value store. Values are overwritten wholesale.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
