// Package metadata is the client's durable key-value store: the local
// equivalent of browser storage. Values are opaque bytes.
package metadata

import (
	"context"
)

// Repository reads and writes durable key-value pairs.
// Get returns (nil, nil) for a missing key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
