// Package storage persists report artifacts in a durable object store and
// answers freshness queries without fetching report bodies.
package storage

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrObjectNotFound is returned when a key has no stored object.
var ErrObjectNotFound = eris.New("storage: object not found")

// ObjectInfo is the metadata of a stored object, without its content.
type ObjectInfo struct {
	Metadata map[string]string
	Updated  time.Time
}

// ObjectStore is the narrow blob-store interface the gateway runs on.
// Put fully replaces any prior value at key.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
}
