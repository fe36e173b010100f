package ports

import "context"

// DocumentStore is a per-document atomic key/value store grouped by collection.
// Get returns domerrors.ErrNotFound for a missing key. Delete of a missing key is not an error.
type DocumentStore interface {
	Get(ctx context.Context, collection, key string) ([]byte, error)
	Set(ctx context.Context, collection, key string, value []byte) error
	Delete(ctx context.Context, collection, key string) error
	List(ctx context.Context, collection string) (map[string][]byte, error)
}

// ConditionalWriter is the optional create-if-absent capability of a DocumentStore.
// created is false when a document already exists at key; the existing value is left untouched.
type ConditionalWriter interface {
	CreateIfAbsent(ctx context.Context, collection, key string, value []byte) (created bool, err error)
}

// Pinger is implemented by stores that can report their health.
type Pinger interface {
	Ping(ctx context.Context) error
}
