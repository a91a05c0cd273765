package snapshot

import (
	"context"
	"errors"
)

// Snapshot blob names used by the message service.
const (
	UsersBlob    = "users"
	MessagesBlob = "messages"
)

// ErrSnapshotNotFound is returned by Fetch when no blob with the given name
// has been stored yet. Callers treat it as "start empty".
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Repository defines the interface for durable snapshot storage. A repository
// holds independently named serialized blobs; it never holds a live reference
// to in-memory state, only the transient copies handed to Store.
type Repository interface {
	// Fetch retrieves the blob with the given name.
	// Returns an error wrapping ErrSnapshotNotFound if it was never stored.
	Fetch(ctx context.Context, name string) ([]byte, error)

	// Store persists the blob under the given name, overwriting any prior
	// contents wholesale.
	Store(ctx context.Context, name string, data []byte) error

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
