package store

import (
	"crypto/hmac"
	"fmt"

	"github.com/pigeonmsg/pigeond/internal/domain"
)

// Directory is the authoritative mapping from registered usernames to their
// credentials. A nil credential marks a bare identity (membership only);
// otherwise the value is the salted hash of the identity's password.
//
// Directory is not safe for concurrent use on its own; State serializes all
// access behind its lock.
type Directory struct {
	identities map[string][]byte
}

// NewDirectory creates an empty Directory.
func NewDirectory() *Directory {
	return &Directory{
		identities: make(map[string][]byte),
	}
}

// NewDirectoryFrom creates a Directory from a snapshot of identities.
// The map is copied; the caller keeps ownership of its argument.
func NewDirectoryFrom(identities map[string][]byte) *Directory {
	dir := NewDirectory()

	for username, credential := range identities {
		dir.identities[username] = append([]byte(nil), credential...)
	}

	return dir
}

// Register inserts a new identity. The credential may be nil for the bare
// variant. Returns domain.ErrIdentityExists if the username is already taken;
// an existing entry is never overwritten.
func (d *Directory) Register(username string, credential []byte) error {
	if _, exists := d.identities[username]; exists {
		return fmt.Errorf("%w: %s", domain.ErrIdentityExists, username)
	}

	d.identities[username] = append([]byte(nil), credential...)

	return nil
}

// Contains reports whether the username is registered.
func (d *Directory) Contains(username string) bool {
	_, exists := d.identities[username]

	return exists
}

// Verify checks a presented credential against the stored one. Unknown
// usernames verify as false, not as an error, so that authentication failure
// stays observably distinct from hashing failure. A nil presented credential
// selects the bare variant and degenerates to a presence check.
func (d *Directory) Verify(username string, credential []byte) bool {
	stored, exists := d.identities[username]
	if !exists {
		return false
	}

	if credential == nil {
		return true
	}

	return hmac.Equal(stored, credential)
}

// Len returns the number of registered identities.
func (d *Directory) Len() int {
	return len(d.identities)
}

// Snapshot returns a deep copy of the identity map for serialization.
func (d *Directory) Snapshot() map[string][]byte {
	identities := make(map[string][]byte, len(d.identities))

	for username, credential := range d.identities {
		identities[username] = append([]byte(nil), credential...)
	}

	return identities
}
