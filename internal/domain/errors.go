package domain

import "errors"

var (
	// ErrIdentityExists is returned when registering a username that is already taken.
	ErrIdentityExists = errors.New("identity already exists")
	// ErrNonExistentAuthor is returned when a message names an unregistered author.
	ErrNonExistentAuthor = errors.New("message author does not exist")
	// ErrNonExistentRecipient is returned when a message names an unregistered recipient.
	ErrNonExistentRecipient = errors.New("message recipient does not exist")
	// ErrBadCredentials is returned when authentication fails.
	// It deliberately does not distinguish an unknown username from a wrong password.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrBadSalt is returned when the configured credential salt has the wrong length.
	ErrBadSalt = errors.New("credential salt must be exactly 16 bytes")
	// ErrBadCost is returned when the configured credential cost is out of range.
	ErrBadCost = errors.New("credential cost out of range")
)
