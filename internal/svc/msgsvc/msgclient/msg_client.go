package msgclient

import (
	"context"

	"github.com/pigeonmsg/pigeond/internal/domain"
)

// MsgClient defines the interface for talking to the message service API.
type MsgClient interface {
	// Register creates a new identity with the given username and password.
	Register(ctx context.Context, username, password string) error

	// Send posts a message authenticated with the author's password.
	// Returns the timestamp the message was recorded under.
	Send(ctx context.Context, password string, msg domain.Message) (uint64, error)

	// Receive retrieves messages recorded after the given timestamp that are
	// visible to the authenticated username.
	Receive(ctx context.Context, username, password string, since uint64) ([]domain.StampedMessage, error)
}
