package msgsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pigeonmsg/pigeond/internal/domain"
	"github.com/pigeonmsg/pigeond/internal/infra/logging"
	"github.com/pigeonmsg/pigeond/internal/repo/snapshot"
	"github.com/pigeonmsg/pigeond/internal/store"
)

// ServiceConfig contains configuration parameters for the message service.
type ServiceConfig struct {
	Credentials CredentialConfig `envPrefix:"CRED_"`
}

// MessageService provides the registration, send, and receive operations on
// top of the shared in-memory state, plus the snapshot load/save policy that
// makes that state durable across restarts.
type MessageService struct {
	Config    ServiceConfig
	State     *store.State
	Snapshots snapshot.Repository
	Log       logging.Logger
}

// NewMessageService creates a MessageService with the given snapshot
// repository factory and configuration. State is restored from the users and
// messages snapshot blobs; a missing or unparsable blob makes that structure
// start empty, independently of the other.
func NewMessageService(
	ctx context.Context,
	repoFactory snapshot.RepositoryFactory,
	cfg ServiceConfig,
) (*MessageService, error) {
	log := logging.GetLogger("svc.msgsvc.message_service")

	snapshots, err := repoFactory()
	if err != nil {
		return nil, fmt.Errorf("new snapshot repo: %w", err)
	}

	var users map[string][]byte

	loadBlob(ctx, snapshots, snapshot.UsersBlob, &users, log)

	var messages map[uint64][]domain.Message

	loadBlob(ctx, snapshots, snapshot.MessagesBlob, &messages, log)

	state := store.NewState(
		store.NewDirectoryFrom(users),
		store.NewMessageLogFrom(messages, nil),
	)

	identities, msgs := state.Counts()
	log.InfoContext(ctx, "state loaded", logging.Group("state",
		"identities", identities,
		"messages", msgs,
	))

	return &MessageService{
		Config:    cfg,
		State:     state,
		Snapshots: snapshots,
		Log:       log,
	}, nil
}

// loadBlob deserializes one snapshot blob into out, leaving out untouched on
// any failure. A blob that was never stored is expected on first run and logs
// at DEBUG; a blob that exists but cannot be read or parsed risks data loss
// and logs at WARN.
func loadBlob(ctx context.Context, repo snapshot.Repository, name string, out any, log logging.Logger) {
	data, err := repo.Fetch(ctx, name)
	if err != nil {
		if errors.Is(err, snapshot.ErrSnapshotNotFound) {
			log.DebugContext(ctx, "no snapshot, starting empty", "name", name)
		} else {
			log.WarnContext(ctx, "snapshot unreadable, starting empty", "name", name, "error", err)
		}

		return
	}

	if err := json.Unmarshal(data, out); err != nil {
		log.WarnContext(ctx, "snapshot corrupt, starting empty", "name", name, "error", err)
	}
}

// credential derives the stored-form credential for a presented password.
// With credentials disabled it returns nil, selecting the bare variant in the
// directory.
func (s *MessageService) credential(password string) ([]byte, error) {
	if !s.Config.Credentials.Enabled {
		return nil, nil
	}

	credential, err := HashPassword(password, s.Config.Credentials)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return credential, nil
}

// Register creates a new identity. With credentials enabled, the password is
// hashed before storage. Returns domain.ErrIdentityExists if the username is
// already taken; an existing credential is never overwritten.
func (s *MessageService) Register(ctx context.Context, username, password string) (err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register failed", "error", err)
		} else {
			log.DebugContext(ctx, "identity registered")
		}
	}()

	credential, err := s.credential(password)
	if err != nil {
		return err
	}

	if err := s.State.Register(username, credential); err != nil {
		return fmt.Errorf("register identity: %w", err)
	}

	return nil
}

// Send authenticates the message's author with the presented password and
// appends the message to the log. Fails with domain.ErrBadCredentials on a
// failed credential check and domain.ErrNonExistentRecipient if any recipient
// is unknown; either failure leaves the log unchanged. Returns the recorded
// timestamp.
func (s *MessageService) Send(ctx context.Context, password string, msg domain.Message) (stamp uint64, err error) {
	log := s.Log.With(logging.Group("message",
		"author", msg.Author,
		"recipients", len(msg.Recipients),
	))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "send failed", "error", err)
		} else {
			log.DebugContext(ctx, "message recorded", "timestamp", stamp)
		}
	}()

	credential, err := s.credential(password)
	if err != nil {
		return 0, err
	}

	stamp, err = s.State.Post(msg, credential)
	if err != nil {
		return 0, fmt.Errorf("post message: %w", err)
	}

	return stamp, nil
}

// Receive authenticates the caller and returns every message recorded after
// the given timestamp (exclusive) and before the current second (exclusive),
// restricted to broadcasts and messages addressed to the caller.
func (s *MessageService) Receive(
	ctx context.Context,
	username, password string,
	since uint64,
) (msgs []domain.StampedMessage, err error) {
	log := s.Log.With(logging.Group("query", "username", username, "since", since))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "receive failed", "error", err)
		} else {
			log.DebugContext(ctx, "messages queried", "count", len(msgs))
		}
	}()

	credential, err := s.credential(password)
	if err != nil {
		return nil, err
	}

	if !s.State.Authenticate(username, credential) {
		return nil, fmt.Errorf("%w: %s", domain.ErrBadCredentials, username)
	}

	return s.State.QueryAfter(since, username), nil
}

// SaveSnapshot serializes both structures and rewrites their snapshot blobs
// wholesale. Invoked synchronously on graceful shutdown; a failure here risks
// silent data loss and must be surfaced to the operator.
func (s *MessageService) SaveSnapshot(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			s.Log.ErrorContext(ctx, "save snapshot failed", "error", err)
		} else {
			s.Log.InfoContext(ctx, "snapshot saved")
		}
	}()

	users, messages := s.State.Snapshot()

	usersData, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("marshal users: %w", err)
	}

	messagesData, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	if err := s.Snapshots.Store(ctx, snapshot.UsersBlob, usersData); err != nil {
		return fmt.Errorf("store users: %w", err)
	}

	if err := s.Snapshots.Store(ctx, snapshot.MessagesBlob, messagesData); err != nil {
		return fmt.Errorf("store messages: %w", err)
	}

	return nil
}

// Close releases resources held by the service.
func (s *MessageService) Close() error {
	if err := s.Snapshots.Close(); err != nil {
		return fmt.Errorf("close snapshot repo: %w", err)
	}

	return nil
}
