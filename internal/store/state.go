package store

import (
	"fmt"
	"sync"

	"github.com/pigeonmsg/pigeond/internal/domain"
)

// State combines the Directory and the MessageLog behind a single
// reader/writer lock. Every request handler shares one State instance, so the
// check-then-act sequences spanning both structures (credential verification,
// recipient validation, log append) are observed atomically by all callers.
type State struct {
	mu  sync.RWMutex
	dir *Directory
	log *MessageLog
}

// NewState creates a State owning the given directory and message log.
func NewState(dir *Directory, log *MessageLog) *State {
	return &State{
		dir: dir,
		log: log,
	}
}

// Register inserts a new identity under the write lock.
// Returns domain.ErrIdentityExists if the username is already taken.
func (s *State) Register(username string, credential []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.dir.Register(username, credential); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	return nil
}

// Contains reports whether the username is registered.
func (s *State) Contains(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dir.Contains(username)
}

// Authenticate verifies a presented credential under the read lock.
func (s *State) Authenticate(username string, credential []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dir.Verify(username, credential)
}

// Post runs the whole send path as one write-locked critical section:
// authenticate the author, validate every recipient, then append to the log.
// The recorded timestamp reflects the order of lock acquisition. A failure at
// any step leaves the log unchanged. Returns the recorded timestamp.
func (s *State) Post(msg domain.Message, credential []byte) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dir.Verify(msg.Author, credential) {
		return 0, fmt.Errorf("%w: %s", domain.ErrBadCredentials, msg.Author)
	}

	for _, recipient := range msg.Recipients {
		if !s.dir.Contains(recipient) {
			return 0, fmt.Errorf("%w: %s", domain.ErrNonExistentRecipient, recipient)
		}
	}

	stamp, err := s.log.Append(s.dir, msg)
	if err != nil {
		return 0, fmt.Errorf("append: %w", err)
	}

	return stamp, nil
}

// QueryAfter collects every message with since < timestamp < now, in
// ascending timestamp order, under the read lock. The upper bound is sampled
// from the log's own clock inside the critical section, so a same-second
// append racing the query can never be half-visible. A non-empty recipient
// restricts the result to broadcasts and messages listing that recipient.
func (s *State) QueryAfter(since uint64, recipient string) []domain.StampedMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.log.Now()

	var result []domain.StampedMessage

	for stamp, msg := range s.log.QueryAfter(since, now, recipient) {
		result = append(result, domain.StampedMessage{Timestamp: stamp, Message: msg})
	}

	return result
}

// Snapshot returns deep copies of both structures, taken under the read lock,
// for serialization. The snapshot never aliases live state.
func (s *State) Snapshot() (map[string][]byte, map[uint64][]domain.Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dir.Snapshot(), s.log.Snapshot()
}

// Counts returns the number of identities and messages, for startup logging.
func (s *State) Counts() (identities, messages int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.dir.Len(), s.log.Len()
}
