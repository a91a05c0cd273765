package store

import (
	"fmt"
	"iter"
	"sort"
	"time"

	"github.com/pigeonmsg/pigeond/internal/domain"
)

// Clock returns the current time as whole seconds since the Unix epoch.
type Clock func() uint64

// WallClock is the default Clock backed by the system time.
func WallClock() uint64 {
	return uint64(time.Now().Unix())
}

// MessageLog is the append-only, timestamp-ordered store of posted messages.
// Messages recorded within the same second share a key and keep their
// insertion order. Entries are never mutated or deleted.
//
// MessageLog is not safe for concurrent use on its own; State serializes all
// access behind its lock.
type MessageLog struct {
	stamps  []uint64 // ascending keys of byStamp
	byStamp map[uint64][]domain.Message
	clock   Clock
}

// NewMessageLog creates an empty MessageLog. A nil clock selects WallClock.
func NewMessageLog(clock Clock) *MessageLog {
	if clock == nil {
		clock = WallClock
	}

	return &MessageLog{
		stamps:  nil,
		byStamp: make(map[uint64][]domain.Message),
		clock:   clock,
	}
}

// NewMessageLogFrom creates a MessageLog from a snapshot of messages.
// The map is copied; the caller keeps ownership of its argument.
func NewMessageLogFrom(messages map[uint64][]domain.Message, clock Clock) *MessageLog {
	log := NewMessageLog(clock)

	for stamp, msgs := range messages {
		log.stamps = append(log.stamps, stamp)
		log.byStamp[stamp] = append([]domain.Message(nil), msgs...)
	}

	sort.Slice(log.stamps, func(i, j int) bool { return log.stamps[i] < log.stamps[j] })

	return log
}

// Now samples the log's own clock.
func (l *MessageLog) Now() uint64 {
	return l.clock()
}

// Append records the message under the current second. The author must be
// registered in the given directory; otherwise domain.ErrNonExistentAuthor is
// returned and the log is left unchanged. Messages arriving within the same
// second append to the existing sequence rather than replacing it.
// Returns the recorded timestamp.
func (l *MessageLog) Append(dir *Directory, msg domain.Message) (uint64, error) {
	stamp := l.clock()

	if !dir.Contains(msg.Author) {
		return 0, fmt.Errorf("%w: %s", domain.ErrNonExistentAuthor, msg.Author)
	}

	if _, exists := l.byStamp[stamp]; !exists {
		l.insertStamp(stamp)
	}

	l.byStamp[stamp] = append(l.byStamp[stamp], msg)

	return stamp, nil
}

// insertStamp keeps stamps sorted. Appends happen at the current time, so the
// common case is a plain append at the tail; the insertion path only runs if
// the clock ever steps backwards past a loaded snapshot.
func (l *MessageLog) insertStamp(stamp uint64) {
	if n := len(l.stamps); n == 0 || stamp > l.stamps[n-1] {
		l.stamps = append(l.stamps, stamp)

		return
	}

	i := sort.Search(len(l.stamps), func(i int) bool { return l.stamps[i] >= stamp })
	l.stamps = append(l.stamps, 0)
	copy(l.stamps[i+1:], l.stamps[i:])
	l.stamps[i] = stamp
}

// QueryAfter returns a lazy, restartable sequence of timestamped messages in
// ascending timestamp order. Only entries with since < timestamp < now are
// included (both bounds strict). A non-empty recipient restricts the result to
// broadcasts and messages listing that recipient; an empty recipient includes
// every message in range. The sequence reads the log without mutating it.
func (l *MessageLog) QueryAfter(since, now uint64, recipient string) iter.Seq2[uint64, domain.Message] {
	return func(yield func(uint64, domain.Message) bool) {
		start := sort.Search(len(l.stamps), func(i int) bool { return l.stamps[i] > since })

		for _, stamp := range l.stamps[start:] {
			if stamp >= now {
				return
			}

			for _, msg := range l.byStamp[stamp] {
				if recipient != "" && !msg.AddressedTo(recipient) {
					continue
				}

				if !yield(stamp, msg) {
					return
				}
			}
		}
	}
}

// Len returns the total number of recorded messages.
func (l *MessageLog) Len() int {
	var n int

	for _, msgs := range l.byStamp {
		n += len(msgs)
	}

	return n
}

// Snapshot returns a deep copy of the timestamp to messages mapping for
// serialization.
func (l *MessageLog) Snapshot() map[uint64][]domain.Message {
	messages := make(map[uint64][]domain.Message, len(l.byStamp))

	for stamp, msgs := range l.byStamp {
		messages[stamp] = append([]domain.Message(nil), msgs...)
	}

	return messages
}
