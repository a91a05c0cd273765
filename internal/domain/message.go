package domain

// Message is an immutable record posted to the message log.
// An empty Recipients list marks a broadcast visible to every reader;
// otherwise the message is targeted at the listed identities.
type Message struct {
	Author     string   `json:"author"`     // Registered author username
	Content    string   `json:"content"`    // Message body
	Recipients []string `json:"recipients"` // Target usernames, empty for broadcast
}

// Broadcast reports whether the message is addressed to everyone.
func (m Message) Broadcast() bool {
	return len(m.Recipients) == 0
}

// AddressedTo reports whether the message should be visible to the given
// username, either as a broadcast or by being listed as a recipient.
func (m Message) AddressedTo(username string) bool {
	if m.Broadcast() {
		return true
	}

	for _, recipient := range m.Recipients {
		if recipient == username {
			return true
		}
	}

	return false
}

// StampedMessage pairs a message with the second it was recorded at.
type StampedMessage struct {
	Timestamp uint64  `json:"timestamp"` // Seconds since the Unix epoch
	Message   Message `json:"message"`
}
