package store

// conversationKey is order independent: (a, b) and (b, a) map to the same key.
func conversationKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

// AddPrivateMessage appends a message to the conversation between fromID and
// toID, creating the conversation on first use.
func (s *Store) AddPrivateMessage(fromID, toID, text string) PrivateMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	pm := PrivateMessage{
		ID:        s.nextID(),
		FromID:    fromID,
		ToID:      toID,
		Text:      text,
		Timestamp: s.now().UTC(),
	}
	key := conversationKey(fromID, toID)
	s.conversations[key] = append(s.conversations[key], pm)
	return pm
}

// GetPrivateMessages returns a copy of the conversation between a and b in
// the order the messages were added.
func (s *Store) GetPrivateMessages(a, b string) []PrivateMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := s.conversations[conversationKey(a, b)]
	out := make([]PrivateMessage, len(conv))
	copy(out, conv)
	return out
}
