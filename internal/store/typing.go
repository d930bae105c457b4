package store

import "sort"

// SetTyping records (isTyping=true) or clears the typing entry for the user in
// roomID. An empty roomID means the default room.
func (s *Store) SetTyping(userID string, isTyping bool, roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if roomID == "" {
		roomID = DefaultRoom
	}
	key := typingKey{userID: userID, roomID: roomID}
	if !isTyping {
		delete(s.typing, key)
		return
	}

	var username string
	if u, ok := s.users[userID]; ok {
		username = u.Username
	}
	s.typing[key] = TypingEntry{
		UserID:    userID,
		RoomID:    roomID,
		Username:  username,
		Timestamp: s.now(),
	}
}

// GetTypingUsers returns the fresh typing entries of a room ordered by user
// id.
//
// This is not a pure read: entries of the room older than the stale window
// are deleted while scanning.
func (s *Store) GetTypingUsers(roomID string) []TypingEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if roomID == "" {
		roomID = DefaultRoom
	}
	now := s.now()
	entries := []TypingEntry{}
	for key, entry := range s.typing {
		if key.roomID != roomID {
			continue
		}
		if now.Sub(entry.Timestamp) > s.typingStaleAfter {
			delete(s.typing, key)
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })
	return entries
}
