package store

// AddMessage stamps the message with a fresh id and timestamp, appends it to
// the global log and to its room, and evicts the oldest entries beyond the
// configured bound.
func (s *Store) AddMessage(in NewMessage) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{
		ID:           s.nextID(),
		Text:         in.Text,
		Sender:       in.Sender,
		SenderID:     in.SenderID,
		SenderAvatar: in.SenderAvatar,
		Room:         in.Room,
		Type:         in.Type,
		Timestamp:    s.now().UTC(),
	}
	if msg.Room == "" {
		msg.Room = DefaultRoom
	}
	if msg.Type == "" {
		msg.Type = MessageTypeText
	}
	if in.File != nil {
		file := *in.File
		msg.File = &file
	}

	s.messages = trimFront(append(s.messages, msg), s.maxMessages)
	if r, ok := s.rooms[msg.Room]; ok {
		r.messages = trimFront(append(r.messages, msg), s.maxMessages)
	}
	return msg
}

// GetMessages returns up to limit messages, oldest first, ending offset
// messages before the newest one. An offset of 0 ends at the newest message.
func (s *Store) GetMessages(limit, offset int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return window(s.messages, limit, offset)
}

// GetMessage looks a message up by id.
func (s *Store) GetMessage(id int64) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// ids increase along the log
	lo, hi := 0, len(s.messages)
	for lo < hi {
		mid := (lo + hi) / 2
		if s.messages[mid].ID < id {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(s.messages) && s.messages[lo].ID == id {
		return s.messages[lo], true
	}
	return Message{}, false
}

func window(msgs []Message, limit, offset int) []Message {
	if limit <= 0 {
		return []Message{}
	}
	if offset < 0 {
		offset = 0
	}

	end := len(msgs) - offset
	if end <= 0 {
		return []Message{}
	}
	start := end - limit
	if start < 0 {
		start = 0
	}

	out := make([]Message, end-start)
	copy(out, msgs[start:end])
	return out
}

// trimFront drops the oldest entries so that at most max remain.
func trimFront(msgs []Message, max int) []Message {
	if len(msgs) <= max {
		return msgs
	}
	return msgs[len(msgs)-max:]
}
