package store

import "sort"

// AddUser inserts or overwrites the user keyed by connID and marks it online.
func (s *Store) AddUser(connID string, data UserData) User {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	u := &User{
		ID:       connID,
		Username: data.Username,
		Avatar:   data.Avatar,
		JoinedAt: now,
		LastSeen: now,
		IsOnline: true,
	}
	s.users[connID] = u
	return *u
}

// RemoveUser deletes the user, its typing entries and its room memberships.
// Removing an unknown connection is a no-op.
func (s *Store) RemoveUser(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.users, connID)
	for key := range s.typing {
		if key.userID == connID {
			delete(s.typing, key)
		}
	}
	for _, r := range s.rooms {
		delete(r.members, connID)
	}
}

// GetUser returns a copy of the user record.
func (s *Store) GetUser(connID string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[connID]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// TouchUser refreshes last-seen for a user and marks it online.
func (s *Store) TouchUser(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[connID]; ok {
		u.LastSeen = s.now()
		u.IsOnline = true
	}
}

// ListUsers returns a snapshot of all users ordered by join time.
func (s *Store) ListUsers() []User {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].JoinedAt.Equal(users[j].JoinedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].JoinedAt.Before(users[j].JoinedAt)
	})
	return users
}
