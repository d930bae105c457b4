package store

import (
	"fmt"
	"sort"
	"time"
)

func newRoom(id string, data RoomData, now time.Time) *room {
	name := data.Name
	if name == "" {
		name = id
	}
	return &room{
		id:        id,
		name:      name,
		members:   make(map[string]struct{}),
		createdAt: now,
	}
}

func (r *room) info() RoomInfo {
	members := make([]string, 0, len(r.members))
	for id := range r.members {
		members = append(members, id)
	}
	sort.Strings(members)
	return RoomInfo{ID: r.id, Name: r.name, Members: members, CreatedAt: r.createdAt}
}

// CreateRoom creates the room, replacing any room with the same id. Callers
// are responsible for id uniqueness.
func (s *Store) CreateRoom(id string, data RoomData) RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := newRoom(id, data, s.now())
	s.rooms[id] = r
	return r.info()
}

// RoomExists reports whether the room has been created.
func (s *Store) RoomExists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.rooms[id]
	return ok
}

// JoinRoom adds userID to the room's member set. Rooms are not created on
// demand: joining an unknown room returns ErrRoomNotFound.
func (s *Store) JoinRoom(id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return fmt.Errorf("join %q: %w", id, ErrRoomNotFound)
	}
	r.members[userID] = struct{}{}
	return nil
}

// LeaveRoom removes userID from the room's member set.
func (s *Store) LeaveRoom(id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return fmt.Errorf("leave %q: %w", id, ErrRoomNotFound)
	}
	delete(r.members, userID)
	return nil
}

// GetRoomUsers returns the sorted member ids of a room, or an empty slice
// when the room does not exist.
func (s *Store) GetRoomUsers(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return []string{}
	}
	return r.info().Members
}

// GetRoomMessages returns the most recent limit messages posted to a room.
func (s *Store) GetRoomMessages(id string, limit int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[id]
	if !ok {
		return []Message{}
	}
	return window(r.messages, limit, 0)
}

// ListRooms returns every room ordered by id.
func (s *Store) ListRooms() []RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := make([]RoomInfo, 0, len(s.rooms))
	for _, r := range s.rooms {
		rooms = append(rooms, r.info())
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms
}
