// Package store holds the volatile chat state: connected users, the bounded
// message log, rooms, typing entries and private conversations.
//
// A Store is safe for concurrent use. Each exported method runs under a single
// mutex, so composite updates such as append-then-evict are never observed
// half-done.
package store

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Defaults applied by New.
const (
	DefaultMaxMessages      = 1000
	DefaultTypingStaleAfter = 5 * time.Second
	DefaultTypingExpireAt   = 10 * time.Second
)

// ErrRoomNotFound is returned by membership operations on a room that was
// never created.
var ErrRoomNotFound = errors.New("room not found")

// Store is the single source of truth for chat state.
type Store struct {
	mu sync.Mutex

	users         map[string]*User
	messages      []Message
	rooms         map[string]*room
	typing        map[typingKey]TypingEntry
	conversations map[string][]PrivateMessage

	lastID int64

	maxMessages      int
	typingStaleAfter time.Duration
	typingExpireAt   time.Duration
	now              func() time.Time
	logger           *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxMessages bounds the message log. Values below 1 are ignored.
func WithMaxMessages(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxMessages = n
		}
	}
}

// WithTypingWindows sets when typing entries stop being reported (stale) and
// when Cleanup removes them (expire).
func WithTypingWindows(stale, expire time.Duration) Option {
	return func(s *Store) {
		if stale > 0 {
			s.typingStaleAfter = stale
		}
		if expire > 0 {
			s.typingExpireAt = expire
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger used by the cleanup loop.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns an empty store containing only the default room.
func New(opts ...Option) *Store {
	s := &Store{
		users:            make(map[string]*User),
		rooms:            make(map[string]*room),
		typing:           make(map[typingKey]TypingEntry),
		conversations:    make(map[string][]PrivateMessage),
		maxMessages:      DefaultMaxMessages,
		typingStaleAfter: DefaultTypingStaleAfter,
		typingExpireAt:   DefaultTypingExpireAt,
		now:              time.Now,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.rooms[DefaultRoom] = newRoom(DefaultRoom, RoomData{Name: DefaultRoom}, s.now())
	return s
}

// nextID must be called with mu held.
func (s *Store) nextID() int64 {
	s.lastID++
	return s.lastID
}

// Stats reports current occupancy.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Users:         len(s.users),
		Messages:      len(s.messages),
		Rooms:         len(s.rooms),
		TypingEntries: len(s.typing),
		Conversations: len(s.conversations),
	}
}
