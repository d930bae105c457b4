package store

import "time"

// DefaultRoom is the room every joined connection belongs to. It exists from
// the moment a Store is constructed.
const DefaultRoom = "global"

// Message types.
const (
	MessageTypeText = "text"
	MessageTypeFile = "file"
)

// User is a connected, joined participant keyed by its connection id.
type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	JoinedAt time.Time `json:"joinedAt"`
	LastSeen time.Time `json:"lastSeen"`
	IsOnline bool      `json:"isOnline"`
}

// UserData carries the caller-supplied part of a User.
type UserData struct {
	Username string
	Avatar   string
}

// FileData is the metadata of a shared file. File contents are never stored.
type FileData struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
	FileURL  string `json:"fileUrl,omitempty"`
}

// Message is an immutable chat message.
type Message struct {
	ID           int64     `json:"id"`
	Text         string    `json:"message"`
	Sender       string    `json:"sender"`
	SenderID     string    `json:"senderId"`
	SenderAvatar string    `json:"senderAvatar"`
	Room         string    `json:"room"`
	Type         string    `json:"type"`
	File         *FileData `json:"fileData,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewMessage is the partial message handed to AddMessage; the store assigns
// the id and timestamp.
type NewMessage struct {
	Text         string
	Sender       string
	SenderID     string
	SenderAvatar string
	Room         string
	Type         string
	File         *FileData
}

// RoomData carries the caller-supplied part of a Room.
type RoomData struct {
	Name string
}

// RoomInfo is a point-in-time view of a room.
type RoomInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

type room struct {
	id        string
	name      string
	members   map[string]struct{}
	messages  []Message
	createdAt time.Time
}

// TypingEntry signals that a user is typing in a room.
type TypingEntry struct {
	UserID    string    `json:"userId"`
	RoomID    string    `json:"roomId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

type typingKey struct {
	userID string
	roomID string
}

// PrivateMessage is one message of a two-party conversation.
type PrivateMessage struct {
	ID        int64     `json:"id"`
	FromID    string    `json:"fromId"`
	ToID      string    `json:"toId"`
	Text      string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	IsRead    bool      `json:"isRead"`
}

// Stats summarizes store occupancy.
type Stats struct {
	Users         int `json:"users"`
	Messages      int `json:"messages"`
	Rooms         int `json:"rooms"`
	TypingEntries int `json:"typingEntries"`
	Conversations int `json:"conversations"`
}
