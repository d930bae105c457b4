package dispatch

import (
	"encoding/json"
	"time"

	"github.com/Tyrowin/nexus-chat/internal/store"
)

// Inbound event names.
const (
	EventUserJoin       = "user_join"
	EventSendMessage    = "send_message"
	EventPrivateMessage = "private_message"
	EventTyping         = "typing"
	EventJoinRoom       = "join_room"
	EventLeaveRoom      = "leave_room"
	EventReaction       = "message_reaction"
	EventFileUpload     = "file_upload"
	EventMessageRead    = "message_read"
	EventGetMessages    = "get_messages"
	EventPrivateHistory = "private_history"
	EventListRooms      = "list_rooms"
)

// Outbound event names not shared with an inbound one.
const (
	EventUserList       = "user_list"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventMessageHistory = "message_history"
	EventMessagePage    = "message_page"
	EventReceiveMessage = "receive_message"
	EventTypingUsers    = "typing_users"
	EventJoinedRoom     = "joined_room"
	EventLeftRoom       = "left_room"
	EventUserJoinedRoom = "user_joined_room"
	EventUserLeftRoom   = "user_left_room"
	EventRoomHistory    = "room_history"
	EventRoomList       = "room_list"
	EventError          = "error"
)

// Envelope is the frame format in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// SendMessagePayload is the data of send_message.
type SendMessagePayload struct {
	Message string `json:"message"`
	Room    string `json:"room,omitempty"`
}

// PrivateMessagePayload is the data of an inbound private_message.
type PrivateMessagePayload struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// ReactionPayload is the data of an inbound message_reaction.
type ReactionPayload struct {
	MessageID int64  `json:"messageId"`
	Reaction  string `json:"reaction"`
}

// FileUploadPayload is the data of file_upload.
type FileUploadPayload struct {
	FileName string `json:"fileName"`
	FileType string `json:"fileType"`
	FileSize int64  `json:"fileSize"`
	FileURL  string `json:"fileUrl,omitempty"`
}

// GetMessagesPayload is the data of get_messages.
type GetMessagesPayload struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// PrivateMessageEvent is delivered to both parties of a private message.
type PrivateMessageEvent struct {
	store.PrivateMessage
	Sender       string `json:"sender"`
	SenderAvatar string `json:"senderAvatar"`
	IsPrivate    bool   `json:"isPrivate"`
}

// RoomMemberEvent announces a membership change to the other members.
type RoomMemberEvent struct {
	User   store.User `json:"user"`
	RoomID string     `json:"roomId"`
}

// RoomHistoryEvent carries the recent messages of a room just joined.
type RoomHistoryEvent struct {
	RoomID   string          `json:"roomId"`
	Messages []store.Message `json:"messages"`
}

// ReactionEvent is broadcast for message_reaction. Reactions are not stored.
type ReactionEvent struct {
	MessageID int64     `json:"messageId"`
	Reaction  string    `json:"reaction"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadEvent is broadcast for message_read. Read receipts are not stored.
type ReadEvent struct {
	MessageID int64     `json:"messageId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// MessagePageEvent answers get_messages.
type MessagePageEvent struct {
	Limit    int             `json:"limit"`
	Offset   int             `json:"offset"`
	Messages []store.Message `json:"messages"`
}

// PrivateHistoryEvent answers private_history.
type PrivateHistoryEvent struct {
	With     string                 `json:"with"`
	Messages []store.PrivateMessage `json:"messages"`
}
