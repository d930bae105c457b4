// Package dispatch binds inbound chat events to store operations and decides
// who receives the resulting outbound events.
//
// A connection is anonymous until its first successful user_join and joined
// from then until it disconnects. Every event is validated, applied to the
// store and emitted as one step; the caller guarantees steps do not
// interleave.
package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"github.com/Tyrowin/nexus-chat/internal/store"
	"github.com/Tyrowin/nexus-chat/internal/validation"
)

// Errors reported to the originating connection.
var (
	ErrUserNotFound   = errors.New("User not found")
	ErrInvalidPayload = errors.New("Invalid payload")
	ErrInvalidFrame   = errors.New("Invalid event format")
	ErrRoomNotFound   = errors.New("Room not found")
)

const (
	defaultHistorySize   = 20
	maxPageSize          = 100
	defaultAvatarBaseURL = "https://ui-avatars.com/api/"
)

type handlerFunc func(d *Dispatcher, out Emitter, connID string, data json.RawMessage) error

var handlers = map[string]handlerFunc{
	EventUserJoin:       (*Dispatcher).handleJoin,
	EventSendMessage:    (*Dispatcher).handleSendMessage,
	EventPrivateMessage: (*Dispatcher).handlePrivateMessage,
	EventTyping:         (*Dispatcher).handleTyping,
	EventJoinRoom:       (*Dispatcher).handleJoinRoom,
	EventLeaveRoom:      (*Dispatcher).handleLeaveRoom,
	EventReaction:       (*Dispatcher).handleReaction,
	EventFileUpload:     (*Dispatcher).handleFileUpload,
	EventMessageRead:    (*Dispatcher).handleMessageRead,
	EventGetMessages:    (*Dispatcher).handleGetMessages,
	EventPrivateHistory: (*Dispatcher).handlePrivateHistory,
	EventListRooms:      (*Dispatcher).handleListRooms,
}

// failureText is what a connection sees when a handler panics.
var failureText = map[string]string{
	EventUserJoin:       "Failed to join chat",
	EventSendMessage:    "Failed to send message",
	EventPrivateMessage: "Failed to send private message",
	EventFileUpload:     "Failed to upload file",
}

// Dispatcher routes events for every connection. It keeps no chat state of
// its own.
type Dispatcher struct {
	store         *store.Store
	limits        validation.Limits
	historySize   int
	avatarBaseURL string
	logger        *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLimits overrides the input limits.
func WithLimits(l validation.Limits) Option {
	return func(d *Dispatcher) { d.limits = l }
}

// WithHistorySize sets how many recent messages a joining connection gets.
func WithHistorySize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.historySize = n
		}
	}
}

// WithAvatarBaseURL sets the avatar generator endpoint.
func WithAvatarBaseURL(base string) Option {
	return func(d *Dispatcher) {
		if base != "" {
			d.avatarBaseURL = base
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New returns a Dispatcher operating on st.
func New(st *store.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:         st,
		limits:        validation.DefaultLimits(),
		historySize:   defaultHistorySize,
		avatarBaseURL: defaultAvatarBaseURL,
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch decodes one raw frame from connID and handles it.
func (d *Dispatcher) Dispatch(out Emitter, connID string, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		d.logger.Warn("Malformed frame", "conn", connID, "error", err)
		out.EmitTo(connID, EventError, ErrInvalidFrame.Error())
		return
	}
	d.HandleEvent(out, connID, env.Event, env.Data)
}

// HandleEvent runs the handler bound to event. Handler errors and panics are
// reported to connID alone and never escape.
func (d *Dispatcher) HandleEvent(out Emitter, connID, event string, data json.RawMessage) {
	h, ok := handlers[event]
	if !ok {
		d.logger.Warn("Unknown event", "conn", connID, "event", event)
		out.EmitTo(connID, EventError, fmt.Sprintf("Unknown event: %s", event))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Recovered from panic in handler", "conn", connID, "event", event, "panic", r)
			out.EmitTo(connID, EventError, failureMessage(event))
		}
	}()

	if _, joined := d.store.GetUser(connID); joined {
		d.store.TouchUser(connID)
	}

	if err := h(d, out, connID, data); err != nil {
		d.logger.Debug("Event rejected", "conn", connID, "event", event, "error", err)
		out.EmitTo(connID, EventError, err.Error())
	}
}

// Disconnect removes connID's user and announces the departure.
func (d *Dispatcher) Disconnect(out Emitter, connID string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Recovered from panic in disconnect", "conn", connID, "panic", r)
		}
	}()

	if user, ok := d.store.GetUser(connID); ok {
		d.logger.Info("User disconnected", "conn", connID, "username", user.Username)
		out.Broadcast(EventUserLeft, user)
	}
	d.store.RemoveUser(connID)

	out.Broadcast(EventUserList, d.store.ListUsers())
	out.Broadcast(EventTypingUsers, d.store.GetTypingUsers(store.DefaultRoom))
}

func failureMessage(event string) string {
	if text, ok := failureText[event]; ok {
		return text
	}
	return "Failed to process " + event
}

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 || json.Unmarshal(data, v) != nil {
		return ErrInvalidPayload
	}
	return nil
}

func (d *Dispatcher) avatarFor(username string) string {
	return fmt.Sprintf("%s?name=%s&background=random", d.avatarBaseURL, url.QueryEscape(username))
}
