package dispatch

import (
	"encoding/json"
	"time"

	"github.com/Tyrowin/nexus-chat/internal/store"
	"github.com/Tyrowin/nexus-chat/internal/validation"
)

func (d *Dispatcher) handleSendMessage(out Emitter, connID string, data json.RawMessage) error {
	user, ok := d.store.GetUser(connID)
	if !ok {
		return ErrUserNotFound
	}

	var p SendMessagePayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if err := d.limits.Message(p.Message); err != nil {
		return err
	}

	room := p.Room
	if room == "" {
		room = store.DefaultRoom
	}
	if err := d.limits.RoomID(room); err != nil {
		return err
	}
	if !d.store.RoomExists(room) {
		return ErrRoomNotFound
	}

	msg := d.store.AddMessage(store.NewMessage{
		Text:         validation.Sanitize(p.Message),
		Sender:       user.Username,
		SenderID:     connID,
		SenderAvatar: user.Avatar,
		Room:         room,
		Type:         store.MessageTypeText,
	})
	d.store.SetTyping(connID, false, room)

	members := d.store.GetRoomUsers(room)
	out.EmitToMany(members, EventReceiveMessage, msg)
	out.EmitToMany(members, EventTypingUsers, d.store.GetTypingUsers(room))
	return nil
}

func (d *Dispatcher) handlePrivateMessage(out Emitter, connID string, data json.RawMessage) error {
	user, ok := d.store.GetUser(connID)
	if !ok {
		return nil
	}

	var p PrivateMessagePayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if p.To == "" {
		return ErrInvalidPayload
	}
	if err := d.limits.Message(p.Message); err != nil {
		return err
	}

	pm := d.store.AddPrivateMessage(connID, p.To, validation.Sanitize(p.Message))
	event := PrivateMessageEvent{
		PrivateMessage: pm,
		Sender:         user.Username,
		SenderAvatar:   user.Avatar,
		IsPrivate:      true,
	}

	// an offline recipient is not an error; the message stays stored
	recipients := []string{connID}
	if p.To != connID {
		recipients = append(recipients, p.To)
	}
	out.EmitToMany(recipients, EventPrivateMessage, event)
	return nil
}

func (d *Dispatcher) handleFileUpload(out Emitter, connID string, data json.RawMessage) error {
	user, ok := d.store.GetUser(connID)
	if !ok {
		return nil
	}

	var p FileUploadPayload
	if err := decode(data, &p); err != nil {
		return err
	}
	if err := d.limits.File(p.FileName, p.FileType, p.FileSize); err != nil {
		return err
	}

	name := validation.Sanitize(p.FileName)
	msg := d.store.AddMessage(store.NewMessage{
		Text:         "Shared a file: " + name,
		Sender:       user.Username,
		SenderID:     connID,
		SenderAvatar: user.Avatar,
		Room:         store.DefaultRoom,
		Type:         store.MessageTypeFile,
		File: &store.FileData{
			FileName: name,
			FileType: p.FileType,
			FileSize: p.FileSize,
			FileURL:  p.FileURL,
		},
	})

	out.Broadcast(EventReceiveMessage, msg)
	return nil
}

func (d *Dispatcher) handleReaction(out Emitter, connID string, data json.RawMessage) error {
	user, ok := d.store.GetUser(connID)
	if !ok {
		return nil
	}

	var p ReactionPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	out.Broadcast(EventReaction, ReactionEvent{
		MessageID: p.MessageID,
		Reaction:  validation.Sanitize(p.Reaction),
		UserID:    connID,
		Username:  user.Username,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (d *Dispatcher) handleMessageRead(out Emitter, connID string, data json.RawMessage) error {
	user, ok := d.store.GetUser(connID)
	if !ok {
		return nil
	}

	var messageID int64
	if err := decode(data, &messageID); err != nil {
		return err
	}

	out.Broadcast(EventMessageRead, ReadEvent{
		MessageID: messageID,
		UserID:    connID,
		Username:  user.Username,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

func (d *Dispatcher) handleGetMessages(out Emitter, connID string, data json.RawMessage) error {
	if _, ok := d.store.GetUser(connID); !ok {
		return nil
	}

	p := GetMessagesPayload{Limit: d.historySize}
	if len(data) > 0 {
		if err := decode(data, &p); err != nil {
			return err
		}
	}
	if p.Limit <= 0 {
		p.Limit = d.historySize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}

	out.EmitTo(connID, EventMessagePage, MessagePageEvent{
		Limit:    p.Limit,
		Offset:   p.Offset,
		Messages: d.store.GetMessages(p.Limit, p.Offset),
	})
	return nil
}

func (d *Dispatcher) handlePrivateHistory(out Emitter, connID string, data json.RawMessage) error {
	if _, ok := d.store.GetUser(connID); !ok {
		return nil
	}

	var with string
	if err := decode(data, &with); err != nil {
		return err
	}
	if with == "" {
		return ErrInvalidPayload
	}

	out.EmitTo(connID, EventPrivateHistory, PrivateHistoryEvent{
		With:     with,
		Messages: d.store.GetPrivateMessages(connID, with),
	})
	return nil
}
