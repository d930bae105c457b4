package dispatch

import (
	"encoding/json"

	"github.com/Tyrowin/nexus-chat/internal/store"
)

func (d *Dispatcher) handleJoin(out Emitter, connID string, data json.RawMessage) error {
	var name string
	if err := decode(data, &name); err != nil {
		return err
	}

	username, err := d.limits.Username(name)
	if err != nil {
		return err
	}

	user := d.store.AddUser(connID, store.UserData{
		Username: username,
		Avatar:   d.avatarFor(username),
	})
	if err := d.store.JoinRoom(store.DefaultRoom, connID); err != nil {
		return err
	}

	out.Broadcast(EventUserList, d.store.ListUsers())
	out.Broadcast(EventUserJoined, user)
	out.EmitTo(connID, EventMessageHistory, d.store.GetMessages(d.historySize, 0))

	d.logger.Info("User joined", "conn", connID, "username", username)
	return nil
}

func (d *Dispatcher) handleTyping(out Emitter, connID string, data json.RawMessage) error {
	if _, ok := d.store.GetUser(connID); !ok {
		return nil
	}

	var isTyping bool
	if err := decode(data, &isTyping); err != nil {
		return err
	}

	d.store.SetTyping(connID, isTyping, store.DefaultRoom)
	out.Broadcast(EventTypingUsers, d.store.GetTypingUsers(store.DefaultRoom))
	return nil
}
