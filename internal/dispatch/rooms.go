package dispatch

import (
	"encoding/json"
	"errors"

	"github.com/Tyrowin/nexus-chat/internal/store"
)

// handleJoinRoom creates the room on first join; the store itself refuses
// to join rooms that were never created.
func (d *Dispatcher) handleJoinRoom(out Emitter, connID string, data json.RawMessage) error {
	user, ok := d.store.GetUser(connID)
	if !ok {
		return nil
	}

	var roomID string
	if err := decode(data, &roomID); err != nil {
		return err
	}
	if err := d.limits.RoomID(roomID); err != nil {
		return err
	}

	if !d.store.RoomExists(roomID) {
		d.store.CreateRoom(roomID, store.RoomData{Name: roomID})
		d.logger.Info("Room created", "room", roomID, "conn", connID)
	}
	if err := d.store.JoinRoom(roomID, connID); err != nil {
		return err
	}

	out.EmitTo(connID, EventJoinedRoom, roomID)
	out.EmitTo(connID, EventRoomHistory, RoomHistoryEvent{
		RoomID:   roomID,
		Messages: d.store.GetRoomMessages(roomID, d.historySize),
	})
	out.EmitToMany(without(d.store.GetRoomUsers(roomID), connID), EventUserJoinedRoom, RoomMemberEvent{User: user, RoomID: roomID})
	return nil
}

func (d *Dispatcher) handleLeaveRoom(out Emitter, connID string, data json.RawMessage) error {
	user, ok := d.store.GetUser(connID)
	if !ok {
		return nil
	}

	var roomID string
	if err := decode(data, &roomID); err != nil {
		return err
	}
	if err := d.limits.RoomID(roomID); err != nil {
		return err
	}

	if err := d.store.LeaveRoom(roomID, connID); err != nil {
		if errors.Is(err, store.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	d.store.SetTyping(connID, false, roomID)

	out.EmitTo(connID, EventLeftRoom, roomID)
	out.EmitToMany(d.store.GetRoomUsers(roomID), EventUserLeftRoom, RoomMemberEvent{User: user, RoomID: roomID})
	return nil
}

func (d *Dispatcher) handleListRooms(out Emitter, connID string, _ json.RawMessage) error {
	if _, ok := d.store.GetUser(connID); !ok {
		return nil
	}
	out.EmitTo(connID, EventRoomList, d.store.ListRooms())
	return nil
}
