package server

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/nexus-chat/internal/dispatch"
)

type recordingHandler struct {
	disconnects  []string
	frames       []string
	onDisconnect func(out dispatch.Emitter, connID string)
}

func (r *recordingHandler) Dispatch(_ dispatch.Emitter, connID string, raw []byte) {
	r.frames = append(r.frames, connID+":"+string(raw))
}

func (r *recordingHandler) Disconnect(out dispatch.Emitter, connID string) {
	r.disconnects = append(r.disconnects, connID)
	if r.onDisconnect != nil {
		r.onDisconnect(out, connID)
	}
}

func newTestHub(handler EventHandler) *Hub {
	return NewHub(handler, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// attach registers a client without pumps so its buffer can be inspected.
func attach(h *Hub, id string, buffer int) *Client {
	c := &Client{id: id, send: make(chan []byte, buffer), addr: "test"}
	h.mutex.Lock()
	h.clients[id] = c
	h.mutex.Unlock()
	return c
}

func decodeFrame(t *testing.T, raw []byte) (string, json.RawMessage) {
	t.Helper()
	var env dispatch.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env.Event, env.Data
}

func TestEmitToEncodesEnvelope(t *testing.T) {
	h := newTestHub(&recordingHandler{})
	c := attach(h, "a", 4)

	h.EmitTo("a", dispatch.EventError, "nope")
	h.EmitTo("missing", dispatch.EventError, "ignored")

	require.Len(t, c.send, 1)
	event, data := decodeFrame(t, <-c.send)
	assert.Equal(t, dispatch.EventError, event)
	assert.JSONEq(t, `"nope"`, string(data))
}

func TestEmitToManyAndBroadcast(t *testing.T) {
	h := newTestHub(&recordingHandler{})
	a := attach(h, "a", 4)
	b := attach(h, "b", 4)
	c := attach(h, "c", 4)

	h.EmitToMany([]string{"a", "c", "gone"}, dispatch.EventTypingUsers, []string{})
	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 0)
	assert.Len(t, c.send, 1)

	h.Broadcast(dispatch.EventUserList, []string{})
	assert.Len(t, a.send, 2)
	assert.Len(t, b.send, 1)
	assert.Len(t, c.send, 2)
	assert.Empty(t, h.failed)
}

func TestFullBufferDisconnectsClient(t *testing.T) {
	handler := &recordingHandler{}
	h := newTestHub(handler)
	slow := attach(h, "slow", 1)
	fast := attach(h, "fast", 16)

	h.Broadcast(dispatch.EventUserList, 1)
	h.Broadcast(dispatch.EventUserList, 2)
	require.Len(t, h.failed, 1)

	h.dropFailedClients()

	assert.Equal(t, []string{"slow"}, handler.disconnects)
	assert.Equal(t, 1, h.ClientCount())
	assert.True(t, slow.closed)
	assert.Len(t, fast.send, 2)

	// the buffered frame drains, then the channel reports closed
	<-slow.send
	_, open := <-slow.send
	assert.False(t, open)
}

func TestCascadingOverflowIsDrained(t *testing.T) {
	handler := &recordingHandler{}
	h := newTestHub(handler)
	handler.onDisconnect = func(out dispatch.Emitter, connID string) {
		out.Broadcast(dispatch.EventUserLeft, connID)
	}
	attach(h, "a", 1)
	b := attach(h, "b", 2)

	h.Broadcast(dispatch.EventUserList, 1)
	h.Broadcast(dispatch.EventUserList, 2)
	h.dropFailedClients()

	// a overflowed; announcing it filled b, which is dropped in turn
	assert.Equal(t, []string{"a", "b"}, handler.disconnects)
	assert.Equal(t, 0, h.ClientCount())
	assert.True(t, b.closed)
	assert.Empty(t, h.failed)
}

func TestRemoveClientOnlyOnce(t *testing.T) {
	h := newTestHub(&recordingHandler{})
	c := attach(h, "a", 1)

	assert.True(t, h.removeClient(c))
	assert.False(t, h.removeClient(c))
	assert.False(t, h.safeSend(c, []byte("x")))
}

func TestStaleClientWithReusedIDIgnored(t *testing.T) {
	h := newTestHub(&recordingHandler{})
	old := &Client{id: "a", send: make(chan []byte, 1)}
	attach(h, "a", 1)

	assert.False(t, h.isRegistered(old))
	assert.False(t, h.removeClient(old))
	assert.Equal(t, 1, h.ClientCount())
}
