package server_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/nexus-chat/internal/dispatch"
	"github.com/Tyrowin/nexus-chat/internal/server"
	"github.com/Tyrowin/nexus-chat/internal/store"
)

func TestJoinAndBroadcast(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.join(t, "alice")
	bob := env.join(t, "bob")

	// alice's own user_joined was drained with her history
	var joined store.User
	alice.waitForInto(dispatch.EventUserJoined, &joined)
	assert.Equal(t, "bob", joined.Username)

	alice.send(dispatch.EventSendMessage, dispatch.SendMessagePayload{Message: "hello"})

	for _, c := range []*chatConn{alice, bob} {
		var msg store.Message
		c.waitForInto(dispatch.EventReceiveMessage, &msg)
		assert.Equal(t, "alice", msg.Sender)
		assert.Equal(t, "hello", msg.Text)
		assert.Equal(t, store.DefaultRoom, msg.Room)
	}
}

func TestHistoryOnJoin(t *testing.T) {
	env := newTestEnv(t, func(cfg *server.Config) { cfg.HistorySize = 2 })
	for _, text := range []string{"one", "two", "three"} {
		env.store.AddMessage(store.NewMessage{Text: text, Sender: "seed"})
	}

	c := env.dial(t)
	c.send(dispatch.EventUserJoin, "carol")

	var history []store.Message
	c.waitForInto(dispatch.EventMessageHistory, &history)
	require.Len(t, history, 2)
	assert.Equal(t, "two", history[0].Text)
	assert.Equal(t, "three", history[1].Text)
}

func TestValidationErrorReachesSenderOnly(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.join(t, "alice")
	bob := env.join(t, "bob")

	alice.send(dispatch.EventSendMessage, dispatch.SendMessagePayload{Message: strings.Repeat("x", 1001)})

	var text string
	alice.waitForInto(dispatch.EventError, &text)
	assert.Contains(t, text, "Message is too long")
	bob.expectNone(dispatch.EventError, 300*time.Millisecond)
	assert.Equal(t, 0, env.store.Stats().Messages)
}

func TestMalformedFrame(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.dial(t)

	c.sendRaw([]byte("not json"))

	var text string
	c.waitForInto(dispatch.EventError, &text)
	assert.Equal(t, "Invalid event format", text)
}

func TestPrivateMessageDelivery(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.join(t, "alice")
	bob := env.join(t, "bob")
	carol := env.join(t, "carol")

	var aliceID string
	for _, u := range env.store.ListUsers() {
		if u.Username == "alice" {
			aliceID = u.ID
		}
	}
	require.NotEmpty(t, aliceID)

	bob.send(dispatch.EventPrivateMessage, dispatch.PrivateMessagePayload{To: aliceID, Message: "psst"})

	for _, c := range []*chatConn{alice, bob} {
		var ev dispatch.PrivateMessageEvent
		c.waitForInto(dispatch.EventPrivateMessage, &ev)
		assert.Equal(t, "psst", ev.Text)
		assert.Equal(t, "bob", ev.Sender)
		assert.True(t, ev.IsPrivate)
	}
	carol.expectNone(dispatch.EventPrivateMessage, 300*time.Millisecond)
}

func TestDisconnectAnnouncesDeparture(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.join(t, "alice")
	bob := env.join(t, "bob")

	alice.close()

	var left store.User
	bob.waitForInto(dispatch.EventUserLeft, &left)
	assert.Equal(t, "alice", left.Username)

	var users []store.User
	bob.waitForInto(dispatch.EventUserList, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "bob", users[0].Username)

	require.Eventually(t, func() bool { return env.hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestRoomTraffic(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.join(t, "alice")
	bob := env.join(t, "bob")
	carol := env.join(t, "carol")

	alice.send(dispatch.EventJoinRoom, "dev")
	alice.waitFor(dispatch.EventJoinedRoom)
	bob.send(dispatch.EventJoinRoom, "dev")
	bob.waitFor(dispatch.EventJoinedRoom)

	var member dispatch.RoomMemberEvent
	alice.waitForInto(dispatch.EventUserJoinedRoom, &member)
	assert.Equal(t, "bob", member.User.Username)

	alice.send(dispatch.EventSendMessage, dispatch.SendMessagePayload{Message: "standup", Room: "dev"})

	var msg store.Message
	bob.waitForInto(dispatch.EventReceiveMessage, &msg)
	assert.Equal(t, "dev", msg.Room)
	carol.expectNone(dispatch.EventReceiveMessage, 300*time.Millisecond)
}

func TestDisallowedOriginRejected(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, origin := range []string{"http://evil.example", ""} {
		conn, resp, err := dialWithOrigin(env.wsURL(), origin)
		if conn != nil {
			_ = conn.Close()
		}
		require.Error(t, err, "origin %q", origin)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		_ = resp.Body.Close()
	}
	assert.Equal(t, 0, env.hub.ClientCount())
}

func TestWildcardOriginAllowed(t *testing.T) {
	env := newTestEnv(t, func(cfg *server.Config) { cfg.AllowedOrigins = []string{"*"} })

	conn, resp, err := dialWithOrigin(env.wsURL(), "http://anywhere.example")
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	_ = conn.Close()
}

func TestRateLimitDropsExcessFrames(t *testing.T) {
	env := newTestEnv(t, func(cfg *server.Config) {
		cfg.RateLimit = server.RateLimitConfig{Burst: 3, RefillInterval: time.Hour}
	})
	alice := env.join(t, "alice")

	for i := 0; i < 5; i++ {
		alice.send(dispatch.EventSendMessage, dispatch.SendMessagePayload{Message: "spam"})
	}

	// the join used one token
	require.Eventually(t, func() bool { return env.store.Stats().Messages == 2 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 2, env.store.Stats().Messages)
}

func TestOversizedFrameClosesConnection(t *testing.T) {
	env := newTestEnv(t, func(cfg *server.Config) { cfg.MaxMessageSize = 128 })
	alice := env.join(t, "alice")
	bob := env.join(t, "bob")

	alice.send(dispatch.EventSendMessage, dispatch.SendMessagePayload{Message: strings.Repeat("y", 500)})

	var left store.User
	bob.waitForInto(dispatch.EventUserLeft, &left)
	assert.Equal(t, "alice", left.Username)
	assert.Equal(t, 0, env.store.Stats().Messages)
}

func TestShutdownClosesClients(t *testing.T) {
	env := newTestEnv(t, nil)
	c := env.join(t, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, env.hub.Shutdown(ctx))

	require.NoError(t, c.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
	assert.Equal(t, 0, env.hub.ClientCount())
}
