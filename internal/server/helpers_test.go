package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/nexus-chat/internal/dispatch"
	"github.com/Tyrowin/nexus-chat/internal/server"
	"github.com/Tyrowin/nexus-chat/internal/store"
)

const testOrigin = "http://localhost:8080"

type testEnv struct {
	server *httptest.Server
	hub    *server.Hub
	store  *store.Store
	cfg    *server.Config
}

func (e *testEnv) wsURL() string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
}

// newTestEnv starts a full chat server behind httptest. customize may adjust
// the config before anything is built.
func newTestEnv(t *testing.T, customize func(cfg *server.Config)) *testEnv {
	t.Helper()

	cfg := server.NewConfig()
	cfg.RateLimit.Burst = 100
	if customize != nil {
		customize(cfg)
	}

	logger := server.NewLogger(io.Discard, "error", "text")
	st := store.New(store.WithMaxMessages(cfg.MaxStoredMessages))
	d := dispatch.New(st, dispatch.WithLimits(cfg.Limits()), dispatch.WithHistorySize(cfg.HistorySize))
	hub := server.NewHub(d, logger)
	go hub.Run()

	ts := httptest.NewServer(server.NewRouter(cfg, hub, st, logger))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = hub.Shutdown(ctx)
		ts.Close()
	})

	return &testEnv{server: ts, hub: hub, store: st, cfg: cfg}
}

// chatConn wraps a WebSocket client and splits batched frames.
type chatConn struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []dispatch.Envelope
}

func dialWithOrigin(url, origin string) (*websocket.Conn, *http.Response, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	header := http.Header{}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return dialer.Dial(url, header)
}

func (e *testEnv) dial(t *testing.T) *chatConn {
	t.Helper()
	conn, resp, err := dialWithOrigin(e.wsURL(), testOrigin)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &chatConn{t: t, conn: conn}
}

// join dials and completes user_join, draining the join traffic.
func (e *testEnv) join(t *testing.T, name string) *chatConn {
	t.Helper()
	c := e.dial(t)
	c.send(dispatch.EventUserJoin, name)
	c.waitFor(dispatch.EventMessageHistory)
	return c
}

func (c *chatConn) send(event string, data any) {
	c.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteJSON(dispatch.Envelope{Event: event, Data: raw}))
}

func (c *chatConn) sendRaw(payload []byte) {
	c.t.Helper()
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, payload))
}

// next returns the next event, or false if none arrives within timeout.
func (c *chatConn) next(timeout time.Duration) (dispatch.Envelope, bool) {
	c.t.Helper()
	if len(c.pending) == 0 {
		require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(timeout)))
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				return dispatch.Envelope{}, false
			}
			require.NoError(c.t, err)
		}
		for _, line := range bytes.Split(raw, []byte{'\n'}) {
			var env dispatch.Envelope
			require.NoError(c.t, json.Unmarshal(line, &env))
			c.pending = append(c.pending, env)
		}
	}
	env := c.pending[0]
	c.pending = c.pending[1:]
	return env, true
}

// waitFor skips events until one named event arrives and decodes its data.
func (c *chatConn) waitFor(event string) json.RawMessage {
	c.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		env, ok := c.next(time.Until(deadline))
		if !ok {
			break
		}
		if env.Event == event {
			return env.Data
		}
	}
	c.t.Fatalf("timed out waiting for %q", event)
	return nil
}

func (c *chatConn) waitForInto(event string, v any) {
	c.t.Helper()
	require.NoError(c.t, json.Unmarshal(c.waitFor(event), v))
}

// expectNone fails if event arrives within timeout.
func (c *chatConn) expectNone(event string, timeout time.Duration) {
	c.t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		env, ok := c.next(time.Until(deadline))
		if !ok {
			return
		}
		if env.Event == event {
			c.t.Fatalf("unexpected %q event: %s", event, env.Data)
		}
	}
}

func (c *chatConn) close() {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = c.conn.Close()
}
