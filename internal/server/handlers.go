package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Tyrowin/nexus-chat/internal/store"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

// handlers serves the HTTP side of the chat server.
type handlers struct {
	cfg      *Config
	hub      *Hub
	store    *store.Store
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func newHandlers(cfg *Config, hub *Hub, st *store.Store, origins *originPolicy, logger *slog.Logger) *handlers {
	return &handlers{
		cfg:   cfg,
		hub:   hub,
		store: st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.checkOrigin,
		},
		logger: logger,
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Users       int    `json:"users"`
	Messages    int    `json:"messages"`
	Rooms       int    `json:"rooms"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// webSocket upgrades the request and registers the new client with the hub,
// which launches its pumps.
func (h *handlers) webSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, h.hub, r.RemoteAddr, h.cfg)
	if !h.hub.Register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
	}
}

func (h *handlers) banner(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Nexus Chat server is running!")
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	stats := h.store.Stats()
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "ok",
		Connections: h.hub.ClientCount(),
		Users:       stats.Users,
		Messages:    stats.Messages,
		Rooms:       stats.Rooms,
	})
}

func (h *handlers) listUsers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.ListUsers())
}

func (h *handlers) listMessages(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(r, "limit", defaultPageSize)
	if !ok || limit <= 0 {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, ok := queryInt(r, "offset", 0)
	if !ok || offset < 0 {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	writeJSON(w, http.StatusOK, h.store.GetMessages(limit, offset))
}

func (h *handlers) getMessage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	msg, ok := h.store.GetMessage(id)
	if !ok {
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

func (h *handlers) listRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.store.ListRooms())
}

func (h *handlers) roomUsers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.store.RoomExists(id) {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}
	writeJSON(w, http.StatusOK, h.store.GetRoomUsers(id))
}

func queryInt(r *http.Request, key string, def int) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// testPage serves a small browser client for poking at the event protocol.
func (h *handlers) testPage(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if _, err := fmt.Fprint(w, testPageHTML); err != nil {
		h.logger.Warn("Error writing HTML response", "error", err)
	}
}

const testPageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Nexus Chat Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #messages {
            border: 1px solid #ccc;
            height: 300px;
            padding: 10px;
            overflow-y: scroll;
            margin: 10px 0;
            background-color: #f9f9f9;
        }
        input[type="text"] { width: 300px; padding: 5px; margin-right: 10px; }
        button { padding: 5px 15px; background-color: #007cba; color: white; border: none; cursor: pointer; }
        button:hover { background-color: #005a87; }
        button:disabled { background-color: #999; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
        #typing { color: #666; font-style: italic; min-height: 1em; }
    </style>
</head>
<body>
    <h1>Nexus Chat Test</h1>

    <div id="status" class="status disconnected">Disconnected</div>

    <div>
        <input type="text" id="nameInput" placeholder="Your name...">
        <button id="connectButton" onclick="toggleConnection()">Join</button>
    </div>
    <div id="users"></div>
    <div id="messages"></div>
    <div id="typing"></div>
    <div>
        <input type="text" id="messageInput" placeholder="Type a message..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>

    <script>
        let ws = null;
        let typing = false;
        const messagesDiv = document.getElementById('messages');
        const nameInput = document.getElementById('nameInput');
        const messageInput = document.getElementById('messageInput');
        const sendButton = document.getElementById('sendButton');
        const connectButton = document.getElementById('connectButton');
        const statusDiv = document.getElementById('status');
        const usersDiv = document.getElementById('users');
        const typingDiv = document.getElementById('typing');

        function addLine(text, color) {
            const el = document.createElement('div');
            el.style.margin = '5px 0';
            el.style.color = color || 'gray';
            el.textContent = text;
            messagesDiv.appendChild(el);
            messagesDiv.scrollTop = messagesDiv.scrollHeight;
        }

        function emit(event, data) {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({event: event, data: data}));
            }
        }

        function updateStatus(connected) {
            statusDiv.textContent = connected ? 'Connected' : 'Disconnected';
            statusDiv.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            sendButton.disabled = !connected;
            nameInput.disabled = connected;
            connectButton.textContent = connected ? 'Leave' : 'Join';
        }

        const handlers = {
            user_list: users => { usersDiv.textContent = 'Online: ' + users.map(u => u.username).join(', '); },
            user_joined: user => addLine(user.username + ' joined'),
            user_left: user => addLine(user.username + ' left'),
            message_history: msgs => msgs.forEach(m => addLine(m.sender + ': ' + m.message, 'black')),
            receive_message: m => addLine(m.sender + ': ' + m.message, 'green'),
            private_message: m => addLine('[private] ' + m.sender + ': ' + m.message, 'purple'),
            typing_users: entries => {
                typingDiv.textContent = entries.length ? entries.map(e => e.username).join(', ') + ' typing...' : '';
            },
            error: text => addLine('Error: ' + text, 'red'),
        };

        function connect() {
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/ws');

            ws.onopen = function() {
                updateStatus(true);
                emit('user_join', nameInput.value.trim());
            };

            ws.onmessage = function(event) {
                event.data.split('\n').forEach(function(line) {
                    const frame = JSON.parse(line);
                    const handle = handlers[frame.event];
                    if (handle) {
                        handle(frame.data);
                    } else {
                        addLine(frame.event + ': ' + JSON.stringify(frame.data));
                    }
                });
            };

            ws.onclose = function() {
                addLine('Connection closed');
                updateStatus(false);
                ws = null;
            };
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
            } else {
                connect();
            }
        }

        function sendMessage() {
            const message = messageInput.value;
            if (message.trim()) {
                emit('send_message', {message: message});
                messageInput.value = '';
                typing = false;
            }
        }

        messageInput.addEventListener('input', function() {
            const now = messageInput.value.length > 0;
            if (now !== typing) {
                typing = now;
                emit('typing', typing);
            }
        });

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
