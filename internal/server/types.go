package server

import (
	"strings"

	"github.com/Tyrowin/nexus-chat/internal/dispatch"
)

// EventHandler turns inbound frames into emissions. The hub calls it from its
// event loop only, one frame at a time.
type EventHandler interface {
	Dispatch(out dispatch.Emitter, connID string, raw []byte)
	Disconnect(out dispatch.Emitter, connID string)
}

// inboundFrame is one raw frame read from a client.
type inboundFrame struct {
	client  *Client
	payload []byte
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
