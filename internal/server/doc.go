// Package server implements the HTTP and WebSocket transport for Nexus Chat.
//
// The Hub owns every connection and runs the one event loop that feeds
// inbound frames to the chat dispatcher; it also implements the dispatcher's
// Emitter so outbound events land on the right send buffers. Clients run a
// read pump and a write pump each. The router adds a health endpoint, a test
// page and a read-only JSON API over the chat state.
package server
