package ws

import (
	"log"
	"time"

	"github.com/venture-link/messaging/internal/protocol"
)

// MessageHandler is the callback signature for handling a parsed client
// event. The msg parameter is the concrete struct returned by
// protocol.ParseClientMessage (e.g., protocol.AddUserMsg,
// protocol.SendMessageMsg).
type MessageHandler func(conn *Connection, msg interface{})

// MessageDispatcher routes incoming WebSocket events to registered handlers
// based on the event type. It handles the built-in ping/pong keepalive
// internally and answers malformed or unsupported events with a structured
// error, never letting them crash the dispatch path.
type MessageDispatcher struct {
	handlers map[string]MessageHandler
}

// NewMessageDispatcher creates an empty MessageDispatcher.
func NewMessageDispatcher() *MessageDispatcher {
	return &MessageDispatcher{
		handlers: make(map[string]MessageHandler),
	}
}

// Register associates a MessageHandler with an event type. If a handler was
// already registered for the given type, it is silently replaced.
func (d *MessageDispatcher) Register(msgType string, handler MessageHandler) {
	d.handlers[msgType] = handler
}

// Dispatch is the onMessage callback implementation. It parses the raw bytes
// into a typed event, handles ping internally, and routes all other types to
// the registered handler. Parse and validation errors result in an error
// event sent back to the offending client; the event itself is dropped.
func (d *MessageDispatcher) Dispatch(conn *Connection, data []byte) {
	msgType, msg, err := protocol.ParseClientMessage(data)
	if err != nil {
		log.Printf("ws: dispatch parse error conn=%s: %v", conn.ID, err)
		d.sendError(conn, "invalid_event", "invalid event format")
		return
	}

	// Built-in ping handler — respond immediately without requiring
	// registration.
	if msgType == protocol.TypePing {
		d.sendPong(conn)
		return
	}

	handler, ok := d.handlers[msgType]
	if !ok {
		log.Printf("ws: unsupported event type=%q conn=%s", msgType, conn.ID)
		d.sendError(conn, "unsupported_type", "unsupported event type")
		return
	}

	handler(conn, msg)
}

// sendError sends a structured error event back to the client. Errors during
// construction or transmission are logged but not propagated.
func (d *MessageDispatcher) sendError(conn *Connection, code string, message string) {
	data, err := protocol.NewServerMessage(protocol.TypeError, protocol.ErrorMsg{
		Code:    code,
		Message: message,
	})
	if err != nil {
		log.Printf("ws: failed to build error event conn=%s: %v", conn.ID, err)
		return
	}

	if err := conn.WriteMessage(data); err != nil {
		log.Printf("ws: failed to send error event conn=%s: %v", conn.ID, err)
	}
}

// sendPong responds to a client ping with a pong event and updates the
// connection's LastPing timestamp to reflect the most recent keepalive.
func (d *MessageDispatcher) sendPong(conn *Connection) {
	conn.LastPing = time.Now()

	data, err := protocol.NewServerMessage(protocol.TypePong, protocol.PongMsg{})
	if err != nil {
		log.Printf("ws: failed to build pong event conn=%s: %v", conn.ID, err)
		return
	}

	if err := conn.WriteMessage(data); err != nil {
		log.Printf("ws: failed to send pong event conn=%s: %v", conn.ID, err)
	}
}
