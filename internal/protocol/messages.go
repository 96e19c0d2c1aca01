// Package protocol defines the WebSocket event types and payload structures
// exchanged between the Venture Link messaging client and server. Every event
// is a JSON object carrying a "type" discriminator; payload field names match
// the web client's contract (camelCase).
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Event type constants
// ---------------------------------------------------------------------------

// Client -> Server event types.
const (
	TypeAddUser     = "addUser"
	TypeTyping      = "typing"
	TypeStopTyping  = "stopTyping"
	TypeSendMessage = "sendMessage"
	TypeMessageRead = "messageRead"
	TypePing        = "ping"
)

// Server -> Client event types. typing, stopTyping and messageRead are echoed
// to the counterpart under the same type names the client sent them with.
const (
	TypeOnlineUsers      = "getOnlineUsers"
	TypeReceiveMessage   = "receiveMessage"
	TypeMessageDelivered = "messageDelivered"
	TypeError            = "error"
	TypePong             = "pong"
)

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the event type and the raw JSON payload for deferred
// decoding into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON captures the full raw bytes and extracts only the "type"
// field so the rest of the payload can be decoded later into the appropriate
// concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server event structs
// ---------------------------------------------------------------------------

// AddUserMsg registers the connection's owner with the presence registry.
type AddUserMsg struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// TypingMsg signals that the sender started typing in a chat. The same shape
// is used for stopTyping.
type TypingMsg struct {
	Type       string `json:"type"`
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// SendMessageMsg carries an outbound chat message for real-time relay.
// Durable persistence happens separately through the history REST API.
type SendMessageMsg struct {
	Type       string `json:"type"`
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
}

// MessageReadMsg acknowledges that a chat's messages have been viewed.
// ReceiverID is the original sender of the messages now being marked read.
type MessageReadMsg struct {
	Type       string `json:"type"`
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client event structs
// ---------------------------------------------------------------------------

// OnlineUsersMsg carries the full presence snapshot, broadcast to all
// registered clients whenever the presence set changes.
type OnlineUsersMsg struct {
	Type  string   `json:"type"`
	Users []string `json:"users"`
}

// PartnerTypingMsg relays a typing or stopTyping signal to the counterpart.
type PartnerTypingMsg struct {
	Type     string `json:"type"`
	ChatID   string `json:"chatId"`
	SenderID string `json:"senderId"`
}

// MessageEnvelope is the transient representation of one relayed message.
// MessageID is assigned at relay time so that delivery acknowledgements can
// be correlated to a specific send even with several in flight.
type MessageEnvelope struct {
	Type       string `json:"type"`
	MessageID  string `json:"messageId"`
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
	CreatedAt  int64  `json:"createdAt"` // unix milliseconds
	Delivered  bool   `json:"delivered"`
}

// MessageReadNotice notifies the original sender that a chat has been read.
type MessageReadNotice struct {
	Type     string `json:"type"`
	ChatID   string `json:"chatId"`
	SenderID string `json:"senderId"`
}

// ErrorMsg reports a rejected event back to the offending client.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Parsing and validation
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client event.
// It returns the event type, the decoded struct, and any error. Payloads with
// missing required fields are rejected here so that the coordinator and relay
// only ever see well-formed events.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse event: %w", err)
	}

	switch env.Type {
	case TypeAddUser:
		var m AddUserMsg
		if err := json.Unmarshal(env.Raw, &m); err != nil {
			return env.Type, nil, decodeErr(env.Type, err)
		}
		if strings.TrimSpace(m.UserID) == "" {
			return env.Type, nil, missingField(env.Type, "userId")
		}
		return env.Type, m, nil

	case TypeTyping, TypeStopTyping:
		var m TypingMsg
		if err := json.Unmarshal(env.Raw, &m); err != nil {
			return env.Type, nil, decodeErr(env.Type, err)
		}
		if err := requireRouting(env.Type, m.ChatID, m.SenderID, m.ReceiverID); err != nil {
			return env.Type, nil, err
		}
		return env.Type, m, nil

	case TypeSendMessage:
		var m SendMessageMsg
		if err := json.Unmarshal(env.Raw, &m); err != nil {
			return env.Type, nil, decodeErr(env.Type, err)
		}
		if err := requireRouting(env.Type, m.ChatID, m.SenderID, m.ReceiverID); err != nil {
			return env.Type, nil, err
		}
		if m.Text == "" {
			return env.Type, nil, missingField(env.Type, "text")
		}
		return env.Type, m, nil

	case TypeMessageRead:
		var m MessageReadMsg
		if err := json.Unmarshal(env.Raw, &m); err != nil {
			return env.Type, nil, decodeErr(env.Type, err)
		}
		if err := requireRouting(env.Type, m.ChatID, m.SenderID, m.ReceiverID); err != nil {
			return env.Type, nil, err
		}
		return env.Type, m, nil

	case TypePing:
		var m PingMsg
		if err := json.Unmarshal(env.Raw, &m); err != nil {
			return env.Type, nil, decodeErr(env.Type, err)
		}
		return env.Type, m, nil

	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client event type: %q", env.Type)
	}
}

// NewServerMessage creates a JSON-encoded byte slice for a server event. The
// msgType is injected into the payload under the "type" key.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server event: %w", err)
	}
	return out, nil
}

// requireRouting verifies the chatId/senderId/receiverId triple every relayed
// event must carry.
func requireRouting(msgType, chatID, senderID, receiverID string) error {
	switch {
	case chatID == "":
		return missingField(msgType, "chatId")
	case senderID == "":
		return missingField(msgType, "senderId")
	case receiverID == "":
		return missingField(msgType, "receiverId")
	}
	return nil
}

func decodeErr(msgType string, err error) error {
	return fmt.Errorf("protocol: failed to decode %q payload: %w", msgType, err)
}

func missingField(msgType, field string) error {
	return fmt.Errorf("protocol: %q event missing required field %q", msgType, field)
}
