package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

// ---------------------------------------------------------------------------
// Test: Parsing a valid addUser event
// ---------------------------------------------------------------------------

func TestParseClientMessage_AddUser(t *testing.T) {
	input := []byte(`{"type":"addUser","userId":"64af3c"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeAddUser {
		t.Fatalf("expected type %q, got %q", TypeAddUser, msgType)
	}

	am, ok := msg.(AddUserMsg)
	if !ok {
		t.Fatalf("expected AddUserMsg, got %T", msg)
	}
	if am.UserID != "64af3c" {
		t.Errorf("expected userId %q, got %q", "64af3c", am.UserID)
	}
}

// ---------------------------------------------------------------------------
// Test: Parsing a valid sendMessage event
// ---------------------------------------------------------------------------

func TestParseClientMessage_SendMessage(t *testing.T) {
	input := []byte(`{"type":"sendMessage","chatId":"c1","senderId":"a","receiverId":"b","text":"hi"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeSendMessage {
		t.Fatalf("expected type %q, got %q", TypeSendMessage, msgType)
	}

	sm, ok := msg.(SendMessageMsg)
	if !ok {
		t.Fatalf("expected SendMessageMsg, got %T", msg)
	}
	if sm.ChatID != "c1" || sm.SenderID != "a" || sm.ReceiverID != "b" {
		t.Errorf("routing fields not decoded: %+v", sm)
	}
	if sm.Text != "hi" {
		t.Errorf("expected text %q, got %q", "hi", sm.Text)
	}
}

// ---------------------------------------------------------------------------
// Test: stopTyping decodes to the same struct as typing
// ---------------------------------------------------------------------------

func TestParseClientMessage_StopTyping(t *testing.T) {
	input := []byte(`{"type":"stopTyping","chatId":"c1","senderId":"a","receiverId":"b"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeStopTyping {
		t.Fatalf("expected type %q, got %q", TypeStopTyping, msgType)
	}
	if _, ok := msg.(TypingMsg); !ok {
		t.Fatalf("expected TypingMsg, got %T", msg)
	}
}

// ---------------------------------------------------------------------------
// Test: Events with missing required fields are rejected
// ---------------------------------------------------------------------------

func TestParseClientMessage_MissingFields(t *testing.T) {
	cases := []struct {
		name  string
		input string
		field string
	}{
		{"addUser without userId", `{"type":"addUser"}`, "userId"},
		{"addUser with blank userId", `{"type":"addUser","userId":"   "}`, "userId"},
		{"typing without receiverId", `{"type":"typing","chatId":"c1","senderId":"a"}`, "receiverId"},
		{"sendMessage without text", `{"type":"sendMessage","chatId":"c1","senderId":"a","receiverId":"b"}`, "text"},
		{"sendMessage without chatId", `{"type":"sendMessage","senderId":"a","receiverId":"b","text":"x"}`, "chatId"},
		{"messageRead without senderId", `{"type":"messageRead","chatId":"c1","receiverId":"b"}`, "senderId"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseClientMessage([]byte(tc.input))
			if err == nil {
				t.Fatalf("expected error for %s", tc.input)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("expected error to name field %q, got: %v", tc.field, err)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Test: Unknown and malformed events are rejected
// ---------------------------------------------------------------------------

func TestParseClientMessage_Unknown(t *testing.T) {
	if _, _, err := ParseClientMessage([]byte(`{"type":"join","room":"x"}`)); err == nil {
		t.Fatal("expected error for unknown event type")
	}
	if _, _, err := ParseClientMessage([]byte(`not json`)); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if _, _, err := ParseClientMessage([]byte(`{"userId":"a"}`)); err == nil {
		t.Fatal("expected error for missing type field")
	}
}

// ---------------------------------------------------------------------------
// Test: Building a server event injects the type discriminator
// ---------------------------------------------------------------------------

func TestNewServerMessage_OnlineUsers(t *testing.T) {
	data, err := NewServerMessage(TypeOnlineUsers, OnlineUsersMsg{
		Users: []string{"a", "b"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if result["type"] != TypeOnlineUsers {
		t.Errorf("expected type %q, got %v", TypeOnlineUsers, result["type"])
	}
	users, ok := result["users"].([]interface{})
	if !ok || len(users) != 2 {
		t.Fatalf("expected 2 users, got %v", result["users"])
	}
}

func TestNewServerMessage_Envelope(t *testing.T) {
	data, err := NewServerMessage(TypeMessageDelivered, MessageEnvelope{
		MessageID:  "m1",
		ChatID:     "c1",
		SenderID:   "a",
		ReceiverID: "b",
		Text:       "hi",
		CreatedAt:  1700000000000,
		Delivered:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if result["type"] != TypeMessageDelivered {
		t.Errorf("expected type %q, got %v", TypeMessageDelivered, result["type"])
	}
	if result["messageId"] != "m1" {
		t.Errorf("expected messageId %q, got %v", "m1", result["messageId"])
	}
	if result["delivered"] != true {
		t.Errorf("expected delivered=true, got %v", result["delivered"])
	}
}
