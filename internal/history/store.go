// Package history provides PostgreSQL-backed storage and a REST API for
// durable chat history: the chat list, persisted messages, and message
// creation. The real-time relay is independent of this layer; the persisted
// history is the authority a client reconciles against after missed
// deliveries.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a chat does not exist.
var ErrNotFound = errors.New("history: not found")

// ErrNotParticipant is returned when a sender is not part of the chat they
// are writing to.
var ErrNotParticipant = errors.New("history: sender is not a chat participant")

// Chat is one conversation between exactly two users.
type Chat struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	LastMessage  *Message  `json:"lastMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Message is one persisted chat message.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store manages chats and messages in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a history store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// pair normalizes a participant pair so each unordered pair maps to exactly
// one row, enforced by the unique constraint on (participant_a, participant_b).
func pair(a, b string) (string, string) {
	if a > b {
		return b, a
	}
	return a, b
}

// CreateChat creates the chat between two users, or returns the existing one.
// The second return reports whether a new chat was created.
func (s *Store) CreateChat(ctx context.Context, userA, userB string) (*Chat, bool, error) {
	pa, pb := pair(userA, userB)

	const insert = `
		INSERT INTO chats (id, participant_a, participant_b)
		VALUES ($1, $2, $3)
		ON CONFLICT (participant_a, participant_b) DO NOTHING`

	res, err := s.db.ExecContext(ctx, insert, uuid.New().String(), pa, pb)
	if err != nil {
		return nil, false, fmt.Errorf("history: insert chat: %w", err)
	}
	inserted, _ := res.RowsAffected()

	const query = `
		SELECT id, participant_a, participant_b, created_at, updated_at
		FROM chats
		WHERE participant_a = $1 AND participant_b = $2`

	var c Chat
	var a, b string
	err = s.db.QueryRowContext(ctx, query, pa, pb).
		Scan(&c.ID, &a, &b, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("history: select chat: %w", err)
	}
	c.Participants = []string{a, b}
	return &c, inserted > 0, nil
}

// GetChat retrieves a chat by ID. Returns ErrNotFound if it does not exist.
func (s *Store) GetChat(ctx context.Context, chatID string) (*Chat, error) {
	const query = `
		SELECT id, participant_a, participant_b, created_at, updated_at
		FROM chats
		WHERE id = $1`

	var c Chat
	var a, b string
	err := s.db.QueryRowContext(ctx, query, chatID).
		Scan(&c.ID, &a, &b, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("history: select chat: %w", err)
	}
	c.Participants = []string{a, b}
	return &c, nil
}

// ListChats returns all chats a user participates in, most recently active
// first, each carrying its last message when one exists.
func (s *Store) ListChats(ctx context.Context, userID string) ([]*Chat, error) {
	const query = `
		SELECT c.id, c.participant_a, c.participant_b, c.created_at, c.updated_at,
		       m.id, m.chat_id, m.sender_id, m.text, m.created_at
		FROM chats c
		LEFT JOIN messages m ON m.id = c.last_message_id
		WHERE c.participant_a = $1 OR c.participant_b = $1
		ORDER BY c.updated_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("history: list chats: %w", err)
	}
	defer rows.Close()

	chats := make([]*Chat, 0)
	for rows.Next() {
		var c Chat
		var a, b string
		var mID, mChatID, mSenderID, mText sql.NullString
		var mCreatedAt sql.NullTime

		err := rows.Scan(&c.ID, &a, &b, &c.CreatedAt, &c.UpdatedAt,
			&mID, &mChatID, &mSenderID, &mText, &mCreatedAt)
		if err != nil {
			return nil, fmt.Errorf("history: scan chat: %w", err)
		}
		c.Participants = []string{a, b}
		if mID.Valid {
			c.LastMessage = &Message{
				ID:        mID.String,
				ChatID:    mChatID.String,
				SenderID:  mSenderID.String,
				Text:      mText.String,
				CreatedAt: mCreatedAt.Time,
			}
		}
		chats = append(chats, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate chats: %w", err)
	}
	return chats, nil
}

// CreateMessage persists one message and advances the chat's last-message
// pointer in the same transaction. The sender must be a chat participant.
func (s *Store) CreateMessage(ctx context.Context, chatID, senderID, text string) (*Message, error) {
	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if senderID != chat.Participants[0] && senderID != chat.Participants[1] {
		return nil, ErrNotParticipant
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("history: begin tx: %w", err)
	}
	defer tx.Rollback()

	msg := &Message{
		ID:       uuid.New().String(),
		ChatID:   chatID,
		SenderID: senderID,
		Text:     text,
	}

	const insert = `
		INSERT INTO messages (id, chat_id, sender_id, text)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	if err := tx.QueryRowContext(ctx, insert, msg.ID, msg.ChatID, msg.SenderID, msg.Text).
		Scan(&msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("history: insert message: %w", err)
	}

	const touch = `
		UPDATE chats SET last_message_id = $1, updated_at = now()
		WHERE id = $2`

	if _, err := tx.ExecContext(ctx, touch, msg.ID, chatID); err != nil {
		return nil, fmt.Errorf("history: update chat pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("history: commit message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the persisted history for a chat, newest first.
func (s *Store) ListMessages(ctx context.Context, chatID string) ([]*Message, error) {
	const query = `
		SELECT id, chat_id, sender_id, text, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("history: list messages: %w", err)
	}
	defer rows.Close()

	msgs := make([]*Message, 0)
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("history: scan message: %w", err)
		}
		msgs = append(msgs, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate messages: %w", err)
	}
	return msgs, nil
}
