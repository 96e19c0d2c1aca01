package history

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
)

// API exposes the chat history store over REST, mirroring the web client's
// contract: every response is a JSON envelope with a success flag and either
// a data payload or an error message.
type API struct {
	store *Store
}

// NewAPI creates the REST API around the given store.
func NewAPI(store *Store) *API {
	return &API{store: store}
}

// Register mounts the history endpoints through the given handle function
// (typically the socket server's route registrar).
func (a *API) Register(handle func(pattern string, handler http.Handler)) {
	handle("GET /api/v1/chats/{userId}", http.HandlerFunc(a.handleListChats))
	handle("POST /api/v1/chat/create", http.HandlerFunc(a.handleCreateChat))
	handle("GET /api/v1/messages/{chatId}", http.HandlerFunc(a.handleListMessages))
	handle("POST /api/v1/message/send", http.HandlerFunc(a.handleSendMessage))
}

// handleListChats returns every chat the user participates in, with
// participants and last message.
func (a *API) handleListChats(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	chats, err := a.store.ListChats(r.Context(), userID)
	if err != nil {
		log.Printf("history: list chats userId=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to list chats")
		return
	}
	writeData(w, http.StatusOK, chats)
}

// handleCreateChat creates (or returns) the chat between the caller and a
// peer. Duplicate participant pairs resolve to the existing chat.
func (a *API) handleCreateChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"userId"`
		PeerID string `json:"peerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.PeerID == "" {
		writeError(w, http.StatusBadRequest, "userId and peerId are required")
		return
	}
	if req.UserID == req.PeerID {
		writeError(w, http.StatusBadRequest, "cannot create a chat with yourself")
		return
	}

	chat, created, err := a.store.CreateChat(r.Context(), req.UserID, req.PeerID)
	if err != nil {
		log.Printf("history: create chat %s/%s: %v", req.UserID, req.PeerID, err)
		writeError(w, http.StatusInternalServerError, "failed to create chat")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeData(w, status, chat)
}

// handleListMessages returns the persisted history for a chat, newest first.
func (a *API) handleListMessages(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("chatId")
	if chatID == "" {
		writeError(w, http.StatusBadRequest, "chatId is required")
		return
	}

	msgs, err := a.store.ListMessages(r.Context(), chatID)
	if err != nil {
		log.Printf("history: list messages chat=%s: %v", chatID, err)
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeData(w, http.StatusOK, msgs)
}

// handleSendMessage persists one message. The caller separately emits the
// sendMessage socket event for real-time relay; the two paths are
// independent and may complete in either order.
func (a *API) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChatID   string `json:"chatId"`
		SenderID string `json:"senderId"`
		Text     string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ChatID == "" || req.SenderID == "" {
		writeError(w, http.StatusBadRequest, "chatId and senderId are required")
		return
	}
	if err := ValidateMessage(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := a.store.CreateMessage(r.Context(), req.ChatID, req.SenderID, req.Text)
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "chat not found")
		return
	case errors.Is(err, ErrNotParticipant):
		writeError(w, http.StatusForbidden, "sender is not a chat participant")
		return
	case err != nil:
		log.Printf("history: create message chat=%s: %v", req.ChatID, err)
		writeError(w, http.StatusInternalServerError, "failed to create message")
		return
	}
	writeData(w, http.StatusCreated, msg)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
	}{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{Success: false, Message: message})
}
