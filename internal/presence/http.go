package presence

import (
	"encoding/json"
	"log"
	"net/http"
)

// API exposes online-status lookups backed by the Redis session mirror. Other
// services use it to render online badges without a socket connection of their
// own.
type API struct {
	store *SessionStore
}

// NewAPI creates the REST API around the given session store.
func NewAPI(store *SessionStore) *API {
	return &API{store: store}
}

// Register mounts the presence endpoint through the given handle function
// (typically the socket server's route registrar).
func (a *API) Register(handle func(pattern string, handler http.Handler)) {
	handle("GET /api/v1/presence/{userId}", http.HandlerFunc(a.handleGet))
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	session, err := a.store.Get(r.Context(), userID)
	if err != nil {
		log.Printf("presence: get session userId=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to read presence")
		return
	}

	resp := struct {
		UserID     string `json:"userId"`
		Online     bool   `json:"online"`
		Server     string `json:"server,omitempty"`
		LastActive int64  `json:"lastActive,omitempty"` // unix seconds
	}{UserID: userID}
	if session != nil {
		resp.Online = true
		resp.Server = session.Server
		resp.LastActive = session.LastActive
	}
	writeData(w, resp)
}

func writeData(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
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
