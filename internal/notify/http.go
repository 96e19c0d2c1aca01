package notify

import (
	"encoding/json"
	"log"
	"net/http"
)

// API exposes unread counters and last-seen timestamps over REST, using the
// same response envelope as the history API.
type API struct {
	store *Store
}

// NewAPI creates the REST API around the given store.
func NewAPI(store *Store) *API {
	return &API{store: store}
}

// Register mounts the notify endpoints through the given handle function
// (typically the socket server's route registrar).
func (a *API) Register(handle func(pattern string, handler http.Handler)) {
	handle("GET /api/v1/unread/{userId}", http.HandlerFunc(a.handleUnread))
	handle("GET /api/v1/lastseen/{userId}", http.HandlerFunc(a.handleLastSeen))
}

func (a *API) handleUnread(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	counts, err := a.store.Unread(r.Context(), userID)
	if err != nil {
		log.Printf("notify: unread userId=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to read unread counters")
		return
	}
	writeData(w, counts)
}

func (a *API) handleLastSeen(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userId is required")
		return
	}

	ts, err := a.store.LastSeen(r.Context(), userID)
	if err != nil {
		log.Printf("notify: lastseen userId=%s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "failed to read last seen")
		return
	}

	resp := struct {
		UserID   string `json:"userId"`
		LastSeen int64  `json:"lastSeen,omitempty"` // unix seconds, 0 = unknown
	}{UserID: userID}
	if !ts.IsZero() {
		resp.LastSeen = ts.Unix()
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
