package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/DimiKog/Encryption-Messenger/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store store.Store
	redis *store.RedisStore
}

// NewHandler creates a new Handler with the given stores.
// redis may be nil when rate limiting is not configured.
func NewHandler(s store.Store, redis *store.RedisStore) *Handler {
	return &Handler{store: s, redis: redis}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeNickname trims and limits a nickname to 64 characters, removing
// control characters.
func sanitizeNickname(nickname string) string {
	nickname = strings.TrimSpace(nickname)

	nickname = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, nickname)

	if len(nickname) > 64 {
		nickname = nickname[:64]
	}

	return nickname
}
