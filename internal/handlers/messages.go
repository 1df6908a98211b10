package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DimiKog/Encryption-Messenger/internal/metrics"
	"github.com/DimiKog/Encryption-Messenger/internal/store"
	"github.com/DimiKog/Encryption-Messenger/internal/wallet"
)

// maxCiphertextLen bounds a single envelope. The body-size middleware already
// caps the request; this keeps the limit visible at the validation site.
const maxCiphertextLen = 8192

// PostMessageRequest represents the message submission body. The sender field
// is self-asserted: the relay performs no signature check binding it to a
// wallet. Confidentiality rests entirely on the ciphertext being opaque.
type PostMessageRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Ciphertext string `json:"ciphertext"`
}

// PostMessageResponse confirms an accepted envelope.
type PostMessageResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// ListMessages handles the relay read path. It returns the full store in
// append order; viewers filter by participant and sort for display on their
// side. There is no server-side access control on reads.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := h.store.ListMessages(r.Context())
	if err != nil {
		metrics.StoreErrors.WithLabelValues("list_messages").Inc()
		h.Error(w, http.StatusInternalServerError, "failed to read messages")
		return
	}

	h.JSON(w, http.StatusOK, messages)
}

// PostMessage appends a ciphertext envelope to the relay.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.From == "" || req.To == "" || req.Ciphertext == "" {
		h.Error(w, http.StatusBadRequest, "from, to, and ciphertext are required")
		return
	}
	if len(req.Ciphertext) > maxCiphertextLen {
		h.Error(w, http.StatusUnprocessableEntity, "ciphertext too long (max 8192 bytes)")
		return
	}

	from, err := wallet.Normalize(req.From)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid from address")
		return
	}
	to, err := wallet.Normalize(req.To)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid to address")
		return
	}
	if from == to {
		h.Error(w, http.StatusBadRequest, "cannot send a message to yourself")
		return
	}

	msg, err := h.store.AppendMessage(r.Context(), from, to, req.Ciphertext)
	if err != nil {
		if errors.Is(err, store.ErrSelfAddressed) {
			h.Error(w, http.StatusBadRequest, "cannot send a message to yourself")
			return
		}
		metrics.StoreErrors.WithLabelValues("append_message").Inc()
		h.Error(w, http.StatusInternalServerError, "failed to store message")
		return
	}

	metrics.MessagesRelayed.Inc()

	// The stores do not all hand back UTC (pgx decodes timestamptz into the
	// server's zone), so convert before stamping the literal Z.
	h.JSON(w, http.StatusCreated, PostMessageResponse{
		ID:        msg.ID,
		CreatedAt: msg.CreatedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	})
}
