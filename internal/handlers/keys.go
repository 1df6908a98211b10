package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/DimiKog/Encryption-Messenger/internal/metrics"
	"github.com/DimiKog/Encryption-Messenger/internal/wallet"
)

// PublishKeyRequest represents the public key submission body. The key is
// self-asserted: nothing proves the caller controls the address, and nothing
// validates the key material itself. Both are deliberate; the relay stores
// opaque strings and trust lives entirely client side.
type PublishKeyRequest struct {
	Address   string `json:"address"`
	PublicKey string `json:"public_key"`
	Nickname  string `json:"nickname"`
}

// ListPublicKeys handles the directory read path: the full current snapshot.
func (h *Handler) ListPublicKeys(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListPublicKeys(r.Context())
	if err != nil {
		metrics.StoreErrors.WithLabelValues("list_public_keys").Inc()
		h.Error(w, http.StatusInternalServerError, "failed to read directory")
		return
	}

	h.JSON(w, http.StatusOK, records)
}

// PublishPublicKey upserts the directory record for an address.
// A resubmission for a known address overwrites the prior record.
func (h *Handler) PublishPublicKey(w http.ResponseWriter, r *http.Request) {
	var req PublishKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Address == "" || req.PublicKey == "" {
		h.Error(w, http.StatusBadRequest, "address and public_key are required")
		return
	}

	address, err := wallet.Normalize(req.Address)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid address format")
		return
	}

	rec, err := h.store.UpsertPublicKey(r.Context(), address, req.PublicKey, sanitizeNickname(req.Nickname))
	if err != nil {
		metrics.StoreErrors.WithLabelValues("upsert_public_key").Inc()
		h.Error(w, http.StatusInternalServerError, "failed to store public key")
		return
	}

	outcome := "updated"
	status := http.StatusOK
	if rec.CreatedAt.Equal(rec.UpdatedAt) {
		outcome = "created"
		status = http.StatusCreated
	}
	metrics.KeysPublished.WithLabelValues(outcome).Inc()

	h.JSON(w, status, rec)
}
