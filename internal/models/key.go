package models

import "time"

// PublicKeyRecord is a directory entry mapping a wallet address to the
// encryption public key other participants use to address ciphertext to it.
// The key material is an opaque string; the relay never interprets it.
// There is at most one record per canonical address (last write wins).
type PublicKeyRecord struct {
	Address   string    `json:"address"`
	PublicKey string    `json:"public_key"`
	Nickname  string    `json:"nickname,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
