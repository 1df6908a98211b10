package models

import "time"

// Message is a ciphertext envelope in the relay store. Messages are immutable
// once appended; the relay assigns ID (ULID) and CreatedAt at insertion.
// Ciphertext is opaque to the relay and to every reader except the holder of
// the recipient's private key.
type Message struct {
	ID         string    `json:"id"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	Ciphertext string    `json:"ciphertext"`
	CreatedAt  time.Time `json:"created_at"`
}
