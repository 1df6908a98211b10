package store

import (
	"context"
	"errors"

	"github.com/DimiKog/Encryption-Messenger/internal/models"
)

// ErrSelfAddressed is returned when a message names the same address as both
// sender and recipient.
var ErrSelfAddressed = errors.New("sender and recipient must differ")

// Store defines persistent storage for the public-key directory and the
// append-only message relay. PostgresStore, SQLiteStore and MemoryStore all
// implement this interface; addresses are expected in canonical EIP-55 form.
type Store interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Directory operations. UpsertPublicKey overwrites any existing record
	// for the address (last write wins, no versioning).
	UpsertPublicKey(ctx context.Context, address, publicKey, nickname string) (*models.PublicKeyRecord, error)
	ListPublicKeys(ctx context.Context) ([]models.PublicKeyRecord, error)
	CountPublicKeys(ctx context.Context) (int64, error)

	// Relay operations. AppendMessage assigns the ID and CreatedAt; the
	// store only ever grows. ListMessages returns insertion order (CreatedAt
	// ascending, ties in append order).
	AppendMessage(ctx context.Context, from, to, ciphertext string) (*models.Message, error)
	ListMessages(ctx context.Context) ([]models.Message, error)
	CountMessages(ctx context.Context) (int64, error)
}
