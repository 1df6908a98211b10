package store

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/DimiKog/Encryption-Messenger/internal/models"
)

// MemoryStore is an in-process Store. It backs development mode ("STORE=memory")
// and stands in for the SQL stores in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	keys     map[string]*models.PublicKeyRecord
	keyOrder []string // insertion order for stable listing
	messages []models.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		keys: make(map[string]*models.PublicKeyRecord),
	}
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// UpsertPublicKey creates or overwrites the record for address.
func (s *MemoryStore) UpsertPublicKey(ctx context.Context, address, publicKey, nickname string) (*models.PublicKeyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.keys[address]; ok {
		existing.PublicKey = publicKey
		existing.Nickname = nickname
		existing.UpdatedAt = now
		rec := *existing
		return &rec, nil
	}

	rec := &models.PublicKeyRecord{
		Address:   address,
		PublicKey: publicKey,
		Nickname:  nickname,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.keys[address] = rec
	s.keyOrder = append(s.keyOrder, address)

	out := *rec
	return &out, nil
}

// ListPublicKeys returns all directory records in insertion order.
func (s *MemoryStore) ListPublicKeys(ctx context.Context) ([]models.PublicKeyRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.PublicKeyRecord, 0, len(s.keyOrder))
	for _, addr := range s.keyOrder {
		out = append(out, *s.keys[addr])
	}
	return out, nil
}

// CountPublicKeys returns the number of directory records.
func (s *MemoryStore) CountPublicKeys(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.keys)), nil
}

// AppendMessage stores a new envelope, assigning its ID and timestamp.
func (s *MemoryStore) AppendMessage(ctx context.Context, from, to, ciphertext string) (*models.Message, error) {
	if from == to {
		return nil, ErrSelfAddressed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:         ulid.Make().String(),
		From:       from,
		To:         to,
		Ciphertext: ciphertext,
		CreatedAt:  time.Now().UTC(),
	}
	s.messages = append(s.messages, msg)

	out := msg
	return &out, nil
}

// ListMessages returns every stored envelope in append order.
func (s *MemoryStore) ListMessages(ctx context.Context) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

// CountMessages returns the number of stored envelopes.
func (s *MemoryStore) CountMessages(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.messages)), nil
}
