package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"

	"github.com/DimiKog/Encryption-Messenger/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertPublicKey creates or overwrites the directory record for address.
func (s *PostgresStore) UpsertPublicKey(ctx context.Context, address, publicKey, nickname string) (*models.PublicKeyRecord, error) {
	rec := &models.PublicKeyRecord{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO public_keys (address, public_key, nickname)
		VALUES ($1, $2, $3)
		ON CONFLICT (address) DO UPDATE SET
			public_key = EXCLUDED.public_key,
			nickname = EXCLUDED.nickname,
			updated_at = now()
		RETURNING address, public_key, nickname, created_at, updated_at
	`, address, publicKey, nickname).Scan(
		&rec.Address,
		&rec.PublicKey,
		&rec.Nickname,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListPublicKeys returns the full directory snapshot.
func (s *PostgresStore) ListPublicKeys(ctx context.Context) ([]models.PublicKeyRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT address, public_key, nickname, created_at, updated_at
		FROM public_keys ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.PublicKeyRecord{}
	for rows.Next() {
		var rec models.PublicKeyRecord
		if err := rows.Scan(&rec.Address, &rec.PublicKey, &rec.Nickname, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CountPublicKeys returns the number of directory records.
func (s *PostgresStore) CountPublicKeys(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM public_keys`).Scan(&count)
	return count, err
}

// AppendMessage stores a new envelope, assigning its ID and timestamp.
func (s *PostgresStore) AppendMessage(ctx context.Context, from, to, ciphertext string) (*models.Message, error) {
	if from == to {
		return nil, ErrSelfAddressed
	}

	msg := &models.Message{
		ID:         ulid.Make().String(),
		From:       from,
		To:         to,
		Ciphertext: ciphertext,
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (id, from_address, to_address, ciphertext)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, msg.ID, msg.From, msg.To, msg.Ciphertext).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns every stored envelope in append order.
// The seq column pins the order for messages sharing a timestamp.
func (s *PostgresStore) ListMessages(ctx context.Context) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, from_address, to_address, ciphertext, created_at
		FROM messages ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.From, &msg.To, &msg.Ciphertext, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of stored envelopes.
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
