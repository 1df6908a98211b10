package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/DimiKog/Encryption-Messenger/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/messenger.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/messenger.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS public_keys (
		address TEXT PRIMARY KEY,
		public_key TEXT NOT NULL,
		nickname TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		from_address TEXT NOT NULL,
		to_address TEXT NOT NULL,
		ciphertext TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_from ON messages(from_address);
	CREATE INDEX IF NOT EXISTS idx_messages_to ON messages(to_address);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// UpsertPublicKey creates or overwrites the directory record for address.
func (s *SQLiteStore) UpsertPublicKey(ctx context.Context, address, publicKey, nickname string) (*models.PublicKeyRecord, error) {
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO public_keys (address, public_key, nickname, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			public_key = excluded.public_key,
			nickname = excluded.nickname,
			updated_at = excluded.updated_at
	`, address, publicKey, nickname, now, now)
	if err != nil {
		return nil, err
	}

	rec := &models.PublicKeyRecord{}
	err = s.db.QueryRowContext(ctx, `
		SELECT address, public_key, nickname, created_at, updated_at
		FROM public_keys WHERE address = ?
	`, address).Scan(&rec.Address, &rec.PublicKey, &rec.Nickname, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListPublicKeys returns the full directory snapshot.
func (s *SQLiteStore) ListPublicKeys(ctx context.Context) ([]models.PublicKeyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
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
func (s *SQLiteStore) CountPublicKeys(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM public_keys`).Scan(&count)
	return count, err
}

// AppendMessage stores a new envelope, assigning its ID and timestamp.
func (s *SQLiteStore) AppendMessage(ctx context.Context, from, to, ciphertext string) (*models.Message, error) {
	if from == to {
		return nil, ErrSelfAddressed
	}

	msg := &models.Message{
		ID:         ulid.Make().String(),
		From:       from,
		To:         to,
		Ciphertext: ciphertext,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, from_address, to_address, ciphertext, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.From, msg.To, msg.Ciphertext, msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns every stored envelope in append order.
// The seq column pins the order for messages sharing a timestamp.
func (s *SQLiteStore) ListMessages(ctx context.Context) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
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
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
