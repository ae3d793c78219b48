package storage

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// ProductDescription is the bilingual description record kept per
// (user, image fingerprint).
type ProductDescription struct {
	English string
	Chinese string
}

// HistoryStore defines the persistence interface for analysis history and
// per-user API keys. The store is best-effort infrastructure: callers must
// keep working when it is absent or failing.
type HistoryStore interface {
	// GetDescription returns nil, nil when no record exists.
	GetDescription(userID int64, fingerprint string) (*ProductDescription, error)
	// SaveDescription upserts the description for (userID, fingerprint).
	// Only the description columns are touched; anything else in the row
	// is preserved.
	SaveDescription(userID int64, fingerprint string, desc ProductDescription) error

	// GetAPIKey returns "" when the user has not selected a key.
	GetAPIKey(userID int64) (string, error)
	SetAPIKey(userID int64, apiKey string) error
	DeleteAPIKey(userID int64) error

	Close() error
}

// SQLiteStore implements HistoryStore using SQLite. API keys are stored
// encrypted with AES-GCM.
type SQLiteStore struct {
	db            *sql.DB
	encryptionKey []byte
	mu            sync.RWMutex
}

// NewSQLiteStore opens (and if necessary initializes) the database at
// dbPath. The encryptionKey is used for API key encryption only.
func NewSQLiteStore(dbPath string, encryptionKey []byte) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{
		db:            db,
		encryptionKey: encryptionKey,
	}

	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	historyQuery := `
	CREATE TABLE IF NOT EXISTS history (
		user_id INTEGER NOT NULL,
		fingerprint TEXT NOT NULL,
		english TEXT NOT NULL DEFAULT '',
		chinese TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, fingerprint)
	);
	`
	if _, err := s.db.Exec(historyQuery); err != nil {
		return fmt.Errorf("failed to create history table: %w", err)
	}

	apiKeysQuery := `
	CREATE TABLE IF NOT EXISTS api_keys (
		user_id INTEGER PRIMARY KEY,
		encrypted_key TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := s.db.Exec(apiKeysQuery); err != nil {
		return fmt.Errorf("failed to create api_keys table: %w", err)
	}

	return nil
}

// GetDescription retrieves the stored description for a fingerprint.
// Returns nil, nil if there is no record or the fingerprint is empty.
func (s *SQLiteStore) GetDescription(userID int64, fingerprint string) (*ProductDescription, error) {
	if fingerprint == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var desc ProductDescription
	err := s.db.QueryRow(
		"SELECT english, chinese FROM history WHERE user_id = ? AND fingerprint = ?",
		userID, fingerprint,
	).Scan(&desc.English, &desc.Chinese)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	return &desc, nil
}

// SaveDescription upserts the description. The merge touches only the
// description columns and updated_at, so created_at survives corrections.
func (s *SQLiteStore) SaveDescription(userID int64, fingerprint string, desc ProductDescription) error {
	if fingerprint == "" || (desc.English == "" && desc.Chinese == "") {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO history (user_id, fingerprint, english, chinese)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, fingerprint) DO UPDATE SET
			english = excluded.english,
			chinese = excluded.chinese,
			updated_at = CURRENT_TIMESTAMP
	`, userID, fingerprint, desc.English, desc.Chinese)

	if err != nil {
		return fmt.Errorf("failed to save description: %w", err)
	}

	return nil
}

// GetAPIKey retrieves and decrypts the user's API key, "" if none is set.
func (s *SQLiteStore) GetAPIKey(userID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var encrypted string
	err := s.db.QueryRow(
		"SELECT encrypted_key FROM api_keys WHERE user_id = ?",
		userID,
	).Scan(&encrypted)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query api key: %w", err)
	}

	plaintext, err := Decrypt(encrypted, s.encryptionKey)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt api key: %w", err)
	}

	return string(plaintext), nil
}

// SetAPIKey encrypts and upserts the user's API key.
func (s *SQLiteStore) SetAPIKey(userID int64, apiKey string) error {
	encrypted, err := Encrypt([]byte(apiKey), s.encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt api key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.Exec(`
		INSERT INTO api_keys (user_id, encrypted_key)
		VALUES (?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			encrypted_key = excluded.encrypted_key,
			updated_at = CURRENT_TIMESTAMP
	`, userID, encrypted)

	if err != nil {
		return fmt.Errorf("failed to save api key: %w", err)
	}

	return nil
}

// DeleteAPIKey removes the user's stored API key.
func (s *SQLiteStore) DeleteAPIKey(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM api_keys WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
