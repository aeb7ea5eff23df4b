package kv

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	// _ "github.com/mattn/go-sqlite3" // requires gcc
	_ "modernc.org/sqlite"
)

// SQLiteStore persiste los valores en una tabla kv_store de SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// InitSQLite crea la tabla kv_store si no existe
func InitSQLite(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS kv_store (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            expires_at INTEGER
        )
    `)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var value string
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM kv_store WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if expiresAt.Valid && time.Now().Unix() > expiresAt.Int64 {
		return false, nil
	}
	if err := decode([]byte(value), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, val interface{}, ttlSecs int) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	return s.SetRaw(ctx, key, data, ttlSecs)
}

// SetRaw escribe los bytes sin validarlos como JSON.
func (s *SQLiteStore) SetRaw(ctx context.Context, key string, data []byte, ttlSecs int) error {
	var expiresAt sql.NullInt64
	if ttlSecs > 0 {
		expiresAt = sql.NullInt64{Int64: time.Now().Add(time.Duration(ttlSecs) * time.Second).Unix(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_store (key, value, expires_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, string(data), expiresAt,
	)
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key)
	return err
}
