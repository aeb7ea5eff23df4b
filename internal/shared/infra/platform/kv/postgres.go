package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persiste los valores en la tabla kv_store de PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// InitPostgres crea la tabla kv_store si no existe
func InitPostgres(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS kv_store (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            expires_at TIMESTAMPTZ
        )
    `)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	var value string
	var expiresAt *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT value, expires_at FROM kv_store WHERE key = $1`, key,
	).Scan(&value, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	if expiresAt != nil && time.Now().After(*expiresAt) {
		return false, nil
	}
	if err := decode([]byte(value), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, val interface{}, ttlSecs int) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	var expiresAt *time.Time
	if ttlSecs > 0 {
		t := time.Now().Add(time.Duration(ttlSecs) * time.Second)
		expiresAt = &t
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO kv_store (key, value, expires_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		key, string(data), expiresAt,
	)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	return err
}
