package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv_entries (
	namespace   TEXT NOT NULL,
	key         TEXT NOT NULL,
	value       BLOB NOT NULL,
	updated_at  TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
);
`

// SQLite guarda las claves en una tabla SQLite
type SQLite struct {
	db *sql.DB
}

// NewSQLite abre la base de datos y corre las migraciones
func NewSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE namespace = ? AND key = ?`, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLite) Put(ctx context.Context, namespace, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv_entries (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		namespace, key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, namespace, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close cierra la conexión
func (s *SQLite) Close() error {
	return s.db.Close()
}
