package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/PhelGc/roadsphere/internal/logger"
	"github.com/PhelGc/roadsphere/internal/storage"
)

// Client implementa storage.Backend sobre MySQL
type Client struct {
	db     *sql.DB
	logger *zap.Logger
}

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// DSN arma la cadena de conexión del driver
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.Database)
}

func NewClient(config *Config, log *zap.Logger) (*Client, error) {
	log = logger.OrNop(log)

	db, err := sql.Open("mysql", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("error conectando a MySQL: %w", err)
	}

	// Pool de conexiones: un servidor web con pocas sesiones concurrentes
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute) // reciclar conexiones antiguas

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error haciendo ping a MySQL: %w", err)
	}

	log.Info("Conexión establecida con MySQL", zap.String("host", config.Host), zap.String("port", config.Port))

	c := &Client{db: db, logger: log}
	if err := c.CreateTable(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// CreateTable crea la tabla kv_entries si no existe
func (c *Client) CreateTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS kv_entries (
		namespace   VARCHAR(64)  NOT NULL,
		entry_key   VARCHAR(128) NOT NULL,
		value       JSON         NOT NULL,
		updated_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace, entry_key),
		INDEX idx_updated (updated_at)
	);`

	_, err := c.db.Exec(query)
	if err != nil {
		return fmt.Errorf("error creando tabla kv_entries: %w", err)
	}

	c.logger.Info("Tabla kv_entries verificada/creada exitosamente")
	return nil
}

// Get obtiene el valor de una clave
func (c *Client) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	query := `SELECT value FROM kv_entries WHERE namespace = ? AND entry_key = ?`

	var value []byte
	err := c.db.QueryRowContext(ctx, query, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error consultando %s: %w", key, err)
	}
	return value, nil
}

// Put inserta o reemplaza el valor de una clave
func (c *Client) Put(ctx context.Context, namespace, key string, value []byte) error {
	query := `
	INSERT INTO kv_entries (namespace, entry_key, value, updated_at)
	VALUES (?, ?, ?, NOW())
	ON DUPLICATE KEY UPDATE
		value      = VALUES(value),
		updated_at = NOW()`

	_, err := c.db.ExecContext(ctx, query, namespace, key, value)
	if err != nil {
		return fmt.Errorf("error guardando %s: %w", key, err)
	}
	return nil
}

// Delete elimina una clave
func (c *Client) Delete(ctx context.Context, namespace, key string) error {
	query := `DELETE FROM kv_entries WHERE namespace = ? AND entry_key = ?`

	result, err := c.db.ExecContext(ctx, query, namespace, key)
	if err != nil {
		return fmt.Errorf("error eliminando %s: %w", key, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		c.logger.Debug("Clave eliminada", zap.String("namespace", namespace), zap.String("key", key))
	}
	return nil
}

// Close cierra la conexión
func (c *Client) Close() error {
	return c.db.Close()
}

var _ storage.Backend = (*Client)(nil)
