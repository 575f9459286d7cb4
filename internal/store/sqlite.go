package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tartampluch/remindme/internal/config"

	// Pure Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

const upsertKV = `
INSERT INTO kv (key, value, updated_at) VALUES (:key, :value, :updated_at)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// kvRow is one row of the kv table.
type kvRow struct {
	Key       string    `db:"key"`
	Value     []byte    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

// SQLite keeps every key in a single table of a local database file.
type SQLite struct {
	db *sqlx.DB
}

// NewSQLite opens the database in dir, creating the schema when missing.
func NewSQLite(ctx context.Context, dir string) (*SQLite, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	dsn := filepath.Join(dir, config.SQLiteFileName) + config.SQLiteDSNParams

	db, err := sqlx.ConnectContext(ctx, config.SQLiteDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", config.ErrStoreOpen, err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, `SELECT value FROM kv WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreRead, err)
	}
	return value, nil
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	row := kvRow{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	if _, err := s.db.NamedExecContext(ctx, upsertKV, row); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreWrite, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStoreDelete, err)
	}
	return nil
}

func (s *SQLite) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	// substr keeps the match case-sensitive, unlike LIKE.
	err := s.db.SelectContext(ctx, &keys,
		`SELECT key FROM kv WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStoreList, err)
	}
	return keys, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
