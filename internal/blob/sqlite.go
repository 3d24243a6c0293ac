package blob

import (
	"context"
	"database/sql"

	"github.com/hpungsan/ctrack/internal/db"
)

// SQLite stores values in the kv table created by db.Init.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an initialized database.
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database}
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	value, found, err := db.GetValue(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *SQLite) Put(ctx context.Context, key string, value []byte) error {
	return db.PutValue(ctx, s.db, key, value)
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	return db.DeleteValue(ctx, s.db, key)
}
