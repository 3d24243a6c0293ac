package db

import (
	"context"
	"database/sql"
	"time"
)

// GetValue returns the value stored under key.
// found is false when the key has never been written or was deleted.
func GetValue(ctx context.Context, db *sql.DB, key string) (value []byte, found bool, err error) {
	row := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return value, true, nil
}

// PutValue overwrites the value stored under key in a single statement.
func PutValue(ctx context.Context, db *sql.DB, key string, value []byte) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().Unix())
	return err
}

// DeleteValue removes key. Deleting a missing key is not an error.
func DeleteValue(ctx context.Context, db *sql.DB, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}
