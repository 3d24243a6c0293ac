package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/ctrack/internal/config"
	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the base directory.
const FileName = "ctrack.db"

// migrations are applied in order; user_version records how many ran.
var migrations = []string{
	// 1: one row per storage key, holding the whole visit blob.
	`CREATE TABLE IF NOT EXISTS kv (
	  key        TEXT PRIMARY KEY,
	  value      BLOB NOT NULL,
	  updated_at INTEGER NOT NULL
	);`,
}

// CurrentSchemaVersion is the latest schema version.
var CurrentSchemaVersion = len(migrations)

// Init opens (creating if needed) baseDir/ctrack.db in WAL mode and brings
// its schema up to date. Tests pass t.TempDir() as baseDir.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0o700)

	path := filepath.Join(baseDir, FileName)
	database, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if mode, err := pragma(database, "journal_mode"); err != nil {
		database.Close()
		return nil, err
	} else if mode != "wal" {
		database.Close()
		return nil, fmt.Errorf("expected WAL journal, got %s", mode)
	}

	if err := migrate(database); err != nil {
		database.Close()
		return nil, err
	}

	_ = os.Chmod(path, 0o600)
	return database, nil
}

// ConfigurePool applies the pool limits that are set in cfg.
func ConfigurePool(database *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		database.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		database.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

func migrate(database *sql.DB) error {
	version, err := GetUserVersion(database)
	if err != nil {
		return err
	}
	for i := version; i < len(migrations); i++ {
		if _, err := database.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if err := SetUserVersion(database, i+1); err != nil {
			return err
		}
	}
	return nil
}

func pragma(database *sql.DB, name string) (string, error) {
	var v string
	if err := database.QueryRow("PRAGMA " + name).Scan(&v); err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return v, nil
}

// GetUserVersion returns the schema version stored in the user_version pragma.
func GetUserVersion(database *sql.DB) (int, error) {
	var version int
	if err := database.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion stores version in the user_version pragma.
func SetUserVersion(database *sql.DB, version int) error {
	if _, err := database.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
