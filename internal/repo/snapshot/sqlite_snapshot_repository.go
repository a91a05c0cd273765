package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pigeonmsg/pigeond/internal/infra/logging"
)

// SQLiteSnapshotRepositoryConfig holds configuration for the SQLite snapshot
// repository.
type SQLiteSnapshotRepositoryConfig struct {
	// DatabasePath is the filesystem path to the SQLite database file
	DatabasePath string `env:"DATABASE_PATH" default:"var/storage/pigeond.db"`
}

// SQLiteSnapshotRepository implements Repository using SQLite as the storage
// backend, keeping each named blob in a single-row upserted record.
type SQLiteSnapshotRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLiteSnapshotRepository)(nil)

// SQLiteSnapshotRepositoryFactory creates a factory function that returns a
// new SQLiteSnapshotRepository. The factory function implements the
// RepositoryFactory type.
func SQLiteSnapshotRepositoryFactory(cfg SQLiteSnapshotRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewSQLiteSnapshotRepository(cfg)
	}
}

// NewSQLiteSnapshotRepository creates a new SQLiteSnapshotRepository with the
// given configuration. It initializes the database connection and creates the
// schema if needed. Returns an error if connection or initialization fails.
func NewSQLiteSnapshotRepository(cfg SQLiteSnapshotRepositoryConfig) (*SQLiteSnapshotRepository, error) {
	log := logging.GetLogger("repo.snapshot.sqlite_snapshot_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sql.Open("sqlite", cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := initializeDB(db); err != nil {
		return nil, fmt.Errorf("initialize db: %w", err)
	}

	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &SQLiteSnapshotRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

func initializeDB(db *sql.DB) (err error) {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			name       TEXT    PRIMARY KEY,
			data       BLOB    NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	return nil
}

// Fetch implements Repository.Fetch using SQLite.
func (r *SQLiteSnapshotRepository) Fetch(ctx context.Context, name string) ([]byte, error) {
	var data []byte

	err := r.db.QueryRowContext(ctx,
		"SELECT data FROM snapshots WHERE name = ?",
		name,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = errors.Join(ErrSnapshotNotFound, err)
		}

		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	r.log.DebugContext(ctx, "snapshot fetched", "name", name, "bytes", len(data))

	return data, nil
}

// Store implements Repository.Store using an upsert, so prior contents are
// overwritten wholesale.
func (r *SQLiteSnapshotRepository) Store(ctx context.Context, name string, data []byte) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, name, data, time.Now().Unix()); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	r.log.DebugContext(ctx, "snapshot stored", "name", name, "bytes", len(data))

	return nil
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLiteSnapshotRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}
