package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pigeonmsg/pigeond/internal/infra/logging"
)

// FileSystemSnapshotRepositoryConfig holds configuration for the
// filesystem-based snapshot repository.
type FileSystemSnapshotRepositoryConfig struct {
	// Basedir is the directory snapshot files are written to
	Basedir string `env:"BASEDIR" default:"var/storage/snapshot"`
}

// FileSystemSnapshotRepository implements Repository with one JSON file per
// named blob under a base directory.
type FileSystemSnapshotRepository struct {
	cfg FileSystemSnapshotRepositoryConfig
	log logging.Logger
}

var _ Repository = (*FileSystemSnapshotRepository)(nil)

// FileSystemSnapshotRepositoryFactory creates a factory function that returns
// a new FileSystemSnapshotRepository. The factory function implements the
// RepositoryFactory type.
func FileSystemSnapshotRepositoryFactory(cfg FileSystemSnapshotRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewFileSystemSnapshotRepository(cfg)
	}
}

// NewFileSystemSnapshotRepository creates a new FileSystemSnapshotRepository
// with the given configuration, creating the base directory if needed.
func NewFileSystemSnapshotRepository(
	cfg FileSystemSnapshotRepositoryConfig,
) (*FileSystemSnapshotRepository, error) {
	log := logging.GetLogger("repo.snapshot.filesystem_snapshot_repository").With(
		logging.Group("repo", "basedir", cfg.Basedir),
	)

	if err := os.MkdirAll(cfg.Basedir, 0o755); err != nil {
		return nil, fmt.Errorf("create basedir: %w", err)
	}

	return &FileSystemSnapshotRepository{
		cfg: cfg,
		log: log,
	}, nil
}

// Fetch implements Repository.Fetch by reading the blob's file.
func (r *FileSystemSnapshotRepository) Fetch(ctx context.Context, name string) ([]byte, error) {
	filename := r.filename(name)

	data, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			err = errors.Join(ErrSnapshotNotFound, err)
		}

		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	r.log.DebugContext(ctx, "snapshot fetched", "name", name, "bytes", len(data))

	return data, nil
}

// Store implements Repository.Store by writing to a temporary file, syncing
// it to disk and renaming it into place, so a crash mid-write cannot truncate
// the previous snapshot and a completed write survives power loss.
func (r *FileSystemSnapshotRepository) Store(ctx context.Context, name string, data []byte) error {
	filename := r.filename(name)
	tmpname := filename + ".tmp"

	if err := r.writeSynced(tmpname, data); err != nil {
		return fmt.Errorf("write %s: %w", tmpname, err)
	}

	if err := os.Rename(tmpname, filename); err != nil {
		return fmt.Errorf("rename %s: %w", tmpname, err)
	}

	r.log.DebugContext(ctx, "snapshot stored", "name", name, "bytes", len(data))

	return nil
}

func (r *FileSystemSnapshotRepository) writeSynced(filename string, data []byte) error {
	file, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := file.Write(data); err != nil {
		file.Close()

		return err
	}

	if err := file.Sync(); err != nil {
		file.Close()

		return err
	}

	return file.Close()
}

// Close implements Repository.Close. The filesystem repository holds no
// resources.
func (r *FileSystemSnapshotRepository) Close() error {
	return nil
}

func (r *FileSystemSnapshotRepository) filename(name string) string {
	return filepath.Join(r.cfg.Basedir, name+".json")
}
