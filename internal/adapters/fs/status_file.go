package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bft-labs/queueship/internal/domain"
)

// DefaultStatusFileName is used when the repository is given a directory.
const DefaultStatusFileName = "status.json"

// StatusFileRepository implements ports.StatusRepository using a JSON file.
// Saves are serialized; a snapshot older than the last one written is
// dropped.
type StatusFileRepository struct {
	path string

	mu        sync.Mutex
	lastSaved time.Time
}

// NewStatusFileRepository creates a repository writing to path.
// If path is an existing directory, DefaultStatusFileName inside it is used.
func NewStatusFileRepository(path string) *StatusFileRepository {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		path = filepath.Join(path, DefaultStatusFileName)
	}
	return &StatusFileRepository{path: path}
}

// Load retrieves the last saved snapshot from disk.
// Returns an empty snapshot and nil error if no status file exists.
func (r *StatusFileRepository) Load(ctx context.Context) (domain.StatusSnapshot, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.StatusSnapshot{}, nil
		}
		return domain.StatusSnapshot{}, err
	}

	var snapshot domain.StatusSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return domain.StatusSnapshot{}, fmt.Errorf("parse status file %s: %w", r.path, err)
	}
	return snapshot, nil
}

// Save persists the snapshot atomically (temp file, then rename).
func (r *StatusFileRepository) Save(ctx context.Context, snapshot domain.StatusSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snapshot.UpdatedAt.Before(r.lastSaved) {
		return nil
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	r.lastSaved = snapshot.UpdatedAt
	return nil
}

// Path returns the full path to the status file.
func (r *StatusFileRepository) Path() string {
	return r.path
}
