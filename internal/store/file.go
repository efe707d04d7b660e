package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileSnapshots persists each snapshot as a JSON file under a data
// directory. This is the default single-client deployment.
type FileSnapshots struct {
	dir string
}

func NewFileSnapshots(dir string) (*FileSnapshots, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileSnapshots{dir: dir}, nil
}

// Dir exposes the snapshot directory so the history service can track it.
func (f *FileSnapshots) Dir() string { return f.dir }

func (f *FileSnapshots) path(kind Kind) string {
	return filepath.Join(f.dir, string(kind)+".json")
}

func (f *FileSnapshots) Load(_ context.Context, kind Kind) ([]byte, error) {
	payload, err := os.ReadFile(f.path(kind))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", kind, err)
	}
	return payload, nil
}

func (f *FileSnapshots) Save(_ context.Context, kind Kind, payload []byte) error {
	tmp := f.path(kind) + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", kind, err)
	}
	if err := os.Rename(tmp, f.path(kind)); err != nil {
		return fmt.Errorf("replace snapshot %s: %w", kind, err)
	}
	return nil
}
