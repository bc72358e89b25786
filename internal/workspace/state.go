// Package workspace tracks local studio state and optionally mirrors
// an open project to a directory on disk, so its files can be edited
// with external tools while the studio stays in sync.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const stateFileName = "current_project"

// stateFilePath returns the path of the state file inside dataDir,
// creating the directory if needed.
func stateFilePath(dataDir string) (string, error) {
	if strings.TrimSpace(dataDir) == "" {
		return "", errors.New("empty data directory")
	}
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return "", fmt.Errorf("create data directory: %w", err)
	}
	return filepath.Join(dataDir, stateFileName), nil
}

func lockPath(statePath string) string {
	return statePath + ".lock"
}

// LoadCurrent returns the project recorded as last open. A missing or
// empty state file is not an error and loads as (nil, nil).
func LoadCurrent(dataDir string) (*uuid.UUID, error) {
	path, err := stateFilePath(dataDir)
	if err != nil {
		return nil, err
	}

	lock := flock.New(lockPath(path))
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("lock state file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid project ID in state file: %w", err)
	}
	return &id, nil
}

// SaveCurrent records id as the last-open project. The content goes to
// a temp file first and is renamed into place, so a concurrent reader
// never observes a partial ID.
func SaveCurrent(dataDir string, id uuid.UUID) error {
	path, err := stateFilePath(dataDir)
	if err != nil {
		return err
	}

	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock state file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	tmp, err := os.CreateTemp(filepath.Dir(path), stateFileName+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	if _, err := tmp.WriteString(id.String() + "\n"); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// ClearCurrent removes the recorded project. Clearing when nothing is
// recorded is not an error.
func ClearCurrent(dataDir string) error {
	path, err := stateFilePath(dataDir)
	if err != nil {
		return err
	}

	lock := flock.New(lockPath(path))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock state file: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove state file: %w", err)
	}
	return nil
}
