package repofile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-orders-client/session"
)

const fileName = "session.json"

var _ session.Repo = (*FileRepo)(nil)

// FileRepo mirrors the session into a JSON file readable only by its owner.
type FileRepo struct {
	path string
	mu   sync.Mutex
}

// New stores the session as session.json inside folder, creating the folder
// on first save.
func New(folder string) *FileRepo {
	return &FileRepo{path: filepath.Join(folder, fileName)}
}

func (r *FileRepo) Path() string {
	return r.path
}

func (r *FileRepo) Load(_ context.Context) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, session.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if s.AccessToken == "" {
		return nil, session.ErrNotFound
	}
	return &s, nil
}

func (r *FileRepo) Save(_ context.Context, s *session.Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session folder: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}

func (r *FileRepo) Remove(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
