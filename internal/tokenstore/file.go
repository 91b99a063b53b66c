package tokenstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/and161185/sublease/internal/crypto/seal"
)

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at,omitzero"`
}

// FileStore keeps the token sealed in dir/auth_token, keyed by dir/key.
type FileStore struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

// DefaultDir is $XDG_CONFIG_HOME/sublease, falling back to ~/.config/sublease.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "sublease")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "sublease")
}

// NewFile returns a FileStore rooted at dir (DefaultDir when empty).
func NewFile(dir string) *FileStore {
	if dir == "" {
		dir = DefaultDir()
	}
	return &FileStore{dir: dir, now: time.Now}
}

// Path is the sealed token file.
func (s *FileStore) Path() string { return filepath.Join(s.dir, Key) }

func (s *FileStore) keyPath() string { return filepath.Join(s.dir, "key") }

// Load returns the stored token. A missing, unreadable or expired token is ErrNoToken;
// an expired one is removed.
func (s *FileStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(s.Path())
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("tokenstore: read: %w", err)
	}
	key, err := seal.LoadOrCreateKey(s.keyPath())
	if err != nil {
		return "", err
	}
	pt, err := seal.Open(key, Key, blob)
	if err != nil {
		_ = os.Remove(s.Path())
		return "", fmt.Errorf("%w: %w", ErrNoToken, err)
	}
	var tf tokenFile
	if err := json.Unmarshal(pt, &tf); err != nil || tf.AccessToken == "" {
		_ = os.Remove(s.Path())
		return "", ErrNoToken
	}
	if expired(tf.ExpiresAt, s.now()) {
		_ = os.Remove(s.Path())
		return "", ErrNoToken
	}
	return tf.AccessToken, nil
}

// Save seals token and atomically replaces the stored one.
func (s *FileStore) Save(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("tokenstore: empty token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("tokenstore: mkdir: %w", err)
	}
	key, err := seal.LoadOrCreateKey(s.keyPath())
	if err != nil {
		return err
	}
	pt, err := json.Marshal(tokenFile{AccessToken: token, ExpiresAt: Expiry(token)})
	if err != nil {
		return err
	}
	blob, err := seal.Seal(key, Key, pt)
	if err != nil {
		return err
	}
	return writeAtomic(s.Path(), blob)
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("tokenstore: remove: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("tokenstore: temp: %w", err)
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("tokenstore: write: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("tokenstore: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
