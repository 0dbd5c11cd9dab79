package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/zalando/go-keyring"
	"go.yaml.in/yaml/v4"
)

// TokenStore persists an OAuth2 token between processes. Load returns
// nil, nil when nothing has been stored.
type TokenStore interface {
	Load(ctx context.Context) (*Token, error)
	Save(ctx context.Context, tok Token) error
	Delete(ctx context.Context) error
}

// MemoryStore keeps the token in memory.
type MemoryStore struct {
	mu    sync.Mutex
	token *Token
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load implements TokenStore.
func (s *MemoryStore) Load(context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil {
		return nil, nil
	}
	tok := *s.token
	return &tok, nil
}

// Save implements TokenStore.
func (s *MemoryStore) Save(_ context.Context, tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = &tok
	return nil
}

// Delete implements TokenStore.
func (s *MemoryStore) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
	return nil
}

// FileStore keeps the token in a YAML file readable only by the owner.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the file location.
func (s *FileStore) Path() string { return s.path }

// Load implements TokenStore.
func (s *FileStore) Load(context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("auth: reading token file: %w", err)
	}
	var tok Token
	if err := yaml.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("auth: parsing token file %s: %w", s.path, err)
	}
	return &tok, nil
}

// Save implements TokenStore. The file is replaced atomically.
func (s *FileStore) Save(_ context.Context, tok Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(tok)
	if err != nil {
		return fmt.Errorf("auth: encoding token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("auth: creating token directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".token-*")
	if err != nil {
		return fmt.Errorf("auth: creating token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("auth: setting token file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("auth: writing token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("auth: writing token file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("auth: replacing token file: %w", err)
	}
	return nil
}

// Delete implements TokenStore.
func (s *FileStore) Delete(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("auth: removing token file: %w", err)
	}
	return nil
}

// KeyringStore keeps the token as JSON in the operating system keyring.
type KeyringStore struct {
	service string
	user    string
}

// NewKeyringStore returns a KeyringStore for the given service and account.
func NewKeyringStore(service, user string) *KeyringStore {
	return &KeyringStore{service: service, user: user}
}

// Load implements TokenStore. A corrupt entry is removed so the user can
// authenticate again.
func (s *KeyringStore) Load(context.Context) (*Token, error) {
	raw, err := keyring.Get(s.service, s.user)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("auth: reading keyring: %w", err)
	}

	var tok Token
	if err := json.Unmarshal([]byte(raw), &tok); err != nil {
		return nil, s.delete()
	}
	return &tok, nil
}

// Save implements TokenStore.
func (s *KeyringStore) Save(_ context.Context, tok Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("auth: encoding token: %w", err)
	}
	if err := keyring.Set(s.service, s.user, string(raw)); err != nil {
		return fmt.Errorf("auth: writing keyring: %w", err)
	}
	return nil
}

// Delete implements TokenStore.
func (s *KeyringStore) Delete(context.Context) error {
	return s.delete()
}

func (s *KeyringStore) delete() error {
	if err := keyring.Delete(s.service, s.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("auth: deleting keyring entry: %w", err)
	}
	return nil
}
