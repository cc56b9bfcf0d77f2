// Package session persists the current-user record across process restarts.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"garagebook/internal/models"

	"github.com/redis/go-redis/v9"
)

// Key is the fixed name of the persisted current-user record.
const Key = "garagebook_user"

// ErrCorrupt is returned by Load when a record exists but cannot be decoded.
var ErrCorrupt = errors.New("session: corrupt current-user record")

// Store loads, saves and clears the single current-user record.
// Load returns (nil, nil) when nothing is persisted.
type Store interface {
	Load(ctx context.Context) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
	Clear(ctx context.Context) error
}

func encode(user *models.User) ([]byte, error) {
	if user == nil {
		return nil, errors.New("session: nil user")
	}
	return json.Marshal(user.Public())
}

func decode(raw []byte) (*models.User, error) {
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrCorrupt)
	}
	return u.Clone(), nil
}

// FileStore keeps the record in <dir>/garagebook_user.json.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir. The directory is created on first save.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, Key+".json")}
}

// Path is the file the record lives in.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func (s *FileStore) Save(_ context.Context, user *models.User) error {
	raw, err := encode(user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// RedisStore keeps the record under Key, optionally suffixed with a namespace.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore returns a RedisStore. An empty namespace uses the bare key.
func NewRedisStore(rdb *redis.Client, namespace string) *RedisStore {
	key := Key
	if namespace != "" {
		key = Key + ":" + namespace
	}
	return &RedisStore{rdb: rdb, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (*models.User, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func (s *RedisStore) Save(ctx context.Context, user *models.User) error {
	raw, err := encode(user)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.key, raw, 0).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.rdb.Del(ctx, s.key).Err()
}

// MemoryStore holds the record for the lifetime of the process.
type MemoryStore struct {
	mu  sync.Mutex
	raw []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raw == nil {
		return nil, nil
	}
	return decode(s.raw)
}

func (s *MemoryStore) Save(_ context.Context, user *models.User) error {
	raw, err := encode(user)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.raw = nil
	s.mu.Unlock()
	return nil
}
