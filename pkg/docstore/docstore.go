// Package docstore is the filesystem document cache (spec §4.5): a
// directory of files named "<id>-<base64url(hmac)>", read/written by
// (FileId, DocHmac) only — it never serves "the current document for a
// file", which is a lookup mediated by pkg/tree.
package docstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lockbook/lockbook-core/pkg/model"
)

// ErrClosed is returned by every operation once Close has been called,
// mirroring the teacher's filesystem block store (pkg/payload/store/fs).
var ErrClosed = errors.New("docstore: closed")

// Store is the filesystem-backed document cache.
type Store struct {
	mu       sync.RWMutex
	basePath string
	closed   bool
}

// Config mirrors the teacher's fs.Config shape (base path plus
// directory/file permission modes).
type Config struct {
	BasePath  string
	CreateDir bool
	DirMode   os.FileMode
	FileMode  os.FileMode
}

// DefaultConfig returns sane defaults for basePath.
func DefaultConfig(basePath string) Config {
	return Config{BasePath: basePath, CreateDir: true, DirMode: 0755, FileMode: 0644}
}

// New opens (and optionally creates) the document cache directory.
func New(cfg Config) (*Store, error) {
	if cfg.BasePath == "" {
		return nil, errors.New("docstore: base path is required")
	}
	if cfg.DirMode == 0 {
		cfg.DirMode = 0755
	}
	if cfg.FileMode == 0 {
		cfg.FileMode = 0644
	}
	if cfg.CreateDir {
		if err := os.MkdirAll(cfg.BasePath, cfg.DirMode); err != nil {
			return nil, err
		}
	}
	info, err := os.Stat(cfg.BasePath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("docstore: %s is not a directory", cfg.BasePath)
	}
	return &Store{basePath: cfg.BasePath}, nil
}

func fileName(id model.FileId, hmac model.DocHmac) string {
	return fmt.Sprintf("%s-%s", id.String(), hmac.String())
}

func (s *Store) path(id model.FileId, hmac model.DocHmac) string {
	return filepath.Join(s.basePath, fileName(id, hmac))
}

// Insert writes bytes atomically (write-temp + rename, spec §4.5).
func (s *Store) Insert(id model.FileId, hmac model.DocHmac, bytes []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	path := s.path(id, hmac)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0644); err != nil {
		return fmt.Errorf("docstore: write temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("docstore: rename: %w", err)
	}
	return nil
}

// Get reads bytes for (id, hmac); ok is false if missing (spec §4.5
// "return absent if missing", not an error).
func (s *Store) Get(id model.FileId, hmac model.DocHmac) (bytes []byte, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}

	data, err := os.ReadFile(s.path(id, hmac))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Delete unlinks (id, hmac); missing is not an error (spec §4.5 "ignore if
// missing").
func (s *Store) Delete(id model.FileId, hmac model.DocHmac) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := os.Remove(s.path(id, hmac)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Key identifies one cached document body.
type Key struct {
	Id   model.FileId
	Hmac model.DocHmac
}

// Retain deletes every cached document whose key is not in keep, called
// after sync promotion (spec §4.5).
func (s *Store) Retain(keep []Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	wanted := make(map[string]struct{}, len(keep))
	for _, k := range keep {
		wanted[fileName(k.Id, k.Hmac)] = struct{}{}
	}

	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".tmp") {
			continue
		}
		if _, keep := wanted[name]; keep {
			continue
		}
		if err := os.Remove(filepath.Join(s.basePath, name)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
