package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
)

// LikeStore records which pages have been liked from this machine.
type LikeStore interface {
	HasLiked(pageKey string) bool
	MarkLiked(pageKey string) error
}

const (
	defaultLikedPath = "~/.local/share/likebar/liked.toml"
	likedKeyPrefix   = "lb-liked-"
)

// LikedKey derives the storage key for a page.
func LikedKey(pageKey string) string {
	return likedKeyPrefix + pageKey
}

type likedFile struct {
	Liked map[string]bool `toml:"liked"`
}

// FileLikeStore keeps liked flags in a TOML file shared by every widget in
// the process. Each widget only touches its own key.
type FileLikeStore struct {
	path string
	mu   sync.Mutex
}

var _ LikeStore = (*FileLikeStore)(nil)

// NewFileLikeStore resolves path (empty uses the default) and returns a store
// backed by it. The file is created lazily on the first MarkLiked.
func NewFileLikeStore(path string) (*FileLikeStore, error) {
	if path == "" {
		path = defaultLikedPath
	}
	resolved, err := expandPath(path)
	if err != nil {
		return nil, fmt.Errorf("resolve liked path: %w", err)
	}
	return &FileLikeStore{path: resolved}, nil
}

// HasLiked reports whether pageKey was marked. Missing or unreadable files
// count as not liked.
func (s *FileLikeStore) HasLiked(pageKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, _ := s.read()
	return flags[LikedKey(pageKey)]
}

// MarkLiked persists the flag for pageKey, keeping every other flag intact.
func (s *FileLikeStore) MarkLiked(pageKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	flags, err := s.read()
	if err != nil {
		// An unparsable file would otherwise block every future write.
		flags = make(map[string]bool)
	}
	flags[LikedKey(pageKey)] = true

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create liked dir: %w", err)
	}
	bytes, err := toml.Marshal(likedFile{Liked: flags})
	if err != nil {
		return fmt.Errorf("marshal liked flags: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, bytes, 0o644); err != nil {
		return fmt.Errorf("write liked flags: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace liked flags: %w", err)
	}
	return nil
}

func (s *FileLikeStore) read() (map[string]bool, error) {
	bytes, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]bool), nil
		}
		return nil, err
	}
	var file likedFile
	if err := toml.Unmarshal(bytes, &file); err != nil {
		return nil, err
	}
	if file.Liked == nil {
		file.Liked = make(map[string]bool)
	}
	return file.Liked, nil
}

// MemoryLikeStore is an in-process LikeStore that forgets everything on exit.
type MemoryLikeStore struct {
	mu    sync.RWMutex
	flags map[string]bool
}

var _ LikeStore = (*MemoryLikeStore)(nil)

// NewMemoryLikeStore returns a store pre-seeded with the given page keys.
func NewMemoryLikeStore(liked ...string) *MemoryLikeStore {
	s := &MemoryLikeStore{flags: make(map[string]bool, len(liked))}
	for _, key := range liked {
		s.flags[LikedKey(key)] = true
	}
	return s
}

func (s *MemoryLikeStore) HasLiked(pageKey string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[LikedKey(pageKey)]
}

func (s *MemoryLikeStore) MarkLiked(pageKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flags == nil {
		s.flags = make(map[string]bool)
	}
	s.flags[LikedKey(pageKey)] = true
	return nil
}
