package contentstore

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/kapu/parish-directory-go/pkg/errors"
)

type memoryEntry struct {
	data  []byte
	token Token
}

// MemoryStore keeps files in process with the same version rules as the remote store.
// Tokens are git blob hashes, like GitHub's.
type MemoryStore struct {
	mu      sync.Mutex
	files   map[string]memoryEntry
	commits []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]memoryEntry)}
}

// Seed stores data at path unconditionally and returns its token.
func (s *MemoryStore) Seed(path string, data []byte) Token {
	s.mu.Lock()
	defer s.mu.Unlock()

	token := blobToken(data)
	s.files[path] = memoryEntry{data: append([]byte(nil), data...), token: token}
	return token
}

func (s *MemoryStore) Fetch(_ context.Context, path string) (*Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.files[path]
	if !ok {
		return nil, errors.NewNotFoundError("file not found in store", path)
	}
	return &Content{Path: path, Data: append([]byte(nil), entry.data...), Token: entry.token}, nil
}

func (s *MemoryStore) Write(_ context.Context, path string, data []byte, token Token, message string) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.files[path]
	switch {
	case token == "" && exists:
		return "", errors.NewConflictError("file already exists", path, "")
	case token != "" && !exists:
		return "", errors.NewConflictError("file no longer exists", path, string(token))
	case token != "" && entry.token != token:
		return "", errors.NewConflictError("stored version changed since it was read", path, string(token))
	}

	newToken := blobToken(data)
	s.files[path] = memoryEntry{data: append([]byte(nil), data...), token: newToken}
	s.commits = append(s.commits, message)
	return newToken, nil
}

// Paths lists stored paths in order.
func (s *MemoryStore) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]string, 0, len(s.files))
	for p := range s.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Commits returns the messages of every successful write.
func (s *MemoryStore) Commits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commits...)
}

func blobToken(data []byte) Token {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(data))
	h.Write(data)
	return Token(hex.EncodeToString(h.Sum(nil)))
}
