package cache

import (
	"context"
	"sync"
	"time"

	"github.com/iWorld-y/verity/internal/contracts"
)

type memoryEntry struct {
	payload   []byte
	doc       *contracts.Document
	expiresAt time.Time
}

// MemoryStore 进程内缓存。缓存未启用时的默认后端，也用于测试。
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建进程内缓存。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[NamespaceQuery+":"+key]
	if !ok || s.now().After(e.expiresAt) {
		return nil, false
	}
	return e.payload, true
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[NamespaceQuery+":"+key] = memoryEntry{payload: value, expiresAt: s.now().Add(ttl)}
	return true
}

func (s *MemoryStore) GetDocument(ctx context.Context, key string) (*contracts.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[NamespaceDocument+":"+key]
	if !ok || e.doc == nil || s.now().After(e.expiresAt) {
		return nil, false
	}
	copied := *e.doc
	return &copied, true
}

func (s *MemoryStore) SetDocument(ctx context.Context, key string, doc *contracts.Document, ttl time.Duration) bool {
	copied := *doc
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[NamespaceDocument+":"+key] = memoryEntry{doc: &copied, expiresAt: s.now().Add(ttl)}
	return true
}
