// Package persistence snapshots a rehearsal so a reload resumes it.
package persistence

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/yoockh/yoointerview/internal/cache"
	"github.com/yoockh/yoointerview/internal/models"
)

// Store is durable storage for snapshots. Load reports a missing or unreadable
// entry as a miss.
type Store interface {
	Load(ctx context.Context, key string) (*models.Snapshot, bool, error)
	Save(ctx context.Context, key string, snap *models.Snapshot) error
	Delete(ctx context.Context, key string) error
}

type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, key string) (*models.Snapshot, bool, error) {
	s.mu.Lock()
	b, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	var snap models.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, false, nil
	}
	return &snap, true, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, snap *models.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data[key] = b
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

// Put stores raw bytes, letting callers plant corrupt entries.
func (s *MemoryStore) Put(key string, raw []byte) {
	s.mu.Lock()
	s.data[key] = raw
	s.mu.Unlock()
}

// CacheStore keeps snapshots in the shared cache (Redis) with a TTL so abandoned
// rehearsals expire on their own.
type CacheStore struct {
	c      cache.Cache
	ttl    time.Duration
	prefix string
}

func NewCacheStore(c cache.Cache, ttl time.Duration) *CacheStore {
	return &CacheStore{c: c, ttl: ttl, prefix: "rehearsal:snapshot:"}
}

func (s *CacheStore) Load(ctx context.Context, key string) (*models.Snapshot, bool, error) {
	var snap models.Snapshot
	hit, err := s.c.GetJSON(ctx, s.prefix+key, &snap)
	if err != nil || !hit {
		return nil, false, err
	}
	return &snap, true, nil
}

func (s *CacheStore) Save(ctx context.Context, key string, snap *models.Snapshot) error {
	return s.c.SetJSON(ctx, s.prefix+key, snap, s.ttl)
}

func (s *CacheStore) Delete(ctx context.Context, key string) error {
	return s.c.Del(ctx, s.prefix+key)
}
