package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vopenia-io/meet/internal/core/domain"
	"github.com/vopenia-io/meet/internal/core/ports"
)

type keyStoreItem struct {
	value     []byte
	expiresAt time.Time
}

func (i *keyStoreItem) expired(now time.Time) bool {
	return !now.Before(i.expiresAt)
}

// MemoryKeyStore is a process-local TTL store. It backs single-instance
// deployments and tests; expiry is evaluated lazily against the clock and a
// janitor goroutine reclaims expired entries.
type MemoryKeyStore struct {
	items map[string]*keyStoreItem
	mu    sync.RWMutex
	now   func() time.Time

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

type KeyStoreOption func(*MemoryKeyStore)

// WithClock injects the time source used for expiry.
func WithClock(now func() time.Time) KeyStoreOption {
	return func(s *MemoryKeyStore) { s.now = now }
}

// WithCleanupInterval sets the janitor period; zero disables the janitor.
func WithCleanupInterval(d time.Duration) KeyStoreOption {
	return func(s *MemoryKeyStore) { s.cleanupInterval = d }
}

func NewMemoryKeyStore(opts ...KeyStoreOption) *MemoryKeyStore {
	s := &MemoryKeyStore{
		items:           make(map[string]*keyStoreItem),
		now:             time.Now,
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.cleanupInterval > 0 {
		go s.cleanup()
	}
	return s
}

var _ ports.KeyStore = (*MemoryKeyStore)(nil)

func (s *MemoryKeyStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok || item.expired(s.now()) {
		return nil, domain.ErrKeyNotFound
	}
	return cloneBytes(item.value), nil
}

func (s *MemoryKeyStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = &keyStoreItem{
		value:     cloneBytes(value),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *MemoryKeyStore) Touch(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	item, ok := s.items[key]
	if !ok || item.expired(now) {
		delete(s.items, key)
		return false, nil
	}
	item.expiresAt = now.Add(ttl)
	return true, nil
}

func (s *MemoryKeyStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *MemoryKeyStore) DeleteMany(ctx context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.items, key)
	}
	return nil
}

func (s *MemoryKeyStore) ScanPrefix(ctx context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var keys []string
	for key, item := range s.items {
		if strings.HasPrefix(key, prefix) && !item.expired(now) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *MemoryKeyStore) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	values := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if item, ok := s.items[key]; ok && !item.expired(now) {
			values[key] = cloneBytes(item.value)
		}
	}
	return values, nil
}

func (s *MemoryKeyStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// TTL reports the remaining lifetime of a key.
func (s *MemoryKeyStore) TTL(key string) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	item, ok := s.items[key]
	if !ok || item.expired(now) {
		return 0, false
	}
	return item.expiresAt.Sub(now), true
}

// Size returns the number of live keys.
func (s *MemoryKeyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	n := 0
	for _, item := range s.items {
		if !item.expired(now) {
			n++
		}
	}
	return n
}

func (s *MemoryKeyStore) purgeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, item := range s.items {
		if item.expired(now) {
			delete(s.items, key)
		}
	}
}

func (s *MemoryKeyStore) cleanup() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.purgeExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

// Stop stops the janitor goroutine. Safe to call more than once.
func (s *MemoryKeyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCleanup) })
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
