package store

import (
	"context"
	"sync"
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/domain"
)

type memoryEntry struct {
	raw       []byte
	expiresAt time.Time // zero means no expiry
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Memory keeps handles in process memory. It is the default store and the
// one used by tests. With a TTL, entries expire like Redis keys do and a
// janitor goroutine drops them; call Close to stop it.
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
	ttl   time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemory creates an empty in-memory store whose entries never expire.
func NewMemory() *Memory {
	return NewMemoryWithTTL(0)
}

// NewMemoryWithTTL creates an empty in-memory store whose entries expire
// ttl after they were last written. A ttl of zero disables expiry.
func NewMemoryWithTTL(ttl time.Duration) *Memory {
	m := &Memory{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		stop:  make(chan struct{}),
	}
	if ttl > 0 {
		go m.cleanup()
	}
	return m
}

func (m *Memory) Load(_ context.Context, key string) (*domain.SessionHandle, error) {
	m.mu.RLock()
	e, ok := m.items[key]
	m.mu.RUnlock()
	if !ok || e.expired(time.Now()) {
		return nil, nil
	}
	return decodeHandle(e.raw), nil
}

func (m *Memory) Save(_ context.Context, key string, h *domain.SessionHandle) error {
	raw, err := encodeHandle(h)
	if err != nil {
		return err
	}
	m.set(key, raw)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// Put stores raw bytes under key as-is.
func (m *Memory) Put(key string, raw []byte) {
	m.set(key, append([]byte(nil), raw...))
}

// Has reports whether a live entry is stored under key.
func (m *Memory) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.items[key]
	return ok && !e.expired(time.Now())
}

// Len returns the number of stored entries, expired ones included until the
// next sweep.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Close stops the janitor goroutine. It is safe to call more than once.
func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) set(key string, raw []byte) {
	e := memoryEntry{raw: raw}
	if m.ttl > 0 {
		e.expiresAt = time.Now().Add(m.ttl)
	}
	m.mu.Lock()
	m.items[key] = e
	m.mu.Unlock()
}

func (m *Memory) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, e := range m.items {
		if e.expired(now) {
			delete(m.items, k)
		}
	}
}

// cleanup periodically removes expired entries.
func (m *Memory) cleanup() {
	ticker := time.NewTicker(m.ttl)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			m.sweep(now)
		case <-m.stop:
			return
		}
	}
}
