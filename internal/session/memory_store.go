package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory with an idle TTL. Expired
// sessions are dropped on read and by the sweeper started with StartSweeper.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]memoryEntry

	stop     chan struct{}
	stopOnce sync.Once
	started  sync.Once
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an in-memory store. A zero ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]memoryEntry),
		stop:     make(chan struct{}),
	}
}

func (m *MemoryStore) expiredLocked(e memoryEntry, now time.Time) bool {
	return m.ttl > 0 && now.After(e.expiresAt)
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return New(id), nil
	}
	if m.expiredLocked(entry, m.now()) {
		delete(m.sessions, id)
		return New(id), nil
	}
	s := entry.session
	return &s, nil
}

func (m *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := validID(id); err != nil {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return false, nil
	}
	if m.expiredLocked(entry, m.now()) {
		delete(m.sessions, id)
		return false, nil
	}
	return true, nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	if err := validID(s.ID); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	s.UpdatedAt = now.UTC()
	m.sessions[s.ID] = memoryEntry{session: *s, expiresAt: now.Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// EvictExpired deletes every expired session and returns how many were removed.
func (m *MemoryStore) EvictExpired() int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for id, e := range m.sessions {
		if m.expiredLocked(e, now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// StartSweeper evicts expired sessions every interval until Close. Later
// calls are no-ops.
func (m *MemoryStore) StartSweeper(every time.Duration) {
	if every <= 0 || m.ttl <= 0 {
		return
	}
	m.started.Do(func() { go m.sweep(every) })
}

func (m *MemoryStore) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.EvictExpired()
		}
	}
}

// Close stops the sweeper.
func (m *MemoryStore) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

// Len reports the number of stored sessions, including expired ones not yet swept.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
