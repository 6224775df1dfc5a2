package chatlog

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps entries and users in process. Used when no database is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
	users   map[string]User
	nextID  int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

func (s *MemoryStore) Append(_ context.Context, e Entry) error {
	if !e.Sender.Valid() {
		return ErrInvalidSender
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = int64(len(s.entries) + 1)
	s.entries = append(s.entries, e)
	return nil
}

func (s *MemoryStore) UpsertUser(_ context.Context, name, email, phone string) (int64, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0, ErrEmailRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		return u.ID, nil
	}
	s.nextID++
	s.users[email] = User{ID: s.nextID, Name: name, Email: email, Phone: phone, CreatedAt: time.Now()}
	return s.nextID, nil
}

// Entries returns a copy of everything logged so far, oldest first.
func (s *MemoryStore) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry(nil), s.entries...)
}

func (s *MemoryStore) Users() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out
}
