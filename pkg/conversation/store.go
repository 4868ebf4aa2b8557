package conversation

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrSessionNotFound = errors.New("session not found")

// Store keeps sessions between events.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	session *Session
	timer   *time.Timer
	gen     uint64
}

// MemoryStore keeps sessions in process memory and forgets them after ttl of
// inactivity. Get and Save work on copies.
type MemoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	data map[string]*memoryEntry
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, data: make(map[string]*memoryEntry)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.session.clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[s.ID]
	if !ok {
		e = &memoryEntry{}
		m.data[s.ID] = e
	}
	e.session = s.clone()
	e.gen++
	if m.ttl > 0 {
		if e.timer != nil {
			e.timer.Stop()
		}
		id, gen := s.ID, e.gen
		e.timer = time.AfterFunc(m.ttl, func() { m.expire(id, gen) })
	}
	return nil
}

// expire removes the session only if it was not saved again since the timer
// for gen was armed. A timer that already fired cannot be stopped by Save.
func (m *MemoryStore) expire(id string, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.data[id]; ok && e.gen == gen {
		delete(m.data, id)
	}
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.data[id]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(m.data, id)
	}
	return nil
}
