package session

import (
	"context"
	"hash/fnv"
	"sync"
)

const shardCount = 32

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// MemoryStore keeps sessions in process memory, sharded so that unrelated
// ids do not contend on one lock. Sessions never expire.
type MemoryStore struct {
	shards [shardCount]*shard
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{}
	for i := range m.shards {
		m.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return m
}

func (m *MemoryStore) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return m.shards[h.Sum32()%shardCount]
}

func (m *MemoryStore) Put(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	sh := m.shardFor(s.ID)
	sh.mu.Lock()
	sh.sessions[s.ID] = s.Clone()
	sh.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Session, error) {
	sh := m.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	s, ok := sh.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	sh := m.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(sh.sessions, id)
	return nil
}

func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	n := 0
	for _, sh := range m.shards {
		sh.mu.RLock()
		n += len(sh.sessions)
		sh.mu.RUnlock()
	}
	return n, nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*Session) error) error {
	sh := m.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	current, ok := sh.sessions[id]
	if !ok {
		return ErrNotFound
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	next.ID = id
	sh.sessions[id] = next
	return nil
}

var _ Store = (*MemoryStore)(nil)
