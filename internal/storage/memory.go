// Package storage provides conversation history and key-value persistence.
package storage

import (
	"context"
	"maps"
	"sync"

	"github.com/hammamikhairi/deskmate/internal/domain"
	"github.com/hammamikhairi/deskmate/internal/logger"
)

// Compile-time interface checks.
var (
	_ domain.HistoryStore = (*MemoryStore)(nil)
	_ domain.KVStore      = (*MemoryStore)(nil)
)

// MemoryStore keeps history and key-value data in memory. Safe for
// concurrent access. Nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	history []domain.HistoryRecord
	kv      map[string]map[string]string
	log     *logger.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		kv:  make(map[string]map[string]string),
		log: log,
	}
}

// Append adds a history record.
func (s *MemoryStore) Append(ctx context.Context, rec domain.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Debug("storage: append %s/%s (%d chars)", rec.Context, rec.Role, len(rec.Content))
	s.history = append(s.history, rec)
	return nil
}

// Recent returns up to n of the latest records for contextName, oldest
// first. n <= 0 returns all of them.
func (s *MemoryStore) Recent(ctx context.Context, contextName string, n int) ([]domain.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.HistoryRecord
	for i := len(s.history) - 1; i >= 0; i-- {
		if n > 0 && len(out) == n {
			break
		}
		if s.history[i].Context == contextName {
			out = append(out, s.history[i])
		}
	}
	reverse(out)
	return out, nil
}

// Put stores value under namespace/key, overwriting any previous value.
func (s *MemoryStore) Put(ctx context.Context, namespace, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.kv[namespace]
	if !ok {
		ns = make(map[string]string)
		s.kv[namespace] = ns
	}
	ns[key] = value
	return nil
}

// Get returns the value for namespace/key or domain.ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, namespace, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.kv[namespace][key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

// List returns a copy of every key in namespace.
func (s *MemoryStore) List(ctx context.Context, namespace string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.kv[namespace]))
	maps.Copy(out, s.kv[namespace])
	return out, nil
}

// Delete removes namespace/key.
func (s *MemoryStore) Delete(ctx context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.kv[namespace][key]; !ok {
		return domain.ErrNotFound
	}
	delete(s.kv[namespace], key)
	s.log.Debug("storage: deleted %s/%s", namespace, key)
	return nil
}

func reverse(recs []domain.HistoryRecord) {
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
}
