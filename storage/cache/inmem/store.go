package inmemcache

import (
	"context"
	"sort"
	"sync"

	"github.com/protextify/edge/core/cache"
)

// Store is a session-scoped, in-memory cache.Store. It backs tests and the
// degraded mode used when the durable store cannot be opened.
type Store struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]cache.Entry
}

var _ cache.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{namespaces: make(map[string]map[string]cache.Entry)}
}

func (s *Store) Get(ctx context.Context, namespace, key string) (cache.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return cache.Entry{}, cache.ErrNotFound
	}
	ent, ok := ns[key]
	if !ok {
		return cache.Entry{}, cache.ErrNotFound
	}
	return ent, nil
}

func (s *Store) Put(ctx context.Context, namespace string, ent cache.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]cache.Entry)
		s.namespaces[namespace] = ns
	}
	ns[ent.Key] = ent
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ns, ok := s.namespaces[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, namespace string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ns, ok := s.namespaces[namespace]
	if !ok {
		return nil, nil
	}
	keys := make([]string, 0, len(ns))
	for k := range ns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Namespaces(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.namespaces))
	for name := range s.namespaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) Drop(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.namespaces, namespace)
	return nil
}
