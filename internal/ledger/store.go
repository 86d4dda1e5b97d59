package ledger

import (
	"context"
	"sort"
	"sync"
)

// Store persists table orders. Save replaces the whole record so a reader
// sees either the previous or the next version of a table, never a mix.
type Store interface {
	Load(ctx context.Context, table int) (TableOrder, bool, error)
	Save(ctx context.Context, order TableOrder) error
	LoadAll(ctx context.Context) ([]TableOrder, error)
}

type MemoryStore struct {
	mu     sync.RWMutex
	orders map[int]TableOrder
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[int]TableOrder)}
}

func (s *MemoryStore) Load(_ context.Context, table int) (TableOrder, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[table]
	if !ok {
		return TableOrder{}, false, nil
	}
	return o.clone(), true, nil
}

func (s *MemoryStore) Save(_ context.Context, order TableOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orders[order.Table] = order.clone()
	return nil
}

func (s *MemoryStore) LoadAll(_ context.Context) ([]TableOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]TableOrder, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })

	return out, nil
}
