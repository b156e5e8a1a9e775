package order

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore 纯内存订单存储,单机模式与测试用。
// Transition 在同一把锁内完成 CAS,语义与 SQL 实现一致。
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*Order
	seq    []string

	nowFn func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]*Order),
		nowFn:  time.Now,
	}
}

func (m *MemoryStore) Insert(_ context.Context, o *Order) error {
	if o == nil || o.ID == "" {
		return fmt.Errorf("order id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; ok {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	m.orders[o.ID] = o.Clone()
	m.seq = append(m.seq, o.ID)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o.Clone(), nil
}

func (m *MemoryStore) GetByRunID(_ context.Context, runID string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.seq {
		if o := m.orders[id]; o != nil && o.RunID == runID {
			return o.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) List(_ context.Context, f ListFilter) ([]*Order, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Order, 0, limit)
	// 新订单在前。
	for i := len(m.seq) - 1; i >= 0 && len(out) < limit; i-- {
		o := m.orders[m.seq[i]]
		if o == nil {
			continue
		}
		if f.OwnerID != "" && o.OwnerID != f.OwnerID {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		out = append(out, o.Clone())
	}
	return out, nil
}

func (m *MemoryStore) Transition(_ context.Context, id string, from, to Status, mutate func(*Order)) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	if o.Status != from {
		return nil, &InvalidTransitionError{OrderID: id, From: o.Status, To: to}
	}
	next := o.Clone()
	if mutate != nil {
		mutate(next)
	}
	next.Status = to
	next.UpdatedAt = m.nowFn()
	m.orders[id] = next
	return next.Clone(), nil
}

var _ Store = (*MemoryStore)(nil)
