package cart

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository keyed the same way as the
// Postgres one. It backs guest carts and tests.
type MemoryRepository struct {
	mu    sync.RWMutex
	lines map[string][]CartItem
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{lines: make(map[string][]CartItem)}
}

func (m *MemoryRepository) GetItems(ctx context.Context, userKey string) ([]CartItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	items := make([]CartItem, len(m.lines[userKey]))
	copy(items, m.lines[userKey])
	return items, nil
}

func (m *MemoryRepository) GetItem(ctx context.Context, userKey, itemID string) (*CartItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, item := range m.lines[userKey] {
		if item.ID == itemID {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MemoryRepository) InsertItem(ctx context.Context, item CartItem) (*CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	item.CreatedAt = now
	item.UpdatedAt = now
	m.lines[item.UserKey] = append(m.lines[item.UserKey], item)
	return &item, nil
}

func (m *MemoryRepository) UpdateQuantity(ctx context.Context, userKey, itemID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.lines[userKey]
	for i := range items {
		if items[i].ID == itemID {
			items[i].Quantity = quantity
			items[i].UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return nil
}

func (m *MemoryRepository) DeleteItem(ctx context.Context, userKey, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := m.lines[userKey]
	for i := range items {
		if items[i].ID == itemID {
			m.lines[userKey] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MemoryRepository) Clear(ctx context.Context, userKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.lines, userKey)
	return nil
}
