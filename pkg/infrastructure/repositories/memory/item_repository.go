package memory

import (
	"context"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

// LoadItems loads items into the store, replacing any with the same id
func (s *Store) LoadItems(ctx context.Context, items []entities.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range items {
		s.putItem(item)
	}
	return nil
}

// AddItem adds or replaces a single item
func (s *Store) AddItem(item entities.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putItem(item)
}

func (s *Store) putItem(item entities.Item) {
	if index, exists := s.itemsMap[item.ItemID]; exists {
		s.items[index] = item
		return
	}
	s.itemsMap[item.ItemID] = len(s.items)
	s.items = append(s.items, item)
}

// GetItemsByIDs returns copies of the existing items among ids
func (s *Store) GetItemsByIDs(ctx context.Context, ids []entities.ItemID) ([]entities.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Item, 0, len(ids))
	seen := make(map[entities.ItemID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if index, exists := s.itemsMap[id]; exists {
			items = append(items, s.items[index])
		}
	}
	return items, nil
}

// GetAllItems returns copies of all items in load order
func (s *Store) GetAllItems(ctx context.Context) ([]entities.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Item, len(s.items))
	copy(items, s.items)
	return items, nil
}
