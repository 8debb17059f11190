package repositories

import (
	"context"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

// ItemRepository provides access to item master data
type ItemRepository interface {
	// GetItemsByIDs returns the items that exist among ids. Missing ids are
	// silently omitted; callers compare against the requested set.
	GetItemsByIDs(ctx context.Context, ids []entities.ItemID) ([]entities.Item, error)
	GetAllItems(ctx context.Context) ([]entities.Item, error)
	LoadItems(ctx context.Context, items []entities.Item) error
}
