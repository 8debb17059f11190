package repositories

import (
	"context"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

// BOMRepository provides access to Bill of Materials data
type BOMRepository interface {
	// GetBOMEdges returns the active child edges of a parent, ordered by
	// child item id, with the child item joined in
	GetBOMEdges(ctx context.Context, parentID entities.ItemID) ([]entities.BOMEdge, error)

	// GetParentEdges returns the active edges that consume childID
	GetParentEdges(ctx context.Context, childID entities.ItemID) ([]entities.BOMEdge, error)

	GetAllBOMEdges(ctx context.Context) ([]entities.BOMEdge, error)
	LoadBOMEdges(ctx context.Context, edges []entities.BOMEdge) error
}
