package repositories

import (
	"context"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

// ProductionRepository persists production batches
type ProductionRepository interface {
	// CommitProduction writes every transaction and deducts every
	// consumption in one atomic unit. Stock is re-checked under lock; a
	// shortfall discovered there returns *entities.InsufficientStockError
	// and nothing is written.
	CommitProduction(ctx context.Context, commit entities.ProductionCommit) ([]entities.ProductionTransaction, error)

	// ListTransactions returns committed production transactions, newest first
	ListTransactions(ctx context.Context, limit int) ([]entities.ProductionTransaction, error)
}

// GraphStore is the read side the BOM engine needs
type GraphStore interface {
	ItemRepository
	BOMRepository
}

// Store is a complete backing store
type Store interface {
	GraphStore
	PriceRepository
	ProductionRepository
}
