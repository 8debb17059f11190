package memory

import (
	"sync"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
)

// Store provides in-memory storage for items, BOM edges, prices and
// production transactions. All access goes through one RWMutex so that a
// production commit is atomic with respect to every reader.
type Store struct {
	mu sync.RWMutex

	items    []entities.Item
	itemsMap map[entities.ItemID]int

	edges        []entities.BOMEdge
	childIndexes map[entities.ItemID][]int
	parentIndex  map[entities.ItemID][]int
	nextBOMID    int64

	prices map[entities.ItemID][]repositories.PriceEntry

	transactions []entities.ProductionTransaction
	nextTxID     int64
}

// NewStore creates an empty store sized for the expected item and edge counts
func NewStore(expectedItems, expectedEdges int) *Store {
	return &Store{
		items:        make([]entities.Item, 0, expectedItems),
		itemsMap:     make(map[entities.ItemID]int, expectedItems),
		edges:        make([]entities.BOMEdge, 0, expectedEdges),
		childIndexes: make(map[entities.ItemID][]int, expectedItems),
		parentIndex:  make(map[entities.ItemID][]int, expectedItems),
		prices:       make(map[entities.ItemID][]repositories.PriceEntry),
	}
}

// Verify interface compliance
var _ repositories.Store = (*Store)(nil)
