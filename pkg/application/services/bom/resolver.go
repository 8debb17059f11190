package bom

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
)

// DefaultMaxTreeNodes bounds the per-path trees built for explosion and costing
const DefaultMaxTreeNodes = 250_000

// Resolver turns a BOM graph into per-unit requirement vectors and trees
type Resolver struct {
	store        repositories.GraphStore
	maxDepth     int
	maxTreeNodes int
	logger       *zap.Logger
}

// NewResolver creates a resolver over the graph store
func NewResolver(store repositories.GraphStore, maxDepth int, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Resolver{
		store:        store,
		maxDepth:     maxDepth,
		maxTreeNodes: DefaultMaxTreeNodes,
		logger:       logger,
	}
}

// WithMaxTreeNodes sets how many nodes ResolveTree may materialize. Shared
// sub-assemblies repeat once per path, so layered BOMs grow the tree
// geometrically while requirement vectors stay linear. n <= 0 keeps the
// default.
func (r *Resolver) WithMaxTreeNodes(n int) *Resolver {
	if n > 0 {
		r.maxTreeNodes = n
	}
	return r
}

// MaxDepth returns the configured depth bound
func (r *Resolver) MaxDepth() int {
	return r.maxDepth
}

// NewSession starts a resolution session. Memoized vectors and edge reads
// are shared by every call on the session, so a batch should use one.
func (r *Resolver) NewSession() *Session {
	return &Session{
		resolver:  r,
		traverser: NewTraverser(r.store, r.maxDepth),
		memo:      make(map[entities.ItemID]entities.RequirementVector),
	}
}

// Resolve computes the requirement vector of root in a fresh session
func (r *Resolver) Resolve(ctx context.Context, root entities.ItemID) (entities.RequirementVector, error) {
	return r.NewSession().Resolve(ctx, root)
}

// Session is a single-request resolution scope. It is not safe for
// concurrent use.
type Session struct {
	resolver  *Resolver
	traverser *Traverser
	memo      map[entities.ItemID]entities.RequirementVector
}

// Resolve returns the leaf quantities needed for one unit of root. An item
// without active components resolves to one unit of itself.
func (s *Session) Resolve(ctx context.Context, root entities.ItemID) (entities.RequirementVector, error) {
	result, err := s.traverser.Traverse(ctx, root, &requirementVisitor{memo: s.memo})
	if err != nil {
		s.resolver.logger.Debug("BOM resolution failed",
			zap.Int64("item_id", int64(root)),
			zap.Error(err),
		)
		return nil, err
	}

	vector := result.(entities.RequirementVector)
	s.resolver.logger.Debug("BOM resolved",
		zap.Int64("item_id", int64(root)),
		zap.Int("leaves", len(vector)),
		zap.Int("edge_reads", s.traverser.EdgeReads()),
	)
	return vector.Clone(), nil
}

// HasBOM reports whether root has any active components
func (s *Session) HasBOM(ctx context.Context, root entities.ItemID) (bool, error) {
	edges, err := s.traverser.ChildEdges(ctx, root)
	if err != nil {
		return false, err
	}
	return len(edges) > 0, nil
}

// ResolveTree returns the full tree below root, one node per path. It fails
// with entities.ErrTreeTooLarge once the tree exceeds the resolver's node
// budget.
func (s *Session) ResolveTree(ctx context.Context, root entities.ItemID) (*TreeNode, error) {
	visitor := &treeVisitor{limit: s.resolver.maxTreeNodes}
	result, err := s.traverser.Traverse(ctx, root, visitor)
	if err != nil {
		if errors.Is(err, entities.ErrTreeTooLarge) {
			s.resolver.logger.Warn("BOM tree over node budget",
				zap.Int64("item_id", int64(root)),
				zap.Int("max_tree_nodes", s.resolver.maxTreeNodes),
			)
		}
		return nil, err
	}
	return result.(*TreeNode), nil
}

// ExplosionLine is one edge of a flattened BOM explosion
type ExplosionLine struct {
	Level              int             `json:"level"`
	ParentItemID       entities.ItemID `json:"parent_item_id"`
	ChildItemID        entities.ItemID `json:"child_item_id"`
	Code               string          `json:"item_code"`
	Name               string          `json:"item_name"`
	Unit               string          `json:"unit"`
	QuantityPerUnit    decimal.Decimal `json:"quantity_required"`
	CumulativeQuantity decimal.Decimal `json:"cumulative_quantity"`
	IsLeaf             bool            `json:"is_leaf"`
}

// LeafRequirement is a scaled requirement for one leaf material
type LeafRequirement struct {
	ItemID   entities.ItemID `json:"item_id"`
	Code     string          `json:"item_code"`
	Name     string          `json:"item_name"`
	Unit     string          `json:"unit"`
	Quantity decimal.Decimal `json:"quantity"`
}

// Explosion is the flattened BOM of an item together with its scaled leaf totals
type Explosion struct {
	ItemID       entities.ItemID   `json:"item_id"`
	Quantity     decimal.Decimal   `json:"quantity"`
	Lines        []ExplosionLine   `json:"lines"`
	Requirements []LeafRequirement `json:"requirements"`
	MaxLevel     int               `json:"max_level"`
}

// Explode flattens the tree below root in pre-order and totals its leaves
// for the given production quantity
func (s *Session) Explode(ctx context.Context, root entities.ItemID, quantity decimal.Decimal) (*Explosion, error) {
	tree, err := s.ResolveTree(ctx, root)
	if err != nil {
		return nil, err
	}
	vector, err := s.Resolve(ctx, root)
	if err != nil {
		return nil, err
	}

	explosion := &Explosion{
		ItemID:       root,
		Quantity:     quantity,
		Lines:        make([]ExplosionLine, 0),
		Requirements: make([]LeafRequirement, 0, len(vector)),
	}

	leaves := make(map[entities.ItemID]*entities.Item)
	tree.Walk(func(node *TreeNode) {
		if node.Edge == nil {
			return
		}
		line := ExplosionLine{
			Level:              node.Level,
			ParentItemID:       node.Edge.ParentItemID,
			ChildItemID:        node.ItemID,
			QuantityPerUnit:    node.Edge.QuantityPerUnit,
			CumulativeQuantity: node.Quantity.Mul(quantity),
			IsLeaf:             node.IsLeaf(),
		}
		if node.Item != nil {
			line.Code = node.Item.Code
			line.Name = node.Item.Name
			line.Unit = node.Item.Unit
			leaves[node.ItemID] = node.Item
		}
		if node.Level > explosion.MaxLevel {
			explosion.MaxLevel = node.Level
		}
		explosion.Lines = append(explosion.Lines, line)
	})

	for _, id := range vector.ItemIDs() {
		req := LeafRequirement{ItemID: id, Quantity: vector.Get(id).Mul(quantity)}
		if item, ok := leaves[id]; ok {
			req.Code = item.Code
			req.Name = item.Name
			req.Unit = item.Unit
		}
		explosion.Requirements = append(explosion.Requirements, req)
	}

	return explosion, nil
}

// WhereUsed walks parent edges upward from child and lists every ancestor
// usage, ordered by level then parent name
func (r *Resolver) WhereUsed(ctx context.Context, childID entities.ItemID) (*entities.WhereUsedResult, error) {
	items, err := r.store.GetItemsByIDs(ctx, []entities.ItemID{childID})
	if err != nil {
		return nil, &entities.PersistenceError{Op: "load item", Err: err}
	}
	if len(items) == 0 || !items[0].IsActive {
		return nil, fmt.Errorf("item %d: %w", childID, entities.ErrNotFound)
	}

	result := &entities.WhereUsedResult{
		Child:     items[0],
		WhereUsed: make([]entities.WhereUsedEntry, 0),
	}

	var walk func(current entities.ItemID, level int, path []entities.ItemID, usagePath string, multiplier decimal.Decimal) error
	walk = func(current entities.ItemID, level int, path []entities.ItemID, usagePath string, multiplier decimal.Decimal) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if level > r.maxDepth {
			return &entities.CircularReferenceError{ItemID: current, Path: path, Err: entities.ErrDepthExceeded}
		}

		parents, err := r.store.GetParentEdges(ctx, current)
		if err != nil {
			return &entities.PersistenceError{Op: fmt.Sprintf("load parents of item %d", current), Err: err}
		}

		for _, edge := range parents {
			if !edge.IsActive {
				continue
			}
			if onPath(path, edge.ParentItemID) {
				return &entities.CircularReferenceError{
					ItemID: edge.ParentItemID,
					Path:   appendPath(path, edge.ParentItemID),
				}
			}

			entry := entities.WhereUsedEntry{
				BOMID:           edge.BOMID,
				ParentItemID:    edge.ParentItemID,
				QuantityPerUnit: multiplier.Mul(edge.QuantityPerUnit),
				Level:           level,
			}
			name := fmt.Sprintf("#%d", edge.ParentItemID)
			if edge.Parent != nil {
				entry.ParentCode = edge.Parent.Code
				entry.ParentName = edge.Parent.Name
				name = edge.Parent.Name
			}
			entry.UsagePath = name + " > " + usagePath
			result.WhereUsed = append(result.WhereUsed, entry)

			if err := walk(edge.ParentItemID, level+1, appendPath(path, edge.ParentItemID), entry.UsagePath, entry.QuantityPerUnit); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(childID, 1, []entities.ItemID{childID}, result.Child.Name, decimal.NewFromInt(1)); err != nil {
		return nil, err
	}

	sort.SliceStable(result.WhereUsed, func(i, j int) bool {
		a, b := result.WhereUsed[i], result.WhereUsed[j]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		return a.ParentName < b.ParentName
	})
	result.Summarize()

	return result, nil
}
