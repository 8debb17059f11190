package bom

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
)

// DefaultMaxDepth bounds BOM walks when no depth is configured
const DefaultMaxDepth = 64

// NodeContext provides context information during BOM traversal
type NodeContext struct {
	ItemID entities.ItemID
	// Item is the joined child item; nil at the root
	Item *entities.Item
	// Edge is the edge that led here; nil at the root
	Edge *entities.BOMEdge
	// Edges are the active child edges of this node, in child id order
	Edges []entities.BOMEdge
	// Quantity is the accumulated quantity per unit of the root
	Quantity decimal.Decimal
	Level    int
	// Path holds the ancestors from the root down to and including this node
	Path []entities.ItemID
}

// IsLeaf reports whether the node has no active components
func (n NodeContext) IsLeaf() bool {
	return len(n.Edges) == 0
}

// NodeVisitor defines the interface for processing nodes during BOM traversal
type NodeVisitor interface {
	// VisitNode is called for each node before its children.
	// Returns data to be passed to ProcessChildren and whether to descend.
	VisitNode(ctx context.Context, node NodeContext) (interface{}, bool, error)

	// ProcessChildren is called after all children have been traversed.
	// childResults is aligned with node.Edges, or nil when descent was skipped.
	ProcessChildren(
		ctx context.Context,
		node NodeContext,
		nodeData interface{},
		childResults []interface{},
	) (interface{}, error)
}

// Traverser walks a BOM graph depth-first in post-order. Edge reads are
// cached for the traverser's lifetime, so one traverser must not outlive a
// single request. It is not safe for concurrent use.
type Traverser struct {
	bomRepo  repositories.BOMRepository
	maxDepth int
	edges    map[entities.ItemID][]entities.BOMEdge
	reads    int
}

// NewTraverser creates a traverser with a fresh edge cache
func NewTraverser(bomRepo repositories.BOMRepository, maxDepth int) *Traverser {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Traverser{
		bomRepo:  bomRepo,
		maxDepth: maxDepth,
		edges:    make(map[entities.ItemID][]entities.BOMEdge),
	}
}

// EdgeReads returns how many times the store was asked for child edges
func (t *Traverser) EdgeReads() int {
	return t.reads
}

// ChildEdges returns the active child edges of an item, from cache when possible
func (t *Traverser) ChildEdges(ctx context.Context, itemID entities.ItemID) ([]entities.BOMEdge, error) {
	if edges, ok := t.edges[itemID]; ok {
		return edges, nil
	}

	t.reads++
	edges, err := t.bomRepo.GetBOMEdges(ctx, itemID)
	if err != nil {
		return nil, &entities.PersistenceError{Op: fmt.Sprintf("load BOM edges of item %d", itemID), Err: err}
	}

	active := make([]entities.BOMEdge, 0, len(edges))
	for _, edge := range edges {
		if edge.IsActive {
			active = append(active, edge)
		}
	}
	t.edges[itemID] = active
	return active, nil
}

// Traverse walks the BOM below root with the given visitor
func (t *Traverser) Traverse(ctx context.Context, root entities.ItemID, visitor NodeVisitor) (interface{}, error) {
	return t.traverse(ctx, NodeContext{
		ItemID:   root,
		Quantity: decimal.NewFromInt(1),
		Path:     []entities.ItemID{root},
	}, visitor)
}

func (t *Traverser) traverse(ctx context.Context, node NodeContext, visitor NodeVisitor) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if node.Level > t.maxDepth {
		return nil, &entities.CircularReferenceError{
			ItemID: node.ItemID,
			Path:   node.Path,
			Err:    entities.ErrDepthExceeded,
		}
	}

	edges, err := t.ChildEdges(ctx, node.ItemID)
	if err != nil {
		return nil, err
	}
	node.Edges = edges

	nodeData, shouldContinue, err := visitor.VisitNode(ctx, node)
	if err != nil {
		return nil, fmt.Errorf("failed to visit item %d: %w", node.ItemID, err)
	}
	if !shouldContinue {
		return visitor.ProcessChildren(ctx, node, nodeData, nil)
	}

	childResults := make([]interface{}, 0, len(edges))
	for i := range edges {
		edge := edges[i]
		if onPath(node.Path, edge.ChildItemID) {
			return nil, &entities.CircularReferenceError{
				ItemID: edge.ChildItemID,
				Path:   appendPath(node.Path, edge.ChildItemID),
			}
		}

		child := NodeContext{
			ItemID:   edge.ChildItemID,
			Item:     edge.Child,
			Edge:     &edge,
			Quantity: node.Quantity.Mul(edge.QuantityPerUnit),
			Level:    node.Level + 1,
			Path:     appendPath(node.Path, edge.ChildItemID),
		}

		result, err := t.traverse(ctx, child, visitor)
		if err != nil {
			return nil, err
		}
		childResults = append(childResults, result)
	}

	return visitor.ProcessChildren(ctx, node, nodeData, childResults)
}

func onPath(path []entities.ItemID, id entities.ItemID) bool {
	for _, ancestor := range path {
		if ancestor == id {
			return true
		}
	}
	return false
}

// appendPath copies so sibling branches never share a backing array
func appendPath(path []entities.ItemID, id entities.ItemID) []entities.ItemID {
	next := make([]entities.ItemID, len(path), len(path)+1)
	copy(next, path)
	return append(next, id)
}
