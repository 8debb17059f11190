package bom

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

// requirementVisitor folds a BOM into per-unit requirement vectors,
// memoizing every item it finishes
type requirementVisitor struct {
	memo map[entities.ItemID]entities.RequirementVector
}

var _ NodeVisitor = (*requirementVisitor)(nil)

func (v *requirementVisitor) VisitNode(ctx context.Context, node NodeContext) (interface{}, bool, error) {
	if vector, ok := v.memo[node.ItemID]; ok {
		return vector, false, nil
	}
	return nil, true, nil
}

func (v *requirementVisitor) ProcessChildren(
	ctx context.Context,
	node NodeContext,
	nodeData interface{},
	childResults []interface{},
) (interface{}, error) {
	if memoized, ok := nodeData.(entities.RequirementVector); ok {
		return memoized, nil
	}

	if node.IsLeaf() {
		vector := entities.UnitRequirement(node.ItemID)
		v.memo[node.ItemID] = vector
		return vector, nil
	}

	vector := make(entities.RequirementVector)
	for i, result := range childResults {
		childVector, ok := result.(entities.RequirementVector)
		if !ok {
			return nil, fmt.Errorf("unexpected child result %T for item %d", result, node.Edges[i].ChildItemID)
		}
		vector.AddScaled(childVector, node.Edges[i].QuantityPerUnit)
	}
	v.memo[node.ItemID] = vector
	return vector, nil
}

// TreeNode is one node of a resolved BOM tree
type TreeNode struct {
	ItemID entities.ItemID
	Item   *entities.Item
	Edge   *entities.BOMEdge
	// Quantity is the accumulated quantity per unit of the root
	Quantity decimal.Decimal
	Level    int
	Children []*TreeNode
}

// IsLeaf reports whether the node has no components
func (n *TreeNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Walk visits the node and its descendants in pre-order
func (n *TreeNode) Walk(fn func(*TreeNode)) {
	fn(n)
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

// treeVisitor materializes the tree shape without memoization; shared
// sub-assemblies appear once per path, so the node count is bounded by limit
type treeVisitor struct {
	limit int
	nodes int
}

var _ NodeVisitor = (*treeVisitor)(nil)

func (v *treeVisitor) VisitNode(ctx context.Context, node NodeContext) (interface{}, bool, error) {
	v.nodes++
	if v.limit > 0 && v.nodes > v.limit {
		return nil, false, fmt.Errorf("more than %d nodes: %w", v.limit, entities.ErrTreeTooLarge)
	}
	return nil, true, nil
}

func (*treeVisitor) ProcessChildren(
	ctx context.Context,
	node NodeContext,
	nodeData interface{},
	childResults []interface{},
) (interface{}, error) {
	tree := &TreeNode{
		ItemID:   node.ItemID,
		Item:     node.Item,
		Edge:     node.Edge,
		Quantity: node.Quantity,
		Level:    node.Level,
		Children: make([]*TreeNode, 0, len(childResults)),
	}
	for _, result := range childResults {
		child, ok := result.(*TreeNode)
		if !ok {
			return nil, fmt.Errorf("unexpected child result %T under item %d", result, node.ItemID)
		}
		tree.Children = append(tree.Children, child)
	}
	return tree, nil
}
