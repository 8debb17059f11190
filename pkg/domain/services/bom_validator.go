package services

import (
	"fmt"
	"sort"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

// BOMValidator checks BOM structure integrity over a set of edges
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles      bool
	CyclePaths     [][]entities.ItemID
	DuplicateEdges []entities.BOMEdge
	Errors         []string
}

// Valid reports whether no problem was found
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// ValidateBOM detects cycles and duplicate parent/child pairs among the active edges
func (v *BOMValidator) ValidateBOM(edges []entities.BOMEdge) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:     make([][]entities.ItemID, 0),
		DuplicateEdges: make([]entities.BOMEdge, 0),
		Errors:         make([]string, 0),
	}

	adjacency := buildAdjacency(edges)

	result.CyclePaths = detectCycles(adjacency)
	result.HasCycles = len(result.CyclePaths) > 0
	result.DuplicateEdges = detectDuplicateEdges(edges)

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}
	if len(result.DuplicateEdges) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("found %d duplicate BOM edges", len(result.DuplicateEdges)))
	}

	return result
}

// WouldCreateCycle reports whether adding parent -> child to edges closes a
// loop, i.e. parent is already reachable from child
func (v *BOMValidator) WouldCreateCycle(edges []entities.BOMEdge, parent, child entities.ItemID) bool {
	if parent == child {
		return true
	}

	adjacency := buildAdjacency(edges)
	visited := make(map[entities.ItemID]bool)
	stack := []entities.ItemID{child}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if current == parent {
			return true
		}
		if visited[current] {
			continue
		}
		visited[current] = true
		stack = append(stack, adjacency[current]...)
	}

	return false
}

// buildAdjacency creates a parent -> distinct children map from active edges
func buildAdjacency(edges []entities.BOMEdge) map[entities.ItemID][]entities.ItemID {
	adjacency := make(map[entities.ItemID][]entities.ItemID)
	seen := make(map[[2]entities.ItemID]bool)

	for _, edge := range edges {
		if !edge.IsActive {
			continue
		}
		key := [2]entities.ItemID{edge.ParentItemID, edge.ChildItemID}
		if seen[key] {
			continue
		}
		seen[key] = true
		adjacency[edge.ParentItemID] = append(adjacency[edge.ParentItemID], edge.ChildItemID)
	}

	return adjacency
}

// detectCycles uses DFS with a recursion stack to find cycles
func detectCycles(adjacency map[entities.ItemID][]entities.ItemID) [][]entities.ItemID {
	visited := make(map[entities.ItemID]bool)
	onStack := make(map[entities.ItemID]bool)
	cycles := make([][]entities.ItemID, 0)

	parents := make([]entities.ItemID, 0, len(adjacency))
	for parent := range adjacency {
		parents = append(parents, parent)
	}
	sort.Slice(parents, func(i, j int) bool { return parents[i] < parents[j] })

	var dfs func(current entities.ItemID, path []entities.ItemID)
	dfs = func(current entities.ItemID, path []entities.ItemID) {
		visited[current] = true
		onStack[current] = true
		path = append(path, current)

		for _, child := range adjacency[current] {
			if !visited[child] {
				dfs(child, path)
				continue
			}
			if !onStack[child] {
				continue
			}
			for i, id := range path {
				if id == child {
					cycle := make([]entities.ItemID, 0, len(path)-i+1)
					cycle = append(cycle, path[i:]...)
					cycle = append(cycle, child)
					cycles = append(cycles, cycle)
					break
				}
			}
		}

		onStack[current] = false
	}

	for _, parent := range parents {
		if !visited[parent] {
			dfs(parent, nil)
		}
	}

	return cycles
}

// detectDuplicateEdges finds active edges repeating a parent/child pair
func detectDuplicateEdges(edges []entities.BOMEdge) []entities.BOMEdge {
	seen := make(map[string]entities.BOMEdge)
	duplicates := make([]entities.BOMEdge, 0)

	for _, edge := range edges {
		if !edge.IsActive {
			continue
		}
		key := fmt.Sprintf("%d|%d", edge.ParentItemID, edge.ChildItemID)
		if existing, exists := seen[key]; exists {
			duplicates = append(duplicates, edge, existing)
		} else {
			seen[key] = edge
		}
	}

	return duplicates
}
