package memory

import (
	"context"
	"sort"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

// LoadBOMEdges loads BOM edges into the store. Edges without a BOMID are
// numbered sequentially.
func (s *Store) LoadBOMEdges(ctx context.Context, edges []entities.BOMEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, edge := range edges {
		s.addEdge(edge)
	}
	return nil
}

// AddBOMEdge adds a single edge to the store
func (s *Store) AddBOMEdge(edge entities.BOMEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addEdge(edge)
}

func (s *Store) addEdge(edge entities.BOMEdge) {
	if edge.BOMID == 0 {
		s.nextBOMID++
		edge.BOMID = s.nextBOMID
	} else if edge.BOMID > s.nextBOMID {
		s.nextBOMID = edge.BOMID
	}
	edge.Child = nil
	edge.Parent = nil

	index := len(s.edges)
	s.edges = append(s.edges, edge)
	s.childIndexes[edge.ParentItemID] = append(s.childIndexes[edge.ParentItemID], index)
	s.parentIndex[edge.ChildItemID] = append(s.parentIndex[edge.ChildItemID], index)
}

// GetBOMEdges returns the active child edges of a parent ordered by child id,
// with the child item joined
func (s *Store) GetBOMEdges(ctx context.Context, parentID entities.ItemID) ([]entities.BOMEdge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := s.collect(s.childIndexes[parentID])
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].ChildItemID < edges[j].ChildItemID })
	return edges, nil
}

// GetParentEdges returns the active edges consuming childID ordered by parent id
func (s *Store) GetParentEdges(ctx context.Context, childID entities.ItemID) ([]entities.BOMEdge, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := s.collect(s.parentIndex[childID])
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].ParentItemID < edges[j].ParentItemID })
	return edges, nil
}

// GetAllBOMEdges returns every stored edge, active or not
func (s *Store) GetAllBOMEdges(ctx context.Context) ([]entities.BOMEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := make([]entities.BOMEdge, len(s.edges))
	copy(edges, s.edges)
	return edges, nil
}

// collect copies the active edges at indexes and joins both items
func (s *Store) collect(indexes []int) []entities.BOMEdge {
	edges := make([]entities.BOMEdge, 0, len(indexes))
	for _, index := range indexes {
		edge := s.edges[index]
		if !edge.IsActive {
			continue
		}
		if i, ok := s.itemsMap[edge.ChildItemID]; ok {
			child := s.items[i]
			edge.Child = &child
		}
		if i, ok := s.itemsMap[edge.ParentItemID]; ok {
			parent := s.items[i]
			edge.Parent = &parent
		}
		edges = append(edges, edge)
	}
	return edges
}
