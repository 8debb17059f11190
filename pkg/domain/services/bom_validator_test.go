package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

func edge(parent, child entities.ItemID) entities.BOMEdge {
	return entities.BOMEdge{
		ParentItemID:    parent,
		ChildItemID:     child,
		QuantityPerUnit: decimal.NewFromInt(1),
		IsActive:        true,
	}
}

func TestBOMValidator_DetectCycles(t *testing.T) {
	validator := NewBOMValidator()

	testCases := []struct {
		name        string
		edges       []entities.BOMEdge
		expectCycle bool
	}{
		{"simple cycle", []entities.BOMEdge{edge(1, 2), edge(2, 1)}, true},
		{"longer cycle", []entities.BOMEdge{edge(1, 2), edge(2, 3), edge(3, 1)}, true},
		{"diamond is legal", []entities.BOMEdge{edge(1, 2), edge(1, 3), edge(2, 4), edge(3, 4)}, false},
		{"linear chain", []entities.BOMEdge{edge(1, 2), edge(2, 3)}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := validator.ValidateBOM(tc.edges)
			assert.Equal(t, tc.expectCycle, result.HasCycles)
			assert.Equal(t, !tc.expectCycle, result.Valid())
		})
	}
}

func TestBOMValidator_CyclePathIsClosed(t *testing.T) {
	result := NewBOMValidator().ValidateBOM([]entities.BOMEdge{edge(1, 2), edge(2, 3), edge(3, 1)})

	require.Len(t, result.CyclePaths, 1)
	assert.Equal(t, []entities.ItemID{1, 2, 3, 1}, result.CyclePaths[0])
}

func TestBOMValidator_InactiveEdgesIgnored(t *testing.T) {
	back := edge(2, 1)
	back.IsActive = false

	result := NewBOMValidator().ValidateBOM([]entities.BOMEdge{edge(1, 2), back})

	assert.False(t, result.HasCycles)
}

func TestBOMValidator_DetectDuplicateEdges(t *testing.T) {
	result := NewBOMValidator().ValidateBOM([]entities.BOMEdge{edge(1, 2), edge(1, 2), edge(1, 3)})

	assert.Len(t, result.DuplicateEdges, 2)
	assert.Contains(t, result.Errors, "found 2 duplicate BOM edges")
}

func TestBOMValidator_WouldCreateCycle(t *testing.T) {
	validator := NewBOMValidator()
	edges := []entities.BOMEdge{edge(1, 2), edge(2, 3)}

	assert.True(t, validator.WouldCreateCycle(edges, 3, 1), "3 -> 1 closes 1 -> 2 -> 3")
	assert.True(t, validator.WouldCreateCycle(edges, 2, 2))
	assert.False(t, validator.WouldCreateCycle(edges, 1, 3), "a second path is a diamond, not a loop")
	assert.False(t, validator.WouldCreateCycle(edges, 4, 1))
}
