package bom

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/infrastructure/repositories/memory"
	testhelpers "github.com/vsinha/bomcheck/pkg/infrastructure/testing"
)

func dec(s string) string {
	return testhelpers.Dec(s).String()
}

func vectorStrings(v entities.RequirementVector) map[entities.ItemID]string {
	out := make(map[entities.ItemID]string, len(v))
	for id, qty := range v {
		out[id] = qty.String()
	}
	return out
}

func chainStore(t *testing.T, links ...[2]entities.ItemID) *memory.Store {
	t.Helper()
	store := memory.NewStore(8, 8)
	seen := map[entities.ItemID]bool{}
	for _, link := range links {
		for _, id := range link {
			if !seen[id] {
				seen[id] = true
				store.AddItem(entities.Item{ItemID: id, Code: fmt.Sprintf("I%d", id), IsActive: true})
			}
		}
		store.AddBOMEdge(entities.BOMEdge{
			ParentItemID:    link[0],
			ChildItemID:     link[1],
			QuantityPerUnit: testhelpers.Dec("1"),
			IsActive:        true,
		})
	}
	return store
}

func TestResolver_Resolve(t *testing.T) {
	resolver := NewResolver(testhelpers.BuildWorkshopStore(), 0, zap.NewNop())

	testCases := []struct {
		name   string
		root   entities.ItemID
		expect map[entities.ItemID]string
	}{
		{
			name: "multi-level with shared leaf",
			root: testhelpers.Bike,
			expect: map[entities.ItemID]string{
				testhelpers.Steel: dec("5"),
				testhelpers.Paint: dec("0.5"),
				testhelpers.Bolt:  dec("6"),
				testhelpers.Rim:   dec("2"),
				testhelpers.Spoke: dec("64"),
			},
		},
		{
			name:   "sub-assembly",
			root:   testhelpers.Wheel,
			expect: map[entities.ItemID]string{testhelpers.Rim: dec("1"), testhelpers.Spoke: dec("32")},
		},
		{
			name:   "item without BOM resolves to itself",
			root:   testhelpers.Loose,
			expect: map[entities.ItemID]string{testhelpers.Loose: dec("1")},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			vector, err := resolver.Resolve(context.Background(), tc.root)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.expect, vectorStrings(vector)); diff != "" {
				t.Errorf("requirement vector mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolver_LinearScaling(t *testing.T) {
	resolver := NewResolver(testhelpers.BuildWorkshopStore(), 0, nil)

	unit, err := resolver.Resolve(context.Background(), testhelpers.Bike)
	require.NoError(t, err)

	for _, q := range []string{"0", "1", "3", "2.5", "1000"} {
		t.Run(q, func(t *testing.T) {
			scaled := unit.Scale(testhelpers.Dec(q))
			for _, id := range unit.ItemIDs() {
				assert.True(t, scaled.Get(id).Equal(unit.Get(id).Mul(testhelpers.Dec(q))))
			}
		})
	}
}

func TestResolver_Diamond(t *testing.T) {
	// A -> B x2, A -> C x3, B -> D x1, C -> D x4
	store := memory.NewStore(4, 4)
	for _, id := range []entities.ItemID{1, 2, 3, 4} {
		store.AddItem(entities.Item{ItemID: id, Code: "D", IsActive: true})
	}
	for _, e := range []struct {
		parent, child entities.ItemID
		qty           string
	}{{1, 2, "2"}, {1, 3, "3"}, {2, 4, "1"}, {3, 4, "4"}} {
		store.AddBOMEdge(entities.BOMEdge{ParentItemID: e.parent, ChildItemID: e.child, QuantityPerUnit: testhelpers.Dec(e.qty), IsActive: true})
	}

	vector, err := NewResolver(store, 0, nil).Resolve(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, map[entities.ItemID]string{4: dec("14")}, vectorStrings(vector))
}

// layeredStore builds a root over the given number of layers, two items
// wide, where every item uses both items of the next layer
func layeredStore(layers int) *memory.Store {
	store := memory.NewStore(2*layers+2, 4*layers)
	store.AddItem(entities.Item{ItemID: 1, Code: "ROOT", IsActive: true})
	for k := 1; k <= layers; k++ {
		for _, id := range []entities.ItemID{entities.ItemID(2 * k), entities.ItemID(2*k + 1)} {
			store.AddItem(entities.Item{ItemID: id, Code: fmt.Sprintf("L%d-%d", k, id), IsActive: true})
		}
	}
	parents := []entities.ItemID{1}
	for k := 1; k <= layers; k++ {
		children := []entities.ItemID{entities.ItemID(2 * k), entities.ItemID(2*k + 1)}
		for _, parent := range parents {
			for _, child := range children {
				store.AddBOMEdge(entities.BOMEdge{ParentItemID: parent, ChildItemID: child, QuantityPerUnit: testhelpers.Dec("1"), IsActive: true})
			}
		}
		parents = children
	}
	return store
}

func TestResolver_SharedLayersStayLinear(t *testing.T) {
	session := NewResolver(layeredStore(20), 0, nil).NewSession()

	vector, err := session.Resolve(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, map[entities.ItemID]string{40: dec("524288"), 41: dec("524288")}, vectorStrings(vector))
	assert.Equal(t, 41, session.traverser.EdgeReads())
}

func TestSession_ResolveTree_NodeBudget(t *testing.T) {
	// 3 layers: 1 + 2 + 4 + 8 nodes
	store := layeredStore(3)

	tree, err := NewResolver(store, 0, nil).WithMaxTreeNodes(15).NewSession().ResolveTree(context.Background(), 1)
	require.NoError(t, err)
	nodes := 0
	tree.Walk(func(*TreeNode) { nodes++ })
	assert.Equal(t, 15, nodes)

	_, err = NewResolver(store, 0, nil).WithMaxTreeNodes(14).NewSession().ResolveTree(context.Background(), 1)
	assert.True(t, errors.Is(err, entities.ErrTreeTooLarge), "got %v", err)
}

func TestSession_Explode_NodeBudgetOnDeepSharedLayers(t *testing.T) {
	resolver := NewResolver(layeredStore(20), 0, nil).WithMaxTreeNodes(1000)

	_, err := resolver.NewSession().Explode(context.Background(), 1, testhelpers.Dec("1"))
	require.True(t, errors.Is(err, entities.ErrTreeTooLarge), "got %v", err)

	_, err = resolver.Resolve(context.Background(), 1)
	assert.NoError(t, err)
}

func TestResolver_CycleRejected(t *testing.T) {
	store := chainStore(t, [2]entities.ItemID{1, 2}, [2]entities.ItemID{2, 3}, [2]entities.ItemID{3, 1})

	_, err := NewResolver(store, 0, nil).Resolve(context.Background(), 1)

	var cycleErr *entities.CircularReferenceError
	require.True(t, errors.As(err, &cycleErr), "got %v", err)
	assert.Equal(t, entities.ItemID(1), cycleErr.ItemID)
	assert.Equal(t, []entities.ItemID{1, 2, 3, 1}, cycleErr.Path)
	assert.False(t, errors.Is(err, entities.ErrDepthExceeded))
}

func TestResolver_DepthBound(t *testing.T) {
	store := chainStore(t, [2]entities.ItemID{1, 2}, [2]entities.ItemID{2, 3}, [2]entities.ItemID{3, 4})

	_, err := NewResolver(store, 2, nil).Resolve(context.Background(), 1)
	assert.True(t, errors.Is(err, entities.ErrDepthExceeded))

	vector, err := NewResolver(store, 3, nil).Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, map[entities.ItemID]string{4: dec("1")}, vectorStrings(vector))
}

func TestResolver_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewResolver(testhelpers.BuildWorkshopStore(), 0, nil).Resolve(ctx, testhelpers.Bike)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSession_SharesEdgeReads(t *testing.T) {
	session := NewResolver(testhelpers.BuildWorkshopStore(), 0, nil).NewSession()
	ctx := context.Background()

	_, err := session.Resolve(ctx, testhelpers.Bike)
	require.NoError(t, err)
	// BIKE, FRAME, WHEEL and five leaves; BOLT is read once
	assert.Equal(t, 8, session.traverser.EdgeReads())

	_, err = session.Resolve(ctx, testhelpers.Frame)
	require.NoError(t, err)
	_, err = session.Resolve(ctx, testhelpers.Bike)
	require.NoError(t, err)
	assert.Equal(t, 8, session.traverser.EdgeReads())
}

func TestSession_ResolveReturnsIndependentCopies(t *testing.T) {
	session := NewResolver(testhelpers.BuildWorkshopStore(), 0, nil).NewSession()
	ctx := context.Background()

	first, err := session.Resolve(ctx, testhelpers.Wheel)
	require.NoError(t, err)
	first[testhelpers.Rim] = testhelpers.Dec("999")

	second, err := session.Resolve(ctx, testhelpers.Wheel)
	require.NoError(t, err)
	assert.Equal(t, dec("1"), second.Get(testhelpers.Rim).String())
}

func TestSession_ResolveTree(t *testing.T) {
	tree, err := NewResolver(testhelpers.BuildWorkshopStore(), 0, nil).NewSession().ResolveTree(context.Background(), testhelpers.Bike)
	require.NoError(t, err)

	require.Len(t, tree.Children, 3)
	assert.Nil(t, tree.Edge)

	boltNodes := 0
	tree.Walk(func(node *TreeNode) {
		if node.ItemID == testhelpers.Bolt {
			boltNodes++
		}
		if node.ItemID == testhelpers.Spoke {
			assert.Equal(t, 2, node.Level)
			assert.Equal(t, dec("64"), node.Quantity.String())
		}
	})
	assert.Equal(t, 2, boltNodes)
}

func TestSession_Explode(t *testing.T) {
	explosion, err := NewResolver(testhelpers.BuildWorkshopStore(), 0, nil).NewSession().
		Explode(context.Background(), testhelpers.Bike, testhelpers.Dec("2"))
	require.NoError(t, err)

	assert.Len(t, explosion.Lines, 8)
	assert.Equal(t, 2, explosion.MaxLevel)
	require.Len(t, explosion.Requirements, 5)
	assert.Equal(t, testhelpers.Steel, explosion.Requirements[0].ItemID)
	assert.Equal(t, "RM-STEEL", explosion.Requirements[0].Code)
	assert.Equal(t, dec("10"), explosion.Requirements[0].Quantity.String())
}

func TestResolver_WhereUsed(t *testing.T) {
	result, err := NewResolver(testhelpers.BuildWorkshopStore(), 0, nil).WhereUsed(context.Background(), testhelpers.Bolt)
	require.NoError(t, err)

	require.Len(t, result.WhereUsed, 3)
	assert.Equal(t, "Bicycle > Bolt", result.WhereUsed[0].UsagePath)
	assert.Equal(t, "Frame > Bolt", result.WhereUsed[1].UsagePath)
	assert.Equal(t, "Bicycle > Frame > Bolt", result.WhereUsed[2].UsagePath)
	assert.Equal(t, 2, result.WhereUsed[2].Level)
	assert.Equal(t, dec("2"), result.WhereUsed[2].QuantityPerUnit.String())
	assert.Equal(t, entities.WhereUsedSummary{DirectParents: 2, TotalAncestors: 2, MaxLevel: 2}, result.Summary)
}

func TestResolver_WhereUsed_UnknownItem(t *testing.T) {
	_, err := NewResolver(testhelpers.BuildWorkshopStore(), 0, nil).WhereUsed(context.Background(), 999)
	assert.True(t, errors.Is(err, entities.ErrNotFound))

	_, err = NewResolver(testhelpers.BuildWorkshopStore(), 0, nil).WhereUsed(context.Background(), testhelpers.Inactive)
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}
