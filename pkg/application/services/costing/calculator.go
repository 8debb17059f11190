package costing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/vsinha/bomcheck/pkg/application/services/bom"
	"github.com/vsinha/bomcheck/pkg/domain/entities"
	"github.com/vsinha/bomcheck/pkg/domain/repositories"
	"github.com/vsinha/bomcheck/pkg/infrastructure/cache"
)

// DefaultCacheTTL is used when no TTL is configured
const DefaultCacheTTL = 5 * time.Minute

// Request selects the item, price date and surcharges of a cost roll-up
type Request struct {
	ItemID          entities.ItemID
	EffectiveDate   string
	IncludeLabor    bool
	IncludeOverhead bool
}

func (r Request) cacheKey() string {
	return fmt.Sprintf("cost:%d:%s:%t:%t", r.ItemID, r.EffectiveDate, r.IncludeLabor, r.IncludeOverhead)
}

// Calculator rolls prices up a BOM tree
type Calculator struct {
	resolver *bom.Resolver
	items    repositories.ItemRepository
	prices   repositories.PriceRepository
	cache    cache.Cache
	ttl      time.Duration
	group    singleflight.Group
	now      func() time.Time
	logger   *zap.Logger
}

// NewCalculator creates a cost calculator. A nil cache disables caching.
func NewCalculator(
	resolver *bom.Resolver,
	items repositories.ItemRepository,
	prices repositories.PriceRepository,
	resultCache cache.Cache,
	ttl time.Duration,
	logger *zap.Logger,
) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Calculator{
		resolver: resolver,
		items:    items,
		prices:   prices,
		cache:    resultCache,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Calculate returns the cost tree of an item on the effective date. Missing
// component prices count as zero and mark the result as a lower bound.
func (c *Calculator) Calculate(ctx context.Context, req Request) (*entities.CostTree, error) {
	if req.ItemID <= 0 {
		return nil, &entities.ValidationError{Message: "item_id is required"}
	}
	if req.EffectiveDate == "" {
		req.EffectiveDate = c.now().Format(entities.DateLayout)
	}
	date, err := time.Parse(entities.DateLayout, req.EffectiveDate)
	if err != nil {
		return nil, &entities.ValidationError{Message: "effective_date must be formatted as YYYY-MM-DD"}
	}

	key := req.cacheKey()
	if tree, ok := c.lookup(ctx, key); ok {
		tree.CalculatedAt = c.now().UTC()
		return tree, nil
	}

	result, err, shared := c.group.Do(key, func() (interface{}, error) {
		if tree, ok := c.lookup(ctx, key); ok {
			return tree, nil
		}
		tree, err := c.calculate(ctx, req, date)
		if err != nil {
			return nil, err
		}
		c.store(ctx, key, tree)
		return tree, nil
	})
	if err != nil {
		return nil, err
	}

	tree, ok := result.(*entities.CostTree)
	if !ok {
		return nil, fmt.Errorf("unexpected type from cost group: got %T", result)
	}
	if shared {
		if tree, err = cloneTree(tree); err != nil {
			return nil, err
		}
	}
	// cached trees keep the roll-up; the timestamp is per response
	tree.CalculatedAt = c.now().UTC()
	return tree, nil
}

func (c *Calculator) calculate(ctx context.Context, req Request, date time.Time) (*entities.CostTree, error) {
	items, err := c.items.GetItemsByIDs(ctx, []entities.ItemID{req.ItemID})
	if err != nil {
		return nil, &entities.PersistenceError{Op: "load item", Err: err}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("item %d: %w", req.ItemID, entities.ErrNotFound)
	}
	root := items[0]

	shape, err := c.resolver.NewSession().ResolveTree(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	shape.Item = &root

	tree := &entities.CostTree{
		ItemID:        root.ItemID,
		Code:          root.Code,
		Name:          root.Name,
		EffectiveDate: req.EffectiveDate,
		MissingPrices: make([]entities.MissingPrice, 0),
	}

	prices := make(map[entities.ItemID]decimal.NullDecimal)
	tree.Root, err = c.price(ctx, shape, date, prices, tree)
	if err != nil {
		return nil, err
	}
	tree.ApplySurcharges(req.IncludeLabor, req.IncludeOverhead)

	c.logger.Debug("cost calculated",
		zap.Int64("item_id", int64(root.ItemID)),
		zap.String("effective_date", req.EffectiveDate),
		zap.String("material_cost", tree.MaterialCost.String()),
		zap.Int("missing_prices", len(tree.MissingPrices)),
	)
	return tree, nil
}

// price builds the cost node for a tree node. Leaves cost price x quantity,
// inner nodes the sum of their children.
func (c *Calculator) price(
	ctx context.Context,
	node *bom.TreeNode,
	date time.Time,
	prices map[entities.ItemID]decimal.NullDecimal,
	tree *entities.CostTree,
) (*entities.CostNode, error) {
	unitPrice, ok := prices[node.ItemID]
	if !ok {
		value, found, err := c.prices.GetCurrentPrice(ctx, node.ItemID, date)
		if err != nil {
			return nil, &entities.PersistenceError{Op: fmt.Sprintf("load price of item %d", node.ItemID), Err: err}
		}
		if found {
			unitPrice = decimal.NewNullDecimal(value)
		}
		prices[node.ItemID] = unitPrice
	}

	costNode := &entities.CostNode{
		ItemID:       node.ItemID,
		Level:        node.Level,
		Quantity:     node.Quantity,
		UnitPrice:    unitPrice,
		SubtotalCost: decimal.Zero,
	}
	if node.Item != nil {
		costNode.Code = node.Item.Code
		costNode.Name = node.Item.Name
		costNode.Unit = node.Item.Unit
	}

	if !unitPrice.Valid && node.Level > 0 {
		tree.MissingPrices = append(tree.MissingPrices, entities.MissingPrice{
			ItemID: node.ItemID,
			Code:   costNode.Code,
			Name:   costNode.Name,
			Level:  node.Level,
		})
	}

	if node.IsLeaf() {
		if unitPrice.Valid {
			costNode.SubtotalCost = unitPrice.Decimal.Mul(node.Quantity)
		}
		return costNode, nil
	}

	for _, child := range node.Children {
		childCost, err := c.price(ctx, child, date, prices, tree)
		if err != nil {
			return nil, err
		}
		costNode.Children = append(costNode.Children, childCost)
		costNode.SubtotalCost = costNode.SubtotalCost.Add(childCost.SubtotalCost)
	}
	return costNode, nil
}

func (c *Calculator) lookup(ctx context.Context, key string) (*entities.CostTree, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cost cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var tree entities.CostTree
	if err := json.Unmarshal(data, &tree); err != nil {
		c.logger.Warn("cost cache entry unreadable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return &tree, true
}

func (c *Calculator) store(ctx context.Context, key string, tree *entities.CostTree) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(tree)
	if err != nil {
		c.logger.Warn("cost tree not cacheable", zap.Error(err))
		return
	}
	if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("cost cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// cloneTree deep-copies a tree handed to several singleflight callers
func cloneTree(tree *entities.CostTree) (*entities.CostTree, error) {
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, err
	}
	var clone entities.CostTree
	if err := json.Unmarshal(data, &clone); err != nil {
		return nil, err
	}
	return &clone, nil
}
