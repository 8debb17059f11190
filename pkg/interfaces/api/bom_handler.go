package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

func parseItemParam(c *gin.Context, name string) (entities.ItemID, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, name+" must be a positive integer", nil)
		return 0, false
	}
	return entities.ItemID(id), true
}

// Explode flattens the BOM of an item and totals its leaf materials for
// ?quantity= units (default 1)
func (h *Handler) Explode(c *gin.Context) {
	id, valid := parseItemParam(c, "item_id")
	if !valid {
		return
	}

	quantity := decimal.NewFromInt(1)
	if raw := c.Query("quantity"); raw != "" {
		parsed, err := decimal.NewFromString(raw)
		if err != nil || !parsed.IsPositive() {
			fail(c, http.StatusBadRequest, "quantity must be greater than 0", nil)
			return
		}
		quantity = parsed
	}

	ctx := c.Request.Context()
	items, err := h.deps.Items.GetItemsByIDs(ctx, []entities.ItemID{id})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if len(items) == 0 || !items[0].IsActive {
		writeError(c, h.logger, fmt.Errorf("item %d: %w", id, entities.ErrNotFound))
		return
	}

	explosion, err := h.deps.Resolver.NewSession().Explode(ctx, id, quantity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	ok(c, gin.H{
		"item":         items[0],
		"explosion":    explosion.Lines,
		"requirements": explosion.Requirements,
		"quantity":     explosion.Quantity,
		"max_level":    explosion.MaxLevel,
	}, "")
}

// WhereUsed lists every ancestor that consumes an item
func (h *Handler) WhereUsed(c *gin.Context) {
	id, valid := parseItemParam(c, "child_item_id")
	if !valid {
		return
	}

	result, err := h.deps.Resolver.WhereUsed(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	ok(c, result, "")
}
