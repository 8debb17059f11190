package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/application/services/costing"
	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

type costRequest struct {
	ItemID          int64  `json:"item_id"`
	EffectiveDate   string `json:"effective_date"`
	IncludeLabor    bool   `json:"include_labor"`
	IncludeOverhead bool   `json:"include_overhead"`
}

// CalculateFromBOM rolls component prices up the BOM of an item
func (h *Handler) CalculateFromBOM(c *gin.Context) {
	var body costRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidJSON, []string{err.Error()})
		return
	}

	tree, err := h.deps.Calculator.Calculate(c.Request.Context(), costing.Request{
		ItemID:          entities.ItemID(body.ItemID),
		EffectiveDate:   body.EffectiveDate,
		IncludeLabor:    body.IncludeLabor,
		IncludeOverhead: body.IncludeOverhead,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	message := ""
	if tree.IsLowerBound {
		message = fmt.Sprintf("%d component(s) have no price; the calculated price is a lower bound", len(tree.MissingPrices))
	}
	ok(c, tree, message)
}

// ExportCost streams the cost roll-up of an item as an XLSX workbook
func (h *Handler) ExportCost(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("item_id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, "item_id must be a positive integer", nil)
		return
	}

	tree, err := h.deps.Calculator.Calculate(c.Request.Context(), costing.Request{
		ItemID:          entities.ItemID(id),
		EffectiveDate:   c.Query("effective_date"),
		IncludeLabor:    c.Query("include_labor") == "true",
		IncludeOverhead: c.Query("include_overhead") == "true",
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	f, filename, err := costing.ExportXLSX(tree)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, filename, url.PathEscape(filename)))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.logger.Error("write cost workbook", zap.Int64("item_id", id), zap.Error(err))
	}
}
