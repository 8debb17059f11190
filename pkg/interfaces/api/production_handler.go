package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vsinha/bomcheck/pkg/application/services/production"
	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

const msgInvalidJSON = "invalid JSON body"

// batchRequest is the production batch body. Items stay raw so a malformed
// line is reported by index instead of failing the whole decode.
type batchRequest struct {
	TransactionDate string            `json:"transaction_date"`
	Items           []json.RawMessage `json:"items"`
	ReferenceNo     string            `json:"reference_no"`
	Notes           string            `json:"notes"`
	UseBOM          *bool             `json:"use_bom"`
	CreatedBy       *int64            `json:"created_by"`
}

// lineRequest accepts product_item_id as an alias of item_id
type lineRequest struct {
	ItemID        int64           `json:"item_id"`
	ProductItemID int64           `json:"product_item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

func (l lineRequest) itemID() entities.ItemID {
	if l.ProductItemID != 0 {
		return entities.ItemID(l.ProductItemID)
	}
	return entities.ItemID(l.ItemID)
}

func (l lineRequest) toLine() entities.ProductionLine {
	return entities.ProductionLine{ItemID: l.itemID(), Quantity: l.Quantity, UnitPrice: l.UnitPrice}
}

// decodeLines parses the raw items of a request. Details are numbered by
// request position. With checkFields set, item_id and quantity are
// validated here too; the batch processor does that itself.
func decodeLines(raw []json.RawMessage, checkFields bool) ([]entities.ProductionLine, []string) {
	lines := make([]entities.ProductionLine, 0, len(raw))
	var details []string
	for i, msg := range raw {
		var req lineRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			details = append(details, fmt.Sprintf("item %d: malformed line: %v", i+1, err))
			continue
		}
		line := req.toLine()
		if checkFields {
			if line.ItemID <= 0 {
				details = append(details, fmt.Sprintf("item %d: item_id is required", i+1))
			}
			if !line.Quantity.IsPositive() {
				details = append(details, fmt.Sprintf("item %d: quantity must be greater than 0", i+1))
			}
		}
		lines = append(lines, line)
	}
	return lines, details
}

func (r batchRequest) toDomain(lines []entities.ProductionLine) entities.ProductionBatchRequest {
	req := entities.ProductionBatchRequest{
		TransactionDate: r.TransactionDate,
		Lines:           lines,
		ReferenceNo:     r.ReferenceNo,
		Notes:           r.Notes,
		UseBOM:          true,
		CreatedBy:       1,
	}
	if r.UseBOM != nil {
		req.UseBOM = *r.UseBOM
	}
	if r.CreatedBy != nil {
		req.CreatedBy = *r.CreatedBy
	}
	return req
}

// ProductionBatch registers a multi-item production batch all-or-nothing
func (h *Handler) ProductionBatch(c *gin.Context) {
	var body batchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidJSON, []string{err.Error()})
		return
	}

	lines, details := decodeLines(body.Items, false)
	if len(details) > 0 {
		fail(c, http.StatusBadRequest, "validation failed", details)
		return
	}

	outcome := h.deps.Processor.Process(c.Request.Context(), body.toDomain(lines))
	switch o := outcome.(type) {
	case production.Committed:
		ok(c, o.Result, fmt.Sprintf("%d production transactions registered", len(o.Result.Transactions)))
	case production.ValidationFailed:
		resp := ErrorResponse{Success: false, Error: o.Error, Details: o.Details}
		if o.Feasibility != nil {
			resp.Data = gin.H{"bom_validations": o.Feasibility}
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, resp)
	case production.PersistenceFailed:
		if o.Cause != nil {
			_ = c.Error(o.Cause)
		}
		fail(c, http.StatusInternalServerError, o.Error, nil)
	}
}

type bomCheckRequest struct {
	ItemID        int64           `json:"item_id" form:"item_id"`
	ProductItemID int64           `json:"product_item_id" form:"product_item_id"`
	Quantity      decimal.Decimal `json:"quantity"`
}

// BOMCheck reports whether a quantity of one item can be produced. GET reads
// product_item_id and quantity (default 1) from the query string, POST from
// the body.
func (h *Handler) BOMCheck(c *gin.Context) {
	req := bomCheckRequest{Quantity: decimal.NewFromInt(1)}
	if c.Request.Method == http.MethodGet {
		id := c.Query("product_item_id")
		if id == "" {
			id = c.Query("item_id")
		}
		if id == "" {
			fail(c, http.StatusBadRequest, "product_item_id is required", nil)
			return
		}
		parsed, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			fail(c, http.StatusBadRequest, "product_item_id must be an integer", nil)
			return
		}
		req.ProductItemID = parsed
		if q := c.Query("quantity"); q != "" {
			quantity, err := decimal.NewFromString(q)
			if err != nil {
				fail(c, http.StatusBadRequest, "quantity must be a number", nil)
				return
			}
			req.Quantity = quantity
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidJSON, []string{err.Error()})
		return
	}

	line := lineRequest{ItemID: req.ItemID, ProductItemID: req.ProductItemID}
	if line.itemID() == 0 {
		fail(c, http.StatusBadRequest, "product_item_id is required", nil)
		return
	}

	report, err := h.deps.Analyzer.CheckSingle(c.Request.Context(), line.itemID(), req.Quantity)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if h.deps.Metrics != nil {
		h.deps.Metrics.FeasibilityChecked("single", report.CanProduce)
	}
	ok(c, report, "")
}

type bomCheckBatchRequest struct {
	Items []json.RawMessage `json:"items"`
}

// BOMCheckBatch runs the aggregated feasibility check over several lines
// without committing anything
func (h *Handler) BOMCheckBatch(c *gin.Context) {
	var body bomCheckBatchRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, http.StatusBadRequest, msgInvalidJSON, []string{err.Error()})
		return
	}
	if len(body.Items) == 0 {
		fail(c, http.StatusBadRequest, "validation failed", []string{"at least one item is required"})
		return
	}

	lines, details := decodeLines(body.Items, true)
	if len(details) > 0 {
		fail(c, http.StatusBadRequest, "validation failed", details)
		return
	}

	report, err := h.deps.Analyzer.CheckBatch(c.Request.Context(), lines)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if h.deps.Metrics != nil {
		h.deps.Metrics.FeasibilityChecked("batch", report.CanProduce)
	}
	ok(c, report, "")
}

// ListTransactions returns recent production transactions, newest first
func (h *Handler) ListTransactions(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			fail(c, http.StatusBadRequest, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	txs, err := h.deps.Transactions.ListTransactions(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if txs == nil {
		txs = []entities.ProductionTransaction{}
	}
	ok(c, txs, "")
}
