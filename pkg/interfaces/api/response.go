package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/bomcheck/pkg/domain/entities"
)

func init() {
	// quantities and money go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

const msgInternal = "internal server error"

// Response is the success envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorResponse is the failure envelope
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Details []string    `json:"details,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func ok(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Message: message})
}

func fail(c *gin.Context, status int, message string, details []string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Error: message, Details: details})
}

// writeError maps a service error onto the failure envelope. Server faults
// are logged and answered with a generic message.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	var (
		validationErr *entities.ValidationError
		notFoundErr   *entities.ItemNotFoundError
		inactiveErr   *entities.InactiveItemError
		stockErr      *entities.InsufficientStockError
	)

	switch {
	case errors.Is(err, entities.ErrNotFound):
		fail(c, http.StatusNotFound, "item not found or not active", nil)
	case errors.As(err, &validationErr):
		fail(c, http.StatusBadRequest, validationErr.Message, validationErr.Details)
	case errors.As(err, &notFoundErr):
		fail(c, http.StatusBadRequest, "validation failed", []string{notFoundErr.Error()})
	case errors.As(err, &inactiveErr):
		fail(c, http.StatusBadRequest, "validation failed", []string{inactiveErr.Error()})
	case errors.As(err, &stockErr):
		fail(c, http.StatusBadRequest, stockErr.Error(), stockErr.Details())
	case errors.Is(err, entities.ErrTreeTooLarge):
		fail(c, http.StatusUnprocessableEntity, "BOM tree too large", []string{err.Error()})
	default:
		_ = c.Error(err)
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", c.GetString("request_id")),
			zap.Error(err),
		)
		fail(c, http.StatusInternalServerError, msgInternal, nil)
	}
}
