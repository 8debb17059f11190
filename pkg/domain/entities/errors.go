package entities

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrDepthExceeded is returned when a BOM walk goes deeper than the configured bound
	ErrDepthExceeded = errors.New("BOM depth limit exceeded")
	// ErrNotFound is returned when a looked-up item does not exist or is inactive
	ErrNotFound = errors.New("item not found")
	// ErrTreeTooLarge is returned when a per-path BOM tree would exceed the node budget
	ErrTreeTooLarge = errors.New("BOM tree too large")
)

// ValidationError reports malformed or missing request fields
type ValidationError struct {
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Details, "; "))
}

// ItemNotFoundError reports a batch line referencing an unknown item
type ItemNotFoundError struct {
	Line   int
	ItemID ItemID
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("item %d: item not found (item_id=%d)", e.Line, e.ItemID)
}

// InactiveItemError reports a batch line referencing a deactivated item
type InactiveItemError struct {
	Line   int
	ItemID ItemID
}

func (e *InactiveItemError) Error() string {
	return fmt.Sprintf("item %d: inactive item (item_id=%d)", e.Line, e.ItemID)
}

// MaterialShortage is one leaf material that cannot cover a batch
type MaterialShortage struct {
	ItemID    ItemID
	Code      string
	Name      string
	Required  decimal.Decimal
	Available decimal.Decimal
	Shortage  decimal.Decimal
}

func (s MaterialShortage) String() string {
	label := s.Code
	if s.Name != "" {
		label = fmt.Sprintf("%s (%s)", s.Code, s.Name)
	}
	return fmt.Sprintf("insufficient stock for %s: required %s, available %s, short %s",
		label, s.Required, s.Available, s.Shortage)
}

// InsufficientStockError rejects a whole batch because leaf materials are short
type InsufficientStockError struct {
	Shortages []MaterialShortage
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d material(s)", len(e.Shortages))
}

// Details returns one message per short material
func (e *InsufficientStockError) Details() []string {
	details := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		details = append(details, s.String())
	}
	return details
}

// CircularReferenceError reports a BOM path that revisits one of its ancestors
type CircularReferenceError struct {
	ItemID ItemID
	Path   []ItemID
	Err    error
}

func (e *CircularReferenceError) Error() string {
	parts := make([]string, 0, len(e.Path))
	for _, id := range e.Path {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	if e.Err != nil {
		return fmt.Sprintf("circular BOM reference at item %d (path %s): %v", e.ItemID, strings.Join(parts, " -> "), e.Err)
	}
	return fmt.Sprintf("circular BOM reference at item %d (path %s)", e.ItemID, strings.Join(parts, " -> "))
}

func (e *CircularReferenceError) Unwrap() error {
	return e.Err
}

// PersistenceError wraps a store read or write failure
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsClientError reports whether err should be answered as a rejected request
// rather than a server fault
func IsClientError(err error) bool {
	var (
		validationErr *ValidationError
		notFoundErr   *ItemNotFoundError
		inactiveErr   *InactiveItemError
		stockErr      *InsufficientStockError
	)
	return errors.As(err, &validationErr) ||
		errors.As(err, &notFoundErr) ||
		errors.As(err, &inactiveErr) ||
		errors.As(err, &stockErr)
}
