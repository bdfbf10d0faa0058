package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientStock is returned when a commit or a FEFO proposal cannot
	// be satisfied from available stock. Wrap with InsufficientStockError to
	// carry the unsatisfiable lines.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInvariantViolation means a ledger write would have produced
	// committed < 0 or committed > on_hand. The write is refused; seeing this
	// error indicates a bug in a caller, not bad user input.
	ErrInvariantViolation = errors.New("stock ledger invariant violation")

	ErrLotNotFound  = errors.New("stock lot not found")
	ErrLotNotActive = errors.New("stock lot not active")
)

// InsufficientStockError carries the detail of a refused commitment: which
// product, how much was asked, and how much was actually available at decision
// time. errors.Is(err, ErrInsufficientStock) matches it.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }
