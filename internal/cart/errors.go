package cart

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by mutations on a store that has been closed.
var ErrClosed = errors.New("cart: store closed")

// InvalidQuantityError reports a quantity outside the accepted range.
//
// Add requires quantity >= 1; SetQuantity accepts 0 (meaning remove).
// The CLI also returns it for quantities that are not whole numbers.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
	Min       int

	// Max is non-zero when the quantity would push a line or the cart total
	// past the largest representable count.
	Max int

	// Raw holds the unparsed input when the quantity was not an integer.
	Raw string
}

// Error implements the error interface.
func (e *InvalidQuantityError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("invalid quantity %q: must be a whole number >= %d", e.Raw, e.Min)
	}
	if e.Max != 0 {
		return fmt.Sprintf("invalid quantity %d for product %q: cart would exceed %d items", e.Quantity, e.ProductID, e.Max)
	}
	return fmt.Sprintf("invalid quantity %d for product %q: must be >= %d", e.Quantity, e.ProductID, e.Min)
}

// InsufficientStockError reports a request beyond available stock.
// Only returned when the store runs with StockReject.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

// Error implements the error interface.
func (e *InsufficientStockError) Error() string {
	if e.Available == 0 {
		return fmt.Sprintf("product %q is out of stock", e.ProductID)
	}
	return fmt.Sprintf("product %q: requested %d, only %d available", e.ProductID, e.Requested, e.Available)
}

// IsInvalidQuantity returns true if err is (or wraps) an InvalidQuantityError.
func IsInvalidQuantity(err error) bool {
	var qe *InvalidQuantityError
	return errors.As(err, &qe)
}

// IsInsufficientStock returns true if err is (or wraps) an InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var se *InsufficientStockError
	return errors.As(err, &se)
}
