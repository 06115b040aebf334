package bundle

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/roach88/cartengine/internal/catalog"
)

// DefaultRate is the discount applied to a complete system.
var DefaultRate = decimal.RequireFromString("0.15")

// Quote is a priced bundle.
type Quote struct {
	// ProductIDs are the resolved ids, duplicates removed, in request order.
	ProductIDs []string `json:"product_ids"`

	ListTotal       decimal.Decimal `json:"list_total"`
	DiscountedTotal decimal.Decimal `json:"discounted_total"`
	Savings         decimal.Decimal `json:"savings"`
	Rate            decimal.Decimal `json:"rate"`
}

// InvalidRateError reports a discount rate outside [0, 1).
type InvalidRateError struct {
	Rate decimal.Decimal
}

// Error implements the error interface.
func (e *InvalidRateError) Error() string {
	return fmt.Sprintf("invalid discount rate %s: must be in [0, 1)", e.Rate.String())
}

// IsInvalidRate returns true if err is (or wraps) an InvalidRateError.
func IsInvalidRate(err error) bool {
	var re *InvalidRateError
	return errors.As(err, &re)
}

// Price computes a bundle quote.
//
// Every id must resolve in cat; the first one that does not fails the whole
// quote with *catalog.ProductNotFoundError. Repeated ids count once.
// DiscountedTotal is ListTotal × (1 − rate) rounded half-up to cents, and
// Savings is the exact difference between the two.
func Price(cat catalog.Catalog, productIDs []string, rate decimal.Decimal) (Quote, error) {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return Quote{}, &InvalidRateError{Rate: rate}
	}

	q := Quote{
		ProductIDs: make([]string, 0, len(productIDs)),
		ListTotal:  decimal.Zero,
		Rate:       rate,
	}
	seen := make(map[string]bool, len(productIDs))
	for _, raw := range productIDs {
		id := catalog.NormalizeID(raw)
		if seen[id] {
			continue
		}
		p, ok := cat.Product(id)
		if !ok {
			return Quote{}, catalog.NewProductNotFound(id)
		}
		seen[id] = true
		q.ProductIDs = append(q.ProductIDs, id)
		q.ListTotal = q.ListTotal.Add(p.Price)
	}

	q.DiscountedTotal = q.ListTotal.Mul(decimal.NewFromInt(1).Sub(rate)).Round(2)
	q.Savings = q.ListTotal.Sub(q.DiscountedTotal)
	return q, nil
}
