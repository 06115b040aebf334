package cart

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// LineItem is one product/quantity pairing in the cart.
type LineItem struct {
	ProductID string `json:"product_id"`

	// Name is the product name captured at first add.
	Name string `json:"name"`

	Quantity int `json:"quantity"`

	// UnitPrice is the catalog price captured at first add. Later catalog
	// edits never change it.
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal returns Quantity × UnitPrice.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// State is a snapshot of the cart.
type State struct {
	Items   []LineItem `json:"items"`
	Version int64      `json:"version"`
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := State{Version: s.Version}
	if s.Items != nil {
		out.Items = make([]LineItem, len(s.Items))
		copy(out.Items, s.Items)
	}
	return out
}

// IsEmpty reports whether the cart has no line items.
func (s State) IsEmpty() bool {
	return len(s.Items) == 0
}

// Find returns the line item for productID.
func (s State) Find(productID string) (LineItem, bool) {
	for _, li := range s.Items {
		if li.ProductID == productID {
			return li, true
		}
	}
	return LineItem{}, false
}

// Validate checks the structural invariants of a state: unique product ids,
// non-empty ids, positive quantities and non-negative prices.
func (s State) Validate() error {
	if s.Version < 0 {
		return fmt.Errorf("negative version %d", s.Version)
	}
	seen := make(map[string]bool, len(s.Items))
	total := 0
	for i, li := range s.Items {
		if li.ProductID == "" {
			return fmt.Errorf("item %d: empty product id", i)
		}
		if seen[li.ProductID] {
			return fmt.Errorf("item %d: duplicate product id %q", i, li.ProductID)
		}
		seen[li.ProductID] = true
		if li.Quantity < 1 {
			return fmt.Errorf("item %d (%s): quantity %d < 1", i, li.ProductID, li.Quantity)
		}
		var ok bool
		if total, ok = addCount(total, li.Quantity); !ok {
			return fmt.Errorf("item %d (%s): total quantity overflows", i, li.ProductID)
		}
		if li.UnitPrice.IsNegative() {
			return fmt.Errorf("item %d (%s): negative unit price", i, li.ProductID)
		}
	}
	return nil
}

// ItemCountOf returns the sum of quantities in s, saturating at
// math.MaxInt.
func ItemCountOf(s State) int {
	n := 0
	for _, li := range s.Items {
		var ok bool
		if n, ok = addCount(n, li.Quantity); !ok {
			return math.MaxInt
		}
	}
	return n
}

// addCount returns a+b for non-negative counts and false on overflow.
func addCount(a, b int) (int, bool) {
	if b > math.MaxInt-a {
		return 0, false
	}
	return a + b, true
}

// SubtotalOf returns Σ quantity × unit price over the frozen snapshots in s.
func SubtotalOf(s State) decimal.Decimal {
	total := decimal.Zero
	for _, li := range s.Items {
		total = total.Add(li.LineTotal())
	}
	return total
}
