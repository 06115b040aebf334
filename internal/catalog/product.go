package catalog

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Product is a single catalog record.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal

	// CompareAtPrice is the pre-markdown price. Zero when the product is not
	// marked down.
	CompareAtPrice decimal.Decimal

	// Stock is informational unless the cart runs with a rejecting stock policy.
	Stock int

	Images     []string
	Categories []string
}

// Catalog is the read-only lookup boundary used by the cart and bundle quoting.
type Catalog interface {
	// Product returns the record for id, or false if the catalog has no such product.
	Product(id string) (Product, bool)
}

// NormalizeID returns the canonical (NFC) form of a product id.
func NormalizeID(id string) string {
	return normalize(id)
}

func normalize(s string) string {
	return norm.NFC.String(s)
}

// clone returns a copy of p that shares no slices with p.
func (p Product) clone() Product {
	out := p
	if p.Images != nil {
		out.Images = append([]string(nil), p.Images...)
	}
	if p.Categories != nil {
		out.Categories = append([]string(nil), p.Categories...)
	}
	return out
}
