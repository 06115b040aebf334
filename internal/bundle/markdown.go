package bundle

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/cartengine/internal/catalog"
)

// Markdown describes a single product's list-price discount.
type Markdown struct {
	OriginalPrice decimal.Decimal `json:"original_price"`
	FinalPrice    decimal.Decimal `json:"final_price"`

	// Percent is the discount as a whole percentage, rounded half-up.
	Percent int `json:"percent"`

	HasDiscount bool `json:"has_discount"`
}

// MarkdownOf reports how far p's price sits below its compare-at price.
// Products without a higher compare-at price have no discount.
func MarkdownOf(p catalog.Product) Markdown {
	if !p.CompareAtPrice.GreaterThan(p.Price) {
		return Markdown{OriginalPrice: p.Price, FinalPrice: p.Price}
	}

	pct := p.CompareAtPrice.Sub(p.Price).
		Div(p.CompareAtPrice).
		Mul(decimal.NewFromInt(100)).
		Round(0)

	return Markdown{
		OriginalPrice: p.CompareAtPrice,
		FinalPrice:    p.Price,
		Percent:       int(pct.IntPart()),
		HasDiscount:   true,
	}
}
