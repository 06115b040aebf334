package notify

import (
	"github.com/shopspring/decimal"

	"github.com/roach88/cartengine/internal/catalog"
)

func testCatalog() *catalog.Memory {
	return catalog.MustMemory(catalog.Product{
		ID:    "A",
		Name:  "Omega-3",
		Price: decimal.RequireFromString("10.00"),
		Stock: 10,
	})
}
