// Package errcode assigns stable codes to the engine's error types.
//
// Codes are shared by the CLI envelope and scenario traces:
//
//	E001  generic failure
//	E002  invalid input (bad flag, unparsable argument)
//	E101  configuration error
//	E102  catalog load error
//	E201  invalid quantity
//	E202  product not found
//	E203  insufficient stock
//	E204  invalid discount rate
//	E301  persistence write failed
//	E401  scenario failed
package errcode

import (
	"errors"

	"github.com/roach88/cartengine/internal/bundle"
	"github.com/roach88/cartengine/internal/cart"
	"github.com/roach88/cartengine/internal/catalog"
	"github.com/roach88/cartengine/internal/persist"
)

const (
	Generic           = "E001"
	InvalidInput      = "E002"
	Config            = "E101"
	Catalog           = "E102"
	InvalidQuantity   = "E201"
	ProductNotFound   = "E202"
	InsufficientStock = "E203"
	InvalidRate       = "E204"
	PersistWrite      = "E301"
	ScenarioFailed    = "E401"
)

// Of returns the code for err, or Generic when err is not one of the
// engine's typed errors. Of(nil) is "".
func Of(err error) string {
	if err == nil {
		return ""
	}

	var (
		schemaErr *catalog.SchemaError
		dupErr    *catalog.DuplicateProductError
	)
	switch {
	case cart.IsInvalidQuantity(err):
		return InvalidQuantity
	case catalog.IsProductNotFound(err):
		return ProductNotFound
	case cart.IsInsufficientStock(err):
		return InsufficientStock
	case bundle.IsInvalidRate(err):
		return InvalidRate
	case persist.IsWriteError(err):
		return PersistWrite
	case errors.As(err, &schemaErr), errors.As(err, &dupErr):
		return Catalog
	default:
		return Generic
	}
}
