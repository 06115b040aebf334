package catalog

import (
	"errors"
	"fmt"
)

// Where a product lookup failed.
const (
	WhereCatalog = "catalog"
	WhereCart    = "cart"
)

// ProductNotFoundError reports an unknown product id.
//
// It is returned by catalog lookups (Where == WhereCatalog) and by cart
// operations that require the product to already be in the cart
// (Where == WhereCart).
type ProductNotFoundError struct {
	ProductID string
	Where     string
}

// Error implements the error interface.
func (e *ProductNotFoundError) Error() string {
	where := e.Where
	if where == "" {
		where = WhereCatalog
	}
	return fmt.Sprintf("product %q not found in %s", e.ProductID, where)
}

// NewProductNotFound creates a ProductNotFoundError for a catalog miss.
func NewProductNotFound(id string) *ProductNotFoundError {
	return &ProductNotFoundError{ProductID: id, Where: WhereCatalog}
}

// IsProductNotFound returns true if err is (or wraps) a ProductNotFoundError.
func IsProductNotFound(err error) bool {
	var nf *ProductNotFoundError
	return errors.As(err, &nf)
}

// DuplicateProductError reports two records sharing an id.
type DuplicateProductError struct {
	ProductID string
}

func (e *DuplicateProductError) Error() string {
	return fmt.Sprintf("duplicate product id %q", e.ProductID)
}

// SchemaError reports a catalog file that does not satisfy the catalog schema.
type SchemaError struct {
	Path    string
	Details string
}

func (e *SchemaError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("catalog %s: schema violation: %s", e.Path, e.Details)
	}
	return fmt.Sprintf("catalog schema violation: %s", e.Details)
}
