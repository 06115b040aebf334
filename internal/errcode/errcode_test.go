package errcode

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/cartengine/internal/bundle"
	"github.com/roach88/cartengine/internal/cart"
	"github.com/roach88/cartengine/internal/catalog"
	"github.com/roach88/cartengine/internal/persist"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"quantity", &cart.InvalidQuantityError{Quantity: 0, Min: 1}, InvalidQuantity},
		{"not found", catalog.NewProductNotFound("x"), ProductNotFound},
		{"wrapped not found", fmt.Errorf("add: %w", catalog.NewProductNotFound("x")), ProductNotFound},
		{"stock", &cart.InsufficientStockError{ProductID: "x"}, InsufficientStock},
		{"rate", &bundle.InvalidRateError{Rate: decimal.NewFromInt(2)}, InvalidRate},
		{"write", &persist.WriteError{Key: "k", Err: errors.New("boom")}, PersistWrite},
		{"schema", &catalog.SchemaError{Path: "c.yaml", Details: "bad"}, Catalog},
		{"duplicate", &catalog.DuplicateProductError{ProductID: "x"}, Catalog},
		{"other", errors.New("boom"), Generic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Of(tt.err))
		})
	}
}
