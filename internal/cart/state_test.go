package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func li(id string, qty int, price string) LineItem {
	return LineItem{ProductID: id, Name: id, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}

func TestState_Validate(t *testing.T) {
	tests := []struct {
		name    string
		state   State
		wantErr string
	}{
		{"empty", State{}, ""},
		{"valid", State{Version: 3, Items: []LineItem{li("A", 1, "1.00"), li("B", 2, "0")}}, ""},
		{"negative version", State{Version: -1}, "negative version"},
		{"empty id", State{Items: []LineItem{li("", 1, "1.00")}}, "empty product id"},
		{"duplicate", State{Items: []LineItem{li("A", 1, "1.00"), li("A", 1, "1.00")}}, "duplicate product id"},
		{"zero quantity", State{Items: []LineItem{li("A", 0, "1.00")}}, "quantity 0 < 1"},
		{"negative price", State{Items: []LineItem{li("A", 1, "-1.00")}}, "negative unit price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.state.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestState_DerivedTotals(t *testing.T) {
	s := State{Items: []LineItem{li("A", 3, "10.00"), li("B", 2, "0.15")}}

	assert.Equal(t, 5, ItemCountOf(s))
	assert.Equal(t, "30.30", SubtotalOf(s).StringFixed(2))
	assert.Equal(t, 0, ItemCountOf(State{}))
	assert.True(t, SubtotalOf(State{}).IsZero())
}

func TestState_CloneAndFind(t *testing.T) {
	s := State{Version: 7, Items: []LineItem{li("A", 1, "1.00")}}
	c := s.Clone()
	c.Items[0].Quantity = 5

	got, ok := s.Find("A")
	assert.True(t, ok)
	assert.Equal(t, 1, got.Quantity)
	assert.Equal(t, int64(7), c.Version)

	_, ok = s.Find("B")
	assert.False(t, ok)
}
