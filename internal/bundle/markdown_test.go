package bundle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/cartengine/internal/catalog"
)

func TestMarkdownOf(t *testing.T) {
	tests := []struct {
		name      string
		price     string
		compareAt string
		want      int
		discount  bool
	}{
		{"marked down", "24.90", "29.90", 17, true},
		{"exact quarter", "19.75", "79.00", 75, true},
		{"half rounds up", "39.80", "40.00", 1, true},
		{"no compare-at", "18.50", "0", 0, false},
		{"compare-at equal", "10.00", "10.00", 0, false},
		{"compare-at lower", "10.00", "8.00", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := catalog.Product{ID: "p", Price: dec(tt.price), CompareAtPrice: dec(tt.compareAt)}
			m := MarkdownOf(p)

			assert.Equal(t, tt.discount, m.HasDiscount)
			assert.Equal(t, tt.want, m.Percent)
			assert.True(t, m.FinalPrice.Equal(p.Price))
			if tt.discount {
				assert.True(t, m.OriginalPrice.Equal(p.CompareAtPrice))
			} else {
				assert.True(t, m.OriginalPrice.Equal(p.Price))
			}
		})
	}
}
