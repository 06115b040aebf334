package bundle

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartengine/internal/catalog"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testCatalog() *catalog.Memory {
	return catalog.MustMemory(
		catalog.Product{ID: "A", Name: "Omega-3", Price: dec("10.00")},
		catalog.Product{ID: "B", Name: "Magnesium", Price: dec("20.00")},
		catalog.Product{ID: "C", Name: "Zinc", Price: dec("0.05")},
		catalog.Product{ID: "D", Name: "Iron", Price: dec("0.10")},
	)
}

func assertQuote(t *testing.T, q Quote, list, discounted, savings string) {
	t.Helper()
	assert.Equal(t, list, q.ListTotal.StringFixed(2), "list total")
	assert.Equal(t, discounted, q.DiscountedTotal.StringFixed(2), "discounted total")
	assert.Equal(t, savings, q.Savings.StringFixed(2), "savings")
}

func TestPrice_SystemScenario(t *testing.T) {
	q, err := Price(testCatalog(), []string{"A", "B"}, dec("0.15"))
	require.NoError(t, err)

	assertQuote(t, q, "30.00", "25.50", "4.50")
	assert.Equal(t, []string{"A", "B"}, q.ProductIDs)
	assert.True(t, q.Rate.Equal(DefaultRate))
}

func TestPrice_Rounding(t *testing.T) {
	tests := []struct {
		name       string
		ids        []string
		rate       string
		discounted string
		savings    string
	}{
		// 0.15 × 0.5 = 0.075 → half-up to 0.08
		{"half rounds up", []string{"D", "C"}, "0.5", "0.08", "0.07"},
		// 0.05 × 0.9 = 0.045 → 0.05
		{"half at cent", []string{"C"}, "0.1", "0.05", "0.00"},
		// 30 × 0.667 = 20.01
		{"exact", []string{"A", "B"}, "0.333", "20.01", "9.99"},
		{"zero rate", []string{"A"}, "0", "10.00", "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Price(testCatalog(), tt.ids, dec(tt.rate))
			require.NoError(t, err)
			assert.Equal(t, tt.discounted, q.DiscountedTotal.StringFixed(2))
			assert.Equal(t, tt.savings, q.Savings.StringFixed(2))
			assert.True(t, q.ListTotal.Equal(q.DiscountedTotal.Add(q.Savings)))
		})
	}
}

func TestPrice_InvalidRate(t *testing.T) {
	for _, r := range []string{"-0.01", "1", "1.5"} {
		_, err := Price(testCatalog(), []string{"A"}, dec(r))
		require.Error(t, err, r)
		assert.True(t, IsInvalidRate(err))
	}
	_, err := Price(testCatalog(), []string{"A"}, dec("0.999"))
	assert.NoError(t, err)
}

func TestPrice_FailsFastOnUnknownProduct(t *testing.T) {
	_, err := Price(testCatalog(), []string{"A", "X", "Y"}, DefaultRate)
	require.Error(t, err)

	var nf *catalog.ProductNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "X", nf.ProductID)
}

func TestPrice_DuplicatesCountOnce(t *testing.T) {
	q, err := Price(testCatalog(), []string{"B", "A", "B"}, DefaultRate)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, q.ProductIDs)
	assertQuote(t, q, "30.00", "25.50", "4.50")
}

func TestPrice_Empty(t *testing.T) {
	q, err := Price(testCatalog(), nil, DefaultRate)
	require.NoError(t, err)
	assertQuote(t, q, "0.00", "0.00", "0.00")
	assert.Empty(t, q.ProductIDs)
}

func TestPrice_Idempotent(t *testing.T) {
	cat := testCatalog()
	q1, err1 := Price(cat, []string{"A", "B"}, DefaultRate)
	q2, err2 := Price(cat, []string{"A", "B"}, DefaultRate)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, q1.DiscountedTotal.String(), q2.DiscountedTotal.String())
}

func TestInvalidRateError_Message(t *testing.T) {
	assert.Equal(t, "invalid discount rate 1.2: must be in [0, 1)", (&InvalidRateError{Rate: dec("1.2")}).Error())
}
