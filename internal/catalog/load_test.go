package catalog

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Valid(t *testing.T) {
	m, err := LoadFile("testdata/catalog.yaml")
	require.NoError(t, err)
	require.Equal(t, 3, m.Len())

	omega, ok := m.Product("omega-3")
	require.True(t, ok)
	assert.Equal(t, "Omega 3 Fish Oil", omega.Name)
	assert.Equal(t, "24.90", omega.Price.StringFixed(2))
	assert.Equal(t, "29.90", omega.CompareAtPrice.StringFixed(2))
	assert.Equal(t, 40, omega.Stock)
	assert.Equal(t, []string{"omega-3/front.webp", "omega-3/back.webp"}, omega.Images)
	assert.Equal(t, []string{"heart", "brain"}, omega.Categories)

	d3, ok := m.Product("vitamin-d3-k2")
	require.True(t, ok)
	assert.True(t, d3.Price.Equal(decimal.NewFromInt(15)))
	assert.True(t, d3.CompareAtPrice.IsZero())
	assert.Equal(t, 0, d3.Stock)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile("testdata/does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read catalog file")
}

func TestLoadFile_SchemaViolation(t *testing.T) {
	_, err := LoadFile("testdata/invalid_price.yaml")
	require.Error(t, err)

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "testdata/invalid_price.yaml", schemaErr.Path)
}

func TestLoadFile_UnknownField(t *testing.T) {
	_, err := LoadFile("testdata/unknown_field.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse catalog YAML")
}

func TestLoadFile_DuplicateID(t *testing.T) {
	_, err := LoadFile("testdata/duplicate.yaml")
	require.Error(t, err)

	var dup *DuplicateProductError
	require.ErrorAs(t, err, &dup)
}

func TestLoad_SchemaRules(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{
			name: "minimal record",
			yaml: "products:\n  - {id: a, name: A, price: 1, stock: 0}\n",
		},
		{
			name: "two decimals",
			yaml: "products:\n  - {id: a, name: A, price: 1.25, stock: 1}\n",
		},
		{
			name:    "negative stock",
			yaml:    "products:\n  - {id: a, name: A, price: 1, stock: -1}\n",
			wantErr: true,
		},
		{
			name:    "empty name",
			yaml:    "products:\n  - {id: a, name: \"\", price: 1, stock: 1}\n",
			wantErr: true,
		},
		{
			name:    "empty id",
			yaml:    "products:\n  - {id: \"\", name: A, price: 1, stock: 1}\n",
			wantErr: true,
		},
		{
			name:    "negative price",
			yaml:    "products:\n  - {id: a, name: A, price: -1, stock: 1}\n",
			wantErr: true,
		},
		{
			name:    "bad compare_at_price",
			yaml:    "products:\n  - {id: a, name: A, price: 1, compare_at_price: abc, stock: 1}\n",
			wantErr: true,
		},
		{
			name: "empty catalog",
			yaml: "products: []\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_EmptyInput(t *testing.T) {
	m, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())
}
