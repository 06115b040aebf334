package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// fileCatalog is the on-disk YAML form of a catalog.
type fileCatalog struct {
	Products []fileProduct `yaml:"products"`
}

// fileProduct keeps prices as the literal YAML text so they can be validated
// by pattern and parsed without passing through float64.
type fileProduct struct {
	ID             string   `yaml:"id"`
	Name           string   `yaml:"name"`
	Price          string   `yaml:"price"`
	CompareAtPrice string   `yaml:"compare_at_price,omitempty"`
	Stock          int      `yaml:"stock"`
	Images         []string `yaml:"images,omitempty"`
	Categories     []string `yaml:"categories,omitempty"`
}

// LoadFile reads, validates and builds a catalog from a YAML file.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return parse(path, data)
}

// Load reads a catalog from r. Used for catalogs embedded in scenarios and tests.
func Load(r io.Reader) (*Memory, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return parse("", data)
}

func parse(path string, data []byte) (*Memory, error) {
	var fc fileCatalog
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	if err := validateSchema(path, fc); err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(fc.Products))
	for _, fp := range fc.Products {
		p, err := fp.toProduct()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return NewMemory(products...)
}

func (fp fileProduct) toProduct() (Product, error) {
	price, err := decimal.NewFromString(fp.Price)
	if err != nil {
		return Product{}, fmt.Errorf("product %q: invalid price %q: %w", fp.ID, fp.Price, err)
	}
	p := Product{
		ID:         fp.ID,
		Name:       fp.Name,
		Price:      price,
		Stock:      fp.Stock,
		Images:     fp.Images,
		Categories: fp.Categories,
	}
	if fp.CompareAtPrice != "" {
		p.CompareAtPrice, err = decimal.NewFromString(fp.CompareAtPrice)
		if err != nil {
			return Product{}, fmt.Errorf("product %q: invalid compare_at_price %q: %w", fp.ID, fp.CompareAtPrice, err)
		}
	}
	return p, nil
}
