package catalog

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// validateSchema checks a decoded catalog file against #Catalog in schema.cue.
func validateSchema(path string, fc fileCatalog) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile catalog schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Catalog"))
	if !def.Exists() {
		return fmt.Errorf("catalog schema: #Catalog not defined")
	}

	data := ctx.Encode(fc.toCUE())
	if err := data.Err(); err != nil {
		return fmt.Errorf("encode catalog for validation: %w", err)
	}

	if err := def.Unify(data).Validate(cue.Concrete(true)); err != nil {
		return &SchemaError{Path: path, Details: cueerrors.Details(err, nil)}
	}
	return nil
}

// toCUE converts the file form into plain maps so optional fields that were
// absent in YAML stay absent in CUE (rather than becoming "" or null).
func (fc fileCatalog) toCUE() map[string]any {
	products := make([]any, 0, len(fc.Products))
	for _, p := range fc.Products {
		m := map[string]any{
			"id":    p.ID,
			"name":  p.Name,
			"price": p.Price,
			"stock": p.Stock,
		}
		if p.CompareAtPrice != "" {
			m["compare_at_price"] = p.CompareAtPrice
		}
		if len(p.Images) > 0 {
			m["images"] = toAnySlice(p.Images)
		}
		if len(p.Categories) > 0 {
			m["categories"] = toAnySlice(p.Categories)
		}
		products = append(products, m)
	}
	return map[string]any{"products": products}
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}
