package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cartengine/internal/bundle"
	"github.com/roach88/cartengine/internal/catalog"
)

// ProductView is a rendered catalog record.
type ProductView struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Price           string   `json:"price"`
	CompareAtPrice  string   `json:"compare_at_price,omitempty"`
	DiscountPercent int      `json:"discount_percent,omitempty"`
	Stock           int      `json:"stock"`
	Categories      []string `json:"categories,omitempty"`
}

// CatalogView lists products in catalog order.
type CatalogView struct {
	Products []ProductView `json:"products"`
}

func newCatalogView(m *catalog.Memory) CatalogView {
	v := CatalogView{Products: make([]ProductView, 0, m.Len())}
	for _, p := range m.Products() {
		pv := ProductView{
			ID:         p.ID,
			Name:       p.Name,
			Price:      p.Price.StringFixed(2),
			Stock:      p.Stock,
			Categories: p.Categories,
		}
		if md := bundle.MarkdownOf(p); md.HasDiscount {
			pv.CompareAtPrice = md.OriginalPrice.StringFixed(2)
			pv.DiscountPercent = md.Percent
		}
		v.Products = append(v.Products, pv)
	}
	return v
}

// String renders the catalog for text output.
func (v CatalogView) String() string {
	var b strings.Builder
	for i, p := range v.Products {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%-24s %-28s %8s", p.ID, p.Name, p.Price)
		if p.DiscountPercent > 0 {
			fmt.Fprintf(&b, "  (was %s, -%d%%)", p.CompareAtPrice, p.DiscountPercent)
		}
		if p.Stock == 0 {
			b.WriteString("  out of stock")
		}
	}
	return b.String()
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "catalog",
		Short:         "List catalog products",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			s, err := openSession(ctx, rootOpts, cmd.ErrOrStderr())
			if err != nil {
				_ = f.Error(codeForExit(err), err.Error(), nil)
				return err
			}
			defer s.Close()

			return f.Success(newCatalogView(s.Catalog.Snapshot()))
		},
	}
}
