package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/cartengine/internal/bundle"
	"github.com/roach88/cartengine/internal/errcode"
)

// QuoteView is a rendered bundle quote.
type QuoteView struct {
	ProductIDs      []string `json:"product_ids"`
	Rate            string   `json:"rate"`
	ListTotal       string   `json:"list_total"`
	DiscountedTotal string   `json:"discounted_total"`
	Savings         string   `json:"savings"`
}

func newQuoteView(q bundle.Quote) QuoteView {
	return QuoteView{
		ProductIDs:      q.ProductIDs,
		Rate:            q.Rate.String(),
		ListTotal:       q.ListTotal.StringFixed(2),
		DiscountedTotal: q.DiscountedTotal.StringFixed(2),
		Savings:         q.Savings.StringFixed(2),
	}
}

// String renders the quote for text output.
func (v QuoteView) String() string {
	pct := decimal.RequireFromString(v.Rate).Mul(decimal.NewFromInt(100))
	return fmt.Sprintf("Bundle %s\n  list:     %s\n  discount: %s%%\n  total:    %s\n  savings:  %s",
		strings.Join(v.ProductIDs, " + "), v.ListTotal, pct.String(), v.DiscountedTotal, v.Savings)
}

// NewQuoteCommand creates the quote command.
func NewQuoteCommand(rootOpts *RootOptions) *cobra.Command {
	var rate string

	cmd := &cobra.Command{
		Use:   "quote <product-id>...",
		Short: "Price a product bundle",
		Long: `Price a bundle of catalog products with the bundle discount.

The rate defaults to bundle_rate from the config. Prices come from the
current catalog, not from the cart.

Examples:
  cartctl quote omega-3 magnesium-glycinate
  cartctl quote omega-3 magnesium-glycinate --rate 0.2`,
		Args:          cobra.MinimumNArgs(1),
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

			r := s.Config.Rate()
			if rate != "" {
				if r, err = decimal.NewFromString(rate); err != nil {
					msg := fmt.Sprintf("invalid --rate %q", rate)
					_ = f.Error(errcode.InvalidInput, msg, nil)
					return WrapExitError(ExitCommandError, msg, err)
				}
			}

			q, err := bundle.Price(s.Catalog, args, r)
			if err != nil {
				return f.Fail(err)
			}
			return f.Success(newQuoteView(q))
		},
	}

	cmd.Flags().StringVar(&rate, "rate", "", "discount rate in [0, 1), e.g. 0.15")
	return cmd
}
