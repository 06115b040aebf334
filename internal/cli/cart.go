package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cartengine/internal/cart"
)

// CartView is the rendered cart returned by every cart command.
type CartView struct {
	Items     []LineView `json:"items"`
	ItemCount int        `json:"item_count"`
	Subtotal  string     `json:"subtotal"`
	Version   int64      `json:"version"`
}

// LineView is one rendered line item.
type LineView struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// newCartView renders s. Money is fixed at two decimals.
func newCartView(s cart.State) CartView {
	v := CartView{
		Items:     make([]LineView, 0, len(s.Items)),
		ItemCount: cart.ItemCountOf(s),
		Subtotal:  cart.SubtotalOf(s).StringFixed(2),
		Version:   s.Version,
	}
	for _, li := range s.Items {
		v.Items = append(v.Items, LineView{
			ProductID: li.ProductID,
			Name:      li.Name,
			Quantity:  li.Quantity,
			UnitPrice: li.UnitPrice.StringFixed(2),
			LineTotal: li.LineTotal().StringFixed(2),
		})
	}
	return v
}

// String renders the cart as a table for text output.
func (v CartView) String() string {
	if len(v.Items) == 0 {
		return fmt.Sprintf("Cart is empty (version %d)", v.Version)
	}

	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tQTY\tUNIT\tTOTAL")
	for _, li := range v.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", li.ProductID, li.Name, li.Quantity, li.UnitPrice, li.LineTotal)
	}
	tw.Flush()
	fmt.Fprintf(&b, "%d item(s), subtotal %s (version %d)", v.ItemCount, v.Subtotal, v.Version)
	return b.String()
}

// parseQuantity parses a quantity argument. Non-integers are reported as
// InvalidQuantityError so they share E201 with out-of-range values.
func parseQuantity(productID, raw string, min int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &cart.InvalidQuantityError{ProductID: productID, Min: min, Raw: raw}
	}
	return n, nil
}

// runCartCommand opens a session, applies op and prints the resulting cart.
func runCartCommand(opts *RootOptions, cmd *cobra.Command, op func(ctx context.Context, s *Session) error) error {
	f := opts.formatter(cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		_ = f.Error(codeForExit(err), err.Error(), nil)
		return err
	}
	defer s.Close()

	if op != nil {
		if err := op(ctx, s); err != nil {
			return f.Fail(err)
		}
	}
	return f.Success(newCartView(s.Store.State()))
}

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <product-id> [quantity]",
		Short: "Add a product to the cart",
		Long: `Add quantity units of a product (default 1).

A product already in the cart keeps the price it was first added at.

Examples:
  cartctl add omega-3
  cartctl add omega-3 2 --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartCommand(rootOpts, cmd, func(ctx context.Context, s *Session) error {
				qty := 1
				if len(args) == 2 {
					n, err := parseQuantity(args[0], args[1], 1)
					if err != nil {
						return err
					}
					qty = n
				}
				return s.Store.Add(ctx, args[0], qty)
			})
		},
	}
}

// NewSetCommand creates the set command.
func NewSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <product-id> <quantity>",
		Short: "Set the quantity of a product in the cart",
		Long: `Set the quantity of a product already in the cart.
A quantity of 0 removes the line.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartCommand(rootOpts, cmd, func(ctx context.Context, s *Session) error {
				qty, err := parseQuantity(args[0], args[1], 0)
				if err != nil {
					return err
				}
				return s.Store.SetQuantity(ctx, args[0], qty)
			})
		},
	}
}

// NewRemoveCommand creates the remove command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <product-id>",
		Aliases:       []string{"rm"},
		Short:         "Remove a product from the cart",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartCommand(rootOpts, cmd, func(ctx context.Context, s *Session) error {
				return s.Store.Remove(ctx, args[0])
			})
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	var purge bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Long: `Empty the cart. The empty cart is persisted with a new version.

With --purge the stored snapshot is deleted afterwards, so the next
session starts from version 0.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartCommand(rootOpts, cmd, func(ctx context.Context, s *Session) error {
				if err := s.Store.Clear(ctx); err != nil {
					return err
				}
				if purge {
					return s.Adapter.Reset(ctx)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&purge, "purge", false, "delete the stored snapshot")
	return cmd
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Show the cart",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCartCommand(rootOpts, cmd, nil)
		},
	}
}
