package harness

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/cartengine/internal/cart"
	"github.com/roach88/cartengine/internal/notify"
	"github.com/roach88/cartengine/internal/persist"
)

// AssertionContext provides the live components assertions inspect.
type AssertionContext struct {
	Ctx     context.Context
	Store   *cart.Store
	Adapter *persist.Adapter
	Toasts  *notify.Dispatcher
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			if event.Type == EventInvocation {
				fmt.Fprintf(&buf, "  [%d] %s %v\n", event.Seq, event.Op, event.Args)
			}
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertTraceContains:
		return assertTraceContains(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertFinalState:
		return assertFinalState(actx.Store.State(), a.State)
	case AssertToast:
		if msg := matchToast(actx.Toasts, a.Toast); msg != "" {
			return &AssertionError{Type: AssertToast, Expected: "toast match", Actual: msg}
		}
		return nil
	case AssertPersisted:
		return assertPersisted(actx)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertTraceContains checks that an invocation of the op with matching
// args (subset match) is in the trace.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, event := range trace {
		if event.Type == EventInvocation && event.Op == a.Op && matchArgs(event.Args, a.Args) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("op %s with args %v", a.Op, a.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that ops appear in the specified order.
// Intervening ops are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(a.Ops) {
			break
		}
		if event.Type == EventInvocation && event.Op == a.Ops[next] {
			next++
		}
	}
	if next == len(a.Ops) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("ops in order %v", a.Ops),
		Actual:   fmt.Sprintf("matched %v, missing %q after it", a.Ops[:next], a.Ops[next]),
		Trace:    trace,
	}
}

// assertTraceCount checks that the op was invoked exactly Count times.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	n := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.Op == a.Op {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s invoked %d times", a.Op, a.Count),
		Actual:   fmt.Sprintf("%d times", n),
		Trace:    trace,
	}
}

// assertFinalState checks the final cart against the expectation.
func assertFinalState(s cart.State, exp *StateExpect) error {
	var problems []string

	if exp.Empty && !s.IsEmpty() {
		problems = append(problems, fmt.Sprintf("expected empty cart, got %d items", len(s.Items)))
	}
	if exp.ItemCount != nil && cart.ItemCountOf(s) != *exp.ItemCount {
		problems = append(problems, fmt.Sprintf("item_count %d, want %d", cart.ItemCountOf(s), *exp.ItemCount))
	}
	if exp.Subtotal != "" {
		if got := cart.SubtotalOf(s).StringFixed(2); got != exp.Subtotal {
			problems = append(problems, fmt.Sprintf("subtotal %s, want %s", got, exp.Subtotal))
		}
	}
	if exp.Version != nil && s.Version != *exp.Version {
		problems = append(problems, fmt.Sprintf("version %d, want %d", s.Version, *exp.Version))
	}
	if exp.Items != nil {
		if len(exp.Items) != len(s.Items) {
			problems = append(problems, fmt.Sprintf("%d items, want %d", len(s.Items), len(exp.Items)))
		} else {
			for i, want := range exp.Items {
				got := s.Items[i]
				if got.ProductID != want.Product || got.Quantity != want.Quantity {
					problems = append(problems, fmt.Sprintf("items[%d] = %s×%d, want %s×%d",
						i, got.ProductID, got.Quantity, want.Product, want.Quantity))
				}
				if want.UnitPrice != "" && got.UnitPrice.StringFixed(2) != want.UnitPrice {
					problems = append(problems, fmt.Sprintf("items[%d] unit_price %s, want %s",
						i, got.UnitPrice.StringFixed(2), want.UnitPrice))
				}
			}
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: "final state match",
		Actual:   strings.Join(problems, "; "),
	}
}

// assertPersisted checks that the stored snapshot loads back to exactly the
// store's final state.
func assertPersisted(actx *AssertionContext) error {
	want := actx.Store.State()
	got := actx.Adapter.Load(actx.Ctx)
	if diff := cmp.Diff(want, got); diff != "" {
		return &AssertionError{
			Type:     AssertPersisted,
			Expected: "persisted snapshot equals final state",
			Actual:   "(-state +persisted)\n" + diff,
		}
	}
	return nil
}

// matchToast compares the dispatcher state with exp and describes the first
// mismatch, or returns "".
func matchToast(d *notify.Dispatcher, exp *ToastExpect) string {
	t, visible := d.Current()
	if visible != exp.Visible {
		return fmt.Sprintf("toast visible=%t, want %t", visible, exp.Visible)
	}
	if !visible {
		return ""
	}
	if exp.Product != "" && t.Event.ProductName != exp.Product {
		return fmt.Sprintf("toast product %q, want %q", t.Event.ProductName, exp.Product)
	}
	if exp.TotalItems != nil && t.Event.TotalItems != *exp.TotalItems {
		return fmt.Sprintf("toast total_items %d, want %d", t.Event.TotalItems, *exp.TotalItems)
	}
	if exp.TotalPrice != "" && t.Event.TotalPrice.StringFixed(2) != exp.TotalPrice {
		return fmt.Sprintf("toast total_price %s, want %s", t.Event.TotalPrice.StringFixed(2), exp.TotalPrice)
	}
	return ""
}

// matchQuote compares a quote completion result with exp.
func matchQuote(res map[string]any, exp *QuoteExpect) string {
	checks := []struct{ key, want string }{
		{"list_total", exp.ListTotal},
		{"discounted_total", exp.DiscountedTotal},
		{"savings", exp.Savings},
	}
	for _, c := range checks {
		if c.want == "" {
			continue
		}
		if got, _ := res[c.key].(string); got != c.want {
			return fmt.Sprintf("quote %s %q, want %q", c.key, got, c.want)
		}
	}
	return ""
}

// matchArgs reports whether actual contains every key of expected with an
// equal value. Numbers are compared by value regardless of their Go type.
func matchArgs(actual, expected map[string]any) bool {
	for k, want := range expected {
		got, ok := actual[k]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if na, ok := toInt64(a); ok {
		nb, ok := toInt64(b)
		return ok && na == nb
	}
	if sa, ok := a.([]string); ok {
		if sb, ok := b.([]any); ok {
			if len(sa) != len(sb) {
				return false
			}
			for i := range sa {
				if s, _ := sb[i].(string); s != sa[i] {
					return false
				}
			}
			return true
		}
	}
	return reflect.DeepEqual(a, b)
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	default:
		return 0, false
	}
}
