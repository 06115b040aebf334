package harness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/cartengine/internal/bundle"
	"github.com/roach88/cartengine/internal/cart"
	"github.com/roach88/cartengine/internal/catalog"
	"github.com/roach88/cartengine/internal/errcode"
	"github.com/roach88/cartengine/internal/notify"
	"github.com/roach88/cartengine/internal/persist"
	"github.com/roach88/cartengine/internal/testutil"
)

// errInjectedWrite is what the backend returns after fail_writes.
var errInjectedWrite = errors.New("injected write failure")

// Harness runs one scenario against a real store, adapter and dispatcher
// wired to deterministic fakes.
type Harness struct {
	mu      sync.Mutex
	catalog *catalog.Memory
	store   *cart.Store
	backend *persist.Memory
	adapter *persist.Adapter
	toasts  *notify.Dispatcher
	clock   *testutil.FakeClock
	ids     *testutil.SequenceGenerator
	policy  cart.StockPolicy
	seq     int64
	result  *Result
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory backend. Event ids and
// timestamps come from a sequence generator and a fake clock, so the same
// scenario always produces the same trace.
//
// Execution flow:
// 1. Build the catalog (inline or from catalog_file)
// 2. Wire store, persistence adapter and toast dispatcher
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	cat, err := buildCatalog(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog: %w", err)
	}
	policy, err := cart.ParseStockPolicy(scenario.StockPolicy)
	if err != nil {
		return nil, err
	}

	clock := testutil.NewFakeClock(time.Time{})
	dopts := []notify.Option{notify.WithAfterFunc(clock.AfterFunc)}
	if scenario.ToastDuration != "" {
		d, err := time.ParseDuration(scenario.ToastDuration)
		if err != nil {
			return nil, fmt.Errorf("toast_duration: %w", err)
		}
		dopts = append(dopts, notify.WithDuration(d))
	}

	backend := persist.NewMemory()
	h := &Harness{
		catalog: cat,
		backend: backend,
		adapter: persist.NewAdapter(backend),
		toasts:  notify.New(dopts...),
		clock:   clock,
		ids:     testutil.NewSequenceGenerator("ev"),
		policy:  policy,
		result:  NewResult(),
	}
	defer h.toasts.Close()

	h.toasts.Subscribe(h.recordToast)
	h.store = h.newStore(cart.State{})
	defer func() { h.store.Close() }()

	ctx := context.Background()
	for i, step := range scenario.Flow {
		h.executeStep(ctx, i, step)
	}

	h.result.State = stateSummary(h.store.State())

	actx := &AssertionContext{
		Ctx:     ctx,
		Store:   h.store,
		Adapter: h.adapter,
		Toasts:  h.toasts,
	}
	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions, actx) {
		h.result.AddError(msg)
	}

	return h.result, nil
}

// buildCatalog returns the scenario's catalog.
func buildCatalog(s *Scenario) (*catalog.Memory, error) {
	if s.CatalogFile != "" {
		return catalog.LoadFile(s.CatalogFile)
	}

	products := make([]catalog.Product, 0, len(s.Catalog))
	for i, p := range s.Catalog {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return nil, fmt.Errorf("catalog[%d] price %q: %w", i, p.Price, err)
		}
		compareAt := decimal.Zero
		if p.CompareAtPrice != "" {
			if compareAt, err = decimal.NewFromString(p.CompareAtPrice); err != nil {
				return nil, fmt.Errorf("catalog[%d] compare_at_price %q: %w", i, p.CompareAtPrice, err)
			}
		}
		name := p.Name
		if name == "" {
			name = p.ID
		}
		products = append(products, catalog.Product{
			ID:             p.ID,
			Name:           name,
			Price:          price,
			CompareAtPrice: compareAt,
			Stock:          p.Stock,
		})
	}
	return catalog.NewMemory(products...)
}

// newStore builds a store over the harness's current catalog.
// The catalog is read through h so set_price steps reach the live store.
func (h *Harness) newStore(initial cart.State) *cart.Store {
	return cart.New(catalogFunc(h.product),
		cart.WithState(initial),
		cart.WithPersister(h.adapter),
		cart.WithNotifier(h.toasts),
		cart.WithStockPolicy(h.policy),
		cart.WithNow(h.clock.Now),
		cart.WithIDGenerator(h.ids),
	)
}

// catalogFunc adapts a lookup function to catalog.Catalog.
type catalogFunc func(id string) (catalog.Product, bool)

func (f catalogFunc) Product(id string) (catalog.Product, bool) { return f(id) }

func (h *Harness) product(id string) (catalog.Product, bool) {
	h.mu.Lock()
	cat := h.catalog
	h.mu.Unlock()
	return cat.Product(id)
}

func (h *Harness) nextSeq() int64 {
	h.seq++
	return h.seq
}

// recordToast appends a toast transition to the trace.
func (h *Harness) recordToast(t notify.Toast) {
	res := map[string]any{"visible": t.Visible}
	if t.Visible {
		res["id"] = t.Event.ID
		res["product"] = t.Event.ProductName
		res["total_items"] = t.Event.TotalItems
		res["total_price"] = t.Event.TotalPrice.StringFixed(2)
	}
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Seq:    h.nextSeq(),
		Type:   EventToast,
		Result: res,
	})
}

// executeStep runs one flow step, records its invocation and completion,
// and checks its expect clause.
func (h *Harness) executeStep(ctx context.Context, i int, st Step) {
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Seq:  h.nextSeq(),
		Type: EventInvocation,
		Op:   st.Op,
		Args: stepArgs(st),
	})

	res, err := h.apply(ctx, st)

	outcome := "ok"
	if err != nil {
		outcome = errcode.Of(err)
	}
	h.result.Trace = append(h.result.Trace, TraceEvent{
		Seq:     h.nextSeq(),
		Type:    EventCompletion,
		Op:      st.Op,
		Outcome: outcome,
		Result:  res,
	})

	h.checkExpect(i, st, err)
}

// apply performs the step's operation.
func (h *Harness) apply(ctx context.Context, st Step) (map[string]any, error) {
	switch st.Op {
	case OpAdd:
		if err := h.store.Add(ctx, st.Product, *st.Quantity); err != nil {
			return nil, err
		}
		return h.cartSummary(), nil

	case OpSetQuantity:
		if err := h.store.SetQuantity(ctx, st.Product, *st.Quantity); err != nil {
			return nil, err
		}
		return h.cartSummary(), nil

	case OpRemove:
		if err := h.store.Remove(ctx, st.Product); err != nil {
			return nil, err
		}
		return h.cartSummary(), nil

	case OpClear:
		if err := h.store.Clear(ctx); err != nil {
			return nil, err
		}
		return h.cartSummary(), nil

	case OpSetPrice, OpSetStock:
		return h.editProduct(st)

	case OpQuote:
		rate := bundle.DefaultRate
		if st.Rate != "" {
			r, err := decimal.NewFromString(st.Rate)
			if err != nil {
				return nil, fmt.Errorf("rate %q: %w", st.Rate, err)
			}
			rate = r
		}
		h.mu.Lock()
		cat := h.catalog
		h.mu.Unlock()
		q, err := bundle.Price(cat, st.Products, rate)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"list_total":       q.ListTotal.StringFixed(2),
			"discounted_total": q.DiscountedTotal.StringFixed(2),
			"savings":          q.Savings.StringFixed(2),
		}, nil

	case OpAdvance:
		d, err := time.ParseDuration(st.Duration)
		if err != nil {
			return nil, err
		}
		h.clock.Advance(d)
		return map[string]any{"toast": h.toasts.State().String()}, nil

	case OpDismiss:
		h.toasts.Dismiss()
		return map[string]any{"toast": h.toasts.State().String()}, nil

	case OpRestart:
		h.store.Close()
		h.store = h.newStore(h.adapter.Load(ctx))
		return h.cartSummary(), nil

	case OpFailWrites:
		h.backend.FailWrites(errInjectedWrite)
		return nil, nil

	case OpHealWrites:
		h.backend.FailWrites(nil)
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown op %q", st.Op)
	}
}

// editProduct replaces one catalog record, modelling a catalog edit made
// while the cart is open.
func (h *Harness) editProduct(st Step) (map[string]any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, ok := h.catalog.Product(st.Product)
	if !ok {
		return nil, catalog.NewProductNotFound(st.Product)
	}

	if st.Op == OpSetPrice {
		price, err := decimal.NewFromString(st.Price)
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", st.Price, err)
		}
		p.Price = price
	} else {
		p.Stock = *st.Stock
	}
	h.catalog = h.catalog.With(p)

	return map[string]any{
		"price": p.Price.StringFixed(2),
		"stock": p.Stock,
	}, nil
}

// cartSummary is the completion result of a cart operation.
func (h *Harness) cartSummary() map[string]any {
	return map[string]any{
		"item_count": h.store.ItemCount(),
		"subtotal":   h.store.Subtotal().StringFixed(2),
		"version":    h.store.Version(),
	}
}

// checkExpect validates a step outcome against its expect clause.
// A step without one must succeed.
func (h *Harness) checkExpect(i int, st Step, err error) {
	exp := st.Expect
	if exp == nil {
		if err != nil {
			h.result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error: %v", i, st.Op, err))
		}
		return
	}

	if got := errcode.Of(err); got != exp.Error {
		h.result.AddError(fmt.Sprintf("flow[%d] %s: expected error %q, got %q (%v)", i, st.Op, exp.Error, got, err))
		return
	}

	if exp.ItemCount != nil && h.store.ItemCount() != *exp.ItemCount {
		h.result.AddError(fmt.Sprintf("flow[%d] %s: expected item_count %d, got %d", i, st.Op, *exp.ItemCount, h.store.ItemCount()))
	}
	if exp.Subtotal != "" {
		if got := h.store.Subtotal().StringFixed(2); got != exp.Subtotal {
			h.result.AddError(fmt.Sprintf("flow[%d] %s: expected subtotal %s, got %s", i, st.Op, exp.Subtotal, got))
		}
	}
	if exp.Version != nil && h.store.Version() != *exp.Version {
		h.result.AddError(fmt.Sprintf("flow[%d] %s: expected version %d, got %d", i, st.Op, *exp.Version, h.store.Version()))
	}
	if exp.Toast != nil {
		if msg := matchToast(h.toasts, exp.Toast); msg != "" {
			h.result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, st.Op, msg))
		}
	}
	if exp.Quote != nil {
		if msg := matchQuote(h.result.Trace[len(h.result.Trace)-1].Result, exp.Quote); msg != "" {
			h.result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, st.Op, msg))
		}
	}
}

// stepArgs renders the non-empty step arguments for the trace.
func stepArgs(st Step) map[string]any {
	args := map[string]any{}
	if st.Product != "" {
		args["product"] = st.Product
	}
	if st.Quantity != nil {
		args["quantity"] = *st.Quantity
	}
	if st.Price != "" {
		args["price"] = st.Price
	}
	if st.Stock != nil {
		args["stock"] = *st.Stock
	}
	if len(st.Products) > 0 {
		args["products"] = st.Products
	}
	if st.Rate != "" {
		args["rate"] = st.Rate
	}
	if st.Duration != "" {
		args["duration"] = st.Duration
	}
	if len(args) == 0 {
		return nil
	}
	return args
}

// stateSummary renders a cart state for Result.State.
func stateSummary(s cart.State) map[string]any {
	items := make([]map[string]any, 0, len(s.Items))
	for _, li := range s.Items {
		items = append(items, map[string]any{
			"product":    li.ProductID,
			"quantity":   li.Quantity,
			"unit_price": li.UnitPrice.StringFixed(2),
		})
	}
	return map[string]any{
		"item_count": cart.ItemCountOf(s),
		"subtotal":   cart.SubtotalOf(s).StringFixed(2),
		"version":    s.Version,
		"items":      items,
	}
}
