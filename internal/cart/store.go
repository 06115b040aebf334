package cart

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/cartengine/internal/catalog"
)

// Store is the single source of truth for cart contents.
//
// Thread-safety model:
//   - Mutations (Add, SetQuantity, Remove, Clear) are serialized by mu and
//     complete synchronously, persistence write included
//   - Selectors take mu briefly and return copies
//   - Each commit takes a delivery ticket under mu. Notifications and
//     subscriber callbacks run after mu is released, in ticket order, so
//     they see mutations in the order they committed and may call selectors
type Store struct {
	mu      sync.Mutex
	catalog catalog.Catalog
	items   []LineItem
	index   map[string]int // productID -> position in items
	version *Clock
	closed  bool
	ticket  uint64 // next delivery ticket, guarded by mu

	// delivered counts finished fan-outs. Guarded by deliverMu; turn waits
	// for a change.
	deliverMu sync.Mutex
	turn      *sync.Cond
	delivered uint64

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int

	initial   State
	persister Persister
	notifier  Notifier
	policy    StockPolicy
	now       func() time.Time
	ids       IDGenerator
}

// New creates a store reading products from cat.
//
// Without WithState the cart starts empty at version 0. A hydrated state is
// checked item by item; items that break the cart invariants are dropped
// with a warning rather than failing construction.
func New(cat catalog.Catalog, opts ...Option) *Store {
	s := &Store{
		catalog: cat,
		index:   make(map[string]int),
		subs:    make(map[int]func(State)),
		policy:  StockInformational,
		now:     time.Now,
		ids:     UUIDv7Generator{},
	}
	s.turn = sync.NewCond(&s.deliverMu)

	for _, opt := range opts {
		opt(s)
	}

	total := 0
	for _, li := range s.initial.Items {
		li.ProductID = catalog.NormalizeID(li.ProductID)
		_, dup := s.index[li.ProductID]
		sum, fits := addCount(total, max(li.Quantity, 0))
		if dup || !fits || li.ProductID == "" || li.Quantity < 1 {
			slog.Warn("dropping invalid hydrated line item",
				"product_id", li.ProductID,
				"quantity", li.Quantity,
			)
			continue
		}
		total = sum
		s.index[li.ProductID] = len(s.items)
		s.items = append(s.items, li)
	}
	s.version = NewClockAt(s.initial.Version)
	s.initial = State{}

	return s
}

// Add puts quantity units of productID in the cart.
//
// A product already in the cart has its quantity incremented and keeps the
// unit price captured when it was first added. A new product is appended
// with the catalog's current price.
//
// Errors: InvalidQuantityError (quantity < 1, or a cart total past
// math.MaxInt), catalog.ProductNotFoundError (unknown product),
// InsufficientStockError (StockReject only), ErrClosed.
func (s *Store) Add(ctx context.Context, productID string, quantity int) error {
	id := catalog.NormalizeID(productID)
	if quantity < 1 {
		return &InvalidQuantityError{ProductID: id, Quantity: quantity, Min: 1}
	}
	p, ok := s.catalog.Product(id)
	if !ok {
		return catalog.NewProductNotFound(id)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	i, exists := s.index[id]
	current := 0
	if exists {
		current = s.items[i].Quantity
	}
	if _, ok := addCount(s.itemCountLocked(), quantity); !ok {
		s.mu.Unlock()
		return &InvalidQuantityError{ProductID: id, Quantity: quantity, Min: 1, Max: math.MaxInt}
	}
	if err := s.checkStock(p, current+quantity); err != nil {
		s.mu.Unlock()
		return err
	}

	if exists {
		s.items[i].Quantity += quantity
	} else {
		s.index[id] = len(s.items)
		s.items = append(s.items, LineItem{
			ProductID: id,
			Name:      p.Name,
			Quantity:  quantity,
			UnitPrice: p.Price,
		})
	}

	snap := s.commitLocked(ctx, "add", id)
	ev := Event{
		ID:          s.ids.Generate(),
		ProductName: p.Name,
		TotalItems:  ItemCountOf(snap),
		TotalPrice:  SubtotalOf(snap),
		Timestamp:   s.now(),
	}
	s.publish(snap, &ev)
	return nil
}

// SetQuantity sets the quantity of a product already in the cart.
// Quantity 0 removes the line, exactly like Remove.
//
// Errors: InvalidQuantityError (quantity < 0), catalog.ProductNotFoundError
// with Where == catalog.WhereCart (product not in cart),
// InsufficientStockError (StockReject only), ErrClosed. A quantity that
// would push the cart total past math.MaxInt is an InvalidQuantityError.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) error {
	id := catalog.NormalizeID(productID)
	if quantity < 0 {
		return &InvalidQuantityError{ProductID: id, Quantity: quantity, Min: 0}
	}

	// Stock is checked against the live record; a product that has since left
	// the catalog has no stock to enforce.
	var (
		p     catalog.Product
		found bool
	)
	if s.policy == StockReject && quantity > 0 {
		p, found = s.catalog.Product(id)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return &catalog.ProductNotFoundError{ProductID: id, Where: catalog.WhereCart}
	}

	if quantity == 0 {
		s.removeLocked(i)
	} else {
		others := s.itemCountLocked() - s.items[i].Quantity
		if _, ok := addCount(others, quantity); !ok {
			s.mu.Unlock()
			return &InvalidQuantityError{ProductID: id, Quantity: quantity, Min: 0, Max: math.MaxInt}
		}
		if found {
			if err := s.checkStock(p, quantity); err != nil {
				s.mu.Unlock()
				return err
			}
		}
		s.items[i].Quantity = quantity
	}

	snap := s.commitLocked(ctx, "set_quantity", id)
	s.publish(snap, nil)
	return nil
}

// Remove deletes a product from the cart.
// Removing a product that is not in the cart is a no-op: the version does
// not change, nothing is persisted and subscribers are not called.
func (s *Store) Remove(ctx context.Context, productID string) error {
	id := catalog.NormalizeID(productID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	s.removeLocked(i)

	snap := s.commitLocked(ctx, "remove", id)
	s.publish(snap, nil)
	return nil
}

// Clear empties the cart. Always bumps the version and persists, even when
// the cart was already empty. Does not emit a notification.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}

	s.items = nil
	s.index = make(map[string]int)

	snap := s.commitLocked(ctx, "clear", "")
	s.publish(snap, nil)
	return nil
}

// Close tears the store down: subscribers are dropped and further mutations
// return ErrClosed. Selectors keep working on the final state.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.subsMu.Lock()
	s.subs = make(map[int]func(State))
	s.subsMu.Unlock()
}

// State returns a deep copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ItemCount returns the sum of quantities.
func (s *Store) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.itemCountLocked()
}

// itemCountLocked sums line quantities. Mutations keep the sum within
// math.MaxInt. Caller holds mu.
func (s *Store) itemCountLocked() int {
	n := 0
	for _, li := range s.items {
		n += li.Quantity
	}
	return n
}

// Subtotal returns Σ quantity × frozen unit price.
func (s *Store) Subtotal() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := decimal.Zero
	for _, li := range s.items {
		total = total.Add(li.LineTotal())
	}
	return total
}

// Quantity returns the quantity of productID in the cart, or 0.
func (s *Store) Quantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[catalog.NormalizeID(productID)]
	if !ok {
		return 0
	}
	return s.items[i].Quantity
}

// HasItems reports whether the cart holds at least one line item.
func (s *Store) HasItems() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items) > 0
}

// Len returns the number of distinct line items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Version returns the current state version.
func (s *Store) Version() int64 {
	return s.version.Current()
}

// checkStock enforces the stock policy for a resulting line quantity.
func (s *Store) checkStock(p catalog.Product, resulting int) error {
	if s.policy != StockReject {
		return nil
	}
	if p.Stock <= 0 || resulting > p.Stock {
		return &InsufficientStockError{ProductID: p.ID, Requested: resulting, Available: max(p.Stock, 0)}
	}
	return nil
}

// removeLocked deletes items[i] and reindexes the tail. Caller holds mu.
func (s *Store) removeLocked(i int) {
	delete(s.index, s.items[i].ProductID)
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].ProductID] = j
	}
}

// snapshotLocked copies the current state. Caller holds mu.
func (s *Store) snapshotLocked() State {
	st := State{Version: s.version.Current()}
	if len(s.items) > 0 {
		st.Items = make([]LineItem, len(s.items))
		copy(st.Items, s.items)
	}
	return st
}

// commitLocked bumps the version and persists the new snapshot.
// Caller holds mu.
//
// ERROR HANDLING: persistence failures are logged and dropped. The mutation
// has already happened in memory and stays; the next mutation rewrites the
// whole snapshot.
func (s *Store) commitLocked(ctx context.Context, op, productID string) State {
	s.version.Next()
	snap := s.snapshotLocked()

	slog.Debug("cart mutated",
		"op", op,
		"product_id", productID,
		"version", snap.Version,
		"items", len(snap.Items),
	)

	if s.persister != nil {
		if err := s.persister.Save(ctx, snap); err != nil {
			slog.Warn("cart snapshot not persisted, continuing in memory",
				"op", op,
				"version", snap.Version,
				"error", err,
			)
		}
	}
	return snap
}

// publish releases mu and fans snap out to the notifier (for adds) and
// subscribers. Caller holds mu; publish returns with mu released.
//
// mu is never held while waiting for a turn, and no lock is held while
// callbacks run.
func (s *Store) publish(snap State, ev *Event) {
	ticket := s.ticket
	s.ticket++
	s.mu.Unlock()

	s.deliverMu.Lock()
	for s.delivered != ticket {
		s.turn.Wait()
	}
	s.deliverMu.Unlock()
	defer s.finishDelivery()

	if ev != nil && s.notifier != nil {
		s.notifier.Show(*ev)
	}

	s.subsMu.Lock()
	listeners := make([]func(State), 0, len(s.subs))
	for id := 0; id < s.nextSub; id++ {
		if l, ok := s.subs[id]; ok {
			listeners = append(listeners, l)
		}
	}
	s.subsMu.Unlock()

	for _, l := range listeners {
		l(snap.Clone())
	}
}

// finishDelivery hands the turn to the next ticket. Runs even if a
// callback panics.
func (s *Store) finishDelivery() {
	s.deliverMu.Lock()
	s.delivered++
	s.turn.Broadcast()
	s.deliverMu.Unlock()
}
