package cart

import (
	"fmt"
	"strings"
	"time"
)

// StockPolicy controls whether catalog stock limits Add and SetQuantity.
type StockPolicy int

const (
	// StockInformational never consults stock. This is the default.
	StockInformational StockPolicy = iota

	// StockReject fails with InsufficientStockError when the resulting line
	// quantity would exceed the product's stock. Quantities are never clamped.
	StockReject
)

// String returns the configuration name of the policy.
func (p StockPolicy) String() string {
	switch p {
	case StockInformational:
		return "informational"
	case StockReject:
		return "reject"
	default:
		return fmt.Sprintf("StockPolicy(%d)", int(p))
	}
}

// ParseStockPolicy parses "informational" or "reject".
func ParseStockPolicy(s string) (StockPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "informational":
		return StockInformational, nil
	case "reject":
		return StockReject, nil
	default:
		return 0, fmt.Errorf("unknown stock policy %q: must be informational or reject", s)
	}
}

// Option configures a Store.
type Option func(*Store)

// WithState hydrates the store from a previously saved snapshot.
func WithState(s State) Option {
	return func(st *Store) {
		st.initial = s.Clone()
	}
}

// WithPersister sets the snapshot persister.
func WithPersister(p Persister) Option {
	return func(st *Store) {
		st.persister = p
	}
}

// WithNotifier sets the receiver of add notifications.
func WithNotifier(n Notifier) Option {
	return func(st *Store) {
		st.notifier = n
	}
}

// WithStockPolicy sets the stock policy. Default: StockInformational.
func WithStockPolicy(p StockPolicy) Option {
	return func(st *Store) {
		st.policy = p
	}
}

// WithNow overrides the time source used to stamp notification events.
func WithNow(now func() time.Time) Option {
	return func(st *Store) {
		st.now = now
	}
}

// WithIDGenerator overrides the notification id generator.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(st *Store) {
		st.ids = g
	}
}
