package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/roach88/cartengine/internal/cart"
)

// BreakerSettings tunes the write circuit breaker.
type BreakerSettings struct {
	// MinRequests is the number of writes observed in one Interval before
	// the failure ratio is considered.
	MinRequests uint32

	// FailureRatio trips the breaker once reached. Range (0, 1].
	FailureRatio float64

	// Interval clears the closed-state counts. Zero never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before a trial write.
	// Zero uses the gobreaker default of 60s.
	Timeout time.Duration
}

// DefaultBreakerSettings trips after at least 5 writes with half of them
// failing, and probes again after 30s.
var DefaultBreakerSettings = BreakerSettings{
	MinRequests:  5,
	FailureRatio: 0.5,
	Interval:     10 * time.Second,
	Timeout:      30 * time.Second,
}

// Adapter saves and loads cart snapshots through a Backend.
// It implements cart.Persister.
type Adapter struct {
	backend Backend
	key     string
	cb      *gobreaker.CircuitBreaker
}

// AdapterOption configures an Adapter.
type AdapterOption func(*adapterConfig)

type adapterConfig struct {
	key     string
	breaker BreakerSettings
}

// WithKey overrides the storage key. Default: Key.
func WithKey(key string) AdapterOption {
	return func(c *adapterConfig) { c.key = key }
}

// WithBreaker overrides the circuit breaker settings.
func WithBreaker(s BreakerSettings) AdapterOption {
	return func(c *adapterConfig) { c.breaker = s }
}

// NewAdapter creates an adapter writing to backend.
func NewAdapter(backend Backend, opts ...AdapterOption) *Adapter {
	cfg := adapterConfig{key: Key, breaker: DefaultBreakerSettings}
	for _, opt := range opts {
		opt(&cfg)
	}

	bs := cfg.breaker
	if bs.MinRequests == 0 {
		bs.MinRequests = DefaultBreakerSettings.MinRequests
	}
	if bs.FailureRatio <= 0 || bs.FailureRatio > 1 {
		bs.FailureRatio = DefaultBreakerSettings.FailureRatio
	}
	st := gobreaker.Settings{
		Name:        "cart-persist",
		MaxRequests: 1,
		Interval:    bs.Interval,
		Timeout:     bs.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bs.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bs.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("persistence circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &Adapter{
		backend: backend,
		key:     cfg.key,
		cb:      gobreaker.NewCircuitBreaker(st),
	}
}

// Save writes s synchronously. Failures are returned as *WriteError.
//
// Every snapshot is written. While the breaker is open the write goes to
// the backend directly, so the first save after the backend recovers
// stores the latest state; the breaker only tracks backend health.
func (a *Adapter) Save(ctx context.Context, s cart.State) error {
	data, err := encode(s)
	if err != nil {
		return &WriteError{Key: a.key, Version: s.Version, Err: err}
	}

	_, err = a.cb.Execute(func() (interface{}, error) {
		return nil, a.backend.Put(ctx, a.key, data)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		slog.Debug("persistence breaker open, writing directly", "key", a.key, "version", s.Version)
		err = a.backend.Put(ctx, a.key, data)
	}
	if err != nil {
		return &WriteError{Key: a.key, Version: s.Version, Err: err}
	}
	return nil
}

// Load returns the persisted snapshot, or an empty state when there is
// none or it cannot be trusted. Load never fails.
func (a *Adapter) Load(ctx context.Context) cart.State {
	data, err := a.backend.Get(ctx, a.key)
	if errors.Is(err, ErrNotFound) {
		slog.Debug("no persisted cart, starting empty", "key", a.key)
		return cart.State{}
	}
	if err != nil {
		slog.Warn("cart snapshot unreadable, starting empty", "key", a.key, "error", err)
		return cart.State{}
	}

	s, err := decode(data)
	if err != nil {
		slog.Warn("cart snapshot discarded, starting empty", "key", a.key, "error", err)
		return cart.State{}
	}

	slog.Debug("cart restored", "key", a.key, "version", s.Version, "items", len(s.Items))
	return s
}

// Reset deletes the persisted snapshot.
func (a *Adapter) Reset(ctx context.Context) error {
	if err := a.backend.Delete(ctx, a.key); err != nil {
		return fmt.Errorf("reset %q: %w", a.key, err)
	}
	return nil
}

// BreakerState reports the write breaker state: "closed", "half-open" or
// "open".
func (a *Adapter) BreakerState() string {
	return a.cb.State().String()
}

// Close closes the backend.
func (a *Adapter) Close() error {
	return a.backend.Close()
}
