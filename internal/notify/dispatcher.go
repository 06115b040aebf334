package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/cartengine/internal/cart"
)

// Toast display bounds. DefaultDuration matches the storefront's toast.
const (
	DefaultDuration = 5 * time.Second
	MinDuration     = 4 * time.Second
	MaxDuration     = 6 * time.Second
)

// State is the dispatcher state.
type State int

const (
	Idle State = iota
	Visible
)

// String returns "idle" or "visible".
func (s State) String() string {
	if s == Visible {
		return "visible"
	}
	return "idle"
}

// Toast is what a renderer draws.
type Toast struct {
	Event   cart.Event
	Visible bool

	// Generation increases with every Show.
	Generation uint64
}

// AfterFunc schedules f after d and returns a function that cancels it.
// The cancel function reports whether it stopped the call.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithDuration sets how long a toast stays visible. Non-positive values
// keep DefaultDuration. Range checks belong to configuration.
func WithDuration(d time.Duration) Option {
	return func(n *Dispatcher) {
		if d > 0 {
			n.duration = d
		}
	}
}

// WithAfterFunc overrides the timer source. Default: time.AfterFunc.
func WithAfterFunc(fn AfterFunc) Option {
	return func(n *Dispatcher) {
		n.afterFunc = fn
	}
}

// Dispatcher implements cart.Notifier.
//
// Thread-safety: all methods are safe for concurrent use. Subscribers are
// called with no lock held, one transition at a time, in transition order,
// and may call State or Current.
type Dispatcher struct {
	mu        sync.Mutex
	state     State
	current   cart.Event
	gen       uint64
	stop      func() bool
	closed    bool
	duration  time.Duration
	afterFunc AfterFunc
	ticket    uint64 // next delivery ticket, guarded by mu

	deliverMu sync.Mutex
	turn      *sync.Cond
	delivered uint64

	subsMu  sync.Mutex
	subs    map[int]func(Toast)
	nextSub int
}

var _ cart.Notifier = (*Dispatcher)(nil)

// New creates an idle dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		duration:  DefaultDuration,
		afterFunc: realAfterFunc,
		subs:      make(map[int]func(Toast)),
	}
	d.turn = sync.NewCond(&d.deliverMu)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Show displays ev, replacing any visible toast and restarting the
// dismiss timer. Ignored after Close.
func (d *Dispatcher) Show(ev cart.Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	d.stopTimerLocked()
	d.gen++
	gen := d.gen
	d.state = Visible
	d.current = ev
	d.stop = d.afterFunc(d.duration, func() { d.expire(gen) })

	slog.Debug("toast shown", "event_id", ev.ID, "generation", gen)
	d.publish(d.toastLocked())
}

// Dismiss hides the visible toast. No-op when idle.
func (d *Dispatcher) Dismiss() {
	d.mu.Lock()
	if d.state != Visible {
		d.mu.Unlock()
		return
	}
	d.stopTimerLocked()
	d.hideLocked()
	d.publish(d.toastLocked())
}

// expire is the dismiss timer callback for generation gen.
func (d *Dispatcher) expire(gen uint64) {
	d.mu.Lock()
	if d.closed || d.state != Visible || d.gen != gen {
		d.mu.Unlock()
		return
	}
	d.stop = nil
	d.hideLocked()
	slog.Debug("toast expired", "generation", gen)
	d.publish(d.toastLocked())
}

// Current returns the visible toast, or false when idle.
func (d *Dispatcher) Current() (Toast, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != Visible {
		return Toast{}, false
	}
	return d.toastLocked(), true
}

// State returns the current state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Duration returns the configured display time.
func (d *Dispatcher) Duration() time.Duration {
	return d.duration
}

// Subscribe registers fn for every transition. The returned function
// unsubscribes.
func (d *Dispatcher) Subscribe(fn func(Toast)) (unsubscribe func()) {
	d.subsMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subsMu.Unlock()

	return func() {
		d.subsMu.Lock()
		delete(d.subs, id)
		d.subsMu.Unlock()
	}
}

// Close cancels the pending timer and drops subscribers. Later Show calls
// are ignored.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.stopTimerLocked()
	d.state = Idle
	d.current = cart.Event{}
	d.mu.Unlock()

	d.subsMu.Lock()
	d.subs = make(map[int]func(Toast))
	d.subsMu.Unlock()
}

func (d *Dispatcher) stopTimerLocked() {
	if d.stop != nil {
		d.stop()
		d.stop = nil
	}
}

func (d *Dispatcher) hideLocked() {
	d.state = Idle
	d.current = cart.Event{}
}

func (d *Dispatcher) toastLocked() Toast {
	return Toast{Event: d.current, Visible: d.state == Visible, Generation: d.gen}
}

// publish releases mu and delivers t to subscribers once every earlier
// transition has been delivered. Caller holds mu; publish returns with mu
// released.
func (d *Dispatcher) publish(t Toast) {
	ticket := d.ticket
	d.ticket++
	d.mu.Unlock()

	d.deliverMu.Lock()
	for d.delivered != ticket {
		d.turn.Wait()
	}
	d.deliverMu.Unlock()
	defer func() {
		d.deliverMu.Lock()
		d.delivered++
		d.turn.Broadcast()
		d.deliverMu.Unlock()
	}()

	d.subsMu.Lock()
	listeners := make([]func(Toast), 0, len(d.subs))
	for id := 0; id < d.nextSub; id++ {
		if l, ok := d.subs[id]; ok {
			listeners = append(listeners, l)
		}
	}
	d.subsMu.Unlock()

	for _, l := range listeners {
		l(t)
	}
}
