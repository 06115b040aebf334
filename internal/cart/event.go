package cart

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Event is the transient notification emitted after every successful Add.
// It carries post-mutation totals and is never persisted.
type Event struct {
	ID          string
	ProductName string
	TotalItems  int
	TotalPrice  decimal.Decimal
	Timestamp   time.Time
}

// Notifier receives add notifications. notify.Dispatcher implements it.
type Notifier interface {
	Show(ev Event)
}

// Persister saves cart snapshots. persist.Adapter implements it.
//
// Save is called synchronously inside every state-changing mutation. A
// returned error is logged by the store and otherwise ignored.
type Persister interface {
	Save(ctx context.Context, s State) error
}
