package persist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cartengine/internal/cart"
	"github.com/roach88/cartengine/internal/catalog"
)

func sampleState() cart.State {
	return cart.State{
		Version: 4,
		Items: []cart.LineItem{
			{ProductID: "omega-3", Name: "Omega-3 <Fish Oil>", Quantity: 2, UnitPrice: decimal.RequireFromString("24.90")},
			{ProductID: "magnesium", Name: "Magnesium & Zinc", Quantity: 1, UnitPrice: decimal.RequireFromString("18.5")},
		},
	}
}

func TestAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemory())

	want := sampleState()
	require.NoError(t, a.Save(ctx, want))

	if diff := cmp.Diff(want, a.Load(ctx)); diff != "" {
		t.Errorf("Load(Save(s)) mismatch (-want +got):\n%s", diff)
	}
}

func TestAdapter_RoundTripKeepsPriceScale(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemory())

	want := cart.State{Version: 1, Items: []cart.LineItem{
		{ProductID: "A", Name: "A", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		{ProductID: "B", Name: "B", Quantity: 1, UnitPrice: decimal.RequireFromString("7.125")},
		{ProductID: "C", Name: "C", Quantity: 1, UnitPrice: decimal.RequireFromString("3")},
	}}
	require.NoError(t, a.Save(ctx, want))

	got := a.Load(ctx)
	require.Len(t, got.Items, 3)
	for i, li := range got.Items {
		assert.Equal(t, want.Items[i].UnitPrice.Exponent(), li.UnitPrice.Exponent(), li.ProductID)
		assert.Equal(t, want.Items[i].UnitPrice.String(), li.UnitPrice.String(), li.ProductID)
	}
	assert.Equal(t, want, got)
}

func TestAdapter_RoundTripEmpty(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemory())

	require.NoError(t, a.Save(ctx, cart.State{Version: 9}))
	got := a.Load(ctx)
	assert.Equal(t, int64(9), got.Version)
	assert.True(t, got.IsEmpty())
}

func TestAdapter_RoundTripSQLite(t *testing.T) {
	ctx := context.Background()
	b, err := OpenSQLite(t.TempDir() + "/cart.db")
	require.NoError(t, err)
	a := NewAdapter(b)
	defer a.Close()

	want := sampleState()
	require.NoError(t, a.Save(ctx, want))
	if diff := cmp.Diff(want, a.Load(ctx)); diff != "" {
		t.Errorf("Load(Save(s)) mismatch (-want +got):\n%s", diff)
	}
}

func TestAdapter_EnvelopeFormat(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := NewAdapter(m)

	require.NoError(t, a.Save(ctx, sampleState()))

	raw, err := m.Get(ctx, "cart:v1")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"schema": 1,
		"version": 4,
		"items": [
			{"product_id": "omega-3", "name": "Omega-3 <Fish Oil>", "quantity": 2, "unit_price": "24.90"},
			{"product_id": "magnesium", "name": "Magnesium & Zinc", "quantity": 1, "unit_price": "18.5"}
		]
	}`, string(raw))
	assert.Contains(t, string(raw), "<Fish Oil>", "HTML escaping disabled")
}

func TestAdapter_LoadFallsBackToEmpty(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"truncated", `{"schema":1,"version":2,"items":[`},
		{"missing schema", `{"version":2,"items":[]}`},
		{"unknown schema", `{"schema":2,"version":2,"items":[]}`},
		{"unknown field", `{"schema":1,"version":2,"items":[],"extra":true}`},
		{"bad price", `{"schema":1,"version":2,"items":[{"product_id":"a","name":"A","quantity":1,"unit_price":"ten"}]}`},
		{"zero quantity", `{"schema":1,"version":2,"items":[{"product_id":"a","name":"A","quantity":0,"unit_price":"1"}]}`},
		{"duplicate ids", `{"schema":1,"version":2,"items":[` +
			`{"product_id":"a","name":"A","quantity":1,"unit_price":"1"},` +
			`{"product_id":"a","name":"A","quantity":1,"unit_price":"1"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory()
			m.Set(Key, []byte(tt.raw))

			got := NewAdapter(m).Load(context.Background())
			assert.Equal(t, cart.State{}, got)
		})
	}
}

func TestAdapter_LoadMissing(t *testing.T) {
	got := NewAdapter(NewMemory()).Load(context.Background())
	assert.True(t, got.IsEmpty())
	assert.Equal(t, int64(0), got.Version)
}

func TestAdapter_SaveFailureIsWriteError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.FailWrites(errors.New("disk full"))
	a := NewAdapter(m)

	err := a.Save(ctx, sampleState())
	require.Error(t, err)
	assert.True(t, IsWriteError(err))

	var we *WriteError
	require.True(t, errors.As(err, &we))
	assert.Equal(t, int64(4), we.Version)
	assert.Equal(t, Key, we.Key)
	assert.Contains(t, err.Error(), "disk full")
}

func TestAdapter_BreakerOpensAndRecovers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := NewAdapter(m, WithBreaker(BreakerSettings{
		MinRequests:  3,
		FailureRatio: 0.5,
		Timeout:      50 * time.Millisecond,
	}))

	m.FailWrites(errors.New("connection refused"))
	for i := 0; i < 3; i++ {
		require.Error(t, a.Save(ctx, sampleState()))
	}
	assert.Equal(t, "open", a.BreakerState())

	// An open breaker still attempts the write.
	puts := m.Puts()
	err := a.Save(ctx, sampleState())
	assert.True(t, IsWriteError(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, puts+1, m.Puts())

	m.FailWrites(nil)
	require.NoError(t, a.Save(ctx, sampleState()))
	require.Eventually(t, func() bool {
		return a.Save(ctx, sampleState()) == nil && a.BreakerState() == "closed"
	}, time.Second, 10*time.Millisecond)
}

func TestAdapter_OpenBreakerPersistsLatestAfterRecovery(t *testing.T) {
	ctx := context.Background()
	cat := catalog.MustMemory(
		catalog.Product{ID: "A", Name: "A", Price: decimal.RequireFromString("10.00")},
		catalog.Product{ID: "B", Name: "B", Price: decimal.RequireFromString("20.00")},
	)
	m := NewMemory()
	a := NewAdapter(m, WithBreaker(BreakerSettings{
		MinRequests:  2,
		FailureRatio: 0.5,
		Timeout:      time.Hour,
	}))
	s := cart.New(cat, cart.WithPersister(a))
	defer s.Close()

	m.FailWrites(errors.New("connection refused"))
	require.NoError(t, s.Add(ctx, "A", 1))
	require.NoError(t, s.Add(ctx, "A", 1))
	require.Equal(t, "open", a.BreakerState())

	m.FailWrites(nil)
	require.NoError(t, s.Add(ctx, "B", 1))
	assert.Equal(t, "open", a.BreakerState())

	if diff := cmp.Diff(s.State(), a.Load(ctx)); diff != "" {
		t.Errorf("persisted snapshot mismatch (-store +persisted):\n%s", diff)
	}
}

func TestAdapter_Reset(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(NewMemory())

	require.NoError(t, a.Save(ctx, sampleState()))
	require.NoError(t, a.Reset(ctx))
	assert.True(t, a.Load(ctx).IsEmpty())
	require.NoError(t, a.Reset(ctx), "reset of missing snapshot")
}

func TestAdapter_WithKey(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	a := NewAdapter(m, WithKey("session-7:cart:v1"))
	require.NoError(t, a.Save(ctx, sampleState()))

	_, err := m.Get(ctx, "session-7:cart:v1")
	assert.NoError(t, err)
	_, err = m.Get(ctx, Key)
	assert.ErrorIs(t, err, ErrNotFound)
}

// A store wired to a failing adapter keeps working in memory and restores
// from the last successful write.
func TestAdapter_StoreIntegration(t *testing.T) {
	ctx := context.Background()
	cat := catalog.MustMemory(
		catalog.Product{ID: "A", Name: "A", Price: decimal.RequireFromString("10.00")},
		catalog.Product{ID: "B", Name: "B", Price: decimal.RequireFromString("20.00")},
	)
	m := NewMemory()
	a := NewAdapter(m)

	s1 := cart.New(cat, cart.WithPersister(a))
	require.NoError(t, s1.Add(ctx, "A", 1))
	m.FailWrites(errors.New("quota exceeded"))
	require.NoError(t, s1.Add(ctx, "B", 1))
	assert.Equal(t, 2, s1.ItemCount())
	s1.Close()

	s2 := cart.New(cat, cart.WithPersister(a), cart.WithState(a.Load(ctx)))
	defer s2.Close()
	assert.Equal(t, 1, s2.ItemCount())
	assert.Equal(t, int64(1), s2.Version())
}
