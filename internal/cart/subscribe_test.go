package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_ReceivesEveryMutationInOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testCatalog())

	var versions []int64
	s.Subscribe(func(st State) { versions = append(versions, st.Version) })

	require.NoError(t, s.Add(ctx, "A", 1))
	require.NoError(t, s.SetQuantity(ctx, "A", 3))
	require.NoError(t, s.Remove(ctx, "A"))
	require.NoError(t, s.Clear(ctx))

	assert.Equal(t, []int64{1, 2, 3, 4}, versions)
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testCatalog())

	calls := 0
	unsub := s.Subscribe(func(State) { calls++ })

	require.NoError(t, s.Add(ctx, "A", 1))
	unsub()
	unsub()
	require.NoError(t, s.Add(ctx, "A", 1))

	assert.Equal(t, 1, calls)
}

func TestSubscribe_ReceivesCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testCatalog())

	s.Subscribe(func(st State) {
		st.Items[0].Quantity = 1000
	})
	require.NoError(t, s.Add(ctx, "A", 1))

	assert.Equal(t, 1, s.Quantity("A"))
}

func TestSubscribe_CloseDropsSubscribers(t *testing.T) {
	ctx := context.Background()
	s := New(testCatalog())

	calls := 0
	s.Subscribe(func(State) { calls++ })
	require.NoError(t, s.Add(ctx, "A", 1))
	s.Close()

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, s.Add(ctx, "A", 1), ErrClosed)
}

func TestSelectComparable_BadgeFiresOnlyOnChange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testCatalog())

	var badge []int
	SelectComparable(s, ItemCountOf, func(n int) { badge = append(badge, n) })

	require.NoError(t, s.Add(ctx, "A", 2))
	require.NoError(t, s.SetQuantity(ctx, "A", 2)) // same count
	require.NoError(t, s.Add(ctx, "B", 1))
	require.NoError(t, s.Remove(ctx, "missing")) // no-op
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx)) // still zero

	assert.Equal(t, []int{2, 3, 0}, badge)
}

func TestSelect_SeedsFromCurrentState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testCatalog())
	require.NoError(t, s.Add(ctx, "A", 1))

	var totals []string
	Select(s, SubtotalOf, decimal.Decimal.Equal, func(d decimal.Decimal) {
		totals = append(totals, d.StringFixed(2))
	})

	require.NoError(t, s.SetQuantity(ctx, "A", 1)) // unchanged subtotal
	require.NoError(t, s.Add(ctx, "B", 1))

	assert.Equal(t, []string{"30.00"}, totals)
}

func TestSelect_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testCatalog())

	calls := 0
	unsub := SelectComparable(s, func(st State) bool { return !st.IsEmpty() }, func(bool) { calls++ })

	require.NoError(t, s.Add(ctx, "A", 1))
	unsub()
	require.NoError(t, s.Clear(ctx))

	assert.Equal(t, 1, calls)
}

func TestSubscribe_CallbackMayReadSelectorsDuringConcurrentMutation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, testCatalog())

	entered := make(chan struct{})
	release := make(chan struct{})
	var (
		mu       sync.Mutex
		versions []int64
	)
	s.Subscribe(func(st State) {
		if st.Version == 1 {
			close(entered)
			<-release
		}
		_ = s.Subtotal()
		_ = s.State()
		mu.Lock()
		versions = append(versions, st.Version)
		mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Add(ctx, "A", 1))
		}()
		<-entered
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Add(ctx, "B", 1))
		}()
		// Let the second mutation commit and queue behind the first delivery.
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber reading selectors blocked a concurrent mutation")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int64{1, 2}, versions)
}

func TestSubscribe_ConcurrentMutationsDeliveredInOrder(t *testing.T) {
	ctx := context.Background()
	s := New(testCatalog())
	t.Cleanup(s.Close)

	var versions []int64
	s.Subscribe(func(st State) {
		assert.GreaterOrEqual(t, s.ItemCount(), ItemCountOf(st))
		versions = append(versions, st.Version)
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Add(ctx, "A", 1))
		}()
	}
	wg.Wait()

	require.Len(t, versions, 20)
	for i, v := range versions {
		assert.Equal(t, int64(i+1), v)
	}
}
