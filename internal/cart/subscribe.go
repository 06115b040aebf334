package cart

// Subscribe registers fn to be called with a copy of the state after every
// state-changing mutation. The returned function unsubscribes; calling it
// more than once is harmless.
//
// fn runs on the mutating goroutine after the store lock is released, one
// commit at a time in commit order. It may call selectors (State, ItemCount,
// Subtotal and the rest), which can already reflect later commits. It must
// not call mutations on the same store synchronously: the mutation would
// wait for its own delivery turn behind fn.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

// Select subscribes to a derived value of the cart state. onChange is
// called with the new value only when equal reports that it differs from
// the last value observed. The initial value is computed at subscription
// time and is not delivered.
func Select[T any](s *Store, selector func(State) T, equal func(a, b T) bool, onChange func(T)) (unsubscribe func()) {
	// Seed and register under the store lock. Deliveries still in flight may
	// carry states older than the seed; those are skipped.
	s.mu.Lock()
	seed := s.snapshotLocked()
	last := selector(seed)
	unsub := s.Subscribe(func(st State) {
		if st.Version < seed.Version {
			return
		}
		next := selector(st)
		if equal(last, next) {
			return
		}
		last = next
		onChange(next)
	})
	s.mu.Unlock()
	return unsub
}

// SelectComparable is Select for comparable values, using ==.
//
//	unsub := cart.SelectComparable(store, cart.ItemCountOf, func(n int) {
//		badge.Render(n)
//	})
func SelectComparable[T comparable](s *Store, selector func(State) T, onChange func(T)) (unsubscribe func()) {
	return Select(s, selector, func(a, b T) bool { return a == b }, onChange)
}
