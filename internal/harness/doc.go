// Package harness runs cart behavior scenarios as executable contract tests.
//
// A scenario seeds a catalog, drives a real cart store through a flow of
// operations and checks the trace, the final cart, the notification state
// and the persisted snapshot.
//
// # Scenario Format
//
//	name: add_increment_remove
//	description: "Adding twice increments; price is frozen at first add"
//	catalog:
//	  - { id: A, name: Alpha, price: "10.00", stock: 5 }
//	flow:
//	  - op: add
//	    product: A
//	    quantity: 1
//	  - op: set_price
//	    product: A
//	    price: "12.00"
//	  - op: add
//	    product: A
//	    quantity: 1
//	    expect:
//	      item_count: 2
//	      subtotal: "20.00"
//	assertions:
//	  - type: final_state
//	    state:
//	      items:
//	        - { product: A, quantity: 2, unit_price: "10.00" }
//	  - type: persisted
//
// # Assertion Types
//
//   - trace_contains: an op was invoked with matching args
//   - trace_order: ops were invoked in the given order
//   - trace_count: an op was invoked exactly N times
//   - final_state: item count, subtotal, version or items of the final cart
//   - toast: visibility and content of the notification at the end
//   - persisted: the stored snapshot loads back to the final cart
//
// # Deterministic Testing
//
// Toast timers run on testutil.FakeClock and only fire on an advance step.
// Event ids come from testutil.SequenceGenerator. Each run gets a fresh
// in-memory backend, so the same scenario always yields the same trace and
// can be compared against a golden file with RunWithGolden.
package harness
