// Package cart implements the cart state engine: the canonical list of line
// items a shopper intends to buy, the mutations that change it, and the
// derived totals every view renders.
//
// ARCHITECTURE:
//
// Single Source of Truth:
// All mutations funnel through a Store. Nothing else holds a mutable
// reference to the line items; State values handed out by the store are deep
// copies.
//
// Mutation Flow:
//  1. Validate arguments (quantity range, catalog lookup, stock policy)
//  2. Update line items under the store lock
//  3. Bump the version (logical clock, +1 per state change)
//  4. Save the snapshot through the Persister (best effort)
//  5. Release the lock, emit the add notification, fan out to subscribers
//
// Persistence is best effort: a failing Persister is logged and ignored, and
// the in-memory state stays authoritative. The next mutation writes the full
// snapshot again, which is the only retry.
//
// INVARIANTS:
//
//   - ProductIDs are unique within State.Items; re-adding increments quantity
//   - Items keep insertion order; quantity changes never reorder
//   - Every LineItem has Quantity >= 1, and the sum of quantities never
//     exceeds math.MaxInt
//   - UnitPrice is frozen at the first add (price-freeze); Subtotal never
//     consults the live catalog
//   - Version increases by exactly one per state-changing mutation; no-op
//     removes leave it untouched
//
// Subscribers observe state through Subscribe, Select and SelectComparable.
// Callbacks run after the store lock is released, in mutation order. They
// may call selectors but must not mutate the store synchronously.
package cart
