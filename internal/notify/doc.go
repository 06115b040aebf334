// Package notify drives the transient "added to cart" toast.
//
// A Dispatcher is a two-state machine:
//
//	Idle --Show--> Visible --Dismiss / timer--> Idle
//	                  |
//	                  +--Show--> Visible (event replaced, timer restarted)
//
// There is no queue: the latest event always wins. Every Show starts a new
// generation, and a dismiss timer only acts on the generation that armed
// it, so a timer left over from a replaced toast can never hide a newer one.
//
// The timer source is injectable (WithAfterFunc) so tests advance time by
// hand instead of sleeping.
package notify
