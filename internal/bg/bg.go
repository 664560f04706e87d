// Package bg decides whether background work runs on its own goroutine or inline.
//
// The checkout gate runs its remote session verification through a Runner so the
// same code path can suspend (Async, production) or complete before returning
// (Sync, tests and request handlers that wait for the result anyway).
package bg

// Runner executes fn.
type Runner interface {
	Do(fn func())
}

// Async runs each fn on a new goroutine.
type Async struct{}

// Do starts fn and returns immediately.
func (Async) Do(fn func()) {
	go fn()
}

// Sync runs fn on the calling goroutine.
type Sync struct{}

// Do runs fn and returns when it is done. Panics propagate to the caller.
func (Sync) Do(fn func()) {
	fn()
}
