package health

import "sync/atomic"

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the readiness gate. Flip it off before stopping the listener
// so load balancers drain traffic first.
func SetReady(v bool) {
	ready.Store(v)
}

// IsReady reports the current state of the readiness gate.
func IsReady() bool {
	return ready.Load()
}
