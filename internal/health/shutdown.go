package health

import "sync/atomic"

var ready atomic.Bool

func init() {
	ready.Store(true)
}

// SetReady flips the readiness gate. Servers call SetReady(false) before
// draining so load balancers stop routing new traffic.
func SetReady(v bool) {
	ready.Store(v)
}

// IsReady reports the current readiness gate.
func IsReady() bool {
	return ready.Load()
}
