package application

import "sync/atomic"

// cycleGuard admits at most one refresh cycle at a time. Only the caller
// whose Begin succeeded may call End.
type cycleGuard struct {
	running atomic.Bool
}

func (g *cycleGuard) Begin() bool {
	return g.running.CompareAndSwap(false, true)
}

func (g *cycleGuard) End() {
	g.running.Store(false)
}

func (g *cycleGuard) Active() bool {
	return g.running.Load()
}
