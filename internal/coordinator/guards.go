package coordinator

import "sync"

// guardSet holds the per-operation in-flight flags. One flag per
// operation kind, taken for the full duration of the round trip.
type guardSet struct {
	mu       sync.Mutex
	inFlight map[Operation]bool
}

func newGuardSet() *guardSet {
	return &guardSet{
		inFlight: make(map[Operation]bool),
	}
}

// acquire takes the flag for op, or reports false when a submission
// of that kind is already pending.
func (g *guardSet) acquire(op Operation) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.inFlight[op] {
		return false
	}
	g.inFlight[op] = true
	return true
}

func (g *guardSet) release(op Operation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, op)
}

func (g *guardSet) isHeld(op Operation) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight[op]
}
