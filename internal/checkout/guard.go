package checkout

import "sync"

type AttemptState int

const (
	StateIdle AttemptState = iota
	StateInFlight
	StateSucceeded
	StateFailed
)

// FlightGuard serializes checkout attempts per user. A second attempt while
// one is in flight is rejected, not queued; a finished attempt (either way)
// allows a fresh user-initiated retry.
type FlightGuard struct {
	mu     sync.Mutex
	states map[string]AttemptState
}

func NewFlightGuard() *FlightGuard {
	return &FlightGuard{states: make(map[string]AttemptState)}
}

// Begin transitions the user to InFlight. It returns false when an attempt
// is already in flight for that user.
func (g *FlightGuard) Begin(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.states[userID] == StateInFlight {
		return false
	}
	g.states[userID] = StateInFlight
	return true
}

// Finish records the terminal state of the user's current attempt.
func (g *FlightGuard) Finish(userID string, succeeded bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if succeeded {
		g.states[userID] = StateSucceeded
	} else {
		g.states[userID] = StateFailed
	}
}

func (g *FlightGuard) State(userID string) AttemptState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.states[userID]
}
