package pipeline

import (
	"fmt"
	"sync"
)

// Phase tracks a document's journey from intake to a completed analysis.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseIngesting Phase = "ingesting"
	PhaseAnalyzing Phase = "analyzing"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// Transition is delivered to observers after every accepted phase change.
type Transition struct {
	From  Phase
	To    Phase
	Cause string // human-readable, only set when To == PhaseFailed
}

// Machine is the processing state machine for a single session. Completed
// and Failed are terminal for a run; Reset returns the machine to Idle.
type Machine struct {
	mu        sync.RWMutex
	phase     Phase
	cause     string
	observers []func(Transition)
}

func NewMachine() *Machine {
	return &Machine{phase: PhaseIdle}
}

// legal holds the allowed phase transitions. Anything else is rejected.
var legal = map[Phase][]Phase{
	PhaseIdle:      {PhaseIngesting},
	PhaseIngesting: {PhaseAnalyzing, PhaseFailed},
	PhaseAnalyzing: {PhaseCompleted, PhaseFailed},
	PhaseCompleted: {PhaseIdle},
	PhaseFailed:    {PhaseIdle},
}

func (m *Machine) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// FailureCause returns the cause carried by the last Failed transition,
// empty when the machine is not in Failed.
func (m *Machine) FailureCause() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.phase != PhaseFailed {
		return ""
	}
	return m.cause
}

// Observe registers a callback invoked after every accepted transition.
// Callbacks run synchronously on the transitioning goroutine.
func (m *Machine) Observe(fn func(Transition)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

// Advance moves the machine to the next phase, rejecting illegal jumps.
func (m *Machine) Advance(to Phase) error {
	return m.transition(to, "")
}

// Fail moves the machine to Failed carrying a human-readable cause.
func (m *Machine) Fail(cause string) error {
	return m.transition(PhaseFailed, cause)
}

// Reset returns a terminal machine to Idle. Resetting an already idle
// machine is a no-op so that callers can reset unconditionally.
func (m *Machine) Reset() error {
	m.mu.Lock()
	if m.phase == PhaseIdle {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()
	return m.transition(PhaseIdle, "")
}

func (m *Machine) transition(to Phase, cause string) error {
	m.mu.Lock()
	from := m.phase
	allowed := false
	for _, next := range legal[from] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		m.mu.Unlock()
		return fmt.Errorf("illegal phase transition %s -> %s", from, to)
	}
	m.phase = to
	m.cause = cause
	observers := make([]func(Transition), len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	t := Transition{From: from, To: to, Cause: cause}
	for _, fn := range observers {
		fn(t)
	}
	return nil
}
