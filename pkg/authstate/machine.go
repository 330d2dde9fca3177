package authstate

import (
	"sync"
	"time"
)

// State represents the machine's position in a failure episode
type State int

const (
	// Idle means no auth failure is in progress; requests flow normally
	Idle State = iota
	// AuthFailurePending means a session-expired error was observed and the
	// machine is waiting for an external handler before forcing logout
	AuthFailurePending
	// Resolved means the episode ended, either handled externally or by the
	// deadline fallback. Only Reset returns the machine to Idle.
	Resolved
)

func (s State) String() string {
	return []string{"idle", "auth_failure_pending", "resolved"}[s]
}

// DefaultDeadline is how long an external handler gets to claim a failure
// episode before the fallback fires. Inherited from the previous system's
// 500ms grace window; tune via NewMachine.
const DefaultDeadline = 500 * time.Millisecond

// Machine coordinates one auth-failure episode at a time. It is an explicit
// instance rather than package state so each client (and each test) owns an
// isolated machine.
//
// While an episode is open, Blocking() is true and the HTTP transport rejects
// non-login requests client-side. The fallback fires at most once per episode
// regardless of how many session-expired responses arrive.
type Machine struct {
	mu sync.Mutex

	authenticating  bool
	handled         bool
	logoutTriggered bool

	deadline time.Duration
	timer    *time.Timer
	subs     []chan struct{}
}

// NewMachine creates a machine with the given handler deadline. A
// non-positive deadline selects DefaultDeadline.
func NewMachine(deadline time.Duration) *Machine {
	if deadline <= 0 {
		deadline = DefaultDeadline
	}
	return &Machine{deadline: deadline}
}

// SessionInvalid registers a subscriber for the fallback's session-invalid
// event. The channel has capacity one and receives at most one notification
// per episode; subscribers clear local state and route to login.
func (m *Machine) SessionInvalid() <-chan struct{} {
	ch := make(chan struct{}, 1)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Begin opens a failure episode. Calls after the first are no-ops until
// Reset, so a burst of session-expired responses arms the deadline once.
func (m *Machine) Begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.authenticating {
		return
	}
	m.authenticating = true
	m.timer = time.AfterFunc(m.deadline, m.onDeadline)
}

func (m *Machine) onDeadline() {
	m.mu.Lock()
	if m.handled || m.logoutTriggered {
		m.mu.Unlock()
		return
	}
	m.logoutTriggered = true
	subs := make([]chan struct{}, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// MarkHandled records that an external handler claimed the episode. Returns
// false if there is no open episode, the fallback already fired, or another
// handler already claimed it, in which case the caller must not act on the
// error again. At most one claim per episode succeeds.
func (m *Machine) MarkHandled() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.authenticating || m.logoutTriggered || m.handled {
		return false
	}
	m.handled = true
	if m.timer != nil {
		m.timer.Stop()
	}
	return true
}

// Reset returns the machine to Idle. Called after a successful login; clears
// all three flags together.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.authenticating = false
	m.handled = false
	m.logoutTriggered = false
}

// Blocking reports whether non-login requests should be rejected client-side
func (m *Machine) Blocking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authenticating
}

// LogoutTriggered reports whether the fallback fired during this episode
func (m *Machine) LogoutTriggered() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logoutTriggered
}

// State reports the machine's current state
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case !m.authenticating:
		return Idle
	case m.handled || m.logoutTriggered:
		return Resolved
	default:
		return AuthFailurePending
	}
}
