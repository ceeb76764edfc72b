package app

import (
	"context"
	"sync"
	"time"

	"github.com/cpro-iot/scaleship/internal/domain"
	"github.com/cpro-iot/scaleship/internal/ports"
)

// ShutdownTimeout is the maximum time to wait for the poller to return.
const ShutdownTimeout = 30 * time.Second

// State represents the lifecycle state of the agent.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

var stateNames = map[State]string{
	StateStopped:  "Stopped",
	StateStarting: "Starting",
	StateRunning:  "Running",
	StateStopping: "Stopping",
	StateCrashed:  "Crashed",
}

// String returns a human-readable representation of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "Unknown"
}

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StateStopped:  {StateStarting},
	StateStarting: {StateRunning, StateStopping, StateCrashed},
	StateRunning:  {StateStopping, StateCrashed},
	StateStopping: {StateStopped, StateCrashed},
	StateCrashed:  {StateStarting},
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle guards the agent state machine and tracks the poller goroutine.
type Lifecycle struct {
	mu      sync.RWMutex
	state   State
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  ports.Logger
	emitter EventEmitter
}

// NewLifecycle creates a lifecycle in StateStopped.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:   StateStopped,
		logger:  logger,
		emitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// TransitionTo moves to newState if the transition table allows it.
// Invalid transitions leave the state unchanged and return ErrNotRunning
// from an idle state or ErrAlreadyRunning from an active one.
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state
	if !allowed(oldState, newState) {
		l.mu.Unlock()
		if oldState == StateStopped || oldState == StateCrashed {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}
	l.state = newState
	l.mu.Unlock()

	if l.emitter != nil {
		l.emitter.OnStateChange(oldState, newState, reason)
	}
	l.logger.Info("state transition",
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)
	return nil
}

func allowed(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CanStart returns true if Start() can be called.
func (l *Lifecycle) CanStart() bool {
	s := l.State()
	return s == StateStopped || s == StateCrashed
}

// CanStop returns true if Stop() can be called.
func (l *Lifecycle) CanStop() bool {
	s := l.State()
	return s == StateRunning || s == StateStarting
}

// SetCancel stores the cancel function of the running poller.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel stops the running poller, if any.
func (l *Lifecycle) Cancel() {
	l.mu.RLock()
	cancel := l.cancel
	l.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
}

// Go runs fn in a tracked goroutine.
func (l *Lifecycle) Go(fn func()) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		fn()
	}()
}

// WaitWithTimeout waits for tracked goroutines to return.
// Returns ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("shutdown timeout, forcing exit", ports.Duration("timeout", timeout))
		return domain.ErrShutdownTimeout
	}
}
