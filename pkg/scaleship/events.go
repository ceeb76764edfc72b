package scaleship

import (
	"time"

	"github.com/cpro-iot/scaleship/internal/app"
	"github.com/cpro-iot/scaleship/internal/domain"
	"github.com/cpro-iot/scaleship/internal/ports"
	"github.com/cpro-iot/scaleship/pkg/frame"
)

// State represents the lifecycle state of an agent.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns the state name.
func (s State) String() string {
	return app.State(s).String()
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// ReadingEvent is emitted for every decoded reading.
type ReadingEvent struct {
	Target  string
	Reading frame.Record
	Elapsed time.Duration
}

// ConnectEvent is emitted when a session to the scale was established.
type ConnectEvent struct {
	Target   string
	Attempts int
}

// FaultEvent is emitted for connect, I/O, framing and decode faults.
type FaultEvent struct {
	Target string
	Kind   FaultKind
	Op     string
	Err    error

	// Raw holds the bytes received before the fault, if any.
	Raw []byte
}

// PublishErrorEvent is emitted when the broker rejected a reading.
type PublishErrorEvent struct {
	Target string
	Topic  string
	Err    error
}

// EventHandler receives agent events. Methods are called synchronously from
// the polling goroutine and must return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnReading(event ReadingEvent)
	OnConnect(event ConnectEvent)
	OnFault(event FaultEvent)
	OnPublishError(event PublishErrorEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to
// override only the events you need.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)   {}
func (BaseEventHandler) OnReading(ReadingEvent)           {}
func (BaseEventHandler) OnConnect(ConnectEvent)           {}
func (BaseEventHandler) OnFault(FaultEvent)               {}
func (BaseEventHandler) OnPublishError(PublishErrorEvent) {}

// eventEmitterWrapper adapts EventHandler to the internal emitter interfaces.
type eventEmitterWrapper struct {
	target  string
	topic   string
	handler EventHandler
}

var (
	_ app.EventEmitter   = (*eventEmitterWrapper)(nil)
	_ ports.EventEmitter = (*eventEmitterWrapper)(nil)
)

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: State(previous),
		Current:  State(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnConnect(attempts int) {
	if e.handler == nil {
		return
	}
	e.handler.OnConnect(ConnectEvent{Target: e.target, Attempts: attempts})
}

// OnConnectError is only counted by metrics; the handler sees the final
// connect fault.
func (e *eventEmitterWrapper) OnConnectError(error, int) {}

func (e *eventEmitterWrapper) OnReading(rec frame.Record, elapsed time.Duration) {
	if e.handler == nil {
		return
	}
	e.handler.OnReading(ReadingEvent{Target: e.target, Reading: rec, Elapsed: elapsed})
}

func (e *eventEmitterWrapper) OnFault(f *domain.Fault) {
	if e.handler == nil {
		return
	}
	if f.Kind == domain.PublishFault {
		e.handler.OnPublishError(PublishErrorEvent{Target: e.target, Topic: e.topic, Err: f.Err})
		return
	}
	e.handler.OnFault(FaultEvent{
		Target: e.target,
		Kind:   f.Kind,
		Op:     f.Op,
		Err:    f.Err,
		Raw:    f.Raw,
	})
}
