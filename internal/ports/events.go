package ports

import (
	"time"

	"github.com/cpro-iot/scaleship/internal/domain"
	"github.com/cpro-iot/scaleship/pkg/frame"
)

// EventEmitter observes the poll loop. Calls are made synchronously from the
// polling goroutine and must return quickly.
type EventEmitter interface {
	// OnConnect is called after a session was established.
	// attempts counts the dial attempts it took, starting at 1.
	OnConnect(attempts int)

	// OnConnectError is called for every failed dial attempt.
	OnConnectError(err error, attempt int)

	// OnReading is called for every decoded reading.
	OnReading(rec frame.Record, elapsed time.Duration)

	// OnFault is called for every fault except connect errors.
	OnFault(f *domain.Fault)
}

// NopEmitter implements EventEmitter by ignoring all events.
type NopEmitter struct{}

func (NopEmitter) OnConnect(int)                         {}
func (NopEmitter) OnConnectError(error, int)             {}
func (NopEmitter) OnReading(frame.Record, time.Duration) {}
func (NopEmitter) OnFault(*domain.Fault)                 {}

// MultiEmitter fans every event out to each of its emitters in order.
type MultiEmitter []EventEmitter

func (m MultiEmitter) OnConnect(attempts int) {
	for _, e := range m {
		e.OnConnect(attempts)
	}
}

func (m MultiEmitter) OnConnectError(err error, attempt int) {
	for _, e := range m {
		e.OnConnectError(err, attempt)
	}
}

func (m MultiEmitter) OnReading(rec frame.Record, elapsed time.Duration) {
	for _, e := range m {
		e.OnReading(rec, elapsed)
	}
}

func (m MultiEmitter) OnFault(f *domain.Fault) {
	for _, e := range m {
		e.OnFault(f)
	}
}
