// Package ports defines the interfaces that connect the application layer
// (internal/app) to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Dialer]: opens TCP sessions to the scale
//   - [Publisher]: forwards decoded readings to a broker
//   - [EventEmitter]: observes poll outcomes (metrics, embedding applications)
//   - [Logger]: structured logging, an alias of pkg/log.Logger
//
// The application layer depends only on these interfaces, which lets tests
// drive the poll loop with in-memory connections and recording publishers.
package ports
