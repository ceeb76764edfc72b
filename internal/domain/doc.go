// Package domain contains the error vocabulary shared by the scaleship
// application layer and its adapters.
//
// It has no dependencies on infrastructure concerns (sockets, brokers,
// logging). Decoded readings themselves live in pkg/frame so that library
// users can decode frames without pulling in the agent.
//
// # Faults
//
// Every failure of a poll cycle is reported as a [*Fault] whose [FaultKind]
// decides how the poll loop recovers:
//
//   - [ConnectFault]: retried with a fixed backoff
//   - [IoFault]: session discarded, reconnect before the next cycle
//   - [FramingFault]: reading discarded, session discarded to resynchronize
//   - [DecodeFault]: reading discarded, session kept
//   - [PublishFault]: logged only
//   - [ConfigFault]: fatal at startup
package domain
