package scaleship

import "github.com/cpro-iot/scaleship/internal/domain"

// Errors returned by the agent. Check them with errors.Is.
var (
	ErrAlreadyRunning   = domain.ErrAlreadyRunning
	ErrNotRunning       = domain.ErrNotRunning
	ErrShutdownTimeout  = domain.ErrShutdownTimeout
	ErrInvalidConfig    = domain.ErrInvalidConfig
	ErrRetriesExhausted = domain.ErrRetriesExhausted
)

// Fault is a classified poll failure. Use errors.As to inspect it.
type Fault = domain.Fault

// FaultKind classifies a Fault.
type FaultKind = domain.FaultKind

// Fault kinds.
const (
	ConnectFault = domain.ConnectFault
	IoFault      = domain.IoFault
	FramingFault = domain.FramingFault
	DecodeFault  = domain.DecodeFault
	PublishFault = domain.PublishFault
	ConfigFault  = domain.ConfigFault
)
