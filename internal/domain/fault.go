package domain

import (
	"errors"
	"fmt"
)

// FaultKind classifies a failure by the recovery it requires.
type FaultKind int

const (
	ConnectFault FaultKind = iota + 1
	IoFault
	FramingFault
	DecodeFault
	PublishFault
	ConfigFault
)

// String returns the metric/log label of the kind.
func (k FaultKind) String() string {
	switch k {
	case ConnectFault:
		return "connect"
	case IoFault:
		return "io"
	case FramingFault:
		return "framing"
	case DecodeFault:
		return "decode"
	case PublishFault:
		return "publish"
	case ConfigFault:
		return "config"
	default:
		return "unknown"
	}
}

// ResetsSession reports whether the faulted session must be discarded.
func (k FaultKind) ResetsSession() bool {
	return k == IoFault || k == FramingFault
}

// Fault is a classified failure of one operation.
type Fault struct {
	Kind FaultKind
	// Op names the failed operation, e.g. "write", "read", "drain".
	Op string
	// Raw holds the bytes received before the failure, if any.
	Raw []byte
	Err error
}

// NewFault wraps err as a fault of the given kind.
func NewFault(kind FaultKind, op string, err error) *Fault {
	return &Fault{Kind: kind, Op: op, Err: err}
}

func (f *Fault) Error() string {
	if f.Op == "" {
		return fmt.Sprintf("%s fault: %v", f.Kind, f.Err)
	}
	return fmt.Sprintf("%s fault: %s: %v", f.Kind, f.Op, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// KindOf returns the kind of the first Fault in err's chain.
func KindOf(err error) (FaultKind, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return 0, false
}
