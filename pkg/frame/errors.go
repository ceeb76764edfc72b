package frame

import "errors"

// Frame errors. Callers match them with errors.Is; the returned errors carry
// the offending field or byte counts as context.
var (
	// ErrFrameLength is returned when a buffer is not exactly FrameLength bytes.
	ErrFrameLength = errors.New("frame: wrong frame length")

	// ErrShortFrame is returned when fewer than FrameLength bytes arrived
	// before the read failed.
	ErrShortFrame = errors.New("frame: short frame")

	// ErrMalformedEnvelope is returned when the frame does not start with '<'
	// or does not end with '>'.
	ErrMalformedEnvelope = errors.New("frame: malformed envelope")

	// ErrEncoding is returned when a field contains bytes that are not valid UTF-8.
	ErrEncoding = errors.New("frame: invalid field encoding")

	// ErrFieldOverflow is returned by Encode when a value does not fit its field.
	ErrFieldOverflow = errors.New("frame: value overflows field")

	// ErrInvalidProtocol is returned when a protocol descriptor is inconsistent.
	ErrInvalidProtocol = errors.New("frame: invalid protocol")
)
