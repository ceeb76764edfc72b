// Package frame implements the fixed-width ASCII frame format spoken by
// SysTec-style weighing terminals.
//
// A poll request is a short command wrapped in angle brackets (for example
// "<RM1>"). The terminal answers with a frame of fixed length whose first byte
// is '<' and whose last byte is '>'. Everything in between is split into 15
// fixed-width text fields. Some firmware revisions follow the frame with a
// line terminator that is not part of the frame.
//
// # Protocol Descriptors
//
// The frame length, the field table, the terminator length and the command
// differ between firmware revisions. They are captured by a [Protocol] value;
// [V64] and [V63] are the built-in descriptors:
//
//	p, err := frame.ProtocolByName("v64")
//	if err != nil {
//	    return err
//	}
//	rec, err := frame.Decode(p, raw)
//
// # Decoding
//
// [Decode] is a pure function. It never returns a partially populated
// [Record]: either all 15 fields are produced or an error wrapping one of the
// sentinel errors ([ErrFrameLength], [ErrMalformedEnvelope], [ErrEncoding]) is
// returned together with the zero Record. Field values are kept as trimmed
// text; numeric interpretation is left to consumers.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package frame
