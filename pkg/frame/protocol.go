package frame

import (
	"fmt"
	"strings"
)

// Envelope markers.
const (
	StartMarker byte = '<'
	EndMarker   byte = '>'
)

// Field is the byte range [Start, End) of one text field inside a frame.
type Field struct {
	Name  string
	Start int
	End   int
}

// Width returns the number of bytes the field occupies.
func (f Field) Width() int {
	return f.End - f.Start
}

// Protocol describes one firmware revision of the frame format.
type Protocol struct {
	// Name identifies the descriptor (e.g. "v64").
	Name string

	// FrameLength is the exact number of bytes in a frame, markers included.
	FrameLength int

	// Fields partitions [1, FrameLength-1) in wire order.
	Fields [NumFields]Field

	// TerminatorLen is the number of bytes following each frame on the wire
	// that must be consumed before the next request.
	TerminatorLen int

	// Command is the request sent for every poll.
	Command []byte
}

// DefaultCommand reads the current weight ("read memory 1").
var DefaultCommand = []byte("<RM1>")

// V64 is the 64-byte layout.
var V64 = Protocol{
	Name:        "v64",
	FrameLength: 64,
	Fields: [NumFields]Field{
		{"error_code", 1, 3},
		{"scale_in_move", 3, 4},
		{"gross_negative", 4, 5},
		{"date", 5, 13},
		{"time", 13, 18},
		{"ident", 18, 22},
		{"scale_nr", 22, 23},
		{"gross", 23, 31},
		{"tara", 31, 39},
		{"net", 39, 47},
		{"unit", 47, 49},
		{"tara_code", 49, 51},
		{"scale_area", 51, 52},
		{"terminal", 52, 55},
		{"check", 55, 63},
	},
	TerminatorLen: 2,
	Command:       DefaultCommand,
}

// V63 is the 63-byte layout of older firmware, which carries a 7 digit check field.
var V63 = Protocol{
	Name:        "v63",
	FrameLength: 63,
	Fields: [NumFields]Field{
		{"error_code", 1, 3},
		{"scale_in_move", 3, 4},
		{"gross_negative", 4, 5},
		{"date", 5, 13},
		{"time", 13, 18},
		{"ident", 18, 22},
		{"scale_nr", 22, 23},
		{"gross", 23, 31},
		{"tara", 31, 39},
		{"net", 39, 47},
		{"unit", 47, 49},
		{"tara_code", 49, 51},
		{"scale_area", 51, 52},
		{"terminal", 52, 55},
		{"check", 55, 62},
	},
	TerminatorLen: 2,
	Command:       DefaultCommand,
}

// Protocols lists the built-in descriptors by name.
var Protocols = map[string]Protocol{
	V64.Name: V64,
	V63.Name: V63,
}

// ProtocolByName returns the built-in descriptor with the given name.
// Names are matched case-insensitively.
func ProtocolByName(name string) (Protocol, error) {
	p, ok := Protocols[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Protocol{}, fmt.Errorf("%w: unknown protocol %q", ErrInvalidProtocol, name)
	}
	return p, nil
}

// WithTerminatorLen returns a copy of p with a different terminator length.
func (p Protocol) WithTerminatorLen(n int) Protocol {
	p.TerminatorLen = n
	return p
}

// Validate checks that the field table is a contiguous partition of the
// frame body and that the remaining parameters are usable.
func (p Protocol) Validate() error {
	if p.FrameLength < 3 {
		return fmt.Errorf("%w: frame length %d", ErrInvalidProtocol, p.FrameLength)
	}
	if p.TerminatorLen < 0 {
		return fmt.Errorf("%w: negative terminator length %d", ErrInvalidProtocol, p.TerminatorLen)
	}
	if len(p.Command) == 0 {
		return fmt.Errorf("%w: empty command", ErrInvalidProtocol)
	}

	next := 1
	for i, f := range p.Fields {
		if f.Name != FieldNames[i] {
			return fmt.Errorf("%w: field %d is %q, want %q", ErrInvalidProtocol, i, f.Name, FieldNames[i])
		}
		if f.Start != next || f.End <= f.Start {
			return fmt.Errorf("%w: field %s range [%d,%d) breaks partition at %d",
				ErrInvalidProtocol, f.Name, f.Start, f.End, next)
		}
		next = f.End
	}
	if next != p.FrameLength-1 {
		return fmt.Errorf("%w: fields end at %d, frame body ends at %d",
			ErrInvalidProtocol, next, p.FrameLength-1)
	}
	return nil
}
