package frame

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// CheckEnvelope verifies the length and the envelope markers of b.
func CheckEnvelope(p Protocol, b []byte) error {
	if len(b) != p.FrameLength || len(b) == 0 {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameLength, len(b), p.FrameLength)
	}
	if b[0] != StartMarker || b[len(b)-1] != EndMarker {
		return fmt.Errorf("%w: first byte %q, last byte %q", ErrMalformedEnvelope, b[0], b[len(b)-1])
	}
	return nil
}

// Decode parses a complete frame into a Record.
// On error the zero Record is returned.
func Decode(p Protocol, b []byte) (Record, error) {
	if err := p.Validate(); err != nil {
		return Record{}, err
	}
	if err := CheckEnvelope(p, b); err != nil {
		return Record{}, err
	}

	var vals [NumFields]string
	for i, f := range p.Fields {
		raw := b[f.Start:f.End]
		if !utf8.Valid(raw) {
			return Record{}, fmt.Errorf("%w: field %s at [%d,%d): %s",
				ErrEncoding, f.Name, f.Start, f.End, Dump(raw))
		}
		vals[i] = strings.TrimSpace(string(raw))
	}
	return newRecord(vals), nil
}

// Encode renders r as a frame. Values are right-aligned and space padded to
// the width of their field.
func Encode(p Protocol, r Record) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	b := make([]byte, p.FrameLength)
	b[0] = StartMarker
	b[len(b)-1] = EndMarker

	vals := r.Values()
	for i, f := range p.Fields {
		v := vals[i]
		if len(v) > f.Width() {
			return nil, fmt.Errorf("%w: %s=%q is %d bytes, field holds %d",
				ErrFieldOverflow, f.Name, v, len(v), f.Width())
		}
		pad := f.Width() - len(v)
		for j := 0; j < pad; j++ {
			b[f.Start+j] = ' '
		}
		copy(b[f.Start+pad:f.End], v)
	}
	return b, nil
}

// Dump renders raw bytes for log output. Printable ASCII is kept as is and
// everything else is escaped.
func Dump(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) + 2)
	for _, c := range b {
		switch {
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		case c == '\r':
			sb.WriteString(`\r`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\t':
			sb.WriteString(`\t`)
		default:
			fmt.Fprintf(&sb, `\x%02x`, c)
		}
	}
	return sb.String()
}
