package publish

import (
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/cpro-iot/scaleship/pkg/frame"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Marshal encodes a reading as a JSON object keyed by field name.
func Marshal(rec frame.Record) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal reading: %w", err)
	}
	return b, nil
}

// Unmarshal decodes a payload produced by Marshal.
func Unmarshal(b []byte) (frame.Record, error) {
	var rec frame.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return frame.Record{}, fmt.Errorf("unmarshal reading: %w", err)
	}
	return rec, nil
}

func newClientID() string {
	return "scaleship-" + uuid.NewString()
}
