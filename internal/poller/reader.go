// internal/poller/reader.go
package poller

import (
	"context"
	"encoding/json"
	"math"

	"github.com/tamzrod/powerlog/internal/clock"
	"github.com/tamzrod/powerlog/internal/device"
)

// tenthsPerUnit converts the device's raw tenths into engineering units.
const tenthsPerUnit = 10.0

// ValueSource abstracts the connection the reader samples.
type ValueSource interface {
	ReadValue(ctx context.Context) (device.Payload, error)
}

// Reader converts raw device payloads into Measurements.
// It never returns an error: failures become Valid=false.
type Reader struct {
	src   ValueSource
	field string
	clock clock.Clock
}

// NewReader creates a reader of field on src.
func NewReader(src ValueSource, field string, clk clock.Clock) *Reader {
	if clk == nil {
		clk = clock.Real()
	}
	return &Reader{src: src, field: field, clock: clk}
}

// Read performs exactly one sample.
// The timestamp is taken after the read so it reflects the real sample instant.
func (r *Reader) Read(ctx context.Context) Measurement {
	p, err := r.src.ReadValue(ctx)
	at := r.clock.Now()
	if err != nil {
		return Measurement{Timestamp: at, Err: err}
	}

	raw, err := powerValue(p, r.field)
	if err != nil {
		return Measurement{Timestamp: at, Err: err}
	}

	return Measurement{
		Timestamp: at,
		Value:     raw / tenthsPerUnit,
		Valid:     true,
	}
}

func powerValue(p device.Payload, field string) (float64, error) {
	raw, ok := p[field]
	if !ok {
		return 0, &ProtocolDataError{Field: field, Reason: "missing"}
	}

	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case uint16:
		v = float64(x)
	case json.Number: // tuya payloads decode with UseNumber
		f, err := x.Float64()
		if err != nil {
			return 0, &ProtocolDataError{Field: field, Reason: "not a number"}
		}
		v = f
	default:
		return 0, &ProtocolDataError{Field: field, Reason: "not a number"}
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ProtocolDataError{Field: field, Reason: "not finite"}
	}
	if v < 0 {
		return 0, &ProtocolDataError{Field: field, Reason: "negative"}
	}
	return v, nil
}
