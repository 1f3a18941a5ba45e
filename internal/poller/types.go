// internal/poller/types.go
package poller

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is ISO-8601 UTC with microseconds and a trailing Z.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// Measurement is the outcome of one sample.
// Exactly one is produced per tick. Immutable once created.
type Measurement struct {
	Timestamp time.Time
	Value     float64
	Valid     bool

	// Err is the recoverable failure behind Valid=false. nil when valid.
	Err error
}

// LogRecord is one row of the append-only log.
type LogRecord struct {
	Timestamp string
	Value     string
}

// NewLogRecord formats m for the log.
// Invalid measurements are recorded as 0.00 for compatibility with
// existing logs; validity is not persisted.
func NewLogRecord(m Measurement) LogRecord {
	v := m.Value
	if !m.Valid {
		v = 0
	}
	return LogRecord{
		Timestamp: m.Timestamp.UTC().Format(TimestampLayout),
		Value:     decimal.NewFromFloat(v).StringFixed(2),
	}
}
