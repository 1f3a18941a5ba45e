// internal/writer/types.go
package writer

import (
	"errors"

	"github.com/tamzrod/powerlog/internal/poller"
)

// Header is the schema row of the power log.
var Header = []string{"timestamp_utc_iso", "wattage"}

// ErrClosed is returned by a sink used after Close.
var ErrClosed = errors.New("writer: sink closed")

// Writer persists log records. Write returns only once the record is durable.
type Writer interface {
	Write(rec poller.LogRecord) error
	Close() error
}

var (
	_ Writer      = (*CSVSink)(nil)
	_ poller.Sink = (*CSVSink)(nil)
)
