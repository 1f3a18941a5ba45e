// internal/poller/errors.go
package poller

import "fmt"

// ProtocolDataError is a well-formed device response without a usable
// power field. Recoverable.
type ProtocolDataError struct {
	Field  string
	Reason string
}

func (e *ProtocolDataError) Error() string {
	return fmt.Sprintf("payload field %q: %s", e.Field, e.Reason)
}

// PersistenceError means a record could not be made durable.
// Fatal: the run stops.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist record: %v", e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
