// internal/device/handle.go
package device

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Payload is the raw data-point mapping reported by a device.
// Keys are data-point identifiers ("19" is power on most smart plugs).
type Payload map[string]any

// Session is one live protocol session to a device.
type Session interface {
	Status(ctx context.Context) (Payload, error)
	Close() error
}

// Dialer opens a new session. ONE attempt per call, no retries.
type Dialer func(ctx context.Context) (Session, error)

// State is the connection lifecycle of a Handle.
type State int

const (
	Disconnected State = iota
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ConnectionError is a recoverable transport, timeout or protocol failure.
type ConnectionError struct {
	Op  string // "connect" or "read"
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiry.
func (e *ConnectionError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(e.Err, &te) && te.Timeout()
}

// Handle owns one persistent session to a device.
// The session is reused while healthy. On failure it is discarded and the
// next call makes exactly one reconnect attempt before reading.
// A Handle is owned by a single caller and is not safe for concurrent use.
type Handle struct {
	dial    Dialer
	timeout time.Duration
	log     *slog.Logger

	sess  Session
	state State
}

// NewHandle creates a disconnected handle. timeout bounds every call.
func NewHandle(dial Dialer, timeout time.Duration, log *slog.Logger) *Handle {
	if log == nil {
		log = slog.Default()
	}
	return &Handle{dial: dial, timeout: timeout, log: log, state: Disconnected}
}

// State returns the current connection state.
func (h *Handle) State() State { return h.state }

// Connect establishes the session if none is held.
func (h *Handle) Connect(ctx context.Context) error {
	ctx, cancel := h.bound(ctx)
	defer cancel()
	return h.connect(ctx)
}

func (h *Handle) connect(ctx context.Context) error {
	if h.sess != nil {
		return nil
	}

	sess, err := h.dial(ctx)
	if err != nil {
		// Any failed dial, first or not, leaves the handle waiting to retry.
		h.state = Reconnecting
		return &ConnectionError{Op: "connect", Err: err}
	}

	if h.state == Reconnecting {
		h.log.Info("device reconnected")
	}
	h.sess = sess
	h.state = Connected
	return nil
}

// ReadValue returns the current payload from the device.
// Failures are surfaced immediately; there is no retry loop inside a call.
func (h *Handle) ReadValue(ctx context.Context) (Payload, error) {
	ctx, cancel := h.bound(ctx)
	defer cancel()

	if err := h.connect(ctx); err != nil {
		return nil, err
	}

	p, err := h.sess.Status(ctx)
	if err != nil {
		h.drop()
		return nil, &ConnectionError{Op: "read", Err: err}
	}
	return p, nil
}

// Close releases the session. Safe to call multiple times.
func (h *Handle) Close() error {
	var err error
	if h.sess != nil {
		err = h.sess.Close()
		h.sess = nil
	}
	h.state = Disconnected
	return err
}

// drop discards a session after transport death.
func (h *Handle) drop() {
	if h.sess != nil {
		_ = h.sess.Close()
		h.sess = nil
	}
	h.state = Reconnecting
}

func (h *Handle) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.timeout)
}
