// internal/device/modbus/client.go
package modbus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/powerlog/internal/device"
)

// Register functions.
const (
	FunctionHolding = "holding"
	FunctionInput   = "input"
)

// registerReader is the subset of modbus.Client the meter adapter uses.
type registerReader interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error) // FC 3
	ReadInputRegisters(address, quantity uint16) ([]byte, error)   // FC 4
}

// Config is minimal transport + register config.
type Config struct {
	Address  string // host:port for TCP, /dev/... or COMn for RTU
	UnitID   uint8
	Register uint16
	Function string
	Field    string // payload key the register value is reported under
	BaudRate int    // RTU only
	Timeout  time.Duration
}

// Client reads one power register from a Modbus meter and reports it as a
// data-point payload.
type Client struct {
	cfg     Config
	handler io.Closer
	client  registerReader
}

// Dial creates a connected Modbus client. ONE attempt per call.
func Dial(cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("modbus meter: address required")
	}
	if cfg.Field == "" {
		return nil, errors.New("modbus meter: field required")
	}

	if isSerial(cfg.Address) {
		h := modbus.NewRTUClientHandler(cfg.Address)
		h.BaudRate = cfg.BaudRate
		h.DataBits = 8
		h.Parity = "N"
		h.StopBits = 1
		h.SlaveId = cfg.UnitID
		h.Timeout = cfg.Timeout

		if err := h.Connect(); err != nil {
			return nil, err
		}
		return &Client{cfg: cfg, handler: h, client: modbus.NewClient(h)}, nil
	}

	h := modbus.NewTCPClientHandler(cfg.Address)
	h.SlaveId = cfg.UnitID
	h.Timeout = cfg.Timeout

	if err := h.Connect(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg, handler: h, client: modbus.NewClient(h)}, nil
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	if c == nil || c.handler == nil {
		return nil
	}
	return c.handler.Close()
}

// Status reads the configured register.
func (c *Client) Status(ctx context.Context) (device.Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		raw []byte
		err error
	)
	switch c.cfg.Function {
	case FunctionInput:
		raw, err = c.client.ReadInputRegisters(c.cfg.Register, 1)
	case FunctionHolding, "":
		raw, err = c.client.ReadHoldingRegisters(c.cfg.Register, 1)
	default:
		return nil, fmt.Errorf("modbus meter: unsupported function %q", c.cfg.Function)
	}
	if err != nil {
		return nil, err
	}

	regs := unpackRegisters(raw)
	if len(regs) != 1 {
		return nil, fmt.Errorf("modbus meter: expected 1 register, got %d", len(regs))
	}

	return device.Payload{c.cfg.Field: float64(regs[0])}, nil
}

// ---- helpers ----

// comPort matches Windows serial ports, with or without the \\.\ device prefix.
var comPort = regexp.MustCompile(`(?i)^(\\\\\.\\)?COM[0-9]+$`)

// isSerial reports whether addr names a serial device rather than a TCP endpoint.
func isSerial(addr string) bool {
	return strings.HasPrefix(addr, "/dev/") || comPort.MatchString(addr)
}

// Modbus register memory order (BIG-ENDIAN)
func unpackRegisters(data []byte) []uint16 {
	n := len(data) / 2
	out := make([]uint16, n)
	for i := 0; i < n; i++ {
		out[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return out
}
