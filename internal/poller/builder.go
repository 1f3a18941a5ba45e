// internal/poller/builder.go
package poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tamzrod/powerlog/internal/clock"
	cfg "github.com/tamzrod/powerlog/internal/config"
	"github.com/tamzrod/powerlog/internal/device"
	dmodbus "github.com/tamzrod/powerlog/internal/device/modbus"
	"github.com/tamzrod/powerlog/internal/device/tuya"
)

// Build constructs a Reader and wires the device connection lifecycle.
// The session is reused while healthy.
// On transport death the Handle discards it and redials on a future tick.
// An unreachable device at startup is not fatal.
func Build(ctx context.Context, c *cfg.Config, clk clock.Clock, log *slog.Logger) (*Reader, func() error, error) {
	dial, err := Dialer(c, clk)
	if err != nil {
		return nil, nil, err
	}

	h := device.NewHandle(dial, c.Timeout(), log)

	if err := h.Connect(ctx); err != nil {
		log.Warn("device not reachable at startup, will retry on the first tick",
			"address", c.DeviceAddress,
			"err", err,
		)
	} else {
		log.Info("connected to device", "address", c.DeviceAddress, "driver", c.DeviceDriver)
	}

	return NewReader(h, c.PowerField, clk), h.Close, nil
}

// Dialer returns the session factory for the configured driver.
// ONE attempt per call.
func Dialer(c *cfg.Config, clk clock.Clock) (device.Dialer, error) {
	switch c.DeviceDriver {
	case cfg.DriverTuya:
		tc := tuya.Config{
			ID:       c.DeviceID,
			Address:  c.DeviceAddress,
			LocalKey: c.DeviceLocalKey,
			Version:  c.DeviceProtocolVersion,
			Now:      clk.Now,
		}
		return func(ctx context.Context) (device.Session, error) {
			s, err := tuya.Dial(ctx, tc)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil

	case cfg.DriverModbus:
		mc := dmodbus.Config{
			Address:  c.DeviceAddress,
			UnitID:   c.ModbusUnitID,
			Register: c.ModbusRegister,
			Function: c.ModbusFunction,
			Field:    c.PowerField,
			BaudRate: c.ModbusBaudRate,
			Timeout:  c.Timeout(),
		}
		return func(ctx context.Context) (device.Session, error) {
			s, err := dmodbus.Dial(mc)
			if err != nil {
				return nil, err
			}
			return s, nil
		}, nil

	default:
		return nil, fmt.Errorf("poller: unknown device driver %q", c.DeviceDriver)
	}
}
