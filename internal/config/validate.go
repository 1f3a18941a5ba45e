// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
)

// Error reports missing or malformed configuration.
// It is always fatal at startup.
type Error struct {
	Key string
	Msg string
	Err error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	if e.Key == "" {
		return "config: " + msg
	}
	return fmt.Sprintf("config: %s: %s", e.Key, msg)
}

func (e *Error) Unwrap() error { return e.Err }

func invalid(key, format string, args ...any) error {
	return &Error{Key: key, Msg: fmt.Sprintf(format, args...)}
}

// ProtocolVersions is the set of Tuya local protocol versions spoken by
// the tuya driver.
var ProtocolVersions = []string{"3.1", "3.3", "3.4"}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return &Error{Msg: "no configuration"}
	}

	if cfg.SampleIntervalSeconds == nil || *cfg.SampleIntervalSeconds <= 0 {
		return invalid("sample_interval_seconds", "must be a positive integer")
	}
	if *cfg.SampleIntervalSeconds > MaxSampleIntervalSeconds {
		return invalid("sample_interval_seconds", "must be at most %d (24h), got %d", MaxSampleIntervalSeconds, *cfg.SampleIntervalSeconds)
	}

	// ------------------------------------------------------------
	// DEVICE CREDENTIALS
	// ------------------------------------------------------------

	if cfg.DeviceAddress == "" {
		return invalid("device_address", "required")
	}

	switch cfg.DeviceDriver {
	case DriverTuya:
		if cfg.DeviceID == "" {
			return invalid("device_id", "required for the tuya driver")
		}
		if cfg.DeviceLocalKey == "" {
			return invalid("device_local_key", "required for the tuya driver")
		}
		if len(cfg.DeviceLocalKey) != 16 {
			return invalid("device_local_key", "must be exactly 16 bytes, got %d", len(cfg.DeviceLocalKey))
		}
		if !supportedVersion(cfg.DeviceProtocolVersion) {
			return invalid(
				"device_protocol_version",
				"unsupported version %q (supported: %v)",
				cfg.DeviceProtocolVersion,
				ProtocolVersions,
			)
		}

	case DriverModbus:
		if cfg.ModbusFunction != ModbusHolding && cfg.ModbusFunction != ModbusInput {
			return invalid("modbus_function", "must be %q or %q, got %q", ModbusHolding, ModbusInput, cfg.ModbusFunction)
		}
		if cfg.ModbusBaudRate <= 0 {
			return invalid("modbus_baud_rate", "must be > 0")
		}

	default:
		return invalid("device_driver", "unknown driver %q", cfg.DeviceDriver)
	}

	// ------------------------------------------------------------
	// TIMING
	// ------------------------------------------------------------

	if cfg.DeviceTimeoutMs <= 0 {
		return invalid("device_timeout_ms", "must be > 0")
	}
	// Compared in milliseconds so an oversized value cannot wrap.
	if cfg.DeviceTimeoutMs >= *cfg.SampleIntervalSeconds*1000 {
		return invalid(
			"device_timeout_ms",
			"%dms must be strictly less than the sample interval %ds",
			cfg.DeviceTimeoutMs,
			*cfg.SampleIntervalSeconds,
		)
	}

	if cfg.PowerField == "" {
		return invalid("power_field", "required")
	}
	if cfg.LogPath == "" {
		return invalid("log_path", "required")
	}

	return nil
}

func supportedVersion(v string) bool {
	for _, s := range ProtocolVersions {
		if s == v {
			return true
		}
	}
	return false
}

// IsError reports whether err is (or wraps) a configuration error.
func IsError(err error) bool {
	var ce *Error
	return errors.As(err, &ce)
}
