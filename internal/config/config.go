// internal/config/config.go
package config

import "time"

// Supported device drivers.
const (
	DriverTuya   = "tuya"
	DriverModbus = "modbus"
)

// Supported Modbus register functions.
const (
	ModbusHolding = "holding"
	ModbusInput   = "input"
)

// Defaults applied by Normalize.
const (
	DefaultSampleIntervalSeconds = 20
	DefaultProtocolVersion       = "3.3"
	DefaultPowerField            = "19"
	DefaultLogPath               = "power_consumption_log.csv"
	DefaultModbusBaudRate        = 9600
	DefaultTimeout               = 5 * time.Second

	// MaxSampleIntervalSeconds caps the interval at one day.
	MaxSampleIntervalSeconds = 24 * 60 * 60
)

// Config is the flat option set of the logger.
// Keys match the shared config file of earlier deployments so existing files keep working.
type Config struct {
	SampleIntervalSeconds *int `yaml:"sample_interval_seconds" json:"sample_interval_seconds"`

	// LegacySampleIntervalSeconds is the key used by the shared config.json
	// of the workstation scripts. Only read from JSON files.
	LegacySampleIntervalSeconds *int `yaml:"-" json:"SampleIntervalSeconds"`

	// ---- DEVICE ----

	DeviceID              string `yaml:"device_id" json:"device_id"`
	DeviceAddress         string `yaml:"device_address" json:"device_address"`
	DeviceLocalKey        string `yaml:"device_local_key" json:"device_local_key"`
	DeviceProtocolVersion string `yaml:"device_protocol_version" json:"device_protocol_version"`
	DeviceDriver          string `yaml:"device_driver" json:"device_driver"`
	DeviceTimeoutMs       int    `yaml:"device_timeout_ms" json:"device_timeout_ms"`

	// PowerField is the DPS key holding instantaneous power in tenths of a watt.
	PowerField string `yaml:"power_field" json:"power_field"`

	// ---- MODBUS (device_driver: modbus) ----

	ModbusUnitID   uint8  `yaml:"modbus_unit_id" json:"modbus_unit_id"`
	ModbusRegister uint16 `yaml:"modbus_register" json:"modbus_register"`
	ModbusFunction string `yaml:"modbus_function" json:"modbus_function"`
	ModbusBaudRate int    `yaml:"modbus_baud_rate" json:"modbus_baud_rate"`

	// ---- OUTPUT ----

	LogPath     string `yaml:"log_path" json:"log_path"`
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
}

// Interval returns the sample interval. Valid only after Normalize.
func (c *Config) Interval() time.Duration {
	if c.SampleIntervalSeconds == nil {
		return 0
	}
	return time.Duration(*c.SampleIntervalSeconds) * time.Second
}

// Timeout returns the per-call device I/O bound.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.DeviceTimeoutMs) * time.Millisecond
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.DeviceLocalKey != "" {
		c.DeviceLocalKey = "****"
	}
	return c
}
