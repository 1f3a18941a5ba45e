// internal/config/normalize.go
package config

import "strings"

// Normalize fills in documented defaults.
// It is allowed to mutate configuration.
// It MUST be called before Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	// Explicit key wins over the legacy one.
	if cfg.SampleIntervalSeconds == nil && cfg.LegacySampleIntervalSeconds != nil {
		v := *cfg.LegacySampleIntervalSeconds
		cfg.SampleIntervalSeconds = &v
	}
	if cfg.SampleIntervalSeconds == nil {
		v := DefaultSampleIntervalSeconds
		cfg.SampleIntervalSeconds = &v
	}

	cfg.DeviceDriver = strings.ToLower(strings.TrimSpace(cfg.DeviceDriver))
	if cfg.DeviceDriver == "" {
		cfg.DeviceDriver = DriverTuya
	}

	cfg.DeviceProtocolVersion = strings.TrimSpace(cfg.DeviceProtocolVersion)
	if cfg.DeviceProtocolVersion == "" {
		cfg.DeviceProtocolVersion = DefaultProtocolVersion
	}

	if cfg.PowerField == "" {
		cfg.PowerField = DefaultPowerField
	}

	// ------------------------------------------------------------
	// DEVICE TIMEOUT: strictly below one interval
	// ------------------------------------------------------------
	if n := *cfg.SampleIntervalSeconds; cfg.DeviceTimeoutMs == 0 && n > 0 && n <= MaxSampleIntervalSeconds {
		timeout := DefaultTimeout
		if half := cfg.Interval() / 2; half < timeout {
			timeout = half
		}
		cfg.DeviceTimeoutMs = int(timeout.Milliseconds())
	}

	if cfg.DeviceDriver == DriverModbus {
		cfg.ModbusFunction = strings.ToLower(strings.TrimSpace(cfg.ModbusFunction))
		if cfg.ModbusFunction == "" {
			cfg.ModbusFunction = ModbusHolding
		}
		if cfg.ModbusUnitID == 0 {
			cfg.ModbusUnitID = 1
		}
		if cfg.ModbusBaudRate == 0 {
			cfg.ModbusBaudRate = DefaultModbusBaudRate
		}
	}

	if cfg.LogPath == "" {
		cfg.LogPath = DefaultLogPath
	}
}
