// internal/config/validate_test.go
package config

import (
	"strings"
	"testing"
	"time"
)

// helper to build a valid tuya config quickly
func tuyaConfig() *Config {
	cfg := &Config{
		DeviceID:       "bf7d7112af5c45620etril",
		DeviceAddress:  "192.168.137.75",
		DeviceLocalKey: "0123456789abcdef",
	}
	Normalize(cfg)
	return cfg
}

func intPtr(v int) *int { return &v }

// ---- tests ----

func TestNormalize_Defaults(t *testing.T) {
	cfg := tuyaConfig()

	if cfg.Interval() != 20*time.Second {
		t.Fatalf("interval: got=%v want=20s", cfg.Interval())
	}
	if cfg.DeviceDriver != DriverTuya {
		t.Fatalf("driver: got=%q want=%q", cfg.DeviceDriver, DriverTuya)
	}
	if cfg.DeviceProtocolVersion != DefaultProtocolVersion {
		t.Fatalf("version: got=%q", cfg.DeviceProtocolVersion)
	}
	if cfg.PowerField != "19" {
		t.Fatalf("power field: got=%q want=19", cfg.PowerField)
	}
	if cfg.Timeout() != 5*time.Second {
		t.Fatalf("timeout: got=%v want=5s", cfg.Timeout())
	}
	if cfg.LogPath != DefaultLogPath {
		t.Fatalf("log path: got=%q", cfg.LogPath)
	}

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNormalize_ShortIntervalShrinksTimeout(t *testing.T) {
	cfg := &Config{SampleIntervalSeconds: intPtr(1)}
	Normalize(cfg)

	if cfg.Timeout() != 500*time.Millisecond {
		t.Fatalf("timeout: got=%v want=500ms", cfg.Timeout())
	}
}

func TestNormalize_LegacyIntervalKey(t *testing.T) {
	cfg := &Config{LegacySampleIntervalSeconds: intPtr(5)}
	Normalize(cfg)
	if cfg.Interval() != 5*time.Second {
		t.Fatalf("legacy interval not applied: got=%v", cfg.Interval())
	}

	cfg = &Config{SampleIntervalSeconds: intPtr(7), LegacySampleIntervalSeconds: intPtr(5)}
	Normalize(cfg)
	if cfg.Interval() != 7*time.Second {
		t.Fatalf("explicit key should win: got=%v", cfg.Interval())
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	cases := map[string]func(*Config){
		"device_id":        func(c *Config) { c.DeviceID = "" },
		"device_address":   func(c *Config) { c.DeviceAddress = "" },
		"device_local_key": func(c *Config) { c.DeviceLocalKey = "" },
	}

	for key, mutate := range cases {
		cfg := tuyaConfig()
		mutate(cfg)

		err := Validate(cfg)
		if err == nil {
			t.Fatalf("%s: expected error, got nil", key)
		}
		if !IsError(err) {
			t.Fatalf("%s: expected *config.Error, got %T", key, err)
		}
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("%s: message should name the key: %v", key, err)
		}
	}
}

func TestValidate_NonPositiveInterval(t *testing.T) {
	for _, v := range []int{0, -5} {
		cfg := tuyaConfig()
		cfg.SampleIntervalSeconds = intPtr(v)
		if err := Validate(cfg); err == nil {
			t.Fatalf("interval %d: expected error", v)
		}
	}
}

func TestValidate_IntervalTooLarge(t *testing.T) {
	// 18446744074s wraps time.Duration to roughly 290ms.
	for _, v := range []int{MaxSampleIntervalSeconds + 1, 18446744074} {
		cfg := &Config{
			SampleIntervalSeconds: intPtr(v),
			DeviceID:              "bf7d7112af5c45620etril",
			DeviceAddress:         "192.168.137.75",
			DeviceLocalKey:        "0123456789abcdef",
		}
		Normalize(cfg)

		err := Validate(cfg)
		if err == nil || !strings.Contains(err.Error(), "sample_interval_seconds") {
			t.Fatalf("interval %d: expected sample_interval_seconds error, got %v", v, err)
		}
	}

	cfg := tuyaConfig()
	cfg.SampleIntervalSeconds = intPtr(MaxSampleIntervalSeconds)
	if err := Validate(cfg); err != nil {
		t.Fatalf("one day interval: unexpected error: %v", err)
	}
}

func TestValidate_HugeTimeoutDoesNotWrap(t *testing.T) {
	cfg := tuyaConfig()
	cfg.DeviceTimeoutMs = 9_300_000_000_000 // wraps time.Duration when scaled to ms
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestValidate_LocalKeyLength(t *testing.T) {
	cfg := tuyaConfig()
	cfg.DeviceLocalKey = "short"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected key length error")
	}
}

func TestValidate_UnsupportedProtocolVersion(t *testing.T) {
	cfg := tuyaConfig()
	cfg.DeviceProtocolVersion = "3.9"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected version error")
	}

	for _, v := range ProtocolVersions {
		cfg.DeviceProtocolVersion = v
		if err := Validate(cfg); err != nil {
			t.Fatalf("version %s: unexpected error: %v", v, err)
		}
	}
}

func TestValidate_TimeoutMustBeBelowInterval(t *testing.T) {
	cfg := tuyaConfig()
	cfg.DeviceTimeoutMs = 20_000 // == interval
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestValidate_ModbusDoesNotNeedLocalKey(t *testing.T) {
	cfg := &Config{
		DeviceID:      "meter-1",
		DeviceAddress: "10.0.0.5:502",
		DeviceDriver:  "Modbus",
	}
	Normalize(cfg)

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ModbusFunction != ModbusHolding || cfg.ModbusUnitID != 1 {
		t.Fatalf("modbus defaults not applied: %+v", cfg)
	}

	cfg.ModbusFunction = "coils"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected modbus_function error")
	}
}

func TestValidate_ModbusDoesNotNeedDeviceID(t *testing.T) {
	cfg := &Config{
		DeviceAddress: "compteur.lan:502",
		DeviceDriver:  DriverModbus,
	}
	Normalize(cfg)

	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Tuya still needs it to address the device.
	tc := tuyaConfig()
	tc.DeviceID = ""
	if err := Validate(tc); err == nil || !strings.Contains(err.Error(), "device_id") {
		t.Fatalf("tuya: expected device_id error, got %v", err)
	}
}

func TestValidate_UnknownDriver(t *testing.T) {
	cfg := tuyaConfig()
	cfg.DeviceDriver = "zigbee"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected driver error")
	}
}

func TestRedacted(t *testing.T) {
	cfg := tuyaConfig()
	r := cfg.Redacted()
	if r.DeviceLocalKey != "****" {
		t.Fatalf("key not redacted: %q", r.DeviceLocalKey)
	}
	if cfg.DeviceLocalKey != "0123456789abcdef" {
		t.Fatalf("Redacted mutated the original")
	}
}
