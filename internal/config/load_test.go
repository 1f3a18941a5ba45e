// internal/config/load_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func noEnv(string) (string, bool) { return "", false }

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
sample_interval_seconds: 10
device_id: dev-1
device_address: 192.168.1.20
device_local_key: "gF?1GOU1#WE{8hvy"
device_protocol_version: "3.4"
log_path: /var/lib/powerlog/plug.csv
`)

	cfg, err := LoadWithEnv(path, noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Interval() != 10*time.Second {
		t.Fatalf("interval: got=%v want=10s", cfg.Interval())
	}
	if cfg.DeviceProtocolVersion != "3.4" {
		t.Fatalf("version: got=%q", cfg.DeviceProtocolVersion)
	}
	if cfg.LogPath != "/var/lib/powerlog/plug.csv" {
		t.Fatalf("log path: got=%q", cfg.LogPath)
	}
}

func TestLoad_JSONWithCommentsAndLegacyKey(t *testing.T) {
	path := writeFile(t, "config.json", `{
  // shared with the workstation scripts
  "SampleIntervalSeconds": 30,
  "device_id": "dev-1",
  "device_address": "192.168.1.20",
  "device_local_key": "0123456789abcdef", /* trailing comma below */
}`)

	cfg, err := LoadWithEnv(path, noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Interval() != 30*time.Second {
		t.Fatalf("interval: got=%v want=30s", cfg.Interval())
	}
}

func TestLoad_MissingIntervalUsesDefault(t *testing.T) {
	path := writeFile(t, "config.json", `{"device_id":"d","device_address":"a","device_local_key":"0123456789abcdef"}`)

	cfg, err := LoadWithEnv(path, noEnv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Interval() != DefaultSampleIntervalSeconds*time.Second {
		t.Fatalf("interval: got=%v", cfg.Interval())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", `
device_id: from-file
device_address: 10.0.0.1
device_local_key: "0123456789abcdef"
`)
	env := map[string]string{
		"POWERLOG_DEVICE_ID":               "from-env",
		"POWERLOG_SAMPLE_INTERVAL_SECONDS": "3",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg, err := LoadWithEnv(path, lookup)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DeviceID != "from-env" {
		t.Fatalf("device id: got=%q want=from-env", cfg.DeviceID)
	}
	if cfg.Interval() != 3*time.Second {
		t.Fatalf("interval: got=%v want=3s", cfg.Interval())
	}
}

func TestLoad_EnvOnly(t *testing.T) {
	env := map[string]string{
		"POWERLOG_DEVICE_ID":        "d",
		"POWERLOG_DEVICE_ADDRESS":   "a",
		"POWERLOG_DEVICE_LOCAL_KEY": "0123456789abcdef",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	if _, err := LoadWithEnv("", lookup); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	bad := map[string]string{
		"missing file":   filepath.Join(t.TempDir(), "nope.json"),
		"bad yaml":       writeFile(t, "bad.yaml", "device_id: [unterminated"),
		"bad extension":  writeFile(t, "config.toml", "device_id = 'x'"),
		"missing creds":  writeFile(t, "empty.yaml", "sample_interval_seconds: 5\n"),
		"negative value": writeFile(t, "neg.yaml", "sample_interval_seconds: -1\ndevice_id: d\ndevice_address: a\ndevice_local_key: '0123456789abcdef'\n"),
	}

	for name, path := range bad {
		_, err := LoadWithEnv(path, noEnv)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !IsError(err) {
			t.Fatalf("%s: expected *config.Error, got %T: %v", name, err, err)
		}
	}
}

func TestLoad_BadEnvInteger(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "POWERLOG_SAMPLE_INTERVAL_SECONDS" {
			return "twenty", true
		}
		return "", false
	}
	if _, err := LoadWithEnv("", lookup); !IsError(err) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestLoad_OversizedIntervalRejected(t *testing.T) {
	env := map[string]string{
		"POWERLOG_DEVICE_ID":               "d",
		"POWERLOG_DEVICE_ADDRESS":          "a",
		"POWERLOG_DEVICE_LOCAL_KEY":        "0123456789abcdef",
		"POWERLOG_SAMPLE_INTERVAL_SECONDS": "18446744074",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg, err := LoadWithEnv("", lookup)
	if !IsError(err) {
		t.Fatalf("expected *config.Error, got cfg=%+v err=%v", cfg, err)
	}
}
