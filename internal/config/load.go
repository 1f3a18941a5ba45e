// internal/config/load.go
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "POWERLOG_"

// LookupFunc resolves an environment variable. os.LookupEnv in production.
type LookupFunc func(key string) (string, bool)

// Load reads, overrides, normalizes and validates the configuration.
// An empty path means environment-only configuration.
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment.
func LoadWithEnv(path string, lookup LookupFunc) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, &Error{Msg: "cannot read " + path, Err: err}
		}
		if err := Decode(path, raw, cfg); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	Normalize(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode parses raw into cfg. The format follows the file extension:
// .yaml/.yml for YAML, .json/.jsonc for JSON with comments.
func Decode(path string, raw []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return &Error{Msg: "cannot parse " + path, Err: err}
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(raw), cfg); err != nil {
			return &Error{Msg: "cannot parse " + path, Err: err}
		}
	default:
		return &Error{Msg: "unsupported config file extension " + strconv.Quote(filepath.Ext(path))}
	}
	return nil
}

func applyEnv(cfg *Config, lookup LookupFunc) error {
	if lookup == nil {
		return nil
	}

	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, set func(int)) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return &Error{Key: EnvPrefix + name, Msg: "not an integer", Err: err}
		}
		set(n)
		return nil
	}

	if err := num("SAMPLE_INTERVAL_SECONDS", func(n int) { cfg.SampleIntervalSeconds = &n }); err != nil {
		return err
	}
	if err := num("DEVICE_TIMEOUT_MS", func(n int) { cfg.DeviceTimeoutMs = n }); err != nil {
		return err
	}

	str("DEVICE_ID", &cfg.DeviceID)
	str("DEVICE_ADDRESS", &cfg.DeviceAddress)
	str("DEVICE_LOCAL_KEY", &cfg.DeviceLocalKey)
	str("DEVICE_PROTOCOL_VERSION", &cfg.DeviceProtocolVersion)
	str("DEVICE_DRIVER", &cfg.DeviceDriver)
	str("LOG_PATH", &cfg.LogPath)
	str("METRICS_ADDR", &cfg.MetricsAddr)

	return nil
}
