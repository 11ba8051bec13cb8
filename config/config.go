// Package config loads the device pool description for a host manager
// from a TOML file.
//
//	log_level = "debug"
//
//	[[devices]]
//	kind = "interpreter"
//	ordinal = 0
//
//	[[devices]]
//	kind = "wasm"
//	ordinal = 0
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/flowgrid/graph-runtime/device"
	"github.com/flowgrid/graph-runtime/errors"
)

type File struct {
	LogLevel string        `toml:"log_level"`
	Devices  []DeviceEntry `toml:"devices"`
}

type DeviceEntry struct {
	Kind    string `toml:"kind"`
	Ordinal int    `toml:"ordinal"`
}

var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "read "+path)
	}
	return Parse(data)
}

// Parse decodes a config document and applies defaults: log_level
// defaults to info and must name one device at minimum.
func Parse(data []byte) (*File, error) {
	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse config")
	}
	if f.LogLevel == "" {
		f.LogLevel = "info"
	}
	if !logLevels[f.LogLevel] {
		return nil, errors.InvalidInput(errors.PhaseConfig, "log_level must be debug, info, warn or error")
	}
	if len(f.Devices) == 0 {
		return nil, errors.InvalidInput(errors.PhaseConfig, "at least one [[devices]] entry required")
	}
	for _, d := range f.Devices {
		if d.Kind == "" {
			return nil, errors.InvalidInput(errors.PhaseConfig, "device entry missing kind")
		}
		if d.Ordinal < 0 {
			return nil, errors.InvalidInput(errors.PhaseConfig, "device ordinal must be non-negative")
		}
	}
	return &f, nil
}

// DeviceConfigs converts the parsed entries into the device pool
// handed to host.New. Kind validity is checked at provisioning, where
// the registered backends are known.
func (f *File) DeviceConfigs() []device.Config {
	configs := make([]device.Config, len(f.Devices))
	for i, d := range f.Devices {
		configs[i] = device.Config{Kind: device.Kind(d.Kind), Ordinal: d.Ordinal}
	}
	return configs
}
