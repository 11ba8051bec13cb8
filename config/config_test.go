package config

import (
	"testing"

	"github.com/flowgrid/graph-runtime/device"
	rterrors "github.com/flowgrid/graph-runtime/errors"
)

func TestParse(t *testing.T) {
	f, err := Parse([]byte(`
log_level = "debug"

[[devices]]
kind = "interpreter"
ordinal = 0

[[devices]]
kind = "wasm"
ordinal = 1
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", f.LogLevel)
	}

	configs := f.DeviceConfigs()
	if len(configs) != 2 {
		t.Fatalf("DeviceConfigs() = %d entries, want 2", len(configs))
	}
	if configs[0].Kind != device.Interpreter || configs[0].Ordinal != 0 {
		t.Errorf("device 0 = %s", configs[0])
	}
	if configs[1].Kind != device.WASM || configs[1].Ordinal != 1 {
		t.Errorf("device 1 = %s", configs[1])
	}
}

func TestParseDefaultsLogLevel(t *testing.T) {
	f, err := Parse([]byte("[[devices]]\nkind = \"interpreter\"\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", f.LogLevel)
	}
}

func TestParseRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"malformed toml", "devices = ["},
		{"no devices", `log_level = "info"`},
		{"missing kind", "[[devices]]\nordinal = 0\n"},
		{"negative ordinal", "[[devices]]\nkind = \"interpreter\"\nordinal = -1\n"},
		{"bad level", "log_level = \"loud\"\n[[devices]]\nkind = \"interpreter\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if !rterrors.IsKind(err, rterrors.KindInvalidInput) {
				t.Errorf("parse: %v, want invalid_input", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does-not-exist.toml"); err == nil {
		t.Error("expected error for missing file")
	}
}
