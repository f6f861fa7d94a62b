package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	yaml := `
inputs:
  orders: exports/ORDERS*.csv
  reference:
    workbook: reference.xlsx
pipeline:
  granularity: monthly
sink:
  driver: sqlite
  path: out.db
  dataset: calc-2019
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Inputs.Orders != "exports/ORDERS*.csv" {
		t.Errorf("Inputs.Orders = %q, want %q", cfg.Inputs.Orders, "exports/ORDERS*.csv")
	}
	if cfg.Pipeline.Granularity != "monthly" {
		t.Errorf("Pipeline.Granularity = %q, want %q", cfg.Pipeline.Granularity, "monthly")
	}
	if cfg.Sink.Dataset != "calc-2019" {
		t.Errorf("Sink.Dataset = %q, want %q", cfg.Sink.Dataset, "calc-2019")
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("CALCULATIONS_DATASET_ID", "sheet-abc123")

	yaml := `
inputs:
  reference:
    workbook: reference.xlsx
sink:
  dataset: ${CALCULATIONS_DATASET_ID}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Sink.Dataset != "sheet-abc123" {
		t.Errorf("Sink.Dataset = %q, want %q", cfg.Sink.Dataset, "sheet-abc123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
inputs:
  reference:
    workbook: reference.xlsx
sink:
  dataset: calc
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Inputs.Orders != DefaultOrdersGlob {
		t.Errorf("Inputs.Orders = %q, want %q", cfg.Inputs.Orders, DefaultOrdersGlob)
	}
	if cfg.Inputs.Reference.LiquidationLimits != DefaultLimitsSheet {
		t.Errorf("Reference.LiquidationLimits = %q, want %q", cfg.Inputs.Reference.LiquidationLimits, DefaultLimitsSheet)
	}
	if cfg.Pipeline.SmoothingWindow != DefaultSmoothingWindow {
		t.Errorf("Pipeline.SmoothingWindow = %d, want %d", cfg.Pipeline.SmoothingWindow, DefaultSmoothingWindow)
	}
	if cfg.Sink.Driver != "sqlite" || cfg.Sink.Path != DefaultSQLitePath {
		t.Errorf("Sink = %+v, want sqlite at %q", cfg.Sink, DefaultSQLitePath)
	}
	if cfg.Limits.DefaultFraction != DefaultLiquidationFrac {
		t.Errorf("Limits.DefaultFraction = %v, want %v", cfg.Limits.DefaultFraction, DefaultLiquidationFrac)
	}
}

func TestLoadAndValidate(t *testing.T) {
	yaml := `
inputs:
  reference:
    workbook: reference
sink:
  dataset: calc
`
	path := writeTempFile(t, yaml)

	if _, err := LoadAndValidate(path); err != nil {
		t.Fatalf("LoadAndValidate failed: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing workbook", func(c *Config) { c.Inputs.Reference.Workbook = "" }, true},
		{"missing dataset", func(c *Config) { c.Sink.Dataset = "" }, true},
		{"unknown driver", func(c *Config) { c.Sink.Driver = "sheets" }, true},
		{"postgres without dsn", func(c *Config) { c.Sink.Driver = "postgres" }, true},
		{"postgres with dsn", func(c *Config) {
			c.Sink.Driver = "postgres"
			c.Sink.DSN = "postgres://localhost/salesmix"
		}, false},
		{"kafka without topic", func(c *Config) { c.Manifest.Kafka.Brokers = "localhost:9092" }, true},
		{"bad granularity", func(c *Config) { c.Pipeline.Granularity = "weekly" }, true},
		{"window too large", func(c *Config) { c.Pipeline.SmoothingWindow = 24 }, true},
		{"fraction above one", func(c *Config) { c.Limits.DefaultFraction = 1.5 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestParseInvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("sink: [")); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.Inputs.Reference.Workbook = "reference.xlsx"
	cfg.Sink.Dataset = "calc"
	cfg.ApplyDefaults()
	return cfg
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "salesmix.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
