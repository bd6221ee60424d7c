package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Inputs.TransactionsFile != "data_cleaned.csv" {
		t.Errorf("TransactionsFile = %q, want data_cleaned.csv", cfg.Inputs.TransactionsFile)
	}
	if cfg.Inputs.Delimiter != 0 {
		t.Errorf("Delimiter = %q, want auto-detect", cfg.Inputs.Delimiter)
	}
	if cfg.Processing.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Processing.Workers)
	}
	if cfg.Processing.ProgressInterval != 2*time.Second {
		t.Errorf("ProgressInterval = %v, want 2s", cfg.Processing.ProgressInterval)
	}
	if cfg.Processing.Timeout != 10*time.Minute {
		t.Errorf("Timeout = %v, want 10m", cfg.Processing.Timeout)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
	if cfg.Outputs.SQLiteFile != "" {
		t.Error("sqlite export should be disabled by default")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRANSACTIONS_FILE", "tx.tsv")
	t.Setenv("CSV_DELIMITER", "tab")
	t.Setenv("WORKERS", "8")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Inputs.TransactionsFile != "tx.tsv" {
		t.Errorf("TransactionsFile = %q", cfg.Inputs.TransactionsFile)
	}
	if cfg.Inputs.Delimiter != '\t' {
		t.Errorf("Delimiter = %q, want tab", cfg.Inputs.Delimiter)
	}
	if cfg.Processing.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Processing.Workers)
	}
	if cfg.Cache.Enabled {
		t.Error("cache should be disabled")
	}
	if cfg.Logger.Format != "text" {
		t.Errorf("Logger.Format = %q", cfg.Logger.Format)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero workers", "WORKERS", "0"},
		{"negative batch", "BATCH_SIZE", "-1"},
		{"bad log level", "LOG_LEVEL", "verbose"},
		{"bad log format", "LOG_FORMAT", "xml"},
		{"multi-char delimiter", "CSV_DELIMITER", "||"},
		{"negative top customers", "CITY_TOP_CUSTOMERS", "-5"},
		{"negative timeout", "RUN_TIMEOUT", "-1m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s should fail", tt.key, tt.value)
			}
		})
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		in   string
		want rune
	}{
		{"", 0},
		{"auto", 0},
		{"tab", '\t'},
		{"comma", ','},
		{";", ';'},
		{"|", '|'},
	}

	for _, tt := range tests {
		got, err := parseDelimiter(tt.in)
		if err != nil {
			t.Errorf("parseDelimiter(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDelimiter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutputPath(t *testing.T) {
	cfg := &Config{Outputs: OutputConfig{Dir: "out"}}

	if got := cfg.OutputPath("a.json"); got != filepath.Join("out", "a.json") {
		t.Errorf("OutputPath(relative) = %q", got)
	}
	abs := filepath.Join(t.TempDir(), "b.json")
	if got := cfg.OutputPath(abs); got != abs {
		t.Errorf("OutputPath(absolute) = %q, want %q", got, abs)
	}
	if got := cfg.OutputPath(""); got != "" {
		t.Errorf("OutputPath(empty) = %q, want empty", got)
	}
}
