package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MinSize != 50 || cfg.SizeDebounceMs != 500 || cfg.LogLevel != "info" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFromPathSparseFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "min_size: 100\nlog_level: debug\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.MinSize != 100 {
		t.Errorf("min_size = %d, want 100", cfg.MinSize)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.SizeDebounceMs != 500 {
		t.Errorf("size_debounce_ms = %d, want default 500", cfg.SizeDebounceMs)
	}
	if cfg.IdentifyMaxAttempts != 50 {
		t.Errorf("identify_max_attempts = %d, want default 50", cfg.IdentifyMaxAttempts)
	}
	if len(cfg.ProvisionalIDs) != 1 || cfg.ProvisionalIDs[0] != "org.gnome.nautilus" {
		t.Errorf("provisional_ids = %v, want default", cfg.ProvisionalIDs)
	}
}

func TestLoadFromPathMissingFileFails(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected an error for an explicit missing path")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		path    string
	}{
		{"bad log level", "log_level: loud\n", "log_level"},
		{"negative tolerance", "tolerance_px: -1\n", "tolerance_px"},
		{"empty transient pattern", "transient_id_patterns: [\"\"]\n", "transient_id_patterns"},
		{"negative reconcile", "reconcile_interval_seconds: -5\n", "reconcile_interval_seconds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFromPath(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.path) {
				t.Errorf("error %q does not mention %q", err, tt.path)
			}
		})
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("min_size: [nope\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestReconcileInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReconcileIntervalSeconds = nil
	if got := cfg.ReconcileInterval(); got != 30 {
		t.Errorf("unset interval = %d, want 30", got)
	}
	zero := 0
	cfg.ReconcileIntervalSeconds = &zero
	if got := cfg.ReconcileInterval(); got != 0 {
		t.Errorf("explicit zero = %d, want 0", got)
	}
}

func TestResolveStatePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	cfg := DefaultConfig()
	path, err := cfg.ResolveStatePath()
	if err != nil {
		t.Fatal(err)
	}
	if path != "/tmp/xdg-data/sizekeep/windows.json" {
		t.Errorf("state path = %q", path)
	}

	cfg.StatePath = "/elsewhere/windows.json"
	path, err = cfg.ResolveStatePath()
	if err != nil {
		t.Fatal(err)
	}
	if path != "/elsewhere/windows.json" {
		t.Errorf("override state path = %q", path)
	}
}
