package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAppliesDefaultsWhenFileAbsent(t *testing.T) {
	fc, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if fc.Misc.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %q", fc.Misc.LogLevel)
	}
	if fc.Misc.TickInterval != time.Second {
		t.Fatalf("expected default tick interval 1s, got %v", fc.Misc.TickInterval)
	}
	if fc.Session.Backend != "tmux" {
		t.Fatalf("expected default backend tmux, got %q", fc.Session.Backend)
	}
}

func TestLoadParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aflr_cfg.toml")
	content := `
[target]
binary = "/bin/target"
seed_dir = "/seeds"

[afl_cfg]
workers = 4
mode = "multiple-cores"

[misc]
log_level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	fc, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if fc.Target.Binary != "/bin/target" {
		t.Fatalf("unexpected target binary: %q", fc.Target.Binary)
	}
	if fc.AFL.Workers != 4 {
		t.Fatalf("unexpected workers: %d", fc.AFL.Workers)
	}
	if fc.Misc.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", fc.Misc.LogLevel)
	}
}

func TestAppConfigExtractsAmbientSubset(t *testing.T) {
	fc := &FileConfig{}
	fc.Misc.LogLevel = "warn"
	fc.Misc.TickInterval = 2 * time.Second

	ac := fc.AppConfig()
	if ac.LogLevel != "warn" || ac.TickInterval != 2*time.Second {
		t.Fatalf("unexpected AppConfig: %+v", ac)
	}
}
