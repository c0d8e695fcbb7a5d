package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"TROONS_WORKERS", "TROONS_TICK_INTERVAL", "TROONS_METRICS_ADDR",
		"TROONS_DWELL_PADDING", "TROONS_LINK_COOLDOWN",
	} {
		t.Setenv(key, "")
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg := Load()
	if cfg.Workers != 1 || cfg.TickInterval != 0 || cfg.MetricsAddr != "" {
		t.Fatalf("Load() = %+v", cfg)
	}
	if cfg.DwellPadding != 2 || cfg.LinkCooldown != 1 {
		t.Fatalf("rules = %d/%d, want 2/1", cfg.DwellPadding, cfg.LinkCooldown)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("TROONS_WORKERS", "4")
	t.Setenv("TROONS_TICK_INTERVAL", "250ms")
	t.Setenv("TROONS_METRICS_ADDR", ":9102")
	t.Setenv("TROONS_DWELL_PADDING", "not-a-number")
	t.Setenv("TROONS_LINK_COOLDOWN", "3")

	cfg := fromEnv()
	if cfg.Workers != 4 {
		t.Fatalf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.TickInterval != 250*time.Millisecond {
		t.Fatalf("TickInterval = %v, want 250ms", cfg.TickInterval)
	}
	if cfg.MetricsAddr != ":9102" {
		t.Fatalf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	if cfg.DwellPadding != 2 {
		t.Fatalf("DwellPadding = %d, want default on parse failure", cfg.DwellPadding)
	}
	if cfg.LinkCooldown != 3 {
		t.Fatalf("LinkCooldown = %d, want 3", cfg.LinkCooldown)
	}
}

func TestLoadFileDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "troons.env")
	if err := os.WriteFile(path, []byte("TROONS_WORKERS=8\nTROONS_LINK_COOLDOWN=2\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("TROONS_WORKERS", "3")
	t.Setenv("TROONS_LINK_COOLDOWN", "")
	os.Unsetenv("TROONS_LINK_COOLDOWN")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Workers != 3 {
		t.Fatalf("Workers = %d, want environment value 3", cfg.Workers)
	}
	if cfg.LinkCooldown != 2 {
		t.Fatalf("LinkCooldown = %d, want file value 2", cfg.LinkCooldown)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Fatalf("LoadFile accepted a missing file")
	}
}

func TestResolveWorkers(t *testing.T) {
	if got := ResolveWorkers(3); got != 3 {
		t.Fatalf("ResolveWorkers(3) = %d", got)
	}
	if got := ResolveWorkers(0); got < 1 {
		t.Fatalf("ResolveWorkers(0) = %d, want at least 1", got)
	}
}
