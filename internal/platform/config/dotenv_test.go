package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "fusion.env")
	if err := os.WriteFile(p, []byte("OSRP_TEST_FREQ=5m\nOSRP_TEST_KEEP=fromfile\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OSRP_TEST_KEEP", "fromenv")
	_ = os.Unsetenv("OSRP_TEST_FREQ")
	t.Cleanup(func() { _ = os.Unsetenv("OSRP_TEST_FREQ") })

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), p); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	c := New().Prefix("OSRP_TEST_")
	if got := c.MayDuration("FREQ", time.Hour); got != 5*time.Minute {
		t.Fatalf("FREQ = %v, want 5m", got)
	}
	if got := c.MayString("KEEP", ""); got != "fromenv" {
		t.Fatalf("existing env overridden: %q", got)
	}
}

func TestMayLocation(t *testing.T) {
	t.Setenv("STUDY_TZ", "America/New_York")
	c := New().Prefix("STUDY_")
	loc := c.MayLocation("TZ", time.UTC)
	if loc.String() != "America/New_York" {
		t.Fatalf("loc = %v", loc)
	}

	t.Setenv("STUDY_TZ", "Mars/Olympus")
	if got := c.MayLocation("TZ", time.UTC); got != time.UTC {
		t.Fatalf("unknown zone should fall back, got %v", got)
	}
}
