package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mlfq-scheduler/pkg/mlfq"
)

func withEnv(t *testing.T, env map[string]string) {
	t.Helper()

	prev := lookupEnv

	lookupEnv = func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	t.Cleanup(func() { lookupEnv = prev })
}

func TestLoadRuntimeConfigDefaultsWithoutFileOrEnv(t *testing.T) {
	withEnv(t, nil)

	cfg, err := loadRuntimeConfig("")
	if err != nil {
		t.Fatalf("loadRuntimeConfig: %v", err)
	}

	want := defaultRuntimeConfig()
	if cfg.Policy != want.Policy {
		t.Fatalf("expected default policy config, got %+v", cfg.Policy)
	}

	if cfg.HTTPAddr != want.HTTPAddr || cfg.LockFile != want.LockFile {
		t.Fatalf("expected default addr/lockfile, got %q / %q", cfg.HTTPAddr, cfg.LockFile)
	}
}

func TestLoadRuntimeConfigFromFile(t *testing.T) {
	withEnv(t, nil)

	dir := t.TempDir()
	path := filepath.Join(dir, "mlfqd.yaml")

	const body = `
ladder:
  highTicks: 5
  mediumTicks: 15
  lowTicks: 40
topPriority: 6
boostPeriod: 250ms
maxTasks: 32
eventQueueLen: 64
managerIdleInterval: 5ms
http:
  bind: ":9999"
lockFile: /tmp/custom.lock
`

	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := loadRuntimeConfig(path)
	if err != nil {
		t.Fatalf("loadRuntimeConfig: %v", err)
	}

	if cfg.Policy.Ladder != [mlfq.LevelCount]uint64{5, 15, 40} {
		t.Fatalf("unexpected ladder: %+v", cfg.Policy.Ladder)
	}

	if cfg.Policy.TopPriority != 6 {
		t.Fatalf("expected top priority 6, got %d", cfg.Policy.TopPriority)
	}

	if cfg.Policy.BoostPeriod != 250*time.Millisecond {
		t.Fatalf("expected boost period 250ms, got %v", cfg.Policy.BoostPeriod)
	}

	if cfg.Policy.MaxTasks != 32 || cfg.Policy.EventQueueLen != 64 {
		t.Fatalf("unexpected sizing: maxTasks=%d eventQueueLen=%d", cfg.Policy.MaxTasks, cfg.Policy.EventQueueLen)
	}

	if cfg.Policy.ManagerIdleInterval != 5*time.Millisecond {
		t.Fatalf("expected idle interval 5ms, got %v", cfg.Policy.ManagerIdleInterval)
	}

	if cfg.HTTPAddr != ":9999" {
		t.Fatalf("expected http addr :9999, got %q", cfg.HTTPAddr)
	}

	if cfg.LockFile != "/tmp/custom.lock" {
		t.Fatalf("expected custom lock file, got %q", cfg.LockFile)
	}
}

func TestLoadRuntimeConfigEnvOverridesFile(t *testing.T) {
	withEnv(t, map[string]string{
		"MLFQD_TOP_PRIORITY": "9",
		"MLFQD_HTTP_ADDR":    ":7000",
	})

	path := filepath.Join(t.TempDir(), "mlfqd.yaml")

	const body = `
topPriority: 6
http:
  bind: ":9999"
`

	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := loadRuntimeConfig(path)
	if err != nil {
		t.Fatalf("loadRuntimeConfig: %v", err)
	}

	if cfg.Policy.TopPriority != 9 {
		t.Fatalf("expected env override of top priority, got %d", cfg.Policy.TopPriority)
	}

	if cfg.HTTPAddr != ":7000" {
		t.Fatalf("expected env override of http addr, got %q", cfg.HTTPAddr)
	}
}

func TestLoadRuntimeConfigRejectsInvalidEnvValue(t *testing.T) {
	withEnv(t, map[string]string{"MLFQD_TOP_PRIORITY": "not-a-number"})

	if _, err := loadRuntimeConfig(""); err == nil {
		t.Fatal("expected an error for a malformed environment override")
	}
}

func TestLoadRuntimeConfigRejectsInvalidLadderAfterOverride(t *testing.T) {
	withEnv(t, map[string]string{"MLFQD_HIGH_TICKS": "1000"})

	if _, err := loadRuntimeConfig(""); err == nil {
		t.Fatal("expected validation to reject a ladder that is no longer monotonic")
	}
}

func TestLoadRuntimeConfigMissingFile(t *testing.T) {
	withEnv(t, nil)

	if _, err := loadRuntimeConfig("/nonexistent/mlfqd.yaml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
