package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"mlfq-scheduler/pkg/mlfq"
)

// runtimeConfig is the fully resolved configuration the daemon runs with,
// merged from built-in defaults, an optional YAML file, and environment
// variable overrides, in that order of increasing precedence.
type runtimeConfig struct {
	Policy   mlfq.Config
	HTTPAddr string
	LockFile string
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		Policy:   mlfq.DefaultConfig(),
		HTTPAddr: ":9109",
		LockFile: "/var/run/mlfqd.lock",
	}
}

// fileConfig mirrors the on-disk YAML shape. Every field is a pointer so
// assignX can distinguish "absent from the file" from "explicitly zero".
type fileConfig struct {
	Ladder *struct {
		HighTicks   *uint64 `yaml:"highTicks"`
		MediumTicks *uint64 `yaml:"mediumTicks"`
		LowTicks    *uint64 `yaml:"lowTicks"`
	} `yaml:"ladder"`
	TopPriority         *int    `yaml:"topPriority"`
	BoostPeriod         *string `yaml:"boostPeriod"`
	MaxTasks            *int    `yaml:"maxTasks"`
	EventQueueLen       *int    `yaml:"eventQueueLen"`
	ManagerIdleInterval *string `yaml:"managerIdleInterval"`
	HTTP                *struct {
		Bind *string `yaml:"bind"`
	} `yaml:"http"`
	LockFile *string `yaml:"lockFile"`
}

// lookupEnv is a package-level indirection over os.LookupEnv so tests can
// substitute a fake environment without mutating the process's real one.
var lookupEnv = os.LookupEnv

func loadRuntimeConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("read config file: %w", err)
		}

		var fc fileConfig

		if err := yaml.Unmarshal(data, &fc); err != nil {
			return runtimeConfig{}, fmt.Errorf("parse config file: %w", err)
		}

		applyFileConfig(&cfg, fc)
	}

	if err := applyEnvConfig(&cfg); err != nil {
		return runtimeConfig{}, err
	}

	if err := cfg.Policy.Validate(); err != nil {
		return runtimeConfig{}, fmt.Errorf("validate configuration: %w", err)
	}

	return cfg, nil
}

func applyFileConfig(cfg *runtimeConfig, fc fileConfig) {
	if fc.Ladder != nil {
		assignUint64(&cfg.Policy.Ladder[mlfq.High], fc.Ladder.HighTicks)
		assignUint64(&cfg.Policy.Ladder[mlfq.Medium], fc.Ladder.MediumTicks)
		assignUint64(&cfg.Policy.Ladder[mlfq.Low], fc.Ladder.LowTicks)
	}

	assignInt(&cfg.Policy.TopPriority, fc.TopPriority)
	assignDurationString(&cfg.Policy.BoostPeriod, fc.BoostPeriod)
	assignInt(&cfg.Policy.MaxTasks, fc.MaxTasks)
	assignInt(&cfg.Policy.EventQueueLen, fc.EventQueueLen)
	assignDurationString(&cfg.Policy.ManagerIdleInterval, fc.ManagerIdleInterval)

	if fc.HTTP != nil {
		assignString(&cfg.HTTPAddr, fc.HTTP.Bind)
	}

	assignString(&cfg.LockFile, fc.LockFile)
}

func applyEnvConfig(cfg *runtimeConfig) error {
	if err := envUint64(&cfg.Policy.Ladder[mlfq.High], "MLFQD_HIGH_TICKS"); err != nil {
		return err
	}

	if err := envUint64(&cfg.Policy.Ladder[mlfq.Medium], "MLFQD_MEDIUM_TICKS"); err != nil {
		return err
	}

	if err := envUint64(&cfg.Policy.Ladder[mlfq.Low], "MLFQD_LOW_TICKS"); err != nil {
		return err
	}

	if err := envInt(&cfg.Policy.TopPriority, "MLFQD_TOP_PRIORITY"); err != nil {
		return err
	}

	if err := envDuration(&cfg.Policy.BoostPeriod, "MLFQD_BOOST_PERIOD"); err != nil {
		return err
	}

	if err := envInt(&cfg.Policy.MaxTasks, "MLFQD_MAX_TASKS"); err != nil {
		return err
	}

	if err := envInt(&cfg.Policy.EventQueueLen, "MLFQD_EVENT_QUEUE_LEN"); err != nil {
		return err
	}

	if err := envDuration(&cfg.Policy.ManagerIdleInterval, "MLFQD_MANAGER_IDLE_INTERVAL"); err != nil {
		return err
	}

	envString(&cfg.HTTPAddr, "MLFQD_HTTP_ADDR")
	envString(&cfg.LockFile, "MLFQD_LOCK_FILE")

	return nil
}

func assignUint64(dst *uint64, src *uint64) {
	if src != nil {
		*dst = *src
	}
}

func assignInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func assignString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func assignDurationString(dst *time.Duration, src *string) {
	if src == nil {
		return
	}

	if d, err := time.ParseDuration(*src); err == nil {
		*dst = d
	}
}

func envUint64(dst *uint64, name string) error {
	raw, ok := lookupEnv(name)
	if !ok {
		return nil
	}

	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	*dst = v

	return nil
}

func envInt(dst *int, name string) error {
	raw, ok := lookupEnv(name)
	if !ok {
		return nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	*dst = v

	return nil
}

func envDuration(dst *time.Duration, name string) error {
	raw, ok := lookupEnv(name)
	if !ok {
		return nil
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	*dst = v

	return nil
}

func envString(dst *string, name string) {
	if raw, ok := lookupEnv(name); ok {
		*dst = raw
	}
}
