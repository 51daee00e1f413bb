// Package config loads aflr's configuration the way the teacher's
// config.LoadConfig does: environment first (via godotenv), then layered
// sources on top. Here the layers are TOML file < CLI flags, since a
// standalone CLI tool has no orchestrator injecting env vars for it the way
// b3fuzz's container environment does.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// TargetConfig mirrors spec.md §6's [target] section.
type TargetConfig struct {
	Binary             string   `toml:"binary"`
	Sanitizer          string   `toml:"sanitizer_binary"`
	ComparisonLog      string   `toml:"cmplog_binary"`
	ComparisonCoverage string   `toml:"cmpcov_binary"`
	Coverage           string   `toml:"coverage_binary"`
	Args               []string `toml:"args"`
	SeedDir            string   `toml:"seed_dir"`
	SolutionDir        string   `toml:"solution_dir"`
	DictPath           string   `toml:"dict"`
}

// AFLConfig mirrors spec.md §6's [afl_cfg] section.
type AFLConfig struct {
	EngineBinary    string   `toml:"engine_binary"`
	Workers         int      `toml:"workers"`
	Mode            string   `toml:"mode"`
	Seed            *uint64  `toml:"seed"`
	SeedPassthrough bool     `toml:"seed_passthrough"`
	ExtraFlags      []string `toml:"extra_flags"`
}

// SessionConfig mirrors spec.md §6's [session] section.
type SessionConfig struct {
	Name    string `toml:"name"`
	Backend string `toml:"backend"`
}

// CoverageConfig mirrors spec.md §6's [coverage] section.
type CoverageConfig struct {
	Binary       string   `toml:"binary"`
	ExtraFlags   []string `toml:"extra_flags"`
	TextReport   bool     `toml:"text_report"`
	SplitReports bool     `toml:"split_reports"`
}

// MiscConfig mirrors spec.md §6's [misc] section.
type MiscConfig struct {
	LogLevel       string        `toml:"log_level"`
	TickInterval   time.Duration `toml:"tick_interval"`
	Ramdisk        bool          `toml:"ramdisk"`
}

// FileConfig is the root of aflr_cfg.toml.
type FileConfig struct {
	Target   TargetConfig   `toml:"target"`
	AFL      AFLConfig      `toml:"afl_cfg"`
	Session  SessionConfig  `toml:"session"`
	Coverage CoverageConfig `toml:"coverage"`
	Misc     MiscConfig     `toml:"misc"`
}

// AppConfig is the fully merged, process-wide configuration: ambient
// concerns (logging, tick interval) that every subcommand shares, analogous
// to the teacher's AppConfig.
type AppConfig struct {
	LogLevel     string
	TickInterval time.Duration
}

const DefaultConfigName = "aflr_cfg.toml"

// Load reads path (or DefaultConfigName if path is empty) and applies the
// env-then-file precedence spec.md §6 describes; CLI flags are merged on
// top by the caller, which has the parsed flag.FlagSet in hand.
func Load(path string) (*FileConfig, error) {
	godotenv.Load() // best-effort; a missing .env is not an error

	if path == "" {
		path = DefaultConfigName
	}

	var fc FileConfig
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if fc.Misc.LogLevel == "" {
		fc.Misc.LogLevel = "info"
	}
	if fc.Misc.TickInterval == 0 {
		fc.Misc.TickInterval = time.Second
	}
	if fc.Session.Backend == "" {
		fc.Session.Backend = "tmux"
	}

	return &fc, nil
}

// AppConfig extracts the ambient-concern subset of FileConfig that every
// subcommand builds its logger from, regardless of which command is running.
func (fc *FileConfig) AppConfig() *AppConfig {
	return &AppConfig{
		LogLevel:     fc.Misc.LogLevel,
		TickInterval: fc.Misc.TickInterval,
	}
}
