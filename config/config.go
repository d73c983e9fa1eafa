// Package config loads and validates the daemon's central and local
// YAML configuration, in the teacher's CentralCfg/LocalCfg style
// (state/config.go), using github.com/goccy/go-yaml.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/goccy/go-yaml"
)

// CentralCfg is the shared, distributed view of the fabric: the known
// nodes and areas. It corresponds to spec.md's LSDB seed data, not the
// LSDB itself (which Decision builds from publications at runtime).
type CentralCfg struct {
	Nodes []string `yaml:"nodes"`
	Areas []string `yaml:"areas,omitempty"`
}

// LocalCfg is this node's own configuration, covering every option
// spec.md §6 recognizes.
type LocalCfg struct {
	NodeName                   string `yaml:"node_name"`
	EnableV4                   bool   `yaml:"enable_v4"`
	EnableOrderedFibProgramming bool  `yaml:"enable_ordered_fib_programming"`
	BgpUseIgpMetric            bool   `yaml:"bgp_use_igp_metric"`
	BgpDryRun                  bool   `yaml:"bgp_dry_run"`
	EnableRibPolicy            bool   `yaml:"enable_rib_policy"`
	EorTimeS                   int    `yaml:"eor_time_s"`
	DebounceMinMs              int    `yaml:"debounce_min_ms"`
	DebounceMaxMs              int    `yaml:"debounce_max_ms"`
	ComputeLfaPaths            bool   `yaml:"compute_lfa_paths"`
	LogPath                    string `yaml:"log_path,omitempty"`
}

// ColdStartGrace returns the cold-start grace timer duration.
func (c LocalCfg) ColdStartGrace() time.Duration {
	return time.Duration(c.EorTimeS) * time.Second
}

func (c LocalCfg) DebounceMin() time.Duration {
	return time.Duration(c.DebounceMinMs) * time.Millisecond
}

func (c LocalCfg) DebounceMax() time.Duration {
	return time.Duration(c.DebounceMaxMs) * time.Millisecond
}

// LoadCentral reads and unmarshals a central config file.
func LoadCentral(path string) (CentralCfg, error) {
	var cfg CentralCfg
	file, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading central config: %w", err)
	}
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing central config: %w", err)
	}
	return cfg, nil
}

// LoadLocal reads and unmarshals a local config file.
func LoadLocal(path string) (LocalCfg, error) {
	var cfg LocalCfg
	file, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading local config: %w", err)
	}
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing local config: %w", err)
	}
	return cfg, nil
}

var namePattern = regexp.MustCompile("^[0-9a-z._-]+$")

// NameValidator mirrors the teacher's state/validation.go name check.
func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%q is not a valid node name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("node name %q is too long (%d > 100)", s, len(s))
	}
	return nil
}

// CentralConfigValidator checks every node name in the central config.
func CentralConfigValidator(cfg *CentralCfg) error {
	seen := make(map[string]bool, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		if err := NameValidator(n); err != nil {
			return err
		}
		if seen[n] {
			return fmt.Errorf("duplicate node %q in central config", n)
		}
		seen[n] = true
	}
	return nil
}

// LocalConfigValidator checks the local node's own configuration.
func LocalConfigValidator(cfg *LocalCfg) error {
	if err := NameValidator(cfg.NodeName); err != nil {
		return err
	}
	if cfg.DebounceMinMs <= 0 || cfg.DebounceMaxMs <= 0 {
		return fmt.Errorf("debounce_min_ms and debounce_max_ms must be positive")
	}
	if cfg.DebounceMinMs > cfg.DebounceMaxMs {
		return fmt.Errorf("debounce_min_ms (%d) must not exceed debounce_max_ms (%d)", cfg.DebounceMinMs, cfg.DebounceMaxMs)
	}
	if cfg.EorTimeS < 0 {
		return fmt.Errorf("eor_time_s must not be negative")
	}
	return nil
}
