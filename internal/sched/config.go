package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	yaml "github.com/goccy/go-yaml"
)

// Mode selects how deadline misses and cycles are handled.
type Mode string

const (
	// Lenient drops offending tasks and returns a shorter schedule.
	Lenient Mode = "lenient"
	// Strict aborts the whole request on the first cycle or deadline miss.
	Strict Mode = "strict"
)

// OrphanPolicy decides the fate of a task whose predecessor was dropped.
type OrphanPolicy string

const (
	// OrphanSkip drops the dependent as well.
	OrphanSkip OrphanPolicy = "skip"
	// OrphanRelease treats the dropped predecessor as completed at time 0.
	OrphanRelease OrphanPolicy = "release"
)

// Config mirrors rtsched.yml
type Config struct {
	Mode         Mode         `yaml:"mode"`           // lenient (by default)
	NodeType     string       `yaml:"node_type"`      // compute (by default)
	SingleNodeID int          `yaml:"single_node_id"` // 0 (by default)
	Orphans      OrphanPolicy `yaml:"orphans"`        // skip (by default)
	EventLog     string       `yaml:"event_log"`      // CSV path for placement events, empty = off
}

// DefaultConfig is used when no config file is given or found.
func DefaultConfig() Config {
	return Config{
		Mode:     Lenient,
		NodeType: "compute",
		Orphans:  OrphanSkip,
	}
}

// Load reads YAML and overrides defaults; empty path or missing file = defaults.
// Unknown keys are rejected so a typo does not silently fall back.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.DisallowUnknownField()); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.normalize(), nil
}

// normalize applies sanity clamps to values read from a file or flags.
func (c Config) normalize() Config {
	c.Mode = Mode(strings.ToLower(strings.TrimSpace(string(c.Mode))))
	if c.Mode != Strict {
		c.Mode = Lenient
	}
	c.Orphans = OrphanPolicy(strings.ToLower(strings.TrimSpace(string(c.Orphans))))
	if c.Orphans != OrphanRelease {
		c.Orphans = OrphanSkip
	}
	if c.SingleNodeID < 0 {
		c.SingleNodeID = 0
	}
	return c
}

// ParseMode accepts "lenient" or "strict" in any case.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Lenient:
		return Lenient, true
	case Strict:
		return Strict, true
	}
	return "", false
}
