// Package config provides configuration loading and access for the
// capture engine and its demo simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"skimmer/geom"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all configuration parameters.
type Config struct {
	Geometry  GeometryConfig  `yaml:"geometry"`
	Step      StepConfig      `yaml:"step"`
	Tiling    TilingConfig    `yaml:"tiling"`
	Surface   SurfaceConfig   `yaml:"embedded_boundary"`
	Species   []SpeciesConfig `yaml:"species"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// GeometryConfig describes the computational domain.
type GeometryConfig struct {
	Mode     string     `yaml:"mode"` // cartesian2d | cartesian3d | rz
	Lo       [3]float64 `yaml:"lo"`
	Hi       [3]float64 `yaml:"hi"`
	Periodic [3]bool    `yaml:"periodic"`
}

// StepConfig holds time stepping parameters.
type StepConfig struct {
	DT                float64 `yaml:"dt"`        // step duration, seconds
	MaxSteps          int     `yaml:"max_steps"` // demo run length
	RedistributeEvery int     `yaml:"redistribute_every"`
}

// TilingConfig describes the domain decomposition.
type TilingConfig struct {
	TilesPerAxis [3]int `yaml:"tiles_per_axis"`
	Levels       int    `yaml:"levels"`
	Ranks        int    `yaml:"ranks"`
	LocalRank    int    `yaml:"local_rank"`
	Workers      int    `yaml:"workers"` // compaction workers, 0 = GOMAXPROCS
}

// SurfaceConfig describes the embedded surface the demo builds its
// level-set field from. The capture engine itself only ever sees the
// sampled nodal field.
type SurfaceConfig struct {
	Enabled      bool       `yaml:"enabled"`
	Radius       float64    `yaml:"radius"`
	Center       [3]float64 `yaml:"center"`
	NodesPerAxis [3]int     `yaml:"nodes_per_axis"`
}

// SpeciesConfig holds per-species parameters. Capture flags are keyed by
// boundary symbol; absent symbols default to disabled.
type SpeciesConfig struct {
	Name        string          `yaml:"name"`
	Initial     int             `yaml:"initial"`      // demo particles to seed
	MomentumStd float64         `yaml:"momentum_std"` // gamma*v spread, m/s
	Weight      float64         `yaml:"weight"`
	RealAttrs   []string        `yaml:"real_attrs"` // extra per-particle real attributes
	Capture     map[string]bool `yaml:"capture"`
}

// TelemetryConfig holds diagnostics parameters.
type TelemetryConfig struct {
	LogEvery    int `yaml:"log_every"`    // steps between capture reports, 0 = off
	StatsWindow int `yaml:"stats_window"` // steps per summary window
}

// DerivedConfig holds values computed from the loaded config.
type DerivedConfig struct {
	Mode   geom.Mode
	Domain geom.Domain
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults
// if path is empty. Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded
// defaults. If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into the same struct - only overwrites fields
		// present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived calculates values derived from the loaded config and
// validates it.
func (c *Config) computeDerived() error {
	mode, err := geom.ParseMode(c.Geometry.Mode)
	if err != nil {
		return err
	}
	c.Derived.Mode = mode
	c.Derived.Domain = geom.Domain{
		Lo:       c.Geometry.Lo,
		Hi:       c.Geometry.Hi,
		Periodic: c.Geometry.Periodic,
	}
	for a := 0; a < mode.Dim(); a++ {
		if c.Geometry.Hi[a] <= c.Geometry.Lo[a] {
			return fmt.Errorf("config: empty domain extent on axis %d", a)
		}
	}
	if c.Step.DT <= 0 {
		return fmt.Errorf("config: step.dt must be positive, got %v", c.Step.DT)
	}
	if len(c.Species) == 0 {
		return fmt.Errorf("config: at least one species required")
	}
	seen := make(map[string]bool, len(c.Species))
	for _, sp := range c.Species {
		if sp.Name == "" {
			return fmt.Errorf("config: species with empty name")
		}
		if seen[sp.Name] {
			return fmt.Errorf("config: duplicate species %q", sp.Name)
		}
		seen[sp.Name] = true
	}
	return nil
}
