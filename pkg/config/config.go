// Package config loads nasum settings from YAML. Every field is optional;
// missing fields keep their defaults.
//
//	seed: "granite"
//	shading: flat
//	cloud:
//	  points_per_batch: 8
//	  axis: xz
//	output:
//	  stl: out/sculpture.stl
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chazu/nasum/pkg/cloud"
	"github.com/chazu/nasum/pkg/engine"
	"github.com/chazu/nasum/pkg/mesh"
	"github.com/chazu/nasum/pkg/point"
)

// Config is the top-level configuration document.
type Config struct {
	// Seed is either an integer or a phrase folded into one.
	Seed          string        `yaml:"seed"`
	Shading       string        `yaml:"shading"`
	ChunkVertices int           `yaml:"chunk_vertices"`
	Timeout       time.Duration `yaml:"timeout"`
	Cloud         CloudConfig   `yaml:"cloud"`
	Distort       DistortConfig `yaml:"distort"`
	Output        OutputConfig  `yaml:"output"`
}

// CloudConfig holds the defaults of the cloud builtin.
type CloudConfig struct {
	PointsPerBatch int     `yaml:"points_per_batch"`
	Batches        int     `yaml:"batches"`
	Extent         float64 `yaml:"extent"`
	MaxStep        float64 `yaml:"max_step"`
	Weight         float64 `yaml:"weight"`
	Axis           string  `yaml:"axis"`
}

// DistortConfig holds the defaults of the distort builtin.
type DistortConfig struct {
	Intensity     float64 `yaml:"intensity"`
	Scale         float64 `yaml:"scale"`
	GroupSize     int     `yaml:"group_size"`
	TierIncrement int     `yaml:"tier_increment"`
	MaxTiers      int     `yaml:"max_tiers"`
	LatticeSize   int     `yaml:"lattice_size"`
}

// OutputConfig names the files written after sculpting. Empty paths are
// skipped.
type OutputConfig struct {
	STL         string `yaml:"stl"`
	Preview     string `yaml:"preview"`
	PreviewSize int    `yaml:"preview_size"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	opts := engine.DefaultOptions()
	return &Config{
		Shading:       opts.Shading.String(),
		ChunkVertices: mesh.MaxChunkVertices,
		Timeout:       opts.Timeout,
		Cloud: CloudConfig{
			PointsPerBatch: opts.Cloud.PointsPerBatch,
			Batches:        opts.Cloud.Batches,
			Extent:         opts.Cloud.Extent,
			MaxStep:        opts.Cloud.MaxStep,
			Weight:         opts.Cloud.Weight,
			Axis:           opts.Cloud.Axis.String(),
		},
		Distort: DistortConfig{
			Intensity:     opts.Distort.Intensity,
			Scale:         opts.Distort.Scale,
			GroupSize:     opts.Distort.GroupSize,
			TierIncrement: opts.Distort.TierIncrement,
			MaxTiers:      opts.Distort.MaxTiers,
			LatticeSize:   opts.Distort.LatticeSize,
		},
		Output: OutputConfig{
			PreviewSize: 512,
		},
	}
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML document over the defaults and validates the
// result. Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if _, err := mesh.ParseShading(c.Shading); err != nil {
		errs = append(errs, err)
	}
	if _, err := point.ParseAxis(c.Cloud.Axis); err != nil {
		errs = append(errs, fmt.Errorf("cloud: %w", err))
	}
	if c.ChunkVertices < 3 || c.ChunkVertices > mesh.MaxChunkVertices {
		errs = append(errs, fmt.Errorf("chunk_vertices must be in [3, %d], got %d", mesh.MaxChunkVertices, c.ChunkVertices))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.Cloud.PointsPerBatch < 1 {
		errs = append(errs, fmt.Errorf("cloud: points_per_batch must be at least 1, got %d", c.Cloud.PointsPerBatch))
	}
	if c.Cloud.Batches < 1 {
		errs = append(errs, fmt.Errorf("cloud: batches must be at least 1, got %d", c.Cloud.Batches))
	}
	if !(c.Cloud.Extent > 0) {
		errs = append(errs, fmt.Errorf("cloud: extent must be positive, got %g", c.Cloud.Extent))
	}
	if c.Cloud.MaxStep < 0 {
		errs = append(errs, fmt.Errorf("cloud: max_step must not be negative, got %g", c.Cloud.MaxStep))
	}
	if c.Distort.MaxTiers < 1 {
		errs = append(errs, fmt.Errorf("distort: max_tiers must be at least 1, got %d", c.Distort.MaxTiers))
	}
	if c.Distort.LatticeSize < 1 {
		errs = append(errs, fmt.Errorf("distort: lattice_size must be at least 1, got %d", c.Distort.LatticeSize))
	}
	if c.Output.PreviewSize < 16 {
		errs = append(errs, fmt.Errorf("output: preview_size must be at least 16, got %d", c.Output.PreviewSize))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// SeedValue resolves Seed: an integer is used as is, any other text is
// folded, and an empty seed is the default.
func (c *Config) SeedValue() int64 {
	if c.Seed == "" {
		return engine.DefaultOptions().Seed
	}
	if n, err := strconv.ParseInt(c.Seed, 10, 64); err == nil {
		return n
	}
	return cloud.SeedFromString(c.Seed)
}

// EngineOptions converts the configuration for the scripting engine. The
// configuration must be valid.
func (c *Config) EngineOptions() engine.Options {
	shading, _ := mesh.ParseShading(c.Shading)
	axis, _ := point.ParseAxis(c.Cloud.Axis)
	return engine.Options{
		Seed:    c.SeedValue(),
		Shading: shading,
		Timeout: c.Timeout,
		Cloud: engine.CloudDefaults{
			PointsPerBatch: c.Cloud.PointsPerBatch,
			Batches:        c.Cloud.Batches,
			Extent:         c.Cloud.Extent,
			MaxStep:        c.Cloud.MaxStep,
			Weight:         c.Cloud.Weight,
			Axis:           axis,
		},
		Distort: engine.DistortDefaults{
			Intensity:     c.Distort.Intensity,
			Scale:         c.Distort.Scale,
			GroupSize:     c.Distort.GroupSize,
			TierIncrement: c.Distort.TierIncrement,
			MaxTiers:      c.Distort.MaxTiers,
			LatticeSize:   c.Distort.LatticeSize,
		},
	}
}
