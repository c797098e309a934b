// Package config holds generation parameters and the YAML file that carries
// them, together with host, logging and output settings.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chazu/hydrogrid/pkg/catalog"
	"github.com/chazu/hydrogrid/pkg/errs"
	"github.com/chazu/hydrogrid/pkg/layout"
)

const stage = "config"

// Params are the inputs of one generation run.
type Params struct {
	Rows           int     `yaml:"rows"`
	Columns        int     `yaml:"columns"`
	Spacing        float64 `yaml:"spacing"` // metres between pot centres
	Bucket         string  `yaml:"bucket"`
	PipeStandard   string  `yaml:"pipe_standard"`
	PipeSize       int     `yaml:"pipe_size"` // nominal mm
	Reservoir      bool    `yaml:"reservoir"`
	ReservoirSize  string  `yaml:"reservoir_size"`
	HeightRatio    float64 `yaml:"height_ratio"`
	Unions         bool    `yaml:"unions"` // collars between neighbouring stations
	Join           bool    `yaml:"join"`
	Optimize       bool    `yaml:"optimize"`
	Aggressiveness float64 `yaml:"aggressiveness"`
}

// Host kinds.
const (
	HostMemory = "memory"
	HostSDF    = "sdf"
)

// HostConfig selects the geometry host.
type HostConfig struct {
	Kind  string `yaml:"kind"`
	Cells int    `yaml:"cells"` // marching cubes resolution of the sdf host
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Format string `yaml:"format"` // text or json
	Level  string `yaml:"level"`  // debug, info, warn, error
}

// OutputConfig names the files a run writes. Empty paths are skipped.
type OutputConfig struct {
	STL     string `yaml:"stl"`
	Preview string `yaml:"preview"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
}

// Config is the contents of a hydrogrid.yaml file.
type Config struct {
	Grid   Params       `yaml:"grid"`
	Host   HostConfig   `yaml:"host"`
	Log    LogConfig    `yaml:"log"`
	Output OutputConfig `yaml:"output"`
}

// DefaultParams returns a 2x3 grid of medium buckets on 32 mm metric pipe
// fed from a 100 L reservoir.
func DefaultParams() Params {
	return Params{
		Rows:           2,
		Columns:        3,
		Spacing:        0.6,
		Bucket:         "medium",
		PipeStandard:   string(catalog.StandardMetric),
		PipeSize:       32,
		Reservoir:      true,
		ReservoirSize:  "100l",
		HeightRatio:    layout.DefaultHeightRatio,
		Aggressiveness: 0.3,
	}
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Grid:   DefaultParams(),
		Host:   HostConfig{Kind: HostMemory, Cells: 96},
		Log:    LogConfig{Format: "text", Level: "info"},
		Output: OutputConfig{Width: 1024, Height: 768},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("config: parsing: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the host, log and output settings and the grid.
func (c Config) Validate() error {
	switch c.Host.Kind {
	case HostMemory, HostSDF:
	default:
		return fmt.Errorf("config: unknown host %q (want %s or %s)", c.Host.Kind, HostMemory, HostSDF)
	}
	if c.Host.Kind == HostSDF && c.Host.Cells < 8 {
		return fmt.Errorf("config: sdf host needs at least 8 cells, got %d", c.Host.Cells)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Log.Format)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Output.Width <= 0 || c.Output.Height <= 0 {
		return fmt.Errorf("config: preview size %dx%d must be positive", c.Output.Width, c.Output.Height)
	}
	return c.Grid.Validate()
}

// Validate checks the parameters against the catalog and the planner's
// ranges. It does not check spacing against the pipe, which the planner
// does with the resolved profile. Aggressiveness is checked only when
// Optimize is set.
func (p Params) Validate() error {
	if p.Rows < 1 || p.Columns < 1 {
		return errs.New(errs.ErrInvalidGrid, stage, "grid must be at least 1x1, got %dx%d", p.Rows, p.Columns)
	}
	if p.Spacing <= 0 {
		return errs.New(errs.ErrInvalidGrid, stage, "spacing %g must be positive", p.Spacing)
	}
	if p.HeightRatio != 0 && (p.HeightRatio < layout.MinHeightRatio || p.HeightRatio > layout.MaxHeightRatio) {
		return errs.New(errs.ErrInvalidGrid, stage, "pipe height ratio %g outside [%g, %g]",
			p.HeightRatio, layout.MinHeightRatio, layout.MaxHeightRatio)
	}
	if p.Optimize && (p.Aggressiveness < 0 || p.Aggressiveness >= 1) {
		return errs.New(errs.ErrInvalidGrid, stage, "aggressiveness %g outside [0, 1)", p.Aggressiveness)
	}
	_, err := p.Request()
	return err
}

// Request resolves the selectors and returns the planner request.
func (p Params) Request() (layout.Request, error) {
	pipe, err := catalog.Lookup(catalog.ClassPipe, catalog.PipeSelector(catalog.Standard(p.PipeStandard), p.PipeSize))
	if err != nil {
		return layout.Request{}, err
	}
	bucket, err := catalog.Lookup(catalog.ClassBucket, catalog.Selector(p.Bucket))
	if err != nil {
		return layout.Request{}, err
	}
	req := layout.Request{
		Rows:        p.Rows,
		Columns:     p.Columns,
		Spacing:     p.Spacing,
		Pipe:        pipe,
		Bucket:      bucket,
		HeightRatio: p.HeightRatio,
		Unions:      p.Unions,
	}
	if p.Reservoir {
		tank, err := catalog.Lookup(catalog.ClassReservoir, catalog.Selector(p.ReservoirSize))
		if err != nil {
			return layout.Request{}, err
		}
		req.Reservoir = &tank
	}
	return req, nil
}
