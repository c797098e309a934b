package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/chazu/hydrogrid/pkg/config"
	"github.com/chazu/hydrogrid/pkg/engine"
)

// options collects every flag; values only apply when the flag was set.
type options struct {
	configPath string
	logFormat  string
	logLevel   string

	scriptPath string
	hostKind   string
	cells      int
	stl        string
	preview    string
	width      int
	height     int

	grid config.Params
}

// gridFlags maps each grid flag to the field it overrides.
var gridFlags = []struct {
	name  string
	usage string
	bind  func(fs *pflag.FlagSet, p *config.Params, name, usage string)
	apply func(dst *config.Params, src config.Params)
}{
	{"rows", "grid rows", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.IntVar(&p.Rows, n, 0, u) },
		func(d *config.Params, s config.Params) { d.Rows = s.Rows }},
	{"columns", "grid columns", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.IntVar(&p.Columns, n, 0, u) },
		func(d *config.Params, s config.Params) { d.Columns = s.Columns }},
	{"spacing", "pot spacing in metres", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.Float64Var(&p.Spacing, n, 0, u) },
		func(d *config.Params, s config.Params) { d.Spacing = s.Spacing }},
	{"bucket", "bucket size (small, medium, large)", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.StringVar(&p.Bucket, n, "", u) },
		func(d *config.Params, s config.Params) { d.Bucket = s.Bucket }},
	{"pipe-standard", "pipe standard (tr, metric)", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.StringVar(&p.PipeStandard, n, "", u) },
		func(d *config.Params, s config.Params) { d.PipeStandard = s.PipeStandard }},
	{"pipe-size", "nominal pipe size in mm", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.IntVar(&p.PipeSize, n, 0, u) },
		func(d *config.Params, s config.Params) { d.PipeSize = s.PipeSize }},
	{"reservoir", "feed the grid from a reservoir", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.BoolVar(&p.Reservoir, n, false, u) },
		func(d *config.Params, s config.Params) { d.Reservoir = s.Reservoir }},
	{"reservoir-size", "reservoir size (50l to 200l)", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.StringVar(&p.ReservoirSize, n, "", u) },
		func(d *config.Params, s config.Params) { d.ReservoirSize = s.ReservoirSize }},
	{"height-ratio", "return line height as a fraction of the bucket", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.Float64Var(&p.HeightRatio, n, 0, u) },
		func(d *config.Params, s config.Params) { d.HeightRatio = s.HeightRatio }},
	{"unions", "add a union collar between neighbouring stations", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.BoolVar(&p.Unions, n, false, u) },
		func(d *config.Params, s config.Params) { d.Unions = s.Unions }},
	{"join", "fuse the parts into one object", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.BoolVar(&p.Join, n, false, u) },
		func(d *config.Params, s config.Params) { d.Join = s.Join }},
	{"optimize", "weld and decimate the result", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.BoolVar(&p.Optimize, n, false, u) },
		func(d *config.Params, s config.Params) { d.Optimize = s.Optimize }},
	{"aggressiveness", "decimation aggressiveness in [0, 1)", func(fs *pflag.FlagSet, p *config.Params, n, u string) { fs.Float64Var(&p.Aggressiveness, n, 0, u) },
		func(d *config.Params, s config.Params) { d.Aggressiveness = s.Aggressiveness }},
}

// addRunFlags registers the flags shared by generate and preview.
func (o *options) addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&o.scriptPath, "script", "s", "", "zygomys parameter script")
	f.StringVar(&o.hostKind, "host", "", "geometry host: memory or sdf")
	f.IntVar(&o.cells, "cells", 0, "marching cubes resolution of the sdf host")
	f.IntVar(&o.width, "width", 0, "preview width in pixels")
	f.IntVar(&o.height, "height", 0, "preview height in pixels")
	for _, g := range gridFlags {
		g.bind(f, &o.grid, g.name, g.usage)
	}
}

// resolve layers defaults, the config file, the script and the flags, in
// that order.
func (o *options) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return config.Config{}, err
		}
	}

	if o.scriptPath != "" {
		src, err := os.ReadFile(o.scriptPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("reading script: %w", err)
		}
		p, evalErrs, err := engine.NewEngineWith(cfg.Grid).Evaluate(string(src))
		if err != nil {
			return config.Config{}, fmt.Errorf("%s: %w", o.scriptPath, err)
		}
		if len(evalErrs) > 0 {
			return config.Config{}, fmt.Errorf("%s: %w", o.scriptPath, evalErrs[0])
		}
		cfg.Grid = *p
	}

	f := cmd.Flags()
	for _, g := range gridFlags {
		if f.Changed(g.name) {
			g.apply(&cfg.Grid, o.grid)
		}
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.hostKind != "" {
		cfg.Host.Kind = o.hostKind
	}
	if o.cells != 0 {
		cfg.Host.Cells = o.cells
	}
	if o.stl != "" {
		cfg.Output.STL = o.stl
	}
	if o.preview != "" {
		cfg.Output.Preview = o.preview
	}
	if o.width != 0 {
		cfg.Output.Width = o.width
	}
	if o.height != 0 {
		cfg.Output.Height = o.height
	}
	return cfg, cfg.Validate()
}
