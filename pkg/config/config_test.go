package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/hydrogrid/pkg/errs"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	req, err := DefaultParams().Request()
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if req.Reservoir == nil {
		t.Error("default grid should have a reservoir")
	}
	if req.Pipe.Nominal != 32 {
		t.Errorf("pipe nominal = %d, want 32", req.Pipe.Nominal)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
grid:
  rows: 3
  columns: 4
  spacing: 0.55
  pipe_standard: tr
  pipe_size: 25
  reservoir: false
  unions: true
  join: true
host:
  kind: sdf
  cells: 48
log:
  format: json
output:
  stl: out.stl
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	g := cfg.Grid
	if g.Rows != 3 || g.Columns != 4 || g.Spacing != 0.55 {
		t.Errorf("grid = %dx%d at %g", g.Rows, g.Columns, g.Spacing)
	}
	if g.Bucket != "medium" {
		t.Errorf("bucket = %q, want default medium", g.Bucket)
	}
	if g.Reservoir || !g.Join || !g.Unions {
		t.Errorf("reservoir=%v join=%v unions=%v", g.Reservoir, g.Join, g.Unions)
	}
	if req, err := g.Request(); err != nil || !req.Unions {
		t.Errorf("request unions not carried: %+v, %v", req, err)
	}
	if cfg.Host.Kind != HostSDF || cfg.Host.Cells != 48 {
		t.Errorf("host = %+v", cfg.Host)
	}
	if cfg.Output.STL != "out.stl" || cfg.Output.Width != 1024 {
		t.Errorf("output = %+v", cfg.Output)
	}
}

func TestParseEmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("empty document should give the defaults, got %+v", cfg)
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		kind *errs.Kind
	}{
		{"unknown key", "grid:\n  colour: red\n", nil},
		{"unknown host", "host:\n  kind: cloud\n", nil},
		{"coarse sdf", "host:\n  kind: sdf\n  cells: 4\n", nil},
		{"bad log level", "log:\n  level: loud\n", nil},
		{"empty grid", "grid:\n  rows: 0\n", errs.ErrInvalidGrid},
		{"ratio", "grid:\n  height_ratio: 0.6\n", errs.ErrInvalidGrid},
		{"aggressiveness", "grid:\n  optimize: true\n  aggressiveness: 1\n", errs.ErrInvalidGrid},
		{"bucket", "grid:\n  bucket: huge\n", errs.ErrUnknownSizeSelector},
		{"pipe", "grid:\n  pipe_size: 33\n", errs.ErrUnknownSizeSelector},
		{"reservoir", "grid:\n  reservoir_size: 1000l\n", errs.ErrUnknownSizeSelector},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.kind != nil && !errors.Is(err, tt.kind) {
				t.Errorf("error %v is not %v", err, tt.kind)
			}
		})
	}
}

func TestUnusedReservoirSizeIsIgnored(t *testing.T) {
	p := DefaultParams()
	p.Reservoir = false
	p.ReservoirSize = "nonsense"
	if err := p.Validate(); err != nil {
		t.Errorf("reservoir size checked while disabled: %v", err)
	}
}

func TestAggressivenessIgnoredWithoutOptimize(t *testing.T) {
	p := DefaultParams()
	p.Aggressiveness = 1.5
	if err := p.Validate(); err != nil {
		t.Errorf("aggressiveness checked while optimization is off: %v", err)
	}
	p.Optimize = true
	if err := p.Validate(); !errors.Is(err, errs.ErrInvalidGrid) {
		t.Errorf("Validate() = %v, want a validation error", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hydrogrid.yaml")
	if err := os.WriteFile(path, []byte("grid:\n  rows: 1\n  columns: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Grid.Rows != 1 || cfg.Grid.Columns != 1 {
		t.Errorf("grid = %dx%d, want 1x1", cfg.Grid.Rows, cfg.Grid.Columns)
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := LogConfig{Format: "json", Level: "warn"}.Logger(&buf)
	if err != nil {
		t.Fatalf("Logger failed: %v", err)
	}
	log.Info("hidden")
	log.Warn("shown", "run_id", "abc")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info record passed a warn-level logger")
	}
	if !strings.Contains(out, `"run_id":"abc"`) {
		t.Errorf("json output missing attribute: %s", out)
	}

	if lvl, _ := ParseLevel("DEBUG"); lvl != slog.LevelDebug {
		t.Errorf("ParseLevel(DEBUG) = %v", lvl)
	}
	if _, err := (LogConfig{Format: "xml"}).Logger(&buf); err == nil {
		t.Error("unknown format accepted")
	}
}
