package generate_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/hydrogrid/pkg/assemble"
	"github.com/chazu/hydrogrid/pkg/config"
	"github.com/chazu/hydrogrid/pkg/errs"
	"github.com/chazu/hydrogrid/pkg/generate"
	"github.com/chazu/hydrogrid/pkg/kernel"
	"github.com/chazu/hydrogrid/pkg/kernel/memhost"
	"github.com/chazu/hydrogrid/pkg/kernel/sdfx"
	"github.com/chazu/hydrogrid/pkg/primitive"
)

func params(rows, cols int, tank bool) generate.Params {
	p := config.DefaultParams()
	p.Rows, p.Columns, p.Reservoir = rows, cols, tank
	return p
}

// openDecimator turns every decimation into a mesh with a hole.
type openDecimator struct {
	*memhost.Host
}

func (h openDecimator) Decimate(s kernel.Solid, ratio float64) (kernel.Solid, error) {
	m, err := h.ToMesh(s)
	if err != nil {
		return nil, err
	}
	return h.CreateMesh(m.Vertices, m.Indices[:len(m.Indices)-3])
}

func TestGenerateSinglePot(t *testing.T) {
	host := memhost.New()
	res, err := generate.New(host, nil).Generate(context.Background(), params(1, 1, false))
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, res.RunID, res.Model.RunID)
	assert.Equal(t, 1, res.Stats.Pots)
	assert.Equal(t, len(res.Parts), res.Stats.Parts)
	assert.Len(t, host.Objects(), res.Stats.Objects)
	assert.Equal(t, res.Stats.Triangles, res.Stats.SourceTriangles)
	assert.Greater(t, res.Stats.LoopLength, 0.0)
	assert.Greater(t, res.Stats.SupplyHeight, res.Stats.ReturnHeight)
	assert.Equal(t, 1, res.Stats.ByKind[primitive.KindBucket])
}

func TestGenerateJoinedGrid(t *testing.T) {
	host := memhost.New()
	p := params(2, 3, true)
	p.Join = true
	res, err := generate.New(host, nil).Generate(context.Background(), p)
	require.NoError(t, err)

	objs := host.Objects()
	require.Len(t, objs, 1)
	assert.Equal(t, assemble.FusedName, objs[0].Name)
	mesh, err := host.WorldMesh(assemble.FusedName)
	require.NoError(t, err)
	assert.Zero(t, mesh.BoundaryEdges())
	assert.Equal(t, 6, res.Stats.Pots)
	assert.Equal(t, 1, res.Stats.ByKind[primitive.KindReservoir])
	for r := 0; r < 2; r++ {
		assert.Positive(t, res.Stats.ByRow[r], "row %d", r)
	}
}

func TestGenerateOptimized(t *testing.T) {
	host := memhost.New()
	p := params(1, 2, false)
	p.Join, p.Optimize, p.Aggressiveness = true, true, 0
	res, err := generate.New(host, nil).Generate(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, res.Stats.SourceTriangles, res.Stats.Triangles)
	assert.Len(t, host.Objects(), 1)
}

func TestBOM(t *testing.T) {
	res, err := generate.New(memhost.New(), nil).Generate(context.Background(), params(2, 2, true))
	require.NoError(t, err)

	var total int
	for _, line := range res.BOM() {
		total += line.Quantity
		switch line.Kind {
		case primitive.KindPipe:
			assert.InDelta(t, res.Graph.PipeLength(), line.Length, 1e-12)
			assert.Equal(t, "metric-32", line.Size)
		case primitive.KindBucket:
			assert.Equal(t, "medium", line.Size)
			assert.Equal(t, 4, line.Quantity)
		case primitive.KindReservoir:
			assert.Equal(t, "100l", line.Size)
		default:
			assert.Zero(t, line.Length, string(line.Kind))
		}
	}
	assert.Equal(t, res.Stats.Parts, total)
}

func TestFailedRunsLeaveSceneUntouched(t *testing.T) {
	tight := params(2, 2, false)
	tight.Spacing = 0.03

	joined := params(2, 2, true)
	joined.Join = true

	unsafe := params(1, 1, false)
	unsafe.Optimize, unsafe.Aggressiveness = true, 0.5

	empty := params(0, 3, false)

	tests := []struct {
		name   string
		p      generate.Params
		host   func() kernel.Host
		want   *errs.Kind
		broken func(h kernel.Host)
	}{
		{name: "insufficient spacing", p: tight, want: errs.ErrInsufficientSpacing},
		{name: "empty grid", p: empty, want: errs.ErrInvalidGrid},
		{
			name: "union failure",
			p:    joined,
			want: errs.ErrAssemblyFailed,
			broken: func(h kernel.Host) {
				calls := 0
				h.(*memhost.Host).FailUnion = func([]kernel.Solid) error {
					calls++
					if calls == 5 {
						return fmt.Errorf("boolean kernel gave up")
					}
					return nil
				}
			},
		},
		{
			name: "locked part during join",
			p:    joined,
			host: func() kernel.Host { return &stickyHost{Host: memhost.New(), match: "/tee-"} },
			want: errs.ErrAssemblyFailed,
		},
		{
			name: "unsafe optimization",
			p:    unsafe,
			host: func() kernel.Host { return openDecimator{memhost.New()} },
			want: errs.ErrOptimizationUnsafe,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var host kernel.Host = memhost.New()
			if tt.host != nil {
				host = tt.host()
			}
			if tt.broken != nil {
				tt.broken(host)
			}
			existing, err := host.CreateMesh([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, []uint32{0, 1, 2})
			require.NoError(t, err)
			require.NoError(t, host.Insert(existing, kernel.Identity(), "existing"))

			res, err := generate.New(host, nil).Generate(context.Background(), tt.p)
			assert.Nil(t, res)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			objs := host.Objects()
			require.Len(t, objs, 1)
			assert.Equal(t, "existing", objs[0].Name)
		})
	}
}

// stickyHost refuses, once, to remove the first object whose name contains
// match.
type stickyHost struct {
	*memhost.Host
	match  string
	failed bool
}

func (h *stickyHost) Remove(name string) error {
	if !h.failed && strings.Contains(name, h.match) {
		h.failed = true
		return fmt.Errorf("object %q is locked", name)
	}
	return h.Host.Remove(name)
}

func names(host kernel.Host) []string {
	var out []string
	for _, o := range host.Objects() {
		out = append(out, o.Name)
	}
	return out
}

func TestRunsReplaceThePreviousModel(t *testing.T) {
	host := memhost.New()
	require.NoError(t, host.Insert(mustTriangle(t, host), kernel.Identity(), "existing"))
	gen := generate.New(host, nil)

	first, err := gen.Generate(context.Background(), params(1, 2, false))
	require.NoError(t, err)
	assert.ElementsMatch(t, append([]string{"existing"}, first.Model.Objects...), names(host))

	second, err := gen.Generate(context.Background(), params(1, 2, false))
	require.NoError(t, err, "the same grid twice on one scene")
	assert.ElementsMatch(t, append([]string{"existing"}, second.Model.Objects...), names(host))

	p := params(2, 2, true)
	p.Join = true
	third, err := gen.Generate(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"existing", assemble.FusedName}, names(host))
	assert.Equal(t, []string{assemble.FusedName}, third.Model.Objects)

	_, err = gen.Generate(context.Background(), p)
	require.NoError(t, err, "a fused model is replaced too")
	assert.Equal(t, []string{"existing", assemble.FusedName}, names(host))
}

func TestFailedRunRestoresThePreviousModel(t *testing.T) {
	host := memhost.New()
	gen := generate.New(host, nil)
	first, err := gen.Generate(context.Background(), params(2, 2, false))
	require.NoError(t, err)
	before := names(host)

	host.FailUnion = func([]kernel.Solid) error { return errors.New("boolean kernel gave up") }
	p := params(2, 2, false)
	p.Join = true
	_, err = gen.Generate(context.Background(), p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAssemblyFailed))
	assert.ElementsMatch(t, before, names(host))

	host.FailUnion = nil
	again, err := gen.Generate(context.Background(), params(2, 2, false))
	require.NoError(t, err, "the restored model is still cleared by the next run")
	assert.ElementsMatch(t, first.Model.Objects, again.Model.Objects)
	assert.ElementsMatch(t, again.Model.Objects, names(host))
}

func mustTriangle(t *testing.T, host kernel.Host) kernel.Solid {
	t.Helper()
	s, err := host.CreateMesh([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, []uint32{0, 1, 2})
	require.NoError(t, err)
	return s
}

func TestCancelledRun(t *testing.T) {
	host := memhost.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := generate.New(host, nil).Generate(ctx, params(1, 1, false))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, host.Objects())
}

func TestRunsAreLoggedWithRunID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	host := memhost.New()
	host.FailUnion = func([]kernel.Solid) error { return fmt.Errorf("no booleans today") }
	p := params(1, 1, true)
	p.Join, p.Optimize, p.Aggressiveness = true, true, 0

	gen := generate.New(host, log)
	_, err := gen.Generate(context.Background(), p)
	require.Error(t, err, "the join fails and its warning is logged")
	p.Join = false
	res, err := gen.Generate(context.Background(), p)
	require.NoError(t, err)

	out := buf.String()
	for _, msg := range []string{"msg=plan", "msg=solve", "msg=assemble", "msg=optimized", `msg="join failed`} {
		assert.Contains(t, out, msg)
	}
	assert.Contains(t, out, "run_id="+res.RunID)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		assert.Equal(t, 1, strings.Count(line, "run_id="), line)
	}
}

func TestNewHost(t *testing.T) {
	h, err := generate.NewHost(config.HostConfig{Kind: config.HostSDF, Cells: 24})
	require.NoError(t, err)
	sh, ok := h.(*sdfx.Host)
	require.True(t, ok)
	assert.Equal(t, 24, sh.Cells)

	h, err = generate.NewHost(config.HostConfig{})
	require.NoError(t, err)
	assert.IsType(t, &memhost.Host{}, h)

	_, err = generate.NewHost(config.HostConfig{Kind: "cloud"})
	assert.Error(t, err)
}
