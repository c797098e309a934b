package export_test

import (
	"bytes"
	"context"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/hydrogrid/pkg/config"
	"github.com/chazu/hydrogrid/pkg/export"
	"github.com/chazu/hydrogrid/pkg/generate"
	"github.com/chazu/hydrogrid/pkg/kernel"
	"github.com/chazu/hydrogrid/pkg/kernel/memhost"
)

func fused(t *testing.T) (kernel.Host, *generate.Result) {
	t.Helper()
	p := config.DefaultParams()
	p.Rows, p.Columns, p.Reservoir, p.Join = 1, 1, false, true
	host := memhost.New()
	res, err := generate.New(host, nil).Generate(context.Background(), p)
	require.NoError(t, err)
	return host, res
}

func TestSTLRoundTrip(t *testing.T) {
	host, res := fused(t)
	mesh, err := export.WorldMesh(host, res.Model)
	require.NoError(t, err)
	require.Zero(t, mesh.BoundaryEdges())

	path := filepath.Join(t.TempDir(), "grid.stl")
	require.NoError(t, export.WriteSTL(path, mesh))
	back, err := export.ReadSTL(path)
	require.NoError(t, err)

	assert.Equal(t, mesh.TriangleCount(), back.TriangleCount())
	assert.Zero(t, back.BoundaryEdges(), "round trip must stay closed")
	assert.InEpsilon(t, mesh.SignedVolume(), back.SignedVolume(), 1e-6)
	lo, hi := mesh.Bounds()
	blo, bhi := back.Bounds()
	for k := 0; k < 3; k++ {
		assert.InDelta(t, lo[k], blo[k], 1e-9)
		assert.InDelta(t, hi[k], bhi[k], 1e-9)
	}
}

func TestWorldMeshOfSeparateParts(t *testing.T) {
	p := config.DefaultParams()
	p.Rows, p.Columns = 1, 2
	host := memhost.New()
	res, err := generate.New(host, nil).Generate(context.Background(), p)
	require.NoError(t, err)

	mesh, err := export.WorldMesh(host, res.Model)
	require.NoError(t, err)
	assert.Equal(t, res.Model.TriangleCount(), mesh.TriangleCount())

	require.NoError(t, host.Remove(res.Model.Objects[0]))
	_, err = export.WorldMesh(host, res.Model)
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	host, res := fused(t)
	mesh, err := export.WorldMesh(host, res.Model)
	require.NoError(t, err)

	img, err := export.Render(mesh, 160, 120)
	require.NoError(t, err)
	assert.Equal(t, 160, img.Bounds().Dx())
	assert.Equal(t, 120, img.Bounds().Dy())

	// The model covers the centre of the frame.
	bg := color.RGBAModel.Convert(img.At(0, 0))
	assert.NotEqual(t, bg, color.RGBAModel.Convert(img.At(80, 60)))

	_, err = export.Render(mesh, 0, 120)
	assert.Error(t, err)
	_, err = export.Render(&kernel.Mesh{}, 10, 10)
	assert.Error(t, err)
}

func TestExportWritesFiles(t *testing.T) {
	host, res := fused(t)
	dir := t.TempDir()
	var buf bytes.Buffer
	sum, err := export.Export(host, res.Model, export.Options{
		STL:     filepath.Join(dir, "grid.stl"),
		Preview: filepath.Join(dir, "grid.png"),
		Width:   64,
		Height:  48,
		Logger:  slog.New(slog.NewTextHandler(&buf, nil)),
	})
	require.NoError(t, err)

	// Binary STL: 80-byte header, count, 50 bytes per triangle.
	assert.Equal(t, int64(84+50*sum.Triangles), sum.STLBytes)
	assert.Positive(t, sum.PreviewBytes)
	_, err = os.Stat(filepath.Join(dir, "grid.png"))
	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "msg=export")
	assert.Contains(t, buf.String(), "run_id="+res.RunID)
}
