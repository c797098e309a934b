package assemble_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazu/hydrogrid/pkg/assemble"
	"github.com/chazu/hydrogrid/pkg/catalog"
	"github.com/chazu/hydrogrid/pkg/errs"
	"github.com/chazu/hydrogrid/pkg/joinery"
	"github.com/chazu/hydrogrid/pkg/kernel"
	"github.com/chazu/hydrogrid/pkg/kernel/memhost"
	"github.com/chazu/hydrogrid/pkg/layout"
	"github.com/chazu/hydrogrid/pkg/primitive"
)

func solve(t *testing.T, rows, cols int, withTank bool) []*joinery.PlacedPart {
	t.Helper()
	req := layout.Request{
		Rows:    rows,
		Columns: cols,
		Spacing: 0.6,
		Pipe:    catalog.MustLookup(catalog.ClassPipe, "metric-32"),
		Bucket:  catalog.MustLookup(catalog.ClassBucket, "medium"),
	}
	if withTank {
		res := catalog.MustLookup(catalog.ClassReservoir, "100l")
		req.Reservoir = &res
	}
	g, err := layout.Plan(req)
	require.NoError(t, err)
	parts, err := joinery.Solve(g)
	require.NoError(t, err)
	return parts
}

func names(host kernel.Host) []string {
	var out []string
	for _, o := range host.Objects() {
		out = append(out, o.Name)
	}
	return out
}

func TestAssembleInsertsEveryPart(t *testing.T) {
	parts := solve(t, 2, 2, false)
	host := memhost.New()

	m, err := assemble.Assemble(context.Background(), host, parts, assemble.Options{RunID: "r1"})
	require.NoError(t, err)
	assert.False(t, m.Joined)
	assert.Equal(t, "r1", m.RunID)
	require.Len(t, m.Objects, len(parts))
	assert.Equal(t, m.Objects, names(host))
	assert.Contains(t, m.Objects, "pot/row-1/bucket-"+suffix(parts, primitive.KindBucket, 1))

	assert.Equal(t, 4, m.Counts.ByKind[primitive.KindBucket])
	assert.Equal(t, 2, m.Counts.ByKind[primitive.KindEndCap])
	assert.Equal(t, m.Counts.ByRow[0], m.Counts.ByRow[1])

	var total int
	for _, pp := range parts {
		total += pp.Part.Mesh.TriangleCount()
	}
	assert.Equal(t, total, m.TriangleCount())

	for _, pp := range parts[:5] {
		w, err := host.WorldMesh(pp.Name())
		require.NoError(t, err)
		assert.True(t, w.Edges().Closed(), pp.Name())
	}
}

// suffix returns the part index of the first part of kind on row.
func suffix(parts []*joinery.PlacedPart, kind primitive.Kind, row int) string {
	for _, pp := range parts {
		if pp.Kind() == kind && pp.Row() == row {
			return fmt.Sprint(pp.Index)
		}
	}
	return "?"
}

func TestAssembleRollsBackFailedInsert(t *testing.T) {
	parts := solve(t, 1, 1, false)
	host := memhost.New()
	blocker, err := host.CreateMesh([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}, []uint32{0, 1, 2})
	require.NoError(t, err)
	require.NoError(t, host.Insert(blocker, kernel.Identity(), parts[3].Name()))

	m, err := assemble.Assemble(context.Background(), host, parts, assemble.Options{})
	assert.Nil(t, m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAssemblyFailed))
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 3, e.Index)
	assert.Equal(t, []string{parts[3].Name()}, names(host), "only the pre-existing object remains")
}

func TestAssembleStopsWhenCancelled(t *testing.T) {
	parts := solve(t, 1, 1, false)
	host := memhost.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := assemble.Assemble(ctx, host, parts, assemble.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, host.Objects())
}

func TestJoinFusesIntoOneClosedObject(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
		tank       bool
	}{
		{"1x1 capped", 1, 1, false},
		{"1x2 with tank", 1, 2, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := solve(t, tt.rows, tt.cols, tt.tank)
			host := memhost.New()

			m, err := assemble.Assemble(context.Background(), host, parts, assemble.Options{Join: true})
			require.NoError(t, err)
			assert.True(t, m.Joined)
			assert.Equal(t, []string{assemble.FusedName}, m.Objects)
			assert.Equal(t, []string{assemble.FusedName}, names(host))

			fused, err := host.WorldMesh(assemble.FusedName)
			require.NoError(t, err)
			assert.True(t, fused.Edges().Closed(), "%+v", fused.Edges())
			assert.Equal(t, fused.TriangleCount(), m.SourceTriangles[assemble.FusedName])
			assert.Greater(t, fused.SignedVolume(), 0.0)
		})
	}
}

func TestJoinFailureKeepsSeparateParts(t *testing.T) {
	parts := solve(t, 1, 1, false)
	host := memhost.New()
	calls := 0
	host.FailUnion = func([]kernel.Solid) error {
		calls++
		if calls == 3 {
			return errors.New("boolean failed")
		}
		return nil
	}

	m, err := assemble.Assemble(context.Background(), host, parts, assemble.Options{Join: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAssemblyFailed))
	var e *errs.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, 3, e.Index, "the third union adds part 3")

	require.NotNil(t, m)
	assert.False(t, m.Joined)
	assert.Len(t, host.Objects(), len(parts))

	assemble.Rollback(host, m, nil)
	assert.Empty(t, host.Objects())
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

func TestJoinRemoveFailureRestoresParts(t *testing.T) {
	parts := solve(t, 2, 2, false)
	host := &stickyHost{Host: memhost.New(), match: "/tee-"}

	m, err := assemble.Assemble(context.Background(), host, parts, assemble.Options{Join: true})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAssemblyFailed))
	require.NotNil(t, m)
	assert.False(t, m.Joined)
	assert.Len(t, m.Objects, len(parts))

	assert.NotContains(t, names(host), assemble.FusedName)
	assert.ElementsMatch(t, m.Objects, names(host), "every separate part is back in the scene")

	assemble.Rollback(host, m, nil)
	assert.Empty(t, host.Objects())
}
