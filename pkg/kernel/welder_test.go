package kernel

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// cubeRow returns n unit cubes laid face to face along +X.
func cubeRow(n int) []*Mesh {
	out := make([]*Mesh, n)
	for i := range out {
		out[i] = unitCube().Transformed(Transform{Position: r3.Vec{X: float64(i)}, Basis: Identity().Basis})
	}
	return out
}

func TestWelderMatchesBatchWeld(t *testing.T) {
	cubes := cubeRow(4)
	batch := &Mesh{}
	w := NewWelder(WeldTolerance)
	var gen int
	for _, c := range cubes {
		batch.Append(c)
		gen = w.Add(soup(c))
	}
	want := batch.Weld(WeldTolerance).CancelOpposingFaces().Compact()
	got := w.Mesh(gen)

	if got.TriangleCount() != want.TriangleCount() {
		t.Errorf("TriangleCount = %d, want %d", got.TriangleCount(), want.TriangleCount())
	}
	if got.VertexCount() != want.VertexCount() {
		t.Errorf("VertexCount = %d, want %d", got.VertexCount(), want.VertexCount())
	}
	if !got.Edges().Closed() {
		t.Errorf("welded row should be closed, got %+v", got.Edges())
	}
	if v := got.SignedVolume(); math.Abs(v-4) > 1e-6 {
		t.Errorf("SignedVolume = %g, want 4", v)
	}
	if n := w.Triangles(gen); n != got.TriangleCount() {
		t.Errorf("Triangles(%d) = %d, mesh has %d", gen, n, got.TriangleCount())
	}
}

func TestWelderKeepsEarlierGenerations(t *testing.T) {
	cubes := cubeRow(3)
	w := NewWelder(0)
	g1 := w.Add(cubes[0])
	g2 := w.Add(cubes[1])
	g3 := w.Add(cubes[2])
	if g1 != 1 || g2 != 2 || g3 != 3 || w.Generation() != 3 {
		t.Fatalf("generations = %d, %d, %d (now %d)", g1, g2, g3, w.Generation())
	}

	// The shared face of cubes 1 and 2 was cancelled in generation 3; the
	// two-cube box read at generation 2 must still have it.
	two := w.Mesh(g2)
	if !two.Edges().Closed() || two.TriangleCount() != 20 {
		t.Errorf("generation 2: %d triangles, %+v", two.TriangleCount(), two.Edges())
	}
	if v := two.SignedVolume(); math.Abs(v-2) > 1e-6 {
		t.Errorf("generation 2 volume = %g, want 2", v)
	}
	if one := w.Mesh(g1); one.TriangleCount() != 12 {
		t.Errorf("generation 1: %d triangles, want 12", one.TriangleCount())
	}
	if empty := w.Mesh(0); !empty.IsEmpty() {
		t.Error("generation 0 should be empty")
	}
}

func TestWelderExtendRefusesStaleGeneration(t *testing.T) {
	cubes := cubeRow(3)
	w := NewWelder(WeldTolerance)
	g1 := w.Add(cubes[0])
	if gen, ok := w.Extend(g1, cubes[1]); !ok || gen != 2 {
		t.Fatalf("Extend(%d) = %d, %v", g1, gen, ok)
	}
	if gen, ok := w.Extend(g1, cubes[2]); ok || gen != 2 {
		t.Errorf("Extend from a stale generation = %d, %v; want refusal at 2", gen, ok)
	}
}
