package sdfx

import (
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/hydrogrid/pkg/kernel"
)

// box returns a closed, outward-wound box mesh from (x0,0,0) to
// (x0+sx, sy, sz).
func box(x0, sx, sy, sz float32) *kernel.Mesh {
	v := []float32{
		0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0,
		0, 0, 1, 1, 0, 1, 1, 1, 1, 0, 1, 1,
	}
	for i := 0; i < len(v); i += 3 {
		v[i] = x0 + v[i]*sx
		v[i+1] *= sy
		v[i+2] *= sz
	}
	return &kernel.Mesh{
		Vertices: v,
		Indices: []uint32{
			0, 2, 1, 0, 3, 2,
			4, 5, 6, 4, 6, 7,
			0, 1, 5, 0, 5, 4,
			2, 3, 7, 2, 7, 6,
			1, 2, 6, 1, 6, 5,
			0, 4, 7, 0, 7, 3,
		},
	}
}

func create(t *testing.T, h *Host, m *kernel.Mesh) kernel.Solid {
	t.Helper()
	s, err := h.CreateMesh(m.Vertices, m.Indices)
	if err != nil {
		t.Fatalf("CreateMesh failed: %v", err)
	}
	return s
}

func TestMeshSDFSign(t *testing.T) {
	s := newMeshSDF(box(0, 1, 1, 1))
	tests := []struct {
		name string
		p    v3.Vec
		want float64
	}{
		{"centre", v3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, -0.5},
		{"near face inside", v3.Vec{X: 0.9, Y: 0.5, Z: 0.5}, -0.1},
		{"near face outside", v3.Vec{X: 1.2, Y: 0.5, Z: 0.5}, 0.2},
		{"beyond corner", v3.Vec{X: 2, Y: 2, Z: 1}, math.Sqrt2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Evaluate(tt.p); math.Abs(got-tt.want) > 1e-6 {
				t.Errorf("Evaluate(%v) = %g, want %g", tt.p, got, tt.want)
			}
		})
	}
}

func TestCreateMeshReadsBackExactly(t *testing.T) {
	h := New()
	src := box(0, 1, 2, 3)
	s := create(t, h, src)

	mesh, err := h.ToMesh(s)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.TriangleCount() != 12 {
		t.Fatalf("triangle count = %d, want 12", mesh.TriangleCount())
	}
	min, max := s.BoundingBox()
	if min[2] >= 0 || max[2] <= 3 {
		t.Errorf("bounding box %v..%v does not enclose the mesh", min, max)
	}

	if _, err := h.CreateMesh([]float32{0, 0}, []uint32{0, 1, 2}); err == nil {
		t.Error("malformed vertex array accepted")
	}
	if _, err := h.CreateMesh(src.Vertices, []uint32{0, 1, 99}); err == nil {
		t.Error("out-of-range index accepted")
	}
}

func TestUnionOfOverlappingBoxes(t *testing.T) {
	h := &Host{Cells: 32}
	a := create(t, h, box(0, 1, 1, 1))
	b := create(t, h, box(0.5, 1, 1, 1))

	u, err := h.Union([]kernel.Solid{a, b})
	if err != nil {
		t.Fatalf("Union failed: %v", err)
	}
	mesh, err := h.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
	if v := math.Abs(mesh.SignedVolume()); math.Abs(v-1.5) > 0.15 {
		t.Errorf("union volume = %g, want about 1.5", v)
	}
	lo, hi := mesh.Bounds()
	if math.Abs(lo[0]) > 0.1 || math.Abs(hi[0]-1.5) > 0.1 {
		t.Errorf("union spans x %g..%g, want 0..1.5", lo[0], hi[0])
	}
	t.Logf("union triangle count: %d", mesh.TriangleCount())
}

func TestDecimateLowersResolution(t *testing.T) {
	h := &Host{Cells: 32}
	a := create(t, h, box(0, 1, 1, 1))
	b := create(t, h, box(0.5, 1, 1, 1))
	u, err := h.Union([]kernel.Solid{a, b})
	if err != nil {
		t.Fatalf("Union failed: %v", err)
	}
	fine, err := h.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}

	d, err := h.Decimate(u, 0.25)
	if err != nil {
		t.Fatalf("Decimate failed: %v", err)
	}
	coarse, err := h.ToMesh(d)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if coarse.TriangleCount() >= fine.TriangleCount() {
		t.Errorf("decimated mesh has %d triangles, source %d", coarse.TriangleCount(), fine.TriangleCount())
	}

	for _, ratio := range []float64{0, -1, 1.5} {
		if _, err := h.Decimate(u, ratio); err == nil {
			t.Errorf("Decimate(%g) accepted", ratio)
		}
	}
}

func TestSceneInsertRemove(t *testing.T) {
	h := New()
	s := create(t, h, box(0, 1, 1, 1))
	if err := h.Insert(s, kernel.Identity(), "a"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := h.Insert(s, kernel.Identity(), "a"); err == nil {
		t.Error("duplicate name accepted")
	}
	if err := h.Insert(nil, kernel.Identity(), "b"); err == nil {
		t.Error("foreign solid accepted")
	}
	if got := len(h.Objects()); got != 1 {
		t.Fatalf("scene has %d objects, want 1", got)
	}
	if err := h.Remove("a"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := h.Remove("a"); err == nil {
		t.Error("removing a missing object succeeded")
	}
}
