// Package memhost implements kernel.Host as an in-memory scene.
//
// Union welds operands along identical contact faces: coincident vertices
// are merged and face pairs that touch back to back are removed, which is
// exact for parts that mate port face to port face. A union result keeps
// its weld state, so folding parts into it one at a time only pays for the
// part added. Decimation uses the quadric simplifier in fauxgl.
package memhost

import (
	"fmt"
	"sync"

	"github.com/fogleman/fauxgl"

	"github.com/chazu/hydrogrid/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Host = (*Host)(nil)

// solid is a mesh owned by the host. Union results are backed by a welder
// generation and read into mesh on first use.
type solid struct {
	once sync.Once
	mesh *kernel.Mesh
	weld *kernel.Welder
	gen  int
}

func (s *solid) read() *kernel.Mesh {
	s.once.Do(func() {
		if s.mesh == nil && s.weld != nil {
			s.mesh = s.weld.Mesh(s.gen)
		}
	})
	return s.mesh
}

// BoundingBox returns the axis-aligned bounding box.
func (s *solid) BoundingBox() (min, max [3]float64) {
	return s.read().Bounds()
}

// Host is an in-memory scene. It is safe for concurrent use.
type Host struct {
	kernel.Scene

	// FailUnion, when set, is consulted before every union; a non-nil
	// return value is reported as the union's failure.
	FailUnion func(operands []kernel.Solid) error
}

// New returns an empty scene.
func New() *Host {
	return &Host{}
}

func unwrap(s kernel.Solid) (*kernel.Mesh, error) {
	ms, ok := s.(*solid)
	if !ok || ms == nil {
		return nil, fmt.Errorf("memhost: foreign solid %T", s)
	}
	return ms.read(), nil
}

// CreateMesh builds a solid from flat vertex positions and triangle indices.
func (h *Host) CreateMesh(vertices []float32, faces []uint32) (kernel.Solid, error) {
	if len(vertices)%3 != 0 || len(faces)%3 != 0 {
		return nil, fmt.Errorf("memhost: malformed mesh (%d floats, %d indices)", len(vertices), len(faces))
	}
	n := uint32(len(vertices) / 3)
	for _, idx := range faces {
		if idx >= n {
			return nil, fmt.Errorf("memhost: face index %d out of range (%d vertices)", idx, n)
		}
	}
	m := &kernel.Mesh{
		Vertices: append([]float32(nil), vertices...),
		Indices:  append([]uint32(nil), faces...),
	}
	return &solid{mesh: m}, nil
}

// Union merges the operands into one mesh, welding shared contact faces.
// When the first operand is the latest result of an earlier union, the
// remaining operands are folded into its weld state instead of welding
// everything again.
func (h *Host) Union(solids []kernel.Solid) (kernel.Solid, error) {
	if len(solids) == 0 {
		return nil, fmt.Errorf("memhost: union of nothing")
	}
	if h.FailUnion != nil {
		if err := h.FailUnion(solids); err != nil {
			return nil, err
		}
	}

	first, ok := solids[0].(*solid)
	incremental := ok && first != nil && first.weld != nil
	rest := solids
	if incremental {
		rest = solids[1:]
	}
	meshes := make([]*kernel.Mesh, 0, len(rest))
	for i, s := range rest {
		m, err := unwrap(s)
		if err != nil {
			return nil, err
		}
		if m.TriangleCount() == 0 {
			return nil, fmt.Errorf("memhost: union operand %d is degenerate", i+len(solids)-len(rest))
		}
		meshes = append(meshes, m)
	}
	if incremental && first.weld.Triangles(first.gen) == 0 {
		return nil, fmt.Errorf("memhost: union operand 0 is degenerate")
	}

	if incremental {
		if gen, ok := first.weld.Extend(first.gen, meshes...); ok {
			return &solid{weld: first.weld, gen: gen}, nil
		}
		// first has been extended by another union already; start over
		// from its surface.
		meshes = append([]*kernel.Mesh{first.read()}, meshes...)
	}
	w := kernel.NewWelder(kernel.WeldTolerance)
	var gen int
	for _, m := range meshes {
		gen = w.Add(m)
	}
	return &solid{weld: w, gen: gen}, nil
}

// Decimate simplifies s to roughly ratio of its triangle count.
func (h *Host) Decimate(s kernel.Solid, ratio float64) (kernel.Solid, error) {
	m, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	if ratio <= 0 || ratio > 1 {
		return nil, fmt.Errorf("memhost: decimate ratio %g outside (0, 1]", ratio)
	}
	if ratio == 1 {
		return &solid{mesh: m.Clone()}, nil
	}

	fm := ToFauxgl(m)
	fm.Simplify(ratio)
	out := FromFauxgl(fm).Weld(kernel.WeldTolerance)
	return &solid{mesh: out}, nil
}

// ToMesh returns a copy of the solid's mesh.
func (h *Host) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	m, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	return m.Clone(), nil
}

// Insert adds s to the scene.
func (h *Host) Insert(s kernel.Solid, xf kernel.Transform, name string) error {
	if _, err := unwrap(s); err != nil {
		return err
	}
	return h.Scene.Insert(s, xf, name)
}

// WorldMesh returns the named object's mesh in world coordinates.
func (h *Host) WorldMesh(name string) (*kernel.Mesh, error) {
	o, ok := h.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("memhost: no object %q", name)
	}
	m, err := unwrap(o.Solid)
	if err != nil {
		return nil, err
	}
	out := m.Transformed(o.Transform)
	out.PartName = name
	return out, nil
}

// ToFauxgl converts an indexed mesh to fauxgl's triangle list.
func ToFauxgl(m *kernel.Mesh) *fauxgl.Mesh {
	tris := make([]*fauxgl.Triangle, 0, m.TriangleCount())
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		tris = append(tris, fauxgl.NewTriangleForPoints(
			fauxgl.V(a.X, a.Y, a.Z),
			fauxgl.V(b.X, b.Y, b.Z),
			fauxgl.V(c.X, c.Y, c.Z),
		))
	}
	return fauxgl.NewTriangleMesh(tris)
}

// FromFauxgl converts a fauxgl triangle list to an unwelded indexed mesh.
func FromFauxgl(fm *fauxgl.Mesh) *kernel.Mesh {
	m := &kernel.Mesh{
		Vertices: make([]float32, 0, len(fm.Triangles)*9),
		Indices:  make([]uint32, 0, len(fm.Triangles)*3),
	}
	for _, t := range fm.Triangles {
		for _, v := range []fauxgl.Vector{t.V1.Position, t.V2.Position, t.V3.Position} {
			m.Indices = append(m.Indices, uint32(m.VertexCount()))
			m.Vertices = append(m.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
		}
	}
	return m
}
