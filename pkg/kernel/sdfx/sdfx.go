// Package sdfx implements kernel.Host on the github.com/deadsy/sdfx
// SDF-based CAD library.
//
// Meshes handed to CreateMesh become signed distance fields; Union is a
// true SDF union, so overlapping operands fuse without relying on shared
// faces. Results are read back with marching cubes, and Decimate lowers the
// marching-cubes resolution.
package sdfx

import (
	"fmt"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/hydrogrid/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Host = (*Host)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along
// the longest side of a solid.
const DefaultMeshCells = 96

// minMeshCells is the coarsest resolution Decimate goes down to.
const minMeshCells = 8

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid. Solids built from
// a mesh keep it, so reading them back is exact.
type sdfxSolid struct {
	s      sdf.SDF3
	source *kernel.Mesh
	cells  int
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// Host implements kernel.Host using sdfx.
type Host struct {
	kernel.Scene

	// Cells is the marching cubes resolution of rendered solids. Zero
	// selects DefaultMeshCells.
	Cells int
}

// New returns a new Host.
func New() *Host {
	return &Host{Cells: DefaultMeshCells}
}

func (h *Host) cells() int {
	if h.Cells <= 0 {
		return DefaultMeshCells
	}
	return h.Cells
}

// unwrap extracts the underlying solid from a kernel.Solid.
func unwrap(s kernel.Solid) (*sdfxSolid, error) {
	ss, ok := s.(*sdfxSolid)
	if !ok || ss == nil {
		return nil, fmt.Errorf("sdfx: foreign solid %T", s)
	}
	return ss, nil
}

// CreateMesh builds a distance field from a closed triangle mesh.
func (h *Host) CreateMesh(vertices []float32, faces []uint32) (kernel.Solid, error) {
	if len(vertices)%3 != 0 || len(faces)%3 != 0 || len(faces) == 0 {
		return nil, fmt.Errorf("sdfx: malformed mesh (%d floats, %d indices)", len(vertices), len(faces))
	}
	n := uint32(len(vertices) / 3)
	for _, idx := range faces {
		if idx >= n {
			return nil, fmt.Errorf("sdfx: face index %d out of range (%d vertices)", idx, n)
		}
	}
	m := &kernel.Mesh{
		Vertices: append([]float32(nil), vertices...),
		Indices:  append([]uint32(nil), faces...),
	}
	return &sdfxSolid{s: newMeshSDF(m), source: m, cells: h.cells()}, nil
}

// Union returns the SDF union of the solids.
func (h *Host) Union(solids []kernel.Solid) (kernel.Solid, error) {
	if len(solids) == 0 {
		return nil, fmt.Errorf("sdfx: union of nothing")
	}
	operands := make([]sdf.SDF3, len(solids))
	for i, s := range solids {
		ss, err := unwrap(s)
		if err != nil {
			return nil, err
		}
		operands[i] = ss.s
	}
	if len(operands) == 1 {
		return &sdfxSolid{s: operands[0], cells: h.cells()}, nil
	}
	return &sdfxSolid{s: sdf.Union3D(operands...), cells: h.cells()}, nil
}

// Decimate re-renders s at a resolution scaled so that the triangle count
// drops by roughly ratio. Marching cubes output grows with the square of
// the resolution.
func (h *Host) Decimate(s kernel.Solid, ratio float64) (kernel.Solid, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	if ratio <= 0 || ratio > 1 {
		return nil, fmt.Errorf("sdfx: decimate ratio %g outside (0, 1]", ratio)
	}
	cells := int(math.Round(float64(ss.cells) * math.Sqrt(ratio)))
	if cells < minMeshCells {
		cells = minMeshCells
	}
	return &sdfxSolid{s: ss.s, cells: cells}, nil
}

// ToMesh returns the solid's source mesh, or renders it with marching cubes.
func (h *Host) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	ss, err := unwrap(s)
	if err != nil {
		return nil, err
	}
	if ss.source != nil {
		return ss.source.Clone(), nil
	}

	renderer := render.NewMarchingCubesUniform(ss.cells)
	triangles := render.ToTriangles(ss.s, renderer)
	if len(triangles) == 0 {
		return nil, fmt.Errorf("sdfx: solid renders to nothing at %d cells", ss.cells)
	}

	numVerts := len(triangles) * 3
	mesh := &kernel.Mesh{
		Vertices: make([]float32, 0, numVerts*3),
		Indices:  make([]uint32, 0, numVerts),
	}
	for i, tri := range triangles {
		for j := 0; j < 3; j++ {
			v := tri[j]
			mesh.Vertices = append(mesh.Vertices, float32(v.X), float32(v.Y), float32(v.Z))
			mesh.Indices = append(mesh.Indices, uint32(i*3+j))
		}
	}
	return mesh.Weld(kernel.WeldTolerance), nil
}

// Insert adds s to the scene.
func (h *Host) Insert(s kernel.Solid, xf kernel.Transform, name string) error {
	if _, err := unwrap(s); err != nil {
		return err
	}
	return h.Scene.Insert(s, xf, name)
}
