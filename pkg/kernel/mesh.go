package kernel

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Mesh is an indexed triangle mesh.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex (or is empty), indices has 3 uint32s per
// triangle. Triangles wind counter-clockwise seen from outside.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // scene name of the part this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Vertex returns vertex i in double precision.
func (m *Mesh) Vertex(i uint32) r3.Vec {
	return r3.Vec{
		X: float64(m.Vertices[i*3]),
		Y: float64(m.Vertices[i*3+1]),
		Z: float64(m.Vertices[i*3+2]),
	}
}

// Triangle returns the corners of triangle t.
func (m *Mesh) Triangle(t int) (a, b, c r3.Vec) {
	return m.Vertex(m.Indices[t*3]), m.Vertex(m.Indices[t*3+1]), m.Vertex(m.Indices[t*3+2])
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Vertices: append([]float32(nil), m.Vertices...),
		Normals:  append([]float32(nil), m.Normals...),
		Indices:  append([]uint32(nil), m.Indices...),
		PartName: m.PartName,
	}
}

// Append adds other's geometry to m. Normals are kept only if both meshes
// carry them.
func (m *Mesh) Append(other *Mesh) {
	base := uint32(m.VertexCount())
	keepNormals := len(m.Normals) == len(m.Vertices) && len(other.Normals) == len(other.Vertices)
	m.Vertices = append(m.Vertices, other.Vertices...)
	if keepNormals {
		m.Normals = append(m.Normals, other.Normals...)
	} else {
		m.Normals = nil
	}
	for _, idx := range other.Indices {
		m.Indices = append(m.Indices, base+idx)
	}
}

// Transformed returns a copy of m with every vertex (and normal) mapped by xf.
func (m *Mesh) Transformed(xf Transform) *Mesh {
	out := &Mesh{
		Vertices: make([]float32, len(m.Vertices)),
		Indices:  append([]uint32(nil), m.Indices...),
		PartName: m.PartName,
	}
	for i := 0; i < m.VertexCount(); i++ {
		p := xf.Apply(m.Vertex(uint32(i)))
		out.Vertices[i*3] = float32(p.X)
		out.Vertices[i*3+1] = float32(p.Y)
		out.Vertices[i*3+2] = float32(p.Z)
	}
	if len(m.Normals) == len(m.Vertices) {
		out.Normals = make([]float32, len(m.Normals))
		for i := 0; i < len(m.Normals)/3; i++ {
			n := xf.Rotate(r3.Vec{
				X: float64(m.Normals[i*3]),
				Y: float64(m.Normals[i*3+1]),
				Z: float64(m.Normals[i*3+2]),
			})
			out.Normals[i*3] = float32(n.X)
			out.Normals[i*3+1] = float32(n.Y)
			out.Normals[i*3+2] = float32(n.Z)
		}
	}
	return out
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *Mesh) Bounds() (min, max [3]float64) {
	if m.IsEmpty() {
		return min, max
	}
	for k := 0; k < 3; k++ {
		min[k] = math.Inf(1)
		max[k] = math.Inf(-1)
	}
	for i := 0; i < len(m.Vertices); i += 3 {
		for k := 0; k < 3; k++ {
			v := float64(m.Vertices[i+k])
			min[k] = math.Min(min[k], v)
			max[k] = math.Max(max[k], v)
		}
	}
	return min, max
}

// SignedVolume returns the enclosed volume by the divergence theorem. It is
// positive for a closed, outward-wound mesh.
func (m *Mesh) SignedVolume() float64 {
	var vol float64
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		vol += r3.Dot(a, r3.Cross(b, c))
	}
	return vol / 6
}

// ComputeNormals fills Normals with area-weighted vertex normals.
func (m *Mesh) ComputeNormals() {
	numVerts := m.VertexCount()
	acc := make([]r3.Vec, numVerts)
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := m.Triangle(t)
		n := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		for k := 0; k < 3; k++ {
			i := m.Indices[t*3+k]
			acc[i] = r3.Add(acc[i], n)
		}
	}
	m.Normals = make([]float32, numVerts*3)
	for i, n := range acc {
		if l := r3.Norm(n); l > 1e-12 {
			n = r3.Scale(1/l, n)
		}
		m.Normals[i*3] = float32(n.X)
		m.Normals[i*3+1] = float32(n.Y)
		m.Normals[i*3+2] = float32(n.Z)
	}
}
