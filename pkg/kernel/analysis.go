package kernel

import (
	"sort"

	"github.com/chewxy/math32"
)

// WeldTolerance is the default distance under which vertices are merged.
const WeldTolerance float32 = 1e-6

// EdgeStats summarises how many faces use each undirected edge.
type EdgeStats struct {
	Edges       int // distinct undirected edges
	Boundary    int // used by exactly one face
	NonManifold int // used by three or more faces
}

// Closed reports whether every edge is shared by exactly two faces.
func (s EdgeStats) Closed() bool {
	return s.Boundary == 0 && s.NonManifold == 0
}

type edgeKey struct{ a, b uint32 }

func makeEdge(a, b uint32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// Edges counts edge usage over the mesh's index topology. Call Weld first
// if coincident vertices may be duplicated.
func (m *Mesh) Edges() EdgeStats {
	use := make(map[edgeKey]int, len(m.Indices))
	for t := 0; t < m.TriangleCount(); t++ {
		i0, i1, i2 := m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2]
		use[makeEdge(i0, i1)]++
		use[makeEdge(i1, i2)]++
		use[makeEdge(i2, i0)]++
	}
	stats := EdgeStats{Edges: len(use)}
	for _, n := range use {
		switch {
		case n == 1:
			stats.Boundary++
		case n > 2:
			stats.NonManifold++
		}
	}
	return stats
}

// BoundaryEdges returns the number of edges used by a single face.
func (m *Mesh) BoundaryEdges() int {
	return m.Edges().Boundary
}

type cellKey [3]int32

// Weld merges vertices closer than tol and drops faces that collapse as a
// result. Vertex order is preserved: each merged group is represented by
// its lowest-index member. Normals are discarded.
func (m *Mesh) Weld(tol float32) *Mesh {
	if tol <= 0 {
		tol = WeldTolerance
	}
	cell := func(v float32) int32 { return int32(math32.Floor(v / tol)) }

	grid := make(map[cellKey][]uint32)
	remap := make([]uint32, m.VertexCount())
	out := &Mesh{PartName: m.PartName}

	for i := 0; i < m.VertexCount(); i++ {
		x, y, z := m.Vertices[i*3], m.Vertices[i*3+1], m.Vertices[i*3+2]
		c := cellKey{cell(x), cell(y), cell(z)}

		found := false
	search:
		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				for dz := int32(-1); dz <= 1; dz++ {
					for _, j := range grid[cellKey{c[0] + dx, c[1] + dy, c[2] + dz}] {
						if math32.Abs(out.Vertices[j*3]-x) <= tol &&
							math32.Abs(out.Vertices[j*3+1]-y) <= tol &&
							math32.Abs(out.Vertices[j*3+2]-z) <= tol {
							remap[i] = j
							found = true
							break search
						}
					}
				}
			}
		}
		if found {
			continue
		}
		j := uint32(out.VertexCount())
		out.Vertices = append(out.Vertices, x, y, z)
		grid[c] = append(grid[c], j)
		remap[i] = j
	}

	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := remap[m.Indices[t*3]], remap[m.Indices[t*3+1]], remap[m.Indices[t*3+2]]
		if a == b || b == c || c == a {
			continue
		}
		out.Indices = append(out.Indices, a, b, c)
	}
	return out
}

type faceKey [3]uint32

// canonicalFace rotates (a,b,c) so the smallest index comes first, keeping
// the winding.
func canonicalFace(a, b, c uint32) faceKey {
	switch {
	case a <= b && a <= c:
		return faceKey{a, b, c}
	case b <= a && b <= c:
		return faceKey{b, c, a}
	default:
		return faceKey{c, a, b}
	}
}

// CancelOpposingFaces removes pairs of faces that use the same three
// vertices with opposite winding. Two solids welded along an identical
// contact face produce exactly such pairs; removing them opens the seam so
// the result is a single closed surface.
func (m *Mesh) CancelOpposingFaces() *Mesh {
	byFace := make(map[faceKey][]int)
	for t := 0; t < m.TriangleCount(); t++ {
		k := canonicalFace(m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2])
		byFace[k] = append(byFace[k], t)
	}

	drop := make(map[int]bool)
	keys := make([]faceKey, 0, len(byFace))
	for k := range byFace {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	})
	for _, k := range keys {
		if k[1] < k[2] {
			continue // each unordered triple is handled once
		}
		rev := faceKey{k[0], k[2], k[1]}
		fwd, back := byFace[k], byFace[rev]
		n := len(fwd)
		if len(back) < n {
			n = len(back)
		}
		for i := 0; i < n; i++ {
			drop[fwd[i]] = true
			drop[back[i]] = true
		}
	}
	if len(drop) == 0 {
		return m.Clone()
	}

	out := &Mesh{
		Vertices: append([]float32(nil), m.Vertices...),
		PartName: m.PartName,
	}
	for t := 0; t < m.TriangleCount(); t++ {
		if drop[t] {
			continue
		}
		out.Indices = append(out.Indices, m.Indices[t*3], m.Indices[t*3+1], m.Indices[t*3+2])
	}
	return out
}

// Compact removes vertices no face references.
func (m *Mesh) Compact() *Mesh {
	used := make([]int64, m.VertexCount())
	for i := range used {
		used[i] = -1
	}
	out := &Mesh{PartName: m.PartName}
	for _, idx := range m.Indices {
		if used[idx] < 0 {
			used[idx] = int64(out.VertexCount())
			out.Vertices = append(out.Vertices, m.Vertices[idx*3], m.Vertices[idx*3+1], m.Vertices[idx*3+2])
		}
		out.Indices = append(out.Indices, uint32(used[idx]))
	}
	return out
}
