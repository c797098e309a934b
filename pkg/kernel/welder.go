package kernel

import (
	"sync"

	"github.com/chewxy/math32"
)

// Welder accumulates meshes into one welded surface. Each Add merges the
// new mesh's vertices into the existing weld grid and cancels faces that
// meet an existing face back to back, so it costs time in proportion to
// the added mesh. The result matches Weld, CancelOpposingFaces and Compact
// over the concatenated inputs.
//
// Every Add opens a generation. Mesh reads the surface as it stood at any
// earlier generation, so a handle to an intermediate union stays valid
// after the welder moves on. It is safe for concurrent use.
type Welder struct {
	mu    sync.RWMutex
	tol   float32
	grid  map[cellKey][]uint32
	verts []float32
	tris  []weldTri
	faces map[faceKey][]int // live triangles by canonical face
	gens  []genMark
}

type weldTri struct {
	v      [3]uint32
	killed int // generation that cancelled it; 0 while live
}

type genMark struct {
	verts, tris, live int
}

// NewWelder returns an empty welder merging vertices closer than tol.
func NewWelder(tol float32) *Welder {
	if tol <= 0 {
		tol = WeldTolerance
	}
	return &Welder{
		tol:   tol,
		grid:  make(map[cellKey][]uint32),
		faces: make(map[faceKey][]int),
	}
}

// Generation returns the number of meshes added so far.
func (w *Welder) Generation() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.gens)
}

// Add merges m and returns the new generation.
func (w *Welder) Add(m *Mesh) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.add(m)
}

// Extend adds meshes only if the welder is still at generation gen. It
// reports the new generation and whether the meshes were added.
func (w *Welder) Extend(gen int, meshes ...*Mesh) (int, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != len(w.gens) {
		return len(w.gens), false
	}
	for _, m := range meshes {
		gen = w.add(m)
	}
	return gen, true
}

func (w *Welder) add(m *Mesh) int {
	g := len(w.gens) + 1
	live := 0
	if g > 1 {
		live = w.gens[g-2].live
	}

	remap := make([]uint32, m.VertexCount())
	for i := range remap {
		remap[i] = w.vertex(m.Vertices[i*3], m.Vertices[i*3+1], m.Vertices[i*3+2])
	}
	for t := 0; t < m.TriangleCount(); t++ {
		a, b, c := remap[m.Indices[t*3]], remap[m.Indices[t*3+1]], remap[m.Indices[t*3+2]]
		if a == b || b == c || c == a {
			continue
		}
		rev := canonicalFace(a, c, b)
		if back := w.faces[rev]; len(back) > 0 {
			w.tris[back[0]].killed = g
			w.faces[rev] = back[1:]
			live--
			continue
		}
		k := canonicalFace(a, b, c)
		w.faces[k] = append(w.faces[k], len(w.tris))
		w.tris = append(w.tris, weldTri{v: [3]uint32{a, b, c}})
		live++
	}
	w.gens = append(w.gens, genMark{verts: len(w.verts) / 3, tris: len(w.tris), live: live})
	return g
}

// vertex returns the index of the welded vertex at (x, y, z), adding one
// if none lies within tolerance.
func (w *Welder) vertex(x, y, z float32) uint32 {
	cell := func(v float32) int32 { return int32(math32.Floor(v / w.tol)) }
	c := cellKey{cell(x), cell(y), cell(z)}
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				for _, j := range w.grid[cellKey{c[0] + dx, c[1] + dy, c[2] + dz}] {
					if math32.Abs(w.verts[j*3]-x) <= w.tol &&
						math32.Abs(w.verts[j*3+1]-y) <= w.tol &&
						math32.Abs(w.verts[j*3+2]-z) <= w.tol {
						return j
					}
				}
			}
		}
	}
	j := uint32(len(w.verts) / 3)
	w.verts = append(w.verts, x, y, z)
	w.grid[c] = append(w.grid[c], j)
	return j
}

// Triangles returns the live triangle count at generation gen.
func (w *Welder) Triangles(gen int) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if gen < 1 || gen > len(w.gens) {
		return 0
	}
	return w.gens[gen-1].live
}

// Mesh returns the compacted surface as it stood at generation gen.
func (w *Welder) Mesh(gen int) *Mesh {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := &Mesh{}
	if gen < 1 || gen > len(w.gens) {
		return out
	}
	mark := w.gens[gen-1]
	used := make(map[uint32]uint32, mark.verts)
	out.Indices = make([]uint32, 0, mark.live*3)
	for _, t := range w.tris[:mark.tris] {
		if t.killed != 0 && t.killed <= gen {
			continue
		}
		for _, v := range t.v {
			j, ok := used[v]
			if !ok {
				j = uint32(out.VertexCount())
				used[v] = j
				out.Vertices = append(out.Vertices, w.verts[v*3], w.verts[v*3+1], w.verts[v*3+2])
			}
			out.Indices = append(out.Indices, j)
		}
	}
	return out
}
