package sdfx

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/hydrogrid/pkg/kernel"
)

// boundsPadding grows a mesh's bounding box, as a fraction of its largest
// side, so marching cubes sees the whole surface.
const boundsPadding = 0.05

// meshSDF is the signed distance field of a closed triangle mesh. The sign
// comes from the generalised winding number, so nested and overlapping
// shells behave as their union.
type meshSDF struct {
	tris     [][3]r3.Vec
	min, max r3.Vec
	bb       sdf.Box3
}

func newMeshSDF(m *kernel.Mesh) *meshSDF {
	s := &meshSDF{tris: make([][3]r3.Vec, m.TriangleCount())}
	lo, hi := m.Bounds()
	s.min = r3.Vec{X: lo[0], Y: lo[1], Z: lo[2]}
	s.max = r3.Vec{X: hi[0], Y: hi[1], Z: hi[2]}
	for t := range s.tris {
		a, b, c := m.Triangle(t)
		s.tris[t] = [3]r3.Vec{a, b, c}
	}

	size := r3.Sub(s.max, s.min)
	pad := boundsPadding*math.Max(size.X, math.Max(size.Y, size.Z)) + 1e-9
	s.bb = sdf.Box3{
		Min: v3.Vec{X: s.min.X - pad, Y: s.min.Y - pad, Z: s.min.Z - pad},
		Max: v3.Vec{X: s.max.X + pad, Y: s.max.Y + pad, Z: s.max.Z + pad},
	}
	return s
}

// BoundingBox returns the padded bounding box.
func (s *meshSDF) BoundingBox() sdf.Box3 {
	return s.bb
}

// Evaluate returns the signed distance from p to the surface, negative
// inside. Outside the mesh bounds the distance to the bounds is returned,
// a lower bound that spares a scan of every triangle.
func (s *meshSDF) Evaluate(p v3.Vec) float64 {
	q := r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
	if d := boxDistance(q, s.min, s.max); d > 0 {
		return d
	}
	best := math.Inf(1)
	var winding float64
	for _, t := range s.tris {
		if d := r3.Norm2(r3.Sub(q, closestOnTriangle(q, t[0], t[1], t[2]))); d < best {
			best = d
		}
		winding += solidAngle(q, t[0], t[1], t[2])
	}
	d := math.Sqrt(best)
	if winding/(4*math.Pi) > 0.5 {
		return -d
	}
	return d
}

func boxDistance(p, min, max r3.Vec) float64 {
	dx := math.Max(math.Max(min.X-p.X, p.X-max.X), 0)
	dy := math.Max(math.Max(min.Y-p.Y, p.Y-max.Y), 0)
	dz := math.Max(math.Max(min.Z-p.Z, p.Z-max.Z), 0)
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// solidAngle is the signed solid angle triangle abc subtends at p
// (Van Oosterom and Strackee).
func solidAngle(p, a, b, c r3.Vec) float64 {
	a, b, c = r3.Sub(a, p), r3.Sub(b, p), r3.Sub(c, p)
	la, lb, lc := r3.Norm(a), r3.Norm(b), r3.Norm(c)
	num := r3.Dot(a, r3.Cross(b, c))
	den := la*lb*lc + r3.Dot(a, b)*lc + r3.Dot(a, c)*lb + r3.Dot(b, c)*la
	return 2 * math.Atan2(num, den)
}

// closestOnTriangle returns the point of triangle abc nearest p
// (Ericson, Real-Time Collision Detection 5.1.5).
func closestOnTriangle(p, a, b, c r3.Vec) r3.Vec {
	ab, ac, ap := r3.Sub(b, a), r3.Sub(c, a), r3.Sub(p, a)
	d1, d2 := r3.Dot(ab, ap), r3.Dot(ac, ap)
	if d1 <= 0 && d2 <= 0 {
		return a
	}
	bp := r3.Sub(p, b)
	d3, d4 := r3.Dot(ab, bp), r3.Dot(ac, bp)
	if d3 >= 0 && d4 <= d3 {
		return b
	}
	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		return r3.Add(a, r3.Scale(d1/(d1-d3), ab))
	}
	cp := r3.Sub(p, c)
	d5, d6 := r3.Dot(ab, cp), r3.Dot(ac, cp)
	if d6 >= 0 && d5 <= d6 {
		return c
	}
	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		return r3.Add(a, r3.Scale(d2/(d2-d6), ac))
	}
	va := d3*d6 - d5*d4
	if va <= 0 && d4-d3 >= 0 && d5-d6 >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return r3.Add(b, r3.Scale(w, r3.Sub(c, b)))
	}
	denom := 1 / (va + vb + vc)
	v, w := vb*denom, vc*denom
	return r3.Add(a, r3.Add(r3.Scale(v, ab), r3.Scale(w, ac)))
}
