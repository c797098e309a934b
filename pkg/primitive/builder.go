package primitive

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/hydrogrid/pkg/kernel"
)

// ring holds the unit circle sampled at RadialSegments angles. Quarter and
// eighth points are exact so rings rotated by 90° land on each other.
var ring = func() [RadialSegments][2]float64 {
	var out [RadialSegments][2]float64
	for k := range out {
		theta := 2 * math.Pi * float64(k) / RadialSegments
		c, s := math.Cos(theta), math.Sin(theta)
		if k%(RadialSegments/8) == 0 {
			c, s = snap(c), snap(s)
		}
		out[k] = [2]float64{c, s}
	}
	return out
}()

func snap(x float64) float64 {
	h := math.Sqrt2 / 2
	for _, v := range []float64{0, 1, -1, h, -h} {
		if math.Abs(x-v) < 1e-9 {
			return v
		}
	}
	return x
}

// point is a profile vertex: radius from the axis and position along it.
type point struct{ r, s float64 }

// frame is a local cylindrical frame. Profile point (r, s) at ring index k
// maps to origin + s·axis + r·(cos θk·u + sin θk·v).
type frame struct {
	origin, axis, u, v r3.Vec
}

// axisFrame picks the ring basis from the axis direction, so that parts
// sharing a port direction sample the same ring.
func axisFrame(origin, axis r3.Vec) frame {
	f := frame{origin: origin, axis: axis}
	switch {
	case axis.X != 0:
		f.u, f.v = kernel.AxisY, kernel.AxisZ
	case axis.Y != 0:
		f.u, f.v = kernel.AxisZ, kernel.AxisX
	default:
		f.u, f.v = kernel.AxisX, kernel.AxisY
	}
	return f
}

func (f frame) dir(k int) r3.Vec {
	cs := ring[k%RadialSegments]
	return r3.Add(r3.Scale(cs[0], f.u), r3.Scale(cs[1], f.v))
}

func (f frame) at(p point, k int) r3.Vec {
	return r3.Add(r3.Add(f.origin, r3.Scale(p.s, f.axis)), r3.Scale(p.r, f.dir(k)))
}

// square projects ring index k onto the square of the given half-size in
// the frame's u-v plane, offset by s along the axis.
func (f frame) square(half, s float64, k int) r3.Vec {
	cs := ring[k%RadialSegments]
	m := math.Max(math.Abs(cs[0]), math.Abs(cs[1]))
	in := r3.Add(r3.Scale(half*cs[0]/m, f.u), r3.Scale(half*cs[1]/m, f.v))
	return r3.Add(r3.Add(f.origin, r3.Scale(s, f.axis)), in)
}

// soup collects unshared triangles. Winding is fixed per triangle against
// an outward hint, then coincident corners are welded on output.
type soup struct {
	tris []r3.Vec
}

func (b *soup) tri(p0, p1, p2, outward r3.Vec) {
	if p0 == p1 || p1 == p2 || p2 == p0 {
		return
	}
	n := r3.Cross(r3.Sub(p1, p0), r3.Sub(p2, p0))
	if r3.Dot(n, outward) < 0 {
		p1, p2 = p2, p1
	}
	b.tris = append(b.tris, p0, p1, p2)
}

func (b *soup) quad(p0, p1, p2, p3, outward r3.Vec) {
	b.tri(p0, p1, p2, outward)
	b.tri(p0, p2, p3, outward)
}

// fan splits a planar quad into four triangles about its centroid. The
// split does not depend on vertex order, so two parts sharing the quad
// triangulate it identically.
func (b *soup) fan(p0, p1, p2, p3, outward r3.Vec) {
	c := r3.Scale(0.25, r3.Add(r3.Add(p0, p1), r3.Add(p2, p3)))
	b.tri(c, p0, p1, outward)
	b.tri(c, p1, p2, outward)
	b.tri(c, p2, p3, outward)
	b.tri(c, p3, p0, outward)
}

// lathe revolves a profile about f's axis. The profile runs
// counter-clockwise in the (r, s) half-plane around the solid's section, so
// (Δs, -Δr) is the outward normal of each edge. Edges on the axis are
// skipped; vertices on the axis become poles. Closed profiles wrap.
func (b *soup) lathe(f frame, profile []point, closed bool) {
	n := len(profile) - 1
	if closed {
		n = len(profile)
	}
	for i := 0; i < n; i++ {
		p, q := profile[i], profile[(i+1)%len(profile)]
		if p.r == 0 && q.r == 0 {
			continue
		}
		nr, ns := q.s-p.s, -(q.r - p.r)
		flat := p.s == q.s
		for k := 0; k < RadialSegments; k++ {
			k1 := k + 1
			mid := r3.Unit(r3.Add(f.dir(k), f.dir(k1)))
			hint := r3.Add(r3.Scale(nr, mid), r3.Scale(ns, f.axis))
			a, bb := f.at(p, k), f.at(p, k1)
			c, d := f.at(q, k1), f.at(q, k)
			switch {
			case p.r == 0:
				b.tri(a, c, d, hint)
			case q.r == 0:
				b.tri(a, bb, c, hint)
			case flat:
				b.fan(a, bb, c, d, hint)
			default:
				b.quad(a, bb, c, d, hint)
			}
		}
	}
}

func (b *soup) mesh(name string) *kernel.Mesh {
	m := &kernel.Mesh{
		Vertices: make([]float32, 0, len(b.tris)*3),
		Indices:  make([]uint32, 0, len(b.tris)),
	}
	for i, p := range b.tris {
		m.Vertices = append(m.Vertices, float32(p.X), float32(p.Y), float32(p.Z))
		m.Indices = append(m.Indices, uint32(i))
	}
	out := m.Weld(kernel.WeldTolerance)
	out.PartName = name
	return out
}
