package primitive

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/hydrogrid/pkg/catalog"
	"github.com/chazu/hydrogrid/pkg/kernel"
)

// MinPipeLength is the shortest straight pipe Pipe will build.
const MinPipeLength = 1e-5

// Tee hub margins, relative to the outer diameter.
const (
	hubOuterMargin = 0.1
	hubInnerMargin = 0.05
)

// Envelope is the farthest any fitting built from p reaches from its run
// axis: the tee hub's half width or the socket skirt.
func Envelope(p catalog.Profile) float64 {
	return math.Max(p.OuterRadius()+hubOuterMargin*p.OuterDiameter, p.SocketOuterDiameter()/2)
}

var (
	negX = r3.Vec{X: -1}
	negY = r3.Vec{Y: -1}
	negZ = r3.Vec{Z: -1}
)

// stubProfile is the open section of a fitting arm from its root to the
// port face at Reach: outer skin with a socket skirt set back by the collar
// lip, the port annulus, then the bore back to innerStart.
func stubProfile(p catalog.Profile, outerStart, innerStart float64) []point {
	ro, ri, rs := p.OuterRadius(), p.BoreRadius(), p.SocketOuterDiameter()/2
	s1 := p.Reach - p.SocketLength
	if s1-outerStart < 1e-9 {
		s1 = outerStart
	}
	s2 := p.Reach - p.CollarLip

	pts := []point{{ro, outerStart}}
	if s1 > outerStart {
		pts = append(pts, point{ro, s1})
	}
	return append(pts,
		point{rs, s1},
		point{rs, s2},
		point{ro, s2},
		point{ro, p.Reach},
		point{ri, p.Reach},
		point{ri, innerStart},
	)
}

// Pipe builds a straight pipe from the origin to (length, 0, 0). Port a
// faces -X at the origin, port b faces +X at the far end.
func Pipe(p catalog.Profile, length float64) (*Part, error) {
	if err := checkPipe(p); err != nil {
		return nil, err
	}
	if !(length >= MinPipeLength) {
		return nil, invalid(p.Selector, "pipe length %g below minimum %g", length, MinPipeLength)
	}
	ri, ro := p.BoreRadius(), p.OuterRadius()

	var b soup
	b.lathe(axisFrame(r3.Vec{}, kernel.AxisX), []point{
		{ri, 0}, {ro, 0}, {ro, length}, {ri, length},
	}, true)

	return &Part{
		Kind:    KindPipe,
		Mesh:    b.mesh(string(KindPipe)),
		Profile: p,
		Length:  length,
		Ports:   PipePorts(p, length),
	}, nil
}

// Collar builds a coupling: a socket skirt over a short pipe of twice the
// socket length, laid out like Pipe.
func Collar(p catalog.Profile) (*Part, error) {
	if err := checkPipe(p); err != nil {
		return nil, err
	}
	ri, ro, rs := p.BoreRadius(), p.OuterRadius(), p.SocketOuterDiameter()/2
	lip, l := p.CollarLip, 2*p.SocketLength

	var b soup
	b.lathe(axisFrame(r3.Vec{}, kernel.AxisX), []point{
		{ri, 0}, {ro, 0}, {ro, lip}, {rs, lip},
		{rs, l - lip}, {ro, l - lip}, {ro, l}, {ri, l},
	}, true)

	return &Part{
		Kind:    KindCollar,
		Mesh:    b.mesh(string(KindCollar)),
		Profile: p,
		Ports:   FittingPorts(KindCollar, p),
	}, nil
}

// EndCap builds a closed socket. Its single port a sits at the origin
// facing +X; the body extends towards -X.
func EndCap(p catalog.Profile) (*Part, error) {
	if err := checkPipe(p); err != nil {
		return nil, err
	}
	ri, ro, rs := p.BoreRadius(), p.OuterRadius(), p.SocketOuterDiameter()/2
	lip := p.CollarLip
	depth := p.SocketDepth
	l := p.SocketLength + p.WallThickness
	if depth >= l {
		return nil, invalid(p.Selector, "socket depth %g leaves no end wall in cap of length %g", depth, l)
	}

	var b soup
	b.lathe(axisFrame(r3.Vec{}, negX), []point{
		{ri, 0}, {ro, 0}, {ro, lip}, {rs, lip},
		{rs, l}, {0, l}, {0, depth}, {ri, depth},
	}, true)

	return &Part{
		Kind:    KindEndCap,
		Mesh:    b.mesh(string(KindEndCap)),
		Profile: p,
		Ports:   FittingPorts(KindEndCap, p),
	}, nil
}

// Elbow builds a 90° elbow with its corner at the origin. Port a sits at
// (Reach, 0, 0) facing +X and port b at (0, Reach, 0) facing +Y. The bend
// is a torus sector of radius BendRadius centred on (BendRadius,
// BendRadius, 0); straight arms carry it out to the ports.
func Elbow(p catalog.Profile) (*Part, error) {
	if err := checkPipe(p); err != nil {
		return nil, err
	}
	ri, ro, rb := p.BoreRadius(), p.OuterRadius(), p.BendRadius
	centre := r3.Vec{X: rb, Y: rb}
	const arcSegments = RadialSegments / 2

	radial := func(j int) r3.Vec {
		phi := -math.Pi/2 - math.Pi/2*float64(j)/arcSegments
		return r3.Vec{X: snap(math.Cos(phi)), Y: snap(math.Sin(phi))}
	}
	arcFrame := func(j int) frame {
		rad := radial(j)
		return frame{origin: r3.Add(centre, r3.Scale(rb, rad)), u: kernel.AxisZ, v: rad}
	}

	var b soup
	for j := 0; j < arcSegments; j++ {
		f0, f1 := arcFrame(j), arcFrame(j+1)
		mid := r3.Add(centre, r3.Scale(rb, r3.Unit(r3.Add(radial(j), radial(j+1)))))
		for k := 0; k < RadialSegments; k++ {
			for _, skin := range []struct {
				r    float64
				sign float64
			}{{ro, 1}, {ri, -1}} {
				p0 := f0.at(point{skin.r, 0}, k)
				p1 := f0.at(point{skin.r, 0}, k+1)
				p2 := f1.at(point{skin.r, 0}, k+1)
				p3 := f1.at(point{skin.r, 0}, k)
				c := r3.Scale(0.25, r3.Add(r3.Add(p0, p1), r3.Add(p2, p3)))
				b.quad(p0, p1, p2, p3, r3.Scale(skin.sign, r3.Sub(c, mid)))
			}
		}
	}

	arm := stubProfile(p, rb, rb)
	b.lathe(frame{axis: kernel.AxisX, u: kernel.AxisZ, v: radial(0)}, arm, false)
	b.lathe(frame{axis: kernel.AxisY, u: kernel.AxisZ, v: radial(arcSegments)}, arm, false)

	return &Part{
		Kind:    KindElbow,
		Mesh:    b.mesh(string(KindElbow)),
		Profile: p,
		Ports:   FittingPorts(KindElbow, p),
	}, nil
}

// Tee builds a T-piece: a hollow cubic hub centred on the origin with arms
// along -X (port a), +X (port b) and +Y (port branch). The hub cavity joins
// the three bores.
func Tee(p catalog.Profile) (*Part, error) {
	if err := checkPipe(p); err != nil {
		return nil, err
	}
	ri, ro := p.BoreRadius(), p.OuterRadius()
	outer := ro + hubOuterMargin*p.OuterDiameter
	inner := ri + hubInnerMargin*p.OuterDiameter
	if inner >= outer {
		return nil, invalid(p.Selector, "hub cavity %g does not fit inside hub %g", inner, outer)
	}

	var b soup
	faces := []struct {
		axis  r3.Vec
		holed bool
	}{
		{negX, true}, {kernel.AxisX, true}, {kernel.AxisY, true},
		{negY, false}, {kernel.AxisZ, false}, {negZ, false},
	}
	for _, face := range faces {
		f := axisFrame(r3.Vec{}, face.axis)
		for _, shell := range []struct {
			half, r float64
			sign    float64
		}{{outer, ro, 1}, {inner, ri, -1}} {
			hint := r3.Scale(shell.sign, face.axis)
			centre := r3.Scale(shell.half, face.axis)
			for k := 0; k < RadialSegments; k++ {
				s0 := f.square(shell.half, shell.half, k)
				s1 := f.square(shell.half, shell.half, k+1)
				if !face.holed {
					b.tri(centre, s0, s1, hint)
					continue
				}
				b.quad(s0, s1, f.at(point{shell.r, shell.half}, k+1), f.at(point{shell.r, shell.half}, k), hint)
			}
		}
		if face.holed {
			b.lathe(f, stubProfile(p, outer, inner), false)
		}
	}

	return &Part{
		Kind:    KindTee,
		Mesh:    b.mesh(string(KindTee)),
		Profile: p,
		Ports:   FittingPorts(KindTee, p),
	}, nil
}
