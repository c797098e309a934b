// Package primitive builds the parametric solids of a plumbing network in
// local space: straight pipe, 90° elbow, T-piece, coupling collar, end cap,
// bucket and reservoir.
//
// Every part is a closed, outward-wound triangle mesh with named ports. A
// port is a plain annulus between the pipe's bore and outer radius, sampled
// on the same RadialSegments ring for every part, so two mated port faces
// are identical and weld into a single surface.
package primitive

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/hydrogrid/pkg/catalog"
	"github.com/chazu/hydrogrid/pkg/errs"
	"github.com/chazu/hydrogrid/pkg/kernel"
)

// RadialSegments is the ring resolution shared by every part. It must stay
// a multiple of 8 so rings are symmetric under the quarter-turn rotations
// the joinery uses and tee faces have their corners on the ring.
const RadialSegments = 32

// Kind names a part type.
type Kind string

const (
	KindPipe      Kind = "pipe"
	KindElbow     Kind = "elbow"
	KindTee       Kind = "tee"
	KindCollar    Kind = "collar"
	KindEndCap    Kind = "endcap"
	KindBucket    Kind = "bucket"
	KindReservoir Kind = "reservoir"
)

// IsFitting reports whether k is a pipe fitting placed by the joinery.
func (k Kind) IsFitting() bool {
	return k == KindElbow || k == KindTee || k == KindCollar || k == KindEndCap
}

// Port names.
const (
	PortA      = "a"
	PortB      = "b"
	PortBranch = "branch"
	PortInlet  = "inlet"
	PortOutlet = "outlet"
	PortSupply = "supply"
	PortReturn = "return"
)

// Port is a connection face.
type Port struct {
	Name     string
	Origin   r3.Vec // centre of the port face
	Axis     r3.Vec // unit outward normal of the port face
	Diameter float64
}

// Transformed returns p placed by xf.
func (p Port) Transformed(xf kernel.Transform) Port {
	p.Origin = xf.Apply(p.Origin)
	p.Axis = xf.Rotate(p.Axis)
	return p
}

// Part is a built primitive.
type Part struct {
	Kind    Kind
	Mesh    *kernel.Mesh
	Ports   []Port
	Profile catalog.Profile // pipe profile, or the vessel profile for vessels
	Pipe    catalog.Profile // pipe profile of a vessel's bulkheads
	Length  float64         // straight pipe length; zero otherwise
}

// Port returns the named port.
func (p *Part) Port(name string) (Port, bool) {
	return FindPort(p.Ports, name)
}

// PortHeights places a vessel's two ports above its floor.
type PortHeights struct {
	In  float64 // bucket inlet, reservoir supply
	Out float64 // bucket outlet, reservoir return
}

func invalid(sel catalog.Selector, format string, args ...any) error {
	return errs.New(errs.ErrInvalidDimensionProfile, "primitive", format, args...).
		WithSelector(string(sel))
}

func checkPipe(p catalog.Profile) error {
	if p.Class != catalog.ClassPipe {
		return invalid(p.Selector, "%s profile given where a pipe was expected", p.Class)
	}
	if err := catalog.Validate(p); err != nil {
		return err
	}
	return nil
}

func pipePort(p catalog.Profile, name string, origin, axis r3.Vec) Port {
	return Port{Name: name, Origin: origin, Axis: axis, Diameter: p.MatingDiameter()}
}
