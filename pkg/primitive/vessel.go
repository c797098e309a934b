package primitive

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/hydrogrid/pkg/catalog"
	"github.com/chazu/hydrogrid/pkg/kernel"
)

// polygonRadius returns the circumradius of a RadialSegments-gon with the
// same area as a circle of radius r.
func polygonRadius(r float64) float64 {
	n := float64(RadialSegments)
	return r * math.Sqrt(2*math.Pi/(n*math.Sin(2*math.Pi/n)))
}

func checkVessel(v catalog.Profile, want catalog.Class, pipe catalog.Profile) error {
	if v.Class != want {
		return invalid(v.Selector, "%s profile given where a %s was expected", v.Class, want)
	}
	if err := catalog.Validate(v); err != nil {
		return err
	}
	return checkPipe(pipe)
}

// checkPortHeight reports whether a bulkhead at height z fits on the
// vessel wall between the floor and the underside of the rim.
func checkPortHeight(v, pipe catalog.Profile, name string, z float64) error {
	ro := pipe.SocketOuterDiameter() / 2
	lo, hi := v.WallThickness+ro, v.Height()-v.RimHeight-ro
	if z < lo || z > hi {
		return invalid(v.Selector, "%s port height %.4f outside wall band [%.4f, %.4f] for %s",
			name, z, lo, hi, pipe.Selector)
	}
	return nil
}

// bulkhead adds a closed tube shell along axis from start, the middle of
// the vessel wall, out to the port face at offset. The shell overlaps the
// outer half of the wall so it meets the faceted skin with no gap; the two
// stay separate shells in the mesh. The bore ends inside the wall; the
// wall itself is not pierced.
func (b *soup) bulkhead(pipe catalog.Profile, z float64, axis r3.Vec, start, offset float64) {
	ri, ro := pipe.BoreRadius(), pipe.OuterRadius()
	b.lathe(axisFrame(r3.Vec{Z: z}, axis), []point{
		{ri, start}, {ro, start}, {ro, offset}, {ri, offset},
	}, true)
}

// Bucket builds an open-top pot standing on the origin with a rim around
// its mouth. The inlet bulkhead faces +Y at height h.In, the outlet faces
// -Y at h.Out. Both bulkheads are separate closed shells sunk half a wall
// into the body.
func Bucket(v, pipe catalog.Profile, h PortHeights) (*Part, error) {
	if err := checkVessel(v, catalog.ClassBucket, pipe); err != nil {
		return nil, err
	}
	if err := checkPortHeight(v, pipe, PortInlet, h.In); err != nil {
		return nil, err
	}
	if err := checkPortHeight(v, pipe, PortOutlet, h.Out); err != nil {
		return nil, err
	}

	t := v.WallThickness
	ri := polygonRadius(v.InnerRadius)
	ro := ri + t
	rim := ro + v.RimWidth
	top := v.Height()
	offset := catalog.VesselPortOffset(v, pipe)

	var b soup
	b.lathe(axisFrame(r3.Vec{}, kernel.AxisZ), []point{
		{0, 0}, {ro, 0}, {ro, top - v.RimHeight}, {rim, top - v.RimHeight},
		{rim, top}, {ri, top}, {ri, t}, {0, t},
	}, true)
	b.bulkhead(pipe, h.In, kernel.AxisY, ri+t/2, offset)
	b.bulkhead(pipe, h.Out, negY, ri+t/2, offset)

	return &Part{
		Kind:    KindBucket,
		Mesh:    b.mesh(string(KindBucket)),
		Profile: v,
		Pipe:    pipe,
		Ports:   VesselPorts(KindBucket, v, pipe, h),
	}, nil
}

// Reservoir builds a lidded tank standing on the origin. Both bulkheads
// face +Y: supply at h.In above return at h.Out. As on Bucket, they are
// closed shells sunk half a wall into the body.
func Reservoir(v, pipe catalog.Profile, h PortHeights) (*Part, error) {
	if err := checkVessel(v, catalog.ClassReservoir, pipe); err != nil {
		return nil, err
	}
	if err := checkPortHeight(v, pipe, PortSupply, h.In); err != nil {
		return nil, err
	}
	if err := checkPortHeight(v, pipe, PortReturn, h.Out); err != nil {
		return nil, err
	}
	if gap := h.In - h.Out; gap < pipe.SocketOuterDiameter() {
		return nil, invalid(v.Selector, "supply port %.4f must sit at least %.4f above return port %.4f",
			h.In, pipe.SocketOuterDiameter(), h.Out)
	}

	t := v.WallThickness
	ri := polygonRadius(v.InnerRadius)
	ro := ri + t
	rim := ro + v.RimWidth
	top := v.Height()
	offset := catalog.VesselPortOffset(v, pipe)
	f := axisFrame(r3.Vec{}, kernel.AxisZ)

	var b soup
	// Body and lid.
	b.lathe(f, []point{
		{0, 0}, {ro, 0}, {ro, top - v.RimHeight}, {rim, top - v.RimHeight},
		{rim, top + t}, {0, top + t},
	}, true)
	// Cavity, wound inwards.
	b.lathe(f, []point{{0, t}, {0, top}, {ri, top}, {ri, t}}, true)
	b.bulkhead(pipe, h.In, kernel.AxisY, ri+t/2, offset)
	b.bulkhead(pipe, h.Out, kernel.AxisY, ri+t/2, offset)

	return &Part{
		Kind:    KindReservoir,
		Mesh:    b.mesh(string(KindReservoir)),
		Profile: v,
		Pipe:    pipe,
		Ports:   VesselPorts(KindReservoir, v, pipe, h),
	}, nil
}
