// Package catalog holds the fixed dimension tables for pipes and vessels.
//
// All lengths are in metres. Tables are built and validated once at package
// initialisation and are read-only afterwards, so lookups need no locking.
package catalog

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/chazu/hydrogrid/pkg/errs"
)

// Class is a component class.
type Class int

const (
	ClassPipe Class = iota
	ClassBucket
	ClassReservoir
)

func (c Class) String() string {
	switch c {
	case ClassPipe:
		return "pipe"
	case ClassBucket:
		return "bucket"
	case ClassReservoir:
		return "reservoir"
	default:
		return "unknown"
	}
}

// Standard is a pipe standard.
type Standard string

const (
	StandardTR     Standard = "tr"     // Turkish PVC
	StandardMetric Standard = "metric" // metric PVC
)

// Selector names one enumerated size within a class.
type Selector string

// Pipe dimension ratios, relative to the outer diameter D.
const (
	wallRatio        = 0.15
	socketLenRatio   = 0.6
	socketDepthRatio = socketLenRatio * 0.4
	collarLipRatio   = 0.1
	bendRadiusRatio  = 0.8
	armCoreRatio     = 0.8

	// CollarClearance is the radial slip-fit gap of every socket.
	CollarClearance = 0.0002

	// maxClearanceFraction bounds the clearance relative to D.
	maxClearanceFraction = 0.02
)

// Vessel constants.
const (
	bucketAspect    = 2.5 // inner height / inner radius
	bucketWall      = 0.003
	reservoirAspect = 3.0
	reservoirWall   = 0.005
)

// Profile is an immutable dimension record.
type Profile struct {
	Class    Class
	Selector Selector

	// Pipe fields.
	Standard      Standard
	Nominal       int     // nominal size in mm
	OuterDiameter float64 // D
	InnerDiameter float64
	WallThickness float64
	SocketDepth   float64 // insertion depth of a pipe end into a socket
	SocketLength  float64 // axial length of a collar skirt
	Clearance     float64 // radial socket clearance
	CollarLip     float64 // setback of the collar skirt from the port face
	BendRadius    float64 // elbow centreline radius
	Reach         float64 // fitting centre to port face

	// Vessel fields.
	Volume      float64 // nominal internal volume, m³
	InnerRadius float64
	InnerHeight float64
	RimWidth    float64
	RimHeight   float64
}

// OuterRadius is half the outer diameter for pipes, or the wall's outer
// radius for vessels.
func (p Profile) OuterRadius() float64 {
	if p.Class == ClassPipe {
		return p.OuterDiameter / 2
	}
	return p.InnerRadius + p.WallThickness
}

// BoreRadius returns the bore radius of a pipe profile.
func (p Profile) BoreRadius() float64 { return p.InnerDiameter / 2 }

// SocketOuterDiameter is the outer diameter of a collar skirt: the mating
// pipe's outer diameter plus wall and clearance on both sides.
func (p Profile) SocketOuterDiameter() float64 {
	return p.OuterDiameter + 2*(p.WallThickness+p.Clearance)
}

// SocketBore is the inner diameter of a socket that receives this pipe.
func (p Profile) SocketBore() float64 {
	return p.OuterDiameter + 2*p.Clearance
}

// MatingDiameter is the post-clearance diameter of a socket port.
func (p Profile) MatingDiameter() float64 {
	return p.SocketBore() - 2*p.Clearance
}

// Height is the overall vessel height including the floor.
func (p Profile) Height() float64 {
	return p.InnerHeight + p.WallThickness
}

var (
	pipeSizes = map[Standard][]int{
		StandardTR:     {20, 25, 32, 50},
		StandardMetric: {15, 20, 25, 32, 40, 50},
	}
	bucketVolumes = map[Selector]float64{
		"small":  10,
		"medium": 19,
		"large":  25,
	}
	reservoirVolumes = []int{50, 75, 100, 150, 200}
)

var tables = map[Class]map[Selector]Profile{}

func init() {
	tables[ClassPipe] = map[Selector]Profile{}
	for std, sizes := range pipeSizes {
		for _, mm := range sizes {
			p := newPipe(std, mm)
			tables[ClassPipe][p.Selector] = p
		}
	}
	tables[ClassBucket] = map[Selector]Profile{}
	for sel, liters := range bucketVolumes {
		tables[ClassBucket][sel] = newVessel(ClassBucket, sel, liters)
	}
	tables[ClassReservoir] = map[Selector]Profile{}
	for _, liters := range reservoirVolumes {
		sel := Selector(strconv.Itoa(liters) + "l")
		tables[ClassReservoir][sel] = newVessel(ClassReservoir, sel, float64(liters))
	}
	for _, byClass := range tables {
		for _, p := range byClass {
			if err := Validate(p); err != nil {
				panic(fmt.Sprintf("catalog: inconsistent table entry: %v", err))
			}
		}
	}
}

func newPipe(std Standard, mm int) Profile {
	d := float64(mm) / 1000
	wall := wallRatio * d
	socketLen := socketLenRatio * d
	return Profile{
		Class:         ClassPipe,
		Selector:      PipeSelector(std, mm),
		Standard:      std,
		Nominal:       mm,
		OuterDiameter: d,
		InnerDiameter: d - 2*wall,
		WallThickness: wall,
		SocketDepth:   socketDepthRatio * d,
		SocketLength:  socketLen,
		Clearance:     CollarClearance,
		CollarLip:     collarLipRatio * d,
		BendRadius:    bendRadiusRatio * d,
		Reach:         armCoreRatio*d + socketLen,
	}
}

func newVessel(class Class, sel Selector, liters float64) Profile {
	v := liters / 1000
	aspect, wall := bucketAspect, bucketWall
	if class == ClassReservoir {
		aspect, wall = reservoirAspect, reservoirWall
	}
	r := math.Cbrt(v / (aspect * math.Pi))
	return Profile{
		Class:         class,
		Selector:      sel,
		Volume:        v,
		InnerRadius:   r,
		InnerHeight:   aspect * r,
		WallThickness: wall,
		OuterDiameter: 2 * (r + wall),
		InnerDiameter: 2 * r,
		RimWidth:      2 * wall,
		RimHeight:     4 * wall,
	}
}

// PipeSelector returns the selector for a pipe of the given standard and
// nominal size in millimetres.
func PipeSelector(std Standard, mm int) Selector {
	return Selector(fmt.Sprintf("%s-%d", std, mm))
}

// Lookup returns the profile for (class, selector).
func Lookup(class Class, sel Selector) (Profile, error) {
	p, ok := tables[class][Selector(strings.ToLower(string(sel)))]
	if !ok {
		return Profile{}, errs.New(errs.ErrUnknownSizeSelector, "catalog",
			"%s has no size %q (known: %s)", class, sel, strings.Join(selectorStrings(class), ", ")).
			WithSelector(string(sel))
	}
	return p, nil
}

// MustLookup is Lookup for selectors known to exist.
func MustLookup(class Class, sel Selector) Profile {
	p, err := Lookup(class, sel)
	if err != nil {
		panic(err)
	}
	return p
}

// Selectors lists the selectors of a class in ascending size order.
func Selectors(class Class) []Selector {
	var out []Selector
	for sel := range tables[class] {
		out = append(out, sel)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := tables[class][out[i]], tables[class][out[j]]
		if class == ClassPipe {
			if a.Standard != b.Standard {
				return a.Standard < b.Standard
			}
			return a.Nominal < b.Nominal
		}
		return a.Volume < b.Volume
	})
	return out
}

func selectorStrings(class Class) []string {
	sels := Selectors(class)
	out := make([]string, len(sels))
	for i, s := range sels {
		out[i] = string(s)
	}
	return out
}

// PipeSizes lists the nominal sizes (mm) of a pipe standard.
func PipeSizes(std Standard) []int {
	sizes := append([]int(nil), pipeSizes[std]...)
	sort.Ints(sizes)
	return sizes
}

// VesselPortOffset is the horizontal distance from a vessel's axis to the
// face of one of its bulkhead ports when fitted with the given pipe.
func VesselPortOffset(vessel, pipe Profile) float64 {
	return vessel.OuterRadius() + pipe.SocketLength
}

// Validate checks a profile's internal consistency.
func Validate(p Profile) error {
	bad := func(format string, args ...any) error {
		return errs.New(errs.ErrInvalidDimensionProfile, "catalog", format, args...).
			WithSelector(string(p.Selector))
	}
	if p.OuterDiameter <= 0 || p.InnerDiameter <= 0 {
		return bad("diameters must be positive (outer %g, inner %g)", p.OuterDiameter, p.InnerDiameter)
	}
	if p.InnerDiameter >= p.OuterDiameter {
		return bad("inner diameter %g must be below outer diameter %g", p.InnerDiameter, p.OuterDiameter)
	}
	if p.WallThickness <= 0 {
		return bad("wall thickness %g must be positive", p.WallThickness)
	}
	switch p.Class {
	case ClassPipe:
		if p.Clearance < 0 || p.Clearance > maxClearanceFraction*p.OuterDiameter {
			return bad("clearance %g outside [0, %g]", p.Clearance, maxClearanceFraction*p.OuterDiameter)
		}
		if p.SocketLength <= p.CollarLip {
			return bad("socket length %g must exceed collar lip %g", p.SocketLength, p.CollarLip)
		}
		if p.Reach <= p.BendRadius || p.Reach <= p.OuterDiameter {
			return bad("reach %g too short for bend radius %g", p.Reach, p.BendRadius)
		}
		if p.BendRadius <= p.OuterDiameter/2 {
			return bad("bend radius %g must exceed outer radius %g", p.BendRadius, p.OuterDiameter/2)
		}
	case ClassBucket, ClassReservoir:
		if p.Volume <= 0 || p.InnerHeight <= 0 {
			return bad("vessel volume %g and height %g must be positive", p.Volume, p.InnerHeight)
		}
	}
	return nil
}
