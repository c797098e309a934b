package joinery

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/hydrogrid/pkg/kernel"
	"github.com/chazu/hydrogrid/pkg/primitive"
)

// zFrame is the orthonormal frame [a, ẑ×a, ẑ] of a horizontal axis a.
type zFrame [3]r3.Vec

func frameOf(a r3.Vec) (zFrame, error) {
	if math.Abs(a.Z) > axisTolerance || math.Abs(r3.Norm(a)-1) > axisTolerance {
		return zFrame{}, fmt.Errorf("port axis %v is not a horizontal unit vector", a)
	}
	a.Z = 0
	return zFrame{a, {X: -a.Y, Y: a.X}, kernel.AxisZ}, nil
}

// align returns the rotation taking frame from onto frame to, as the images
// of the local axes: R = F_to · F_fromᵀ.
func align(from, to zFrame) [3]r3.Vec {
	var basis [3]r3.Vec
	for i := 0; i < 3; i++ {
		var col r3.Vec
		for k := 0; k < 3; k++ {
			col = r3.Add(col, r3.Scale(component(from[k], i), to[k]))
		}
		basis[i] = col
	}
	return basis
}

func component(v r3.Vec, i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// mate returns the placement that puts the local port against the world
// port up: axes opposite, origins coincident.
func mate(local, up primitive.Port) (kernel.Transform, error) {
	from, err := frameOf(local.Axis)
	if err != nil {
		return kernel.Transform{}, err
	}
	to, err := frameOf(r3.Scale(-1, up.Axis))
	if err != nil {
		return kernel.Transform{}, err
	}
	xf := kernel.Transform{Basis: align(from, to)}
	xf.Position = r3.Sub(up.Origin, xf.Rotate(local.Origin))
	return xf, nil
}
