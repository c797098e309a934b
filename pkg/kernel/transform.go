package kernel

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Transform places local geometry in the world: a rotation given by the
// images of the local X, Y and Z axes, followed by a translation.
type Transform struct {
	Position r3.Vec    `json:"position"`
	Basis    [3]r3.Vec `json:"basis"`
}

var (
	AxisX = r3.Vec{X: 1}
	AxisY = r3.Vec{Y: 1}
	AxisZ = r3.Vec{Z: 1}
)

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Basis: [3]r3.Vec{AxisX, AxisY, AxisZ}}
}

// Yaw returns a rotation of quarterTurns × 90° about +Z followed by a
// translation to pos. The basis entries are exactly 0 or ±1.
func Yaw(quarterTurns int, pos r3.Vec) Transform {
	q := ((quarterTurns % 4) + 4) % 4
	var x, y r3.Vec
	switch q {
	case 0:
		x, y = AxisX, AxisY
	case 1:
		x, y = AxisY, r3.Scale(-1, AxisX)
	case 2:
		x, y = r3.Scale(-1, AxisX), r3.Scale(-1, AxisY)
	case 3:
		x, y = r3.Scale(-1, AxisY), AxisX
	}
	return Transform{Position: pos, Basis: [3]r3.Vec{x, y, AxisZ}}
}

// Rotate applies only the rotation part to v.
func (t Transform) Rotate(v r3.Vec) r3.Vec {
	return r3.Add(r3.Add(r3.Scale(v.X, t.Basis[0]), r3.Scale(v.Y, t.Basis[1])), r3.Scale(v.Z, t.Basis[2]))
}

// Apply maps a local point to the world.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(t.Rotate(p), t.Position)
}

// Compose returns the transform that applies inner first, then t.
func (t Transform) Compose(inner Transform) Transform {
	return Transform{
		Position: t.Apply(inner.Position),
		Basis: [3]r3.Vec{
			t.Rotate(inner.Basis[0]),
			t.Rotate(inner.Basis[1]),
			t.Rotate(inner.Basis[2]),
		},
	}
}

// QuarterTurns reports the yaw of t in quarter turns when t is a pure
// rotation about +Z by a multiple of 90°.
func (t Transform) QuarterTurns() (int, bool) {
	for q := 0; q < 4; q++ {
		if t.Basis == Yaw(q, r3.Vec{}).Basis {
			return q, true
		}
	}
	return 0, false
}

// IsIdentity reports whether t leaves points unchanged.
func (t Transform) IsIdentity() bool {
	return t == Identity()
}

func (t Transform) String() string {
	if q, ok := t.QuarterTurns(); ok {
		return fmt.Sprintf("at (%.4f, %.4f, %.4f) yaw %d°", t.Position.X, t.Position.Y, t.Position.Z, q*90)
	}
	return fmt.Sprintf("at (%.4f, %.4f, %.4f) basis %v", t.Position.X, t.Position.Y, t.Position.Z, t.Basis)
}
