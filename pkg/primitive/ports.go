package primitive

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/hydrogrid/pkg/catalog"
	"github.com/chazu/hydrogrid/pkg/kernel"
)

// PipePorts returns the local ports of a straight pipe of the given length.
func PipePorts(p catalog.Profile, length float64) []Port {
	return []Port{
		pipePort(p, PortA, r3.Vec{}, negX),
		pipePort(p, PortB, r3.Vec{X: length}, kernel.AxisX),
	}
}

// FittingPorts returns the local ports of an elbow, tee, collar or end cap
// built from p, or nil for any other kind.
func FittingPorts(kind Kind, p catalog.Profile) []Port {
	switch kind {
	case KindElbow:
		return []Port{
			pipePort(p, PortA, r3.Vec{X: p.Reach}, kernel.AxisX),
			pipePort(p, PortB, r3.Vec{Y: p.Reach}, kernel.AxisY),
		}
	case KindTee:
		return []Port{
			pipePort(p, PortA, r3.Vec{X: -p.Reach}, negX),
			pipePort(p, PortB, r3.Vec{X: p.Reach}, kernel.AxisX),
			pipePort(p, PortBranch, r3.Vec{Y: p.Reach}, kernel.AxisY),
		}
	case KindCollar:
		return PipePorts(p, 2*p.SocketLength)
	case KindEndCap:
		return []Port{pipePort(p, PortA, r3.Vec{}, kernel.AxisX)}
	}
	return nil
}

// VesselPorts returns the local bulkhead ports of a bucket or reservoir, or
// nil for any other kind.
func VesselPorts(kind Kind, v, pipe catalog.Profile, h PortHeights) []Port {
	offset := catalog.VesselPortOffset(v, pipe)
	switch kind {
	case KindBucket:
		return []Port{
			pipePort(pipe, PortInlet, r3.Vec{Y: offset, Z: h.In}, kernel.AxisY),
			pipePort(pipe, PortOutlet, r3.Vec{Y: -offset, Z: h.Out}, negY),
		}
	case KindReservoir:
		return []Port{
			pipePort(pipe, PortSupply, r3.Vec{Y: offset, Z: h.In}, kernel.AxisY),
			pipePort(pipe, PortReturn, r3.Vec{Y: offset, Z: h.Out}, kernel.AxisY),
		}
	}
	return nil
}

// FindPort returns the named port from ports.
func FindPort(ports []Port, name string) (Port, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}
