// Package layout plans the pipe network of a hydroponic grid: where every
// pot, fitting and pipe run goes, which port joins which, and how long each
// straight run is.
//
// The network is a reverse-return ("Tichelmann") loop. X is the manifold
// axis, Y the row axis and Z up. The supply header climbs +Y on the left of
// the grid and feeds one row line per row, flowing +X; the return row lines
// also flow +X into a return header on the right of the grid, which climbs
// +Y before turning back to the tank. The first pot fed is the last
// drained, so every pot sees the same loop length.
//
// Degenerate grids drop what they do not need. A single column has no row
// lines; the headers serve the pots directly. A single row without a tank
// has no headers; end caps close the row lines.
package layout

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/hydrogrid/pkg/catalog"
	"github.com/chazu/hydrogrid/pkg/kernel"
	"github.com/chazu/hydrogrid/pkg/primitive"
)

// Height ratio bounds for the return network, as a fraction of the bucket
// height. The supply network mirrors it from the top.
const (
	DefaultHeightRatio = 0.15
	MinHeightRatio     = 0.05
	MaxHeightRatio     = 0.45

	// HeaderOffsetRatio places each header this many spacings outside the
	// pot grid.
	HeaderOffsetRatio = 0.8
)

// Line is the network a node or run belongs to.
type Line string

const (
	LineSupply Line = "supply"
	LineReturn Line = "return"
	LinePot    Line = "pot"
	LineTank   Line = "tank"
)

// Roles shared by several nodes. Row lines use RowRole.
const (
	RoleHeader = "header"
	RoleFeed   = "feed"
	RoleExit   = "exit"
	RoleMain   = "main"
	RoleTank   = "tank"
)

// RowRole is the role of nodes and runs on row r.
func RowRole(r int) string { return fmt.Sprintf("row-%d", r) }

// Request holds the planning inputs.
type Request struct {
	Rows, Columns int
	Spacing       float64
	Pipe          catalog.Profile
	Bucket        catalog.Profile
	Reservoir     *catalog.Profile // nil when the network ends in caps
	HeightRatio   float64          // zero selects DefaultHeightRatio
	Unions        bool             // split station-to-station runs with collars
}

// Node is a part placed by the plan.
type Node struct {
	Index    int
	Kind     primitive.Kind
	Line     Line
	Role     string
	Row      int // -1 when not tied to a row
	Column   int // -1 when not tied to a column
	Position r3.Vec
	Yaw      int // quarter turns about +Z

	// Upstream and Downstream hold neighbouring node indices in flow order.
	Upstream   []int
	Downstream []int
}

// Transform returns the node's planned placement.
func (n *Node) Transform() kernel.Transform {
	return kernel.Yaw(n.Yaw, n.Position)
}

func (n *Node) String() string {
	return fmt.Sprintf("%s/%s/%s-%d", n.Line, n.Role, n.Kind, n.Index)
}

// Endpoint is one end of a run.
type Endpoint struct {
	Node int
	Port string
}

// Run is a straight pipe between two node ports, listed in flow order.
type Run struct {
	Index  int
	Line   Line
	Role   string
	From   Endpoint
	To     Endpoint
	Start  r3.Vec // world origin of From's port
	End    r3.Vec // world origin of To's port
	Length float64
}

// Axis is the run's unit direction from Start to End.
func (r *Run) Axis() r3.Vec {
	return r3.Unit(r3.Sub(r.End, r.Start))
}

// Graph is a planned network.
type Graph struct {
	Request Request
	Nodes   []*Node
	Runs    []*Run
	Root    int // the tank, or the supply end cap

	SupplyHeight float64
	ReturnHeight float64
}

// Heights returns the vessel port heights of the plan.
func (g *Graph) Heights() primitive.PortHeights {
	return primitive.PortHeights{In: g.SupplyHeight, Out: g.ReturnHeight}
}

// LocalPorts returns the ports of node i in its own frame.
func (g *Graph) LocalPorts(i int) []primitive.Port {
	n := g.Nodes[i]
	switch n.Kind {
	case primitive.KindBucket:
		return primitive.VesselPorts(n.Kind, g.Request.Bucket, g.Request.Pipe, g.Heights())
	case primitive.KindReservoir:
		return primitive.VesselPorts(n.Kind, *g.Request.Reservoir, g.Request.Pipe, g.Heights())
	default:
		return primitive.FittingPorts(n.Kind, g.Request.Pipe)
	}
}

// WorldPort returns the named port of node i at its planned placement.
func (g *Graph) WorldPort(i int, name string) (primitive.Port, bool) {
	p, ok := primitive.FindPort(g.LocalPorts(i), name)
	if !ok {
		return primitive.Port{}, false
	}
	return p.Transformed(g.Nodes[i].Transform()), true
}

// Pots returns the pot nodes in row-major order.
func (g *Graph) Pots() []*Node {
	var out []*Node
	for _, n := range g.Nodes {
		if n.Kind == primitive.KindBucket {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Row != out[j].Row {
			return out[i].Row < out[j].Row
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// RunsAt returns the runs touching node i.
func (g *Graph) RunsAt(i int) []*Run {
	var out []*Run
	for _, r := range g.Runs {
		if r.From.Node == i || r.To.Node == i {
			out = append(out, r)
		}
	}
	return out
}

// Counts returns the number of parts of each kind, pipes included.
func (g *Graph) Counts() map[primitive.Kind]int {
	out := make(map[primitive.Kind]int)
	for _, n := range g.Nodes {
		out[n.Kind]++
	}
	out[primitive.KindPipe] += len(g.Runs)
	return out
}

// PipeLength returns the total length of straight pipe.
func (g *Graph) PipeLength() float64 {
	var sum float64
	for _, r := range g.Runs {
		sum += r.Length
	}
	return sum
}
