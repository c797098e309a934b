// Package joinery turns a planned network into placed parts.
//
// Parts are placed depth-first from the plan's root. A part reached through
// a run is rotated so its mated port faces back up the run, then moved so
// the port origins coincide. Rotations come from orthonormal Z-up frames, so
// every basis entry is exactly 0 or ±1. Parts reached a second time are
// checked rather than moved.
package joinery

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/hydrogrid/pkg/errs"
	"github.com/chazu/hydrogrid/pkg/kernel"
	"github.com/chazu/hydrogrid/pkg/layout"
	"github.com/chazu/hydrogrid/pkg/primitive"
)

const stage = "joinery"

// SnapTolerance scales the grid spacing into the largest gap allowed
// between two mated port origins.
const SnapTolerance = 1e-6

const (
	diameterTolerance = 1e-9
	axisTolerance     = 1e-9
)

// PlacedPart is a primitive bound to its world placement.
type PlacedPart struct {
	Index     int
	Node      *layout.Node // nil for pipes
	Run       *layout.Run  // nil for nodes
	Part      *primitive.Part
	Transform kernel.Transform
}

// Kind returns the primitive kind of the part.
func (pp *PlacedPart) Kind() primitive.Kind { return pp.Part.Kind }

// Line returns the network the part belongs to.
func (pp *PlacedPart) Line() layout.Line {
	if pp.Node != nil {
		return pp.Node.Line
	}
	return pp.Run.Line
}

// Role returns the part's role within its line.
func (pp *PlacedPart) Role() string {
	if pp.Node != nil {
		return pp.Node.Role
	}
	return pp.Run.Role
}

// Row returns the row the part serves, or -1.
func (pp *PlacedPart) Row() int {
	var r int
	if _, err := fmt.Sscanf(pp.Role(), "row-%d", &r); err == nil {
		return r
	}
	return -1
}

// Name is the grouped scene name of the part, for example
// "supply/row-0/tee-3".
func (pp *PlacedPart) Name() string {
	return fmt.Sprintf("%s/%s/%s-%d", pp.Line(), pp.Role(), pp.Kind(), pp.Index)
}

// WorldPort returns the named port at the part's placement.
func (pp *PlacedPart) WorldPort(name string) (primitive.Port, bool) {
	p, ok := pp.Part.Port(name)
	if !ok {
		return primitive.Port{}, false
	}
	return p.Transformed(pp.Transform), true
}

// Solver places the parts of a plan.
type Solver struct {
	// Logger receives assertion failures. Nil uses slog.Default.
	Logger *slog.Logger
}

// Solve places the parts of g with the default logger.
func Solve(g *layout.Graph) ([]*PlacedPart, error) {
	return (&Solver{}).Solve(g)
}

// Solve places every node and run of g and checks each joint. Nodes come
// first in placement order, each followed by the pipes leaving it.
func (s *Solver) Solve(g *layout.Graph) ([]*PlacedPart, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	st := &state{
		g:       g,
		log:     logger,
		lib:     newLibrary(g),
		placed:  make(map[int]*PlacedPart, len(g.Nodes)),
		epsilon: SnapTolerance * g.Request.Spacing,
	}
	if err := st.placeRoot(); err != nil {
		return nil, err
	}
	if err := st.visit(g.Root); err != nil {
		return nil, err
	}
	if len(st.placed) != len(g.Nodes) {
		for _, n := range g.Nodes {
			if _, ok := st.placed[n.Index]; !ok {
				return nil, st.fail(errs.New(errs.ErrSnapViolation, stage,
					"%s is not reachable from the root", n).AtIndex(n.Index))
			}
		}
	}
	return st.parts, nil
}

type state struct {
	g       *layout.Graph
	log     *slog.Logger
	lib     *library
	parts   []*PlacedPart
	placed  map[int]*PlacedPart
	epsilon float64
}

func (st *state) fail(err *errs.Error) error {
	st.log.Error("joinery assertion failed",
		"kind", err.Kind.Error(), "index", err.Index, "detail", err.Msg)
	return err
}

func (st *state) push(pp *PlacedPart) *PlacedPart {
	pp.Index = len(st.parts)
	st.parts = append(st.parts, pp)
	if pp.Node != nil {
		st.placed[pp.Node.Index] = pp
	}
	return pp
}

func (st *state) placeRoot() error {
	root := st.g.Nodes[st.g.Root]
	part, err := st.lib.node(root)
	if err != nil {
		return err
	}
	st.push(&PlacedPart{Node: root, Part: part, Transform: root.Transform()})
	return nil
}

// visit places the pipes leaving node i and the parts at their far ends.
func (st *state) visit(i int) error {
	from := st.placed[i]
	for _, run := range st.g.RunsAt(i) {
		if run.From.Node != i {
			continue
		}
		up, ok := from.WorldPort(run.From.Port)
		if !ok {
			return st.fail(errs.New(errs.ErrSnapViolation, stage,
				"%s has no port %q", from.Name(), run.From.Port).AtIndex(i))
		}
		pipe, err := st.placePipe(run, up)
		if err != nil {
			return err
		}
		end, _ := pipe.WorldPort(primitive.PortB)

		node := st.g.Nodes[run.To.Node]
		if done, ok := st.placed[node.Index]; ok {
			if err := st.verify(done, run.To.Port, end); err != nil {
				return err
			}
			continue
		}
		if _, err := st.placeNode(node, run.To.Port, end); err != nil {
			return err
		}
		if err := st.visit(node.Index); err != nil {
			return err
		}
	}
	return nil
}

// placePipe puts a straight pipe against the upstream port up.
func (st *state) placePipe(run *layout.Run, up primitive.Port) (*PlacedPart, error) {
	part, err := st.lib.pipe(run.Length)
	if err != nil {
		return nil, err
	}
	local, _ := part.Port(primitive.PortA)
	xf, err := mate(local, up)
	if err != nil {
		return nil, st.fail(errs.New(errs.ErrSnapViolation, stage,
			"run %d: %v", run.Index, err).AtIndex(run.From.Node))
	}
	if err := st.checkDiameter(local, up, run.From.Node); err != nil {
		return nil, err
	}
	return st.push(&PlacedPart{Run: run, Part: part, Transform: xf}), nil
}

// placeNode mates node's port against the upstream port up and checks the
// result against the plan.
func (st *state) placeNode(node *layout.Node, port string, up primitive.Port) (*PlacedPart, error) {
	part, err := st.lib.node(node)
	if err != nil {
		return nil, err
	}
	local, ok := part.Port(port)
	if !ok {
		return nil, st.fail(errs.New(errs.ErrSnapViolation, stage,
			"%s has no port %q", node, port).AtIndex(node.Index))
	}
	xf, err := mate(local, up)
	if err != nil {
		return nil, st.fail(errs.New(errs.ErrSnapViolation, stage,
			"%s:%s: %v", node, port, err).AtIndex(node.Index))
	}
	if err := st.checkDiameter(local, up, node.Index); err != nil {
		return nil, err
	}

	yaw, ok := xf.QuarterTurns()
	if !ok || (yaw-node.Yaw)%4 != 0 {
		return nil, st.fail(errs.New(errs.ErrSnapViolation, stage,
			"%s solved %s, planned yaw %d°", node, xf, node.Yaw*90).AtIndex(node.Index))
	}
	if d := r3.Norm(r3.Sub(xf.Position, node.Position)); d > st.epsilon {
		return nil, st.fail(errs.New(errs.ErrSnapViolation, stage,
			"%s solved %.3g m away from its planned position", node, d).AtIndex(node.Index))
	}
	return st.push(&PlacedPart{Node: node, Part: part, Transform: xf}), nil
}

// verify checks that a part placed earlier meets the incoming pipe end.
func (st *state) verify(pp *PlacedPart, port string, end primitive.Port) error {
	got, ok := pp.WorldPort(port)
	if !ok {
		return st.fail(errs.New(errs.ErrSnapViolation, stage,
			"%s has no port %q", pp.Name(), port).AtIndex(pp.Node.Index))
	}
	if d := r3.Norm(r3.Sub(got.Origin, end.Origin)); d > st.epsilon {
		return st.fail(errs.New(errs.ErrSnapViolation, stage,
			"%s:%s is %.3g m from its pipe", pp.Name(), port, d).AtIndex(pp.Node.Index))
	}
	if c := r3.Dot(got.Axis, end.Axis); math.Abs(c+1) > axisTolerance {
		return st.fail(errs.New(errs.ErrSnapViolation, stage,
			"%s:%s does not face its pipe (cos %.6f)", pp.Name(), port, c).AtIndex(pp.Node.Index))
	}
	return st.checkDiameter(got, end, pp.Node.Index)
}

func (st *state) checkDiameter(a, b primitive.Port, index int) error {
	if math.Abs(a.Diameter-b.Diameter) > diameterTolerance {
		return st.fail(errs.New(errs.ErrDiameterMismatch, stage,
			"port %q is %.4f m, mated port %q is %.4f m", a.Name, a.Diameter, b.Name, b.Diameter).AtIndex(index))
	}
	return nil
}
