package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/hydrogrid/pkg/catalog"
	"github.com/chazu/hydrogrid/pkg/errs"
	"github.com/chazu/hydrogrid/pkg/primitive"
)

const stage = "layout"

// alignTolerance bounds how far a planned run may stray from its start
// port's axis before the plan is considered inconsistent.
const alignTolerance = 1e-9

// Plan lays out the network for req. Validation failures are reported
// before any node is created.
func Plan(req Request) (*Graph, error) {
	if req.Rows < 1 || req.Columns < 1 {
		return nil, errs.New(errs.ErrInvalidGrid, stage, "grid must be at least 1x1, got %dx%d", req.Rows, req.Columns)
	}
	if req.HeightRatio == 0 {
		req.HeightRatio = DefaultHeightRatio
	}
	if req.HeightRatio < MinHeightRatio || req.HeightRatio > MaxHeightRatio {
		return nil, errs.New(errs.ErrInvalidGrid, stage, "pipe height ratio %g outside [%g, %g]",
			req.HeightRatio, MinHeightRatio, MaxHeightRatio)
	}
	if err := checkProfiles(req); err != nil {
		return nil, err
	}
	if !(req.Spacing > 0) {
		return nil, errs.New(errs.ErrInvalidGrid, stage, "spacing %g must be positive", req.Spacing)
	}
	if min := MinSpacing(req.Pipe); req.Spacing < min {
		return nil, errs.New(errs.ErrInsufficientSpacing, stage,
			"spacing %.4f m below %.4f m required by %s", req.Spacing, min, req.Pipe.Selector).
			WithSelector(string(req.Pipe.Selector))
	}

	if stacked(req) {
		gap := (1 - 2*req.HeightRatio) * req.Bucket.Height()
		if need := MinLineGap(req.Pipe); gap < need {
			return nil, errs.New(errs.ErrInsufficientSpacing, stage,
				"supply and return lines %.4f m apart at height ratio %g, below %.4f m required by %s",
				gap, req.HeightRatio, need, req.Pipe.Selector).WithSelector(string(req.Pipe.Selector))
		}
	}

	p := &planner{g: &Graph{Request: req}}
	if err := p.build(); err != nil {
		return nil, err
	}
	return p.g, nil
}

// MinSpacing is the smallest pot spacing a pipe allows: its outer diameter
// plus a collar clearance on either side.
func MinSpacing(pipe catalog.Profile) float64 {
	return pipe.OuterDiameter + 2*pipe.Clearance
}

// MinLineGap is the smallest height difference between the supply and
// return networks where one runs above the other: two fitting envelopes
// plus the socket clearance of each.
func MinLineGap(pipe catalog.Profile) float64 {
	return 2 * (primitive.Envelope(pipe) + pipe.Clearance)
}

// stacked reports whether any supply pipe runs directly above a return
// pipe. Supply row r shares its footprint with return row r+1, and the
// return main runs under the supply header back to the tank.
func stacked(req Request) bool {
	return req.Reservoir != nil || (req.Rows > 1 && req.Columns > 1)
}

func checkProfiles(req Request) error {
	want := []struct {
		p     catalog.Profile
		class catalog.Class
	}{{req.Pipe, catalog.ClassPipe}, {req.Bucket, catalog.ClassBucket}}
	if req.Reservoir != nil {
		want = append(want, struct {
			p     catalog.Profile
			class catalog.Class
		}{*req.Reservoir, catalog.ClassReservoir})
	}
	for _, w := range want {
		if w.p.Class != w.class {
			return errs.New(errs.ErrInvalidDimensionProfile, stage,
				"%s profile given where a %s was expected", w.p.Class, w.class).WithSelector(string(w.p.Selector))
		}
		if err := catalog.Validate(w.p); err != nil {
			return err
		}
	}
	return nil
}

type planner struct {
	g *Graph
}

func (p *planner) add(kind primitive.Kind, line Line, role string, row, col int, pos r3.Vec, yaw int) int {
	i := len(p.g.Nodes)
	p.g.Nodes = append(p.g.Nodes, &Node{
		Index:    i,
		Kind:     kind,
		Line:     line,
		Role:     role,
		Row:      row,
		Column:   col,
		Position: pos,
		Yaw:      yaw,
	})
	return i
}

// connect plans the straight run between two ports. The ports must face
// each other along the start port's axis with a positive gap.
func (p *planner) connect(line Line, role string, from, to Endpoint) error {
	idx := len(p.g.Runs)
	start, ok := p.g.WorldPort(from.Node, from.Port)
	if !ok {
		return errs.New(errs.ErrSnapViolation, stage, "%s has no port %q", p.g.Nodes[from.Node], from.Port).AtIndex(idx)
	}
	end, ok := p.g.WorldPort(to.Node, to.Port)
	if !ok {
		return errs.New(errs.ErrSnapViolation, stage, "%s has no port %q", p.g.Nodes[to.Node], to.Port).AtIndex(idx)
	}

	d := r3.Sub(end.Origin, start.Origin)
	length := r3.Dot(d, start.Axis)
	if length < primitive.MinPipeLength {
		return errs.New(errs.ErrInvalidGrid, stage,
			"%s run %s:%s -> %s:%s has length %.4f m; increase spacing",
			line, p.g.Nodes[from.Node], from.Port, p.g.Nodes[to.Node], to.Port, length).AtIndex(idx)
	}
	lateral := r3.Norm(r3.Sub(d, r3.Scale(length, start.Axis)))
	facing := r3.Dot(start.Axis, end.Axis)
	if lateral > alignTolerance || math.Abs(facing+1) > alignTolerance {
		return errs.New(errs.ErrSnapViolation, stage,
			"ports %s:%s and %s:%s do not face each other (offset %.3g, cos %.6f)",
			p.g.Nodes[from.Node], from.Port, p.g.Nodes[to.Node], to.Port, lateral, facing).AtIndex(idx)
	}

	p.g.Runs = append(p.g.Runs, &Run{
		Index:  idx,
		Line:   line,
		Role:   role,
		From:   from,
		To:     to,
		Start:  start.Origin,
		End:    end.Origin,
		Length: length,
	})
	up, down := p.g.Nodes[from.Node], p.g.Nodes[to.Node]
	up.Downstream = append(up.Downstream, to.Node)
	down.Upstream = append(down.Upstream, from.Node)
	return nil
}

// span connects neighbouring stations of a header or row line. With
// unions, a collar splits the run at its midpoint.
func (p *planner) span(line Line, role string, from, to Endpoint) error {
	if !p.g.Request.Unions {
		return p.connect(line, role, from, to)
	}
	start, ok := p.g.WorldPort(from.Node, from.Port)
	end, ok2 := p.g.WorldPort(to.Node, to.Port)
	if !ok || !ok2 {
		return p.connect(line, role, from, to)
	}
	l := 2 * p.g.Request.Pipe.SocketLength
	mid := r3.Scale(0.5, r3.Add(start.Origin, end.Origin))
	up := p.g.Nodes[from.Node]
	i := p.add(primitive.KindCollar, line, role, up.Row, up.Column,
		r3.Sub(mid, r3.Scale(l/2, start.Axis)), quarterTurns(start.Axis))
	if err := p.connect(line, role, from, Endpoint{i, primitive.PortA}); err != nil {
		return err
	}
	return p.connect(line, role, Endpoint{i, primitive.PortB}, to)
}

// quarterTurns is the yaw that turns +X onto a horizontal axis.
func quarterTurns(axis r3.Vec) int {
	switch {
	case axis.X > 0.5:
		return 0
	case axis.Y > 0.5:
		return 1
	case axis.X < -0.5:
		return 2
	default:
		return 3
	}
}

func (p *planner) build() error {
	req := p.g.Request
	rows, cols := req.Rows, req.Columns
	sp := req.Spacing
	hx := HeaderOffsetRatio * sp
	reach := req.Pipe.Reach

	h := req.Bucket.Height()
	p.g.SupplyHeight = (1 - req.HeightRatio) * h
	p.g.ReturnHeight = req.HeightRatio * h
	zi, zo := p.g.SupplyHeight, p.g.ReturnHeight

	// A single column has no row lines: the headers feed the pots, which
	// turn a quarter so the inlet faces the supply header.
	direct := cols == 1
	// A single row without a tank has no headers: caps close the row lines.
	headless := rows == 1 && req.Reservoir == nil

	supplyY := func(r int) float64 { return float64(r)*sp + sp/2 }
	returnY := func(r int) float64 { return float64(r)*sp - sp/2 }
	potYaw := 0
	if direct {
		supplyY = func(r int) float64 { return float64(r) * sp }
		returnY = supplyY
		potYaw = 1
	}

	yFeed := -hx
	yExit := float64(rows-1)*sp + hx
	xReturn := float64(cols-1)*sp + hx

	// Root: the tank's supply port, or a cap, sits at the feed point.
	var feed Endpoint
	switch {
	case req.Reservoir != nil:
		offset := catalog.VesselPortOffset(*req.Reservoir, req.Pipe)
		p.g.Root = p.add(primitive.KindReservoir, LineTank, RoleTank, -1, -1, r3.Vec{X: -hx, Y: yFeed - offset}, 0)
		feed = Endpoint{p.g.Root, primitive.PortSupply}
	case headless:
		p.g.Root = p.add(primitive.KindEndCap, LineSupply, RoleFeed, -1, -1, r3.Vec{X: -hx, Y: supplyY(0), Z: zi}, 0)
		feed = Endpoint{p.g.Root, primitive.PortA}
	default:
		p.g.Root = p.add(primitive.KindEndCap, LineSupply, RoleFeed, -1, -1, r3.Vec{X: -hx, Y: yFeed, Z: zi}, 1)
		feed = Endpoint{p.g.Root, primitive.PortA}
	}

	// Supply header, climbing +Y; each station branches +X into its row.
	rowFeed := make([]Endpoint, rows)
	if headless {
		rowFeed[0] = feed
	} else {
		prev := feed
		for r := 0; r < rows; r++ {
			pos := r3.Vec{X: -hx, Y: supplyY(r), Z: zi}
			kind, in, out := primitive.KindTee, primitive.PortB, primitive.PortBranch
			if r == rows-1 {
				kind, in, out = primitive.KindElbow, primitive.PortA, primitive.PortB
			}
			i := p.add(kind, LineSupply, RoleHeader, r, -1, pos, 3)
			link, role := p.span, RoleHeader
			if r == 0 {
				link, role = p.connect, RoleFeed
			}
			if err := link(LineSupply, role, prev, Endpoint{i, in}); err != nil {
				return err
			}
			rowFeed[r] = Endpoint{i, out}
			prev = Endpoint{i, primitive.PortA}
		}
	}

	// Supply row lines, flowing +X; each station drops -Y to its pot.
	potFeed := make([][]Endpoint, rows)
	for r := 0; r < rows; r++ {
		potFeed[r] = make([]Endpoint, cols)
		if direct {
			potFeed[r][0] = rowFeed[r]
			continue
		}
		prev := rowFeed[r]
		for c := 0; c < cols; c++ {
			pos := r3.Vec{X: float64(c) * sp, Y: supplyY(r), Z: zi}
			kind, in, out := primitive.KindTee, primitive.PortB, primitive.PortBranch
			if c == cols-1 {
				kind, in, out = primitive.KindElbow, primitive.PortA, primitive.PortB
			}
			i := p.add(kind, LineSupply, RowRole(r), r, c, pos, 2)
			link := p.span
			if c == 0 {
				link = p.connect
			}
			if err := link(LineSupply, RowRole(r), prev, Endpoint{i, in}); err != nil {
				return err
			}
			potFeed[r][c] = Endpoint{i, out}
			prev = Endpoint{i, primitive.PortA}
		}
	}

	// Pots.
	pots := make([][]int, rows)
	for r := 0; r < rows; r++ {
		pots[r] = make([]int, cols)
		for c := 0; c < cols; c++ {
			i := p.add(primitive.KindBucket, LinePot, RowRole(r), r, c, r3.Vec{X: float64(c) * sp, Y: float64(r) * sp}, potYaw)
			if err := p.connect(LineSupply, RowRole(r), potFeed[r][c], Endpoint{i, primitive.PortInlet}); err != nil {
				return err
			}
			pots[r][c] = i
		}
	}

	// Return row lines, flowing +X; each station collects from the pot on
	// its +Y side.
	rowOut := make([]Endpoint, rows)
	for r := 0; r < rows; r++ {
		if direct {
			rowOut[r] = Endpoint{pots[r][0], primitive.PortOutlet}
			continue
		}
		var prev Endpoint
		for c := 0; c < cols; c++ {
			pos := r3.Vec{X: float64(c) * sp, Y: returnY(r), Z: zo}
			outlet := Endpoint{pots[r][c], primitive.PortOutlet}
			if c == 0 {
				i := p.add(primitive.KindElbow, LineReturn, RowRole(r), r, c, pos, 0)
				if err := p.connect(LineReturn, RowRole(r), outlet, Endpoint{i, primitive.PortB}); err != nil {
					return err
				}
				prev = Endpoint{i, primitive.PortA}
				continue
			}
			i := p.add(primitive.KindTee, LineReturn, RowRole(r), r, c, pos, 0)
			if err := p.span(LineReturn, RowRole(r), prev, Endpoint{i, primitive.PortA}); err != nil {
				return err
			}
			if err := p.connect(LineReturn, RowRole(r), outlet, Endpoint{i, primitive.PortBranch}); err != nil {
				return err
			}
			prev = Endpoint{i, primitive.PortB}
		}
		rowOut[r] = prev
	}

	if headless {
		i := p.add(primitive.KindEndCap, LineReturn, RoleExit, -1, -1, r3.Vec{X: xReturn, Y: returnY(0), Z: zo}, 2)
		return p.connect(LineReturn, RoleExit, rowOut[0], Endpoint{i, primitive.PortA})
	}

	// Return header, climbing +Y; each station collects its row from -X.
	var out Endpoint
	for r := 0; r < rows; r++ {
		pos := r3.Vec{X: xReturn, Y: returnY(r), Z: zo}
		if r == 0 {
			i := p.add(primitive.KindElbow, LineReturn, RoleHeader, r, -1, pos, 1)
			if err := p.connect(LineReturn, RowRole(r), rowOut[r], Endpoint{i, primitive.PortB}); err != nil {
				return err
			}
			out = Endpoint{i, primitive.PortA}
			continue
		}
		i := p.add(primitive.KindTee, LineReturn, RoleHeader, r, -1, pos, 1)
		if err := p.span(LineReturn, RoleHeader, out, Endpoint{i, primitive.PortA}); err != nil {
			return err
		}
		if err := p.connect(LineReturn, RowRole(r), rowOut[r], Endpoint{i, primitive.PortBranch}); err != nil {
			return err
		}
		out = Endpoint{i, primitive.PortB}
	}

	// Exit: a cap, or two corners and the return main back to the tank.
	if req.Reservoir == nil {
		i := p.add(primitive.KindEndCap, LineReturn, RoleExit, -1, -1, r3.Vec{X: xReturn, Y: yExit, Z: zo}, 3)
		return p.connect(LineReturn, RoleExit, out, Endpoint{i, primitive.PortA})
	}
	e1 := p.add(primitive.KindElbow, LineReturn, RoleMain, -1, -1, r3.Vec{X: xReturn, Y: yExit + reach, Z: zo}, 2)
	if err := p.connect(LineReturn, RoleExit, out, Endpoint{e1, primitive.PortB}); err != nil {
		return err
	}
	e2 := p.add(primitive.KindElbow, LineReturn, RoleMain, -1, -1, r3.Vec{X: -hx, Y: yExit + reach, Z: zo}, 3)
	if err := p.connect(LineReturn, RoleMain, Endpoint{e1, primitive.PortA}, Endpoint{e2, primitive.PortB}); err != nil {
		return err
	}
	return p.connect(LineReturn, RoleMain, Endpoint{e2, primitive.PortA}, Endpoint{p.g.Root, primitive.PortReturn})
}
