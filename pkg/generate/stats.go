package generate

import (
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/chazu/hydrogrid/pkg/assemble"
	"github.com/chazu/hydrogrid/pkg/layout"
	"github.com/chazu/hydrogrid/pkg/primitive"
)

// Stats summarise a generated system.
type Stats struct {
	Pots       int
	Parts      int
	ByKind     map[primitive.Kind]int
	ByRow      map[int]int
	PipeRuns   int
	PipeLength float64 // metres of straight pipe
	LoopLength float64 // circulation loop centreline through any pot

	SupplyHeight float64
	ReturnHeight float64

	Objects         int
	Triangles       int
	SourceTriangles int
}

// BOMLine is one bill-of-materials entry.
type BOMLine struct {
	Kind     primitive.Kind
	Size     string
	Quantity int
	Length   float64 // total metres, pipes only
}

func collect(g *layout.Graph, m *assemble.Model) (Stats, error) {
	s := Stats{
		ByKind:       m.Counts.ByKind,
		ByRow:        m.Counts.ByRow,
		PipeRuns:     len(g.Runs),
		PipeLength:   g.PipeLength(),
		SupplyHeight: g.SupplyHeight,
		ReturnHeight: g.ReturnHeight,
		Objects:      len(m.Objects),
		Triangles:    m.TriangleCount(),
	}
	for _, n := range m.Counts.ByKind {
		s.Parts += n
	}
	for _, n := range m.SourceTriangles {
		s.SourceTriangles += n
	}
	pots := g.Pots()
	s.Pots = len(pots)
	for i, pot := range pots {
		loop, err := g.LoopLength(pot.Index)
		if err != nil {
			return Stats{}, err
		}
		if i == 0 {
			s.LoopLength = loop
		} else if math.Abs(loop-s.LoopLength) > 1e-9*g.Request.Spacing {
			return Stats{}, fmt.Errorf("generate: pot %s loop %g differs from %g", pot, loop, s.LoopLength)
		}
	}
	return s, nil
}

// BOM lists the parts of r by kind, with the pipe and vessel sizes they
// were built for.
func (r *Result) BOM() []BOMLine {
	req := r.Graph.Request
	sizes := map[primitive.Kind]string{primitive.KindBucket: string(req.Bucket.Selector)}
	if req.Reservoir != nil {
		sizes[primitive.KindReservoir] = string(req.Reservoir.Selector)
	}
	kinds := slices.SortedFunc(maps.Keys(r.Stats.ByKind), func(a, b primitive.Kind) int {
		return strings.Compare(string(a), string(b))
	})
	out := make([]BOMLine, 0, len(kinds))
	for _, k := range kinds {
		line := BOMLine{Kind: k, Size: string(req.Pipe.Selector), Quantity: r.Stats.ByKind[k]}
		if s, ok := sizes[k]; ok {
			line.Size = s
		}
		if k == primitive.KindPipe {
			line.Length = r.Stats.PipeLength
		}
		out = append(out, line)
	}
	return out
}
