package layout

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/hydrogrid/pkg/primitive"
)

// supplyPath lists the nodes from the root down to node i in flow order.
func (g *Graph) supplyPath(i int) []int {
	path := []int{i}
	for i != g.Root && len(g.Nodes[i].Upstream) > 0 {
		i = g.Nodes[i].Upstream[0]
		path = append(path, i)
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path
}

// returnPath lists the nodes from node i to the end of the return line: the
// tank, or the exit cap.
func (g *Graph) returnPath(i int) []int {
	path := []int{i}
	for len(g.Nodes[i].Downstream) > 0 {
		i = g.Nodes[i].Downstream[0]
		path = append(path, i)
		if i == g.Root {
			break
		}
	}
	return path
}

func (g *Graph) runBetween(from, to int) (*Run, bool) {
	for _, r := range g.Runs {
		if r.From.Node == from && r.To.Node == to {
			return r, true
		}
	}
	return nil, false
}

// pathLength sums the run lengths along path plus the centreline distance
// through every fitting passed on the way.
func (g *Graph) pathLength(path []int) (float64, error) {
	var sum float64
	var in string
	for k := 0; k+1 < len(path); k++ {
		r, ok := g.runBetween(path[k], path[k+1])
		if !ok {
			return 0, fmt.Errorf("layout: no run from node %d to node %d", path[k], path[k+1])
		}
		sum += r.Length
		if k > 0 && g.Nodes[path[k]].Kind.IsFitting() {
			sum += g.throughLength(path[k], in, r.From.Port)
		}
		in = r.To.Port
	}
	return sum, nil
}

// throughLength is the centreline length inside fitting i between two of
// its ports.
func (g *Graph) throughLength(i int, a, b string) float64 {
	pa, _ := g.WorldPort(i, a)
	pb, _ := g.WorldPort(i, b)
	c := g.Nodes[i].Position
	return r3.Norm(r3.Sub(pa.Origin, c)) + r3.Norm(r3.Sub(pb.Origin, c))
}

// SupplyLength is the centreline length from the root to the pot's inlet.
func (g *Graph) SupplyLength(pot int) (float64, error) {
	if g.Nodes[pot].Kind != primitive.KindBucket {
		return 0, fmt.Errorf("layout: node %d is a %s, not a pot", pot, g.Nodes[pot].Kind)
	}
	return g.pathLength(g.supplyPath(pot))
}

// LoopLength is the centreline length of the circulation loop through a
// pot: from the root to the pot's inlet, then from the pot's outlet to the
// end of the return line. This is the equal-path guarantee in checked form.
// Supply lengths alone grow along the manifold; reverse-return routing gives
// the return legs the difference, so the loop is the same for every pot and
// generation rejects a plan where it is not.
func (g *Graph) LoopLength(pot int) (float64, error) {
	supply, err := g.SupplyLength(pot)
	if err != nil {
		return 0, err
	}
	ret, err := g.pathLength(g.returnPath(pot))
	if err != nil {
		return 0, err
	}
	return supply + ret, nil
}
