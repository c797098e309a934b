package joinery

import (
	"fmt"

	"github.com/chazu/hydrogrid/pkg/layout"
	"github.com/chazu/hydrogrid/pkg/primitive"
)

// library builds each distinct primitive of a plan once. Pipes are keyed by
// length; runs of equal length share a part.
type library struct {
	g     *layout.Graph
	kinds map[primitive.Kind]*primitive.Part
	pipes map[float64]*primitive.Part
}

func newLibrary(g *layout.Graph) *library {
	return &library{
		g:     g,
		kinds: make(map[primitive.Kind]*primitive.Part),
		pipes: make(map[float64]*primitive.Part),
	}
}

func (l *library) node(n *layout.Node) (*primitive.Part, error) {
	if p, ok := l.kinds[n.Kind]; ok {
		return p, nil
	}
	req := l.g.Request
	var (
		p   *primitive.Part
		err error
	)
	switch n.Kind {
	case primitive.KindElbow:
		p, err = primitive.Elbow(req.Pipe)
	case primitive.KindTee:
		p, err = primitive.Tee(req.Pipe)
	case primitive.KindCollar:
		p, err = primitive.Collar(req.Pipe)
	case primitive.KindEndCap:
		p, err = primitive.EndCap(req.Pipe)
	case primitive.KindBucket:
		p, err = primitive.Bucket(req.Bucket, req.Pipe, l.g.Heights())
	case primitive.KindReservoir:
		if req.Reservoir == nil {
			return nil, fmt.Errorf("joinery: %s planned without a reservoir profile", n)
		}
		p, err = primitive.Reservoir(*req.Reservoir, req.Pipe, l.g.Heights())
	default:
		return nil, fmt.Errorf("joinery: %s has no primitive", n)
	}
	if err != nil {
		return nil, err
	}
	l.kinds[n.Kind] = p
	return p, nil
}

func (l *library) pipe(length float64) (*primitive.Part, error) {
	if p, ok := l.pipes[length]; ok {
		return p, nil
	}
	p, err := primitive.Pipe(l.g.Request.Pipe, length)
	if err != nil {
		return nil, err
	}
	l.pipes[length] = p
	return p, nil
}
