// Package generate drives one generation run: plan the network, solve the
// joinery, assemble the parts into a host scene and optionally optimize
// them. A failed run leaves the scene as it found it.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/chazu/hydrogrid/pkg/assemble"
	"github.com/chazu/hydrogrid/pkg/config"
	"github.com/chazu/hydrogrid/pkg/errs"
	"github.com/chazu/hydrogrid/pkg/joinery"
	"github.com/chazu/hydrogrid/pkg/kernel"
	"github.com/chazu/hydrogrid/pkg/layout"
	"github.com/chazu/hydrogrid/pkg/optimize"
)

const stage = "generate"

// Params are the inputs of a run.
type Params = config.Params

// ErrBusy is returned to a caller that starts a run while another is in
// progress on the same Generator.
var ErrBusy = errors.New("generate: a generation is already running")

// Result is the outcome of a successful run.
type Result struct {
	RunID string
	Graph *layout.Graph
	Parts []*joinery.PlacedPart
	Model *assemble.Model
	Stats Stats
}

// Generator runs generations against one host. Runs are not re-entrant.
// Each successful run replaces the model of the one before it.
type Generator struct {
	mu     sync.Mutex
	host   kernel.Host
	logger *slog.Logger
	last   *assemble.Model
}

// New returns a Generator for host. A nil logger uses slog.Default().
func New(host kernel.Host, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{host: host, logger: logger}
}

// Host returns the host the generator writes to.
func (g *Generator) Host() kernel.Host { return g.host }

// Generate runs the pipeline for p. The previous run's objects are taken
// out of the scene before assembly. On any error every object the run
// inserted is removed again and the previous objects are put back.
func (g *Generator) Generate(ctx context.Context, p Params) (*Result, error) {
	if !g.mu.TryLock() {
		return nil, ErrBusy
	}
	defer g.mu.Unlock()

	runID := uuid.NewString()
	log := g.logger.With("run_id", runID)

	if err := p.Validate(); err != nil {
		log.Warn("rejected parameters", "err", err)
		return nil, err
	}
	req, err := p.Request()
	if err != nil {
		return nil, err
	}

	graph, err := layout.Plan(req)
	if err != nil {
		log.Warn("plan failed", "err", err)
		return nil, err
	}
	log.Info("plan", "nodes", len(graph.Nodes), "runs", len(graph.Runs),
		"grid", fmt.Sprintf("%dx%d", p.Rows, p.Columns))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate: after plan: %w", err)
	}

	solver := joinery.Solver{Logger: log}
	parts, err := solver.Solve(graph)
	if err != nil {
		return nil, err
	}
	log.Info("solve", "parts", len(parts))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate: after solve: %w", err)
	}

	prev, err := g.clearLast(log)
	if err != nil {
		return nil, err
	}
	var model *assemble.Model
	fail := func(err error) (*Result, error) {
		assemble.Rollback(g.host, model, log)
		g.restore(prev, log)
		return nil, err
	}

	model, err = assemble.Assemble(ctx, g.host, parts, assemble.Options{Join: p.Join, RunID: runID, Logger: log})
	if err != nil {
		log.Error("assemble failed", "err", err)
		return fail(err)
	}
	log.Info("assemble", "objects", len(model.Objects), "joined", model.Joined)
	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("generate: after assemble: %w", err))
	}

	if p.Optimize {
		before := model.TriangleCount()
		optimized, err := optimize.OptimizeWith(ctx, g.host, model, p.Aggressiveness, optimize.Options{Logger: log})
		if err != nil {
			log.Error("optimize failed", "err", err)
			return fail(err)
		}
		model = optimized
		log.Info("optimize", "before", before, "after", model.TriangleCount())
	}

	stats, err := collect(graph, model)
	if err != nil {
		return fail(err)
	}
	g.last = model
	return &Result{RunID: runID, Graph: graph, Parts: parts, Model: model, Stats: stats}, nil
}

// clearLast takes the previous run's objects out of the scene and returns
// them as they were. Objects removed from the scene by someone else are
// skipped.
func (g *Generator) clearLast(log *slog.Logger) ([]kernel.Object, error) {
	if g.last == nil {
		return nil, nil
	}
	inScene := make(map[string]kernel.Object)
	for _, o := range g.host.Objects() {
		inScene[o.Name] = o
	}
	var taken []kernel.Object
	for _, name := range g.last.Objects {
		o, ok := inScene[name]
		if !ok {
			continue
		}
		if err := g.host.Remove(name); err != nil {
			g.restore(taken, log)
			return nil, errs.New(errs.ErrAssemblyFailed, stage, "clear previous %s", name).Wrap(err)
		}
		taken = append(taken, o)
	}
	log.Debug("cleared previous run", "run", g.last.RunID, "objects", len(taken))
	return taken, nil
}

// restore puts objects taken out by clearLast back.
func (g *Generator) restore(objs []kernel.Object, log *slog.Logger) {
	for _, o := range objs {
		if err := g.host.Insert(o.Solid, o.Transform, o.Name); err != nil {
			log.Error("restore failed", "object", o.Name, "err", err)
		}
	}
}
