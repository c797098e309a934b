// Package optimize reduces the triangle count of an assembled model without
// opening holes in it.
package optimize

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/chazu/hydrogrid/pkg/assemble"
	"github.com/chazu/hydrogrid/pkg/errs"
	"github.com/chazu/hydrogrid/pkg/kernel"
)

const stage = "optimize"

// WeldTolerance merges vertices closer than this, in metres.
const WeldTolerance = kernel.WeldTolerance

// replacement is an optimized object waiting to be swapped into the scene.
type replacement struct {
	name      string
	old       kernel.Object
	solid     kernel.Solid
	triangles int
}

// Options controls optimization.
type Options struct {
	Logger *slog.Logger
}

// Optimize welds and decimates every object of m. Each object is reduced
// to (1 - aggressiveness) of its source triangle count, so repeating a call
// with the same aggressiveness does no further work.
//
// The scene is only changed once every object has been optimized safely.
// If an object that was closed would gain boundary edges, Optimize returns
// ErrOptimizationUnsafe and leaves the scene untouched. A swap that fails
// partway puts back the objects already replaced.
func Optimize(ctx context.Context, host kernel.Host, m *assemble.Model, aggressiveness float64) (*assemble.Model, error) {
	return OptimizeWith(ctx, host, m, aggressiveness, Options{})
}

// OptimizeWith is Optimize with options.
func OptimizeWith(ctx context.Context, host kernel.Host, m *assemble.Model, aggressiveness float64, opts Options) (*assemble.Model, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if !(aggressiveness >= 0 && aggressiveness < 1) {
		return nil, errs.New(errs.ErrOptimizationUnsafe, stage,
			"aggressiveness %g outside [0, 1)", aggressiveness)
	}

	scene := make(map[string]kernel.Object)
	for _, o := range host.Objects() {
		scene[o.Name] = o
	}

	// Objects sharing a host solid share its reduction.
	type key struct {
		solid  kernel.Solid
		target int
	}
	done := make(map[key]replacement)

	var plan []replacement
	for i, name := range m.Objects {
		if err := ctx.Err(); err != nil {
			return nil, errs.New(errs.ErrOptimizationUnsafe, stage, "cancelled").Wrap(err)
		}
		obj, ok := scene[name]
		if !ok {
			return nil, errs.New(errs.ErrOptimizationUnsafe, stage, "object %q is not in the scene", name).AtIndex(i)
		}
		target := int(math.Ceil((1 - aggressiveness) * float64(m.SourceTriangles[name])))
		r, ok := done[key{obj.Solid, target}]
		if !ok {
			var err error
			if r, err = reduce(host, obj.Solid, target); err != nil {
				return nil, errs.New(errs.ErrOptimizationUnsafe, stage, "%s", name).AtIndex(i).Wrap(err)
			}
			done[key{obj.Solid, target}] = r
		}
		r.name, r.old = name, obj
		plan = append(plan, r)
	}

	out := m.Clone()
	for k, r := range plan {
		if err := swap(host, r); err != nil {
			unswap(host, plan[:k], log)
			return nil, errs.New(errs.ErrOptimizationUnsafe, stage, "replace %s", r.name).AtIndex(k).Wrap(err)
		}
		out.Triangles[r.name] = r.triangles
	}
	log.Debug("optimized", "objects", len(plan),
		"before", m.TriangleCount(), "after", out.TriangleCount())
	return out, nil
}

// reduce welds the mesh of s and decimates it down to target triangles.
func reduce(host kernel.Host, s kernel.Solid, target int) (replacement, error) {
	src, err := host.ToMesh(s)
	if err != nil {
		return replacement{}, err
	}
	mesh := src.Weld(WeldTolerance)
	wasClosed := mesh.Edges().Closed()

	if n := mesh.TriangleCount(); n > target && target > 0 {
		coarse, err := host.CreateMesh(mesh.Vertices, mesh.Indices)
		if err != nil {
			return replacement{}, err
		}
		if coarse, err = host.Decimate(coarse, float64(target)/float64(n)); err != nil {
			return replacement{}, err
		}
		if mesh, err = host.ToMesh(coarse); err != nil {
			return replacement{}, err
		}
		mesh = mesh.Weld(WeldTolerance)
	}
	if wasClosed {
		if b := mesh.BoundaryEdges(); b > 0 {
			return replacement{}, fmt.Errorf("decimation opens %d boundary edges", b)
		}
	}
	solid, err := host.CreateMesh(mesh.Vertices, mesh.Indices)
	if err != nil {
		return replacement{}, err
	}
	return replacement{solid: solid, triangles: mesh.TriangleCount()}, nil
}

// swap replaces the scene object in place, restoring it if the new solid
// cannot be inserted.
func swap(host kernel.Host, r replacement) error {
	if err := host.Remove(r.name); err != nil {
		return err
	}
	if err := host.Insert(r.solid, r.old.Transform, r.name); err != nil {
		if rerr := host.Insert(r.old.Solid, r.old.Transform, r.name); rerr != nil {
			return fmt.Errorf("%w (restore failed: %v)", err, rerr)
		}
		return err
	}
	return nil
}

// unswap puts the original solids back for replacements already swapped
// in, newest first.
func unswap(host kernel.Host, done []replacement, log *slog.Logger) {
	for i := len(done) - 1; i >= 0; i-- {
		r := done[i]
		r.solid = r.old.Solid
		if err := swap(host, r); err != nil {
			log.Error("restore failed", "object", r.name, "err", err)
		}
	}
}
