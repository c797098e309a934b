// Package assemble hands placed parts to a host scene. One object is
// inserted per part; with Join set, the parts are then fused into a single
// object.
package assemble

import (
	"context"
	"log/slog"
	"maps"

	"github.com/chazu/hydrogrid/pkg/errs"
	"github.com/chazu/hydrogrid/pkg/joinery"
	"github.com/chazu/hydrogrid/pkg/kernel"
	"github.com/chazu/hydrogrid/pkg/primitive"
)

const stage = "assemble"

// FusedName is the scene name of the joined model.
const FusedName = "hydrogrid"

// Options controls assembly.
type Options struct {
	Join   bool
	RunID  string
	Logger *slog.Logger
}

// Counts tallies the parts of a model.
type Counts struct {
	ByKind map[primitive.Kind]int
	ByRow  map[int]int // parts serving each row; shared parts are not counted
}

// Model describes what an assembly put into the scene.
type Model struct {
	RunID   string
	Objects []string // scene names in insertion order
	Joined  bool

	// SourceTriangles holds each object's triangle count when it was
	// inserted, the reference for decimation targets. Triangles holds the
	// current counts.
	SourceTriangles map[string]int
	Triangles       map[string]int
	Counts          Counts
}

// TriangleCount sums the current triangle counts.
func (m *Model) TriangleCount() int {
	var n int
	for _, c := range m.Triangles {
		n += c
	}
	return n
}

// Clone returns a deep copy of m.
func (m *Model) Clone() *Model {
	out := *m
	out.Objects = append([]string(nil), m.Objects...)
	out.SourceTriangles = maps.Clone(m.SourceTriangles)
	out.Triangles = maps.Clone(m.Triangles)
	return &out
}

// Assemble inserts parts into host under their grouped names. A failed
// insertion removes what this call inserted. A failed join leaves the
// separate objects in place and returns the model alongside the error.
func Assemble(ctx context.Context, host kernel.Host, parts []*joinery.PlacedPart, opts Options) (*Model, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	m := &Model{
		RunID:           opts.RunID,
		SourceTriangles: make(map[string]int, len(parts)),
		Triangles:       make(map[string]int, len(parts)),
		Counts:          count(parts),
	}

	// Parts built from the same primitive share one host solid.
	solids := make(map[*primitive.Part]kernel.Solid)
	for _, pp := range parts {
		if err := ctx.Err(); err != nil {
			rollback(host, m.Objects, log)
			return nil, errs.New(errs.ErrAssemblyFailed, stage, "cancelled").AtIndex(pp.Index).Wrap(err)
		}
		s, ok := solids[pp.Part]
		if !ok {
			var err error
			s, err = host.CreateMesh(pp.Part.Mesh.Vertices, pp.Part.Mesh.Indices)
			if err != nil {
				rollback(host, m.Objects, log)
				return nil, errs.New(errs.ErrAssemblyFailed, stage, "create %s", pp.Name()).AtIndex(pp.Index).Wrap(err)
			}
			solids[pp.Part] = s
		}
		name := pp.Name()
		if err := host.Insert(s, pp.Transform, name); err != nil {
			rollback(host, m.Objects, log)
			return nil, errs.New(errs.ErrAssemblyFailed, stage, "insert %s", name).AtIndex(pp.Index).Wrap(err)
		}
		m.Objects = append(m.Objects, name)
		m.SourceTriangles[name] = pp.Part.Mesh.TriangleCount()
		m.Triangles[name] = pp.Part.Mesh.TriangleCount()
	}

	if !opts.Join || len(parts) == 0 {
		return m, nil
	}
	if err := join(ctx, host, parts, m, log); err != nil {
		log.Warn("join failed, keeping separate parts", "err", err)
		return m, err
	}
	return m, nil
}

// join unions the world-space part meshes in part order and swaps the
// separate objects for the fused one. If the swap fails partway the fused
// object is taken out and the separate objects put back.
func join(ctx context.Context, host kernel.Host, parts []*joinery.PlacedPart, m *Model, log *slog.Logger) error {
	var acc kernel.Solid
	for k, pp := range parts {
		if err := ctx.Err(); err != nil {
			return errs.New(errs.ErrAssemblyFailed, stage, "join cancelled").AtIndex(pp.Index).Wrap(err)
		}
		world := pp.Part.Mesh.Transformed(pp.Transform)
		s, err := host.CreateMesh(world.Vertices, world.Indices)
		if err != nil {
			return errs.New(errs.ErrAssemblyFailed, stage, "join %s", pp.Name()).AtIndex(pp.Index).Wrap(err)
		}
		if k == 0 {
			acc = s
			continue
		}
		acc, err = host.Union([]kernel.Solid{acc, s})
		if err != nil {
			return errs.New(errs.ErrAssemblyFailed, stage, "union with %s", pp.Name()).AtIndex(pp.Index).Wrap(err)
		}
	}

	fused, err := host.ToMesh(acc)
	if err != nil {
		return errs.New(errs.ErrAssemblyFailed, stage, "read fused model").Wrap(err)
	}
	separate := make(map[string]kernel.Object, len(m.Objects))
	for _, o := range host.Objects() {
		separate[o.Name] = o
	}
	if err := host.Insert(acc, kernel.Identity(), FusedName); err != nil {
		return errs.New(errs.ErrAssemblyFailed, stage, "insert fused model").Wrap(err)
	}
	for k, name := range m.Objects {
		if err := host.Remove(name); err != nil {
			unjoin(host, m.Objects[:k], separate, log)
			return errs.New(errs.ErrAssemblyFailed, stage, "remove %s", name).Wrap(err)
		}
	}
	m.Objects = []string{FusedName}
	m.SourceTriangles = map[string]int{FusedName: fused.TriangleCount()}
	m.Triangles = map[string]int{FusedName: fused.TriangleCount()}
	m.Joined = true
	return nil
}

// unjoin drops the fused object and re-inserts the separate objects
// already removed.
func unjoin(host kernel.Host, removed []string, separate map[string]kernel.Object, log *slog.Logger) {
	if err := host.Remove(FusedName); err != nil {
		log.Error("rollback failed", "object", FusedName, "err", err)
	}
	for _, name := range removed {
		o := separate[name]
		if err := host.Insert(o.Solid, o.Transform, name); err != nil {
			log.Error("rollback failed", "object", name, "err", err)
		}
	}
}

// rollback removes the named objects, newest first.
func rollback(host kernel.Host, names []string, log *slog.Logger) {
	for i := len(names) - 1; i >= 0; i-- {
		if err := host.Remove(names[i]); err != nil {
			log.Error("rollback failed", "object", names[i], "err", err)
		}
	}
}

// Rollback removes every object in m from host.
func Rollback(host kernel.Host, m *Model, log *slog.Logger) {
	if m == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}
	rollback(host, m.Objects, log)
}

func count(parts []*joinery.PlacedPart) Counts {
	c := Counts{ByKind: map[primitive.Kind]int{}, ByRow: map[int]int{}}
	for _, pp := range parts {
		c.ByKind[pp.Kind()]++
		if r := pp.Row(); r >= 0 {
			c.ByRow[r]++
		}
	}
	return c
}
