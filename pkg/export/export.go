// Package export writes generated models out of the host scene: binary STL
// for fabrication and a shaded PNG preview.
package export

import (
	"fmt"
	"image"
	"log/slog"
	"os"

	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"

	"github.com/chazu/hydrogrid/pkg/assemble"
	"github.com/chazu/hydrogrid/pkg/kernel"
	"github.com/chazu/hydrogrid/pkg/kernel/memhost"
)

// Preview rendering constants.
const (
	supersample = 2  // render at this multiple, then downsample
	fovy        = 30 // vertical field of view in degrees
	near, far   = 1, 10
)

var (
	background  = fauxgl.HexColor("#FFF8E3")
	objectColor = fauxgl.HexColor("#2A6F97")
)

// Options names the files Export writes. Empty paths are skipped.
type Options struct {
	STL     string
	Preview string
	Width   int
	Height  int
	Logger  *slog.Logger
}

// Summary reports what Export wrote.
type Summary struct {
	Triangles    int
	STLBytes     int64
	PreviewBytes int64
}

// WorldMesh gathers the model's objects from host into one world-space
// mesh.
func WorldMesh(host kernel.Host, m *assemble.Model) (*kernel.Mesh, error) {
	byName := make(map[string]kernel.Object)
	for _, o := range host.Objects() {
		byName[o.Name] = o
	}
	out := &kernel.Mesh{PartName: "hydrogrid"}
	for _, name := range m.Objects {
		o, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("export: no object %q in scene", name)
		}
		mesh, err := host.ToMesh(o.Solid)
		if err != nil {
			return nil, fmt.Errorf("export: %s: %w", name, err)
		}
		out.Append(mesh.Transformed(o.Transform))
	}
	if out.IsEmpty() {
		return nil, fmt.Errorf("export: model has no geometry")
	}
	return out, nil
}

// Export writes the model's STL and preview as opts asks.
func Export(host kernel.Host, m *assemble.Model, opts Options) (Summary, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	mesh, err := WorldMesh(host, m)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Triangles: mesh.TriangleCount()}
	if opts.STL != "" {
		if sum.STLBytes, err = writeSized(opts.STL, func() error { return WriteSTL(opts.STL, mesh) }); err != nil {
			return Summary{}, err
		}
	}
	if opts.Preview != "" {
		write := func() error { return SavePreview(opts.Preview, mesh, opts.Width, opts.Height) }
		if sum.PreviewBytes, err = writeSized(opts.Preview, write); err != nil {
			return Summary{}, err
		}
	}
	log.Info("export", "run_id", m.RunID, "triangles", sum.Triangles,
		"stl", opts.STL, "stl_bytes", sum.STLBytes, "preview", opts.Preview)
	return sum, nil
}

func writeSized(path string, write func() error) (int64, error) {
	if err := write(); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("export: %w", err)
	}
	return info.Size(), nil
}

// WriteSTL writes m as a binary STL file.
func WriteSTL(path string, m *kernel.Mesh) error {
	if err := memhost.ToFauxgl(m).SaveSTL(path); err != nil {
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	return nil
}

// ReadSTL loads an STL file and welds it back into an indexed mesh.
func ReadSTL(path string) (*kernel.Mesh, error) {
	fm, err := fauxgl.LoadSTL(path)
	if err != nil {
		return nil, fmt.Errorf("export: reading %s: %w", path, err)
	}
	return memhost.FromFauxgl(fm).Weld(kernel.WeldTolerance), nil
}

// Render draws m from above and to the front, fitted to the frame.
func Render(m *kernel.Mesh, width, height int) (image.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("export: preview size %dx%d must be positive", width, height)
	}
	if m.IsEmpty() {
		return nil, fmt.Errorf("export: nothing to render")
	}
	mesh := memhost.ToFauxgl(m)
	mesh.BiUnitCube()

	var (
		eye    = fauxgl.V(-2.2, -3.2, 2.4)
		center = fauxgl.V(0, 0, -0.2)
		up     = fauxgl.V(0, 0, 1)
		light  = fauxgl.V(-0.5, -1, 1.5).Normalize()
	)
	ctx := fauxgl.NewContext(width*supersample, height*supersample)
	ctx.ClearColorBufferWith(background)
	aspect := float64(width) / float64(height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, near, far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = objectColor
	ctx.Shader = shader
	ctx.DrawMesh(mesh)

	return resize.Resize(uint(width), uint(height), ctx.Image(), resize.Bilinear), nil
}

// SavePreview renders m and writes it as a PNG.
func SavePreview(path string, m *kernel.Mesh, width, height int) error {
	img, err := Render(m, width, height)
	if err != nil {
		return err
	}
	if err := fauxgl.SavePNG(path, img); err != nil {
		return fmt.Errorf("export: writing %s: %w", path, err)
	}
	return nil
}
