// Package kernel defines the capability interface the generator uses to
// reach the host application's mesh and scene services.
//
// Hosts (memhost, sdfx) own the geometry behind opaque Solid handles. The
// generator never reaches into a host's representation; it creates meshes,
// asks for unions and decimations, and inserts the results into the host's
// scene under a name. Keeping the host behind this interface lets the same
// pipeline run against an in-memory scene in tests and a real modeller
// elsewhere.
package kernel

// Solid is an opaque handle to host-owned geometry.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box in the solid's
	// own frame.
	BoundingBox() (min, max [3]float64)
}

// Object is a named scene entry.
type Object struct {
	Name      string
	Solid     Solid
	Transform Transform
}

// Host is the host application's mesh and scene service.
type Host interface {
	// CreateMesh builds a solid from flat vertex positions (x,y,z triples)
	// and triangle indices.
	CreateMesh(vertices []float32, faces []uint32) (Solid, error)

	// Union returns the boolean union of the solids. Operands must be in a
	// common frame.
	Union(solids []Solid) (Solid, error)

	// Decimate returns a simplified copy of s keeping roughly ratio of its
	// triangles.
	Decimate(s Solid, ratio float64) (Solid, error)

	// ToMesh reads a solid back as a triangle mesh.
	ToMesh(s Solid) (*Mesh, error)

	// Insert adds s to the scene under name, placed by xf. Names are
	// unique; inserting an existing name is an error.
	Insert(s Solid, xf Transform, name string) error

	// Remove deletes the named object from the scene.
	Remove(name string) error

	// Objects lists the scene in insertion order.
	Objects() []Object
}
