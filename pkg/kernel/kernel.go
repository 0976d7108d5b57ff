// Package kernel defines the abstract polygonization kernel interface.
// Implementations (sdfx) build their own solid and shape representations
// from geometry primitives and boolean operations and turn them into
// triangle meshes and 2D outlines for display. The kernel abstraction
// allows swapping backends without changing the rest of the system.
package kernel

// Solid is an opaque handle to a kernel 3D solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box. Unbounded solids
	// report the kernel's working volume.
	BoundingBox() (min, max [3]float64)
}

// Shape is an opaque handle to a kernel 2D shape.
type Shape interface {
	BoundingBox() (min, max [2]float64)
}

// Kernel is the abstract polygonization kernel interface.
// Angles are in radians.
type Kernel interface {
	// 3D primitives
	Sphere(center [3]float64, radius float64) Solid
	HalfSpace(normal [3]float64, offset float64) Solid // dot(normal, p) <= offset

	// 3D boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// 3D transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, axis [3]float64, angle float64) Solid

	// 2D primitives
	Circle(center [2]float64, radius float64) Shape
	Polygon(vertices [][2]float64) Shape
	HalfPlane(from, to [2]float64) Shape // inside is left of from->to

	// 2D boolean operations and transform
	Union2(a, b Shape) Shape
	Difference2(a, b Shape) Shape
	Intersection2(a, b Shape) Shape
	Transform2(s Shape, x, y, angle float64) Shape

	// Extrude sweeps s from z=0 along the unit direction until z reaches
	// height times the direction's z component.
	Extrude(s Shape, height float64, direction [3]float64) Solid

	// Output
	ToMesh(s Solid) (*Mesh, error)
	ToSketch(s Shape) (*Sketch, error)
}
