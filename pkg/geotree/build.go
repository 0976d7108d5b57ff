package geotree

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func finite3(v r3.Vec) bool { return finite(v.X, v.Y, v.Z) }
func finite2(v r2.Vec) bool { return finite(v.X, v.Y) }

func newNode(k Kind, dim Dim, data Data, children ...*Node) *Node {
	n := &Node{kind: k, dim: dim, data: data, children: children}
	n.hash = computeHash(n)
	return n
}

// HalfSpace returns the half-space dot(normal, p) <= offset. The normal is
// normalized, with offset scaled to match.
func HalfSpace(normal r3.Vec, offset float64) (*Node, error) {
	if !finite3(normal) || !finite(offset) {
		return nil, constructionErr(KindHalfSpace, "normal", "parameters must be finite")
	}
	l := r3.Norm(normal)
	if l == 0 {
		return nil, constructionErr(KindHalfSpace, "normal", "must be non-zero")
	}
	return newNode(KindHalfSpace, Dim3, HalfSpaceData{
		Normal: r3.Scale(1/l, normal),
		Offset: offset / l,
	}), nil
}

// HalfSpaceThrough returns the half-space whose boundary plane passes through
// point, with normal pointing out of the solid.
func HalfSpaceThrough(normal, point r3.Vec) (*Node, error) {
	l := r3.Norm(normal)
	if l == 0 {
		return nil, constructionErr(KindHalfSpace, "normal", "must be non-zero")
	}
	return HalfSpace(normal, r3.Dot(normal, point))
}

// Sphere returns a solid ball.
func Sphere(center r3.Vec, radius float64) (*Node, error) {
	if !finite3(center) {
		return nil, constructionErr(KindSphere, "center", "must be finite")
	}
	if !finite(radius) || radius <= 0 {
		return nil, constructionErr(KindSphere, "radius", "must be positive, got %g", radius)
	}
	return newNode(KindSphere, Dim3, SphereData{Center: center, Radius: radius}), nil
}

// Circle returns a filled disc.
func Circle(center r2.Vec, radius float64) (*Node, error) {
	if !finite2(center) {
		return nil, constructionErr(KindCircle, "center", "must be finite")
	}
	if !finite(radius) || radius <= 0 {
		return nil, constructionErr(KindCircle, "radius", "must be positive, got %g", radius)
	}
	return newNode(KindCircle, Dim2, CircleData{Center: center, Radius: radius}), nil
}

// Polygon returns a simple polygon from at least three vertices.
func Polygon(vertices []r2.Vec) (*Node, error) {
	if len(vertices) < 3 {
		return nil, constructionErr(KindPolygon, "vertices", "need at least 3, got %d", len(vertices))
	}
	vs := make([]r2.Vec, len(vertices))
	for i, v := range vertices {
		if !finite2(v) {
			return nil, constructionErr(KindPolygon, "vertices", "vertex %d is not finite", i)
		}
		vs[i] = v
	}
	return newNode(KindPolygon, Dim2, PolygonData{Vertices: vs}), nil
}

// HalfPlane returns the region left of the directed line from p1 to p2.
func HalfPlane(p1, p2 r2.Vec) (*Node, error) {
	if !finite2(p1) || !finite2(p2) {
		return nil, constructionErr(KindHalfPlane, "points", "must be finite")
	}
	if r2.Norm(r2.Sub(p2, p1)) == 0 {
		return nil, constructionErr(KindHalfPlane, "points", "must be distinct")
	}
	return newNode(KindHalfPlane, Dim2, HalfPlaneData{Point1: p1, Point2: p2}), nil
}

// HalfPlaneNormal returns the half-plane dot(normal, p) <= offset.
func HalfPlaneNormal(normal r2.Vec, offset float64) (*Node, error) {
	l := r2.Norm(normal)
	if l == 0 || !finite(l, offset) {
		return nil, constructionErr(KindHalfPlane, "normal", "must be non-zero and finite")
	}
	n := r2.Scale(1/l, normal)
	base := r2.Scale(offset/l, n)
	// The left side of (-n.Y, n.X) is the side opposite to n.
	dir := r2.Vec{X: -n.Y, Y: n.X}
	return HalfPlane(base, r2.Add(base, dir))
}

func sameDim(k Kind, children []*Node) (Dim, error) {
	if len(children) == 0 {
		return 0, constructionErr(k, "children", "need at least one operand")
	}
	for i, c := range children {
		if c == nil {
			return 0, constructionErr(k, "children", "operand %d is nil", i)
		}
	}
	d := children[0].dim
	for i, c := range children[1:] {
		if c.dim != d {
			return 0, dimensionErr(k, "operand %d is %dD, operand 0 is %dD", i+1, c.dim, d)
		}
	}
	return d, nil
}

// Union returns the union of one or more shapes of the same dimension.
func Union(children ...*Node) (*Node, error) {
	d, err := sameDim(KindUnion, children)
	if err != nil {
		return nil, err
	}
	return newNode(KindUnion, d, BooleanData{}, append([]*Node(nil), children...)...), nil
}

// Intersection returns the intersection of one or more shapes of the same
// dimension.
func Intersection(children ...*Node) (*Node, error) {
	d, err := sameDim(KindIntersection, children)
	if err != nil {
		return nil, err
	}
	return newNode(KindIntersection, d, BooleanData{}, append([]*Node(nil), children...)...), nil
}

// Difference returns base with sub removed.
func Difference(base, sub *Node) (*Node, error) {
	d, err := sameDim(KindDifference, []*Node{base, sub})
	if err != nil {
		return nil, err
	}
	return newNode(KindDifference, d, BooleanData{}, base, sub), nil
}

// Transform applies a rigid transform to a solid.
func Transform(child *Node, t RigidTransform) (*Node, error) {
	if child == nil {
		return nil, constructionErr(KindTransform, "child", "is nil")
	}
	if !child.Is3D() {
		return nil, dimensionErr(KindTransform, "child must be 3D")
	}
	if !finite3(t.Translation) || !finite3(t.Axis) || !finite(t.Angle) {
		return nil, constructionErr(KindTransform, "transform", "must be finite")
	}
	if t.HasRotation() {
		t.Axis = r3.Unit(t.Axis)
	} else {
		t.Axis = r3.Vec{}
		t.Angle = 0
	}
	return newNode(KindTransform, Dim3, TransformData{Transform: t}, child), nil
}

// Transform2D rotates a planar shape by angle radians then translates it.
func Transform2D(child *Node, translation r2.Vec, angle float64) (*Node, error) {
	if child == nil {
		return nil, constructionErr(KindTransform2D, "child", "is nil")
	}
	if !child.Is2D() {
		return nil, dimensionErr(KindTransform2D, "child must be 2D")
	}
	if !finite2(translation) || !finite(angle) {
		return nil, constructionErr(KindTransform2D, "transform", "must be finite")
	}
	return newNode(KindTransform2D, Dim2, Transform2DData{Translation: translation, Angle: angle}, child), nil
}

// Extrude sweeps a planar shape straight up the Z axis by height.
func Extrude(child *Node, height float64) (*Node, error) {
	return ExtrudeAlong(child, height, r3.Vec{Z: 1})
}

// ExtrudeAlong sweeps a planar shape along direction. The direction must
// have a non-zero Z component.
func ExtrudeAlong(child *Node, height float64, direction r3.Vec) (*Node, error) {
	if child == nil {
		return nil, constructionErr(KindExtrude, "child", "is nil")
	}
	if !child.Is2D() {
		return nil, dimensionErr(KindExtrude, "child must be 2D")
	}
	if !finite(height) || height <= 0 {
		return nil, constructionErr(KindExtrude, "height", "must be positive, got %g", height)
	}
	if !finite3(direction) || direction.Z == 0 {
		return nil, constructionErr(KindExtrude, "direction", "must be finite with non-zero z")
	}
	return newNode(KindExtrude, Dim3, ExtrudeData{Height: height, Direction: r3.Unit(direction)}, child), nil
}
