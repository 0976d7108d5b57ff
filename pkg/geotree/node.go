package geotree

import (
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Kind enumerates the node variants of the geometry tree.
type Kind int

const (
	KindHalfSpace    Kind = iota // 3D half-space bounded by a plane
	KindSphere                   // 3D sphere
	KindCircle                   // 2D disc
	KindPolygon                  // 2D simple polygon
	KindHalfPlane                // 2D half-plane bounded by a line
	KindUnion                    // boolean union, 2D or 3D
	KindIntersection             // boolean intersection, 2D or 3D
	KindDifference               // base minus subtrahend, 2D or 3D
	KindTransform                // rigid 3D transform
	KindTransform2D              // rigid 2D transform
	KindExtrude                  // 2D shape swept into 3D
)

func (k Kind) String() string {
	switch k {
	case KindHalfSpace:
		return "half-space"
	case KindSphere:
		return "sphere"
	case KindCircle:
		return "circle"
	case KindPolygon:
		return "polygon"
	case KindHalfPlane:
		return "half-plane"
	case KindUnion:
		return "union"
	case KindIntersection:
		return "intersection"
	case KindDifference:
		return "difference"
	case KindTransform:
		return "transform"
	case KindTransform2D:
		return "transform-2d"
	case KindExtrude:
		return "extrude"
	default:
		return "unknown"
	}
}

// Dim is the dimensionality of a node.
type Dim int

const (
	Dim2 Dim = 2
	Dim3 Dim = 3
)

// Node is one element of the geometry tree. Nodes are immutable once built;
// the only way to obtain one is through the constructors in this package.
// Children are shared, so the same subtree may appear under many parents.
type Node struct {
	kind     Kind
	dim      Dim
	data     Data
	children []*Node
	hash     Digest
}

// Data is the interface for kind-specific node payloads.
type Data interface {
	nodeData() // marker method restricting implementations to this package
}

// Kind returns the variant of the node.
func (n *Node) Kind() Kind { return n.kind }

// Data returns the kind-specific payload.
func (n *Node) Data() Data { return n.data }

// Children returns the child nodes. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Hash returns the precomputed content hash.
func (n *Node) Hash() Digest { return n.hash }

// Is2D reports whether the node describes a planar shape.
func (n *Node) Is2D() bool { return n.dim == Dim2 }

// Is3D reports whether the node describes a solid.
func (n *Node) Is3D() bool { return n.dim == Dim3 }

// Dim returns the dimensionality of the node.
func (n *Node) Dim() Dim { return n.dim }

// Equal reports whether two trees are structurally identical.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.hash == b.hash
}

// ---------------------------------------------------------------------------
// Payloads
// ---------------------------------------------------------------------------

// HalfSpaceData is the set of points p with dot(Normal, p) <= Offset.
// Normal is unit length.
type HalfSpaceData struct {
	Normal r3.Vec
	Offset float64
}

func (HalfSpaceData) nodeData() {}

// SphereData is a solid ball.
type SphereData struct {
	Center r3.Vec
	Radius float64
}

func (SphereData) nodeData() {}

// CircleData is a filled disc in the XY plane.
type CircleData struct {
	Center r2.Vec
	Radius float64
}

func (CircleData) nodeData() {}

// PolygonData is a simple polygon. Orientation does not matter; the inside
// is decided by even-odd parity.
type PolygonData struct {
	Vertices []r2.Vec
}

func (PolygonData) nodeData() {}

// HalfPlaneData is the region to the left of the directed line Point1->Point2.
type HalfPlaneData struct {
	Point1 r2.Vec
	Point2 r2.Vec
}

func (HalfPlaneData) nodeData() {}

// BooleanData is the payload shared by union, intersection and difference.
// The operands are the node's children; for a difference the first child is
// the base and the second the subtrahend.
type BooleanData struct{}

func (BooleanData) nodeData() {}

// TransformData applies a rigid transform to its only child.
type TransformData struct {
	Transform RigidTransform
}

func (TransformData) nodeData() {}

// Transform2DData rotates (radians, counter-clockwise) then translates a 2D child.
type Transform2DData struct {
	Translation r2.Vec
	Angle       float64
}

func (Transform2DData) nodeData() {}

// ExtrudeData sweeps a 2D child from z=0 along Direction until z reaches
// Height*Direction.Z. Direction.Z is never zero.
type ExtrudeData struct {
	Height    float64
	Direction r3.Vec
}

func (ExtrudeData) nodeData() {}
