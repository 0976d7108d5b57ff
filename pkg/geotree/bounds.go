package geotree

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Bounds3 returns a conservative axis-aligned box containing the solid.
// The second result is false when the solid is unbounded (for example a bare
// half-space). A bounded but empty solid returns a box with Min > Max; see
// BoxEmpty.
func Bounds3(n *Node) (r3.Box, bool) {
	switch d := n.data.(type) {
	case HalfSpaceData:
		return r3.Box{}, false

	case SphereData:
		r := r3.Vec{X: d.Radius, Y: d.Radius, Z: d.Radius}
		return r3.Box{Min: r3.Sub(d.Center, r), Max: r3.Add(d.Center, r)}, true

	case BooleanData:
		switch n.kind {
		case KindUnion:
			var acc r3.Box
			for i, c := range n.children {
				b, ok := Bounds3(c)
				if !ok {
					return r3.Box{}, false
				}
				if i == 0 {
					acc = b
				} else {
					acc = unionBox3(acc, b)
				}
			}
			return acc, true
		case KindIntersection:
			var acc r3.Box
			found := false
			for _, c := range n.children {
				b, ok := Bounds3(c)
				if !ok {
					continue
				}
				if !found {
					acc, found = b, true
				} else {
					acc = intersectBox3(acc, b)
				}
			}
			return acc, found
		default:
			return Bounds3(n.children[0])
		}

	case TransformData:
		b, ok := Bounds3(n.children[0])
		if !ok {
			return r3.Box{}, false
		}
		if BoxEmpty(b) {
			return b, true
		}
		return transformBox(b, d.Transform), true

	case ExtrudeData:
		b2, ok := Bounds2(n.children[0])
		if !ok {
			return r3.Box{}, false
		}
		top := d.Height * d.Direction.Z
		shift := r2.Scale(d.Height, r2.Vec{X: d.Direction.X, Y: d.Direction.Y})
		return r3.Box{
			Min: r3.Vec{
				X: math.Min(b2.Min.X, b2.Min.X+shift.X),
				Y: math.Min(b2.Min.Y, b2.Min.Y+shift.Y),
				Z: math.Min(0, top),
			},
			Max: r3.Vec{
				X: math.Max(b2.Max.X, b2.Max.X+shift.X),
				Y: math.Max(b2.Max.Y, b2.Max.Y+shift.Y),
				Z: math.Max(0, top),
			},
		}, true
	}
	return r3.Box{}, false
}

// Bounds2 returns a conservative box containing the planar shape.
func Bounds2(n *Node) (r2.Box, bool) {
	switch d := n.data.(type) {
	case CircleData:
		r := r2.Vec{X: d.Radius, Y: d.Radius}
		return r2.Box{Min: r2.Sub(d.Center, r), Max: r2.Add(d.Center, r)}, true

	case PolygonData:
		b := r2.Box{Min: d.Vertices[0], Max: d.Vertices[0]}
		for _, v := range d.Vertices[1:] {
			b.Min = r2.Vec{X: math.Min(b.Min.X, v.X), Y: math.Min(b.Min.Y, v.Y)}
			b.Max = r2.Vec{X: math.Max(b.Max.X, v.X), Y: math.Max(b.Max.Y, v.Y)}
		}
		return b, true

	case HalfPlaneData:
		return r2.Box{}, false

	case BooleanData:
		switch n.kind {
		case KindUnion:
			var acc r2.Box
			for i, c := range n.children {
				b, ok := Bounds2(c)
				if !ok {
					return r2.Box{}, false
				}
				if i == 0 {
					acc = b
				} else {
					acc = r2.Box{
						Min: r2.Vec{X: math.Min(acc.Min.X, b.Min.X), Y: math.Min(acc.Min.Y, b.Min.Y)},
						Max: r2.Vec{X: math.Max(acc.Max.X, b.Max.X), Y: math.Max(acc.Max.Y, b.Max.Y)},
					}
				}
			}
			return acc, true
		case KindIntersection:
			var acc r2.Box
			found := false
			for _, c := range n.children {
				b, ok := Bounds2(c)
				if !ok {
					continue
				}
				if !found {
					acc, found = b, true
				} else {
					acc = r2.Box{
						Min: r2.Vec{X: math.Max(acc.Min.X, b.Min.X), Y: math.Max(acc.Min.Y, b.Min.Y)},
						Max: r2.Vec{X: math.Min(acc.Max.X, b.Max.X), Y: math.Min(acc.Max.Y, b.Max.Y)},
					}
				}
			}
			return acc, found
		default:
			return Bounds2(n.children[0])
		}

	case Transform2DData:
		b, ok := Bounds2(n.children[0])
		if !ok {
			return r2.Box{}, false
		}
		corners := [4]r2.Vec{
			b.Min, {X: b.Max.X, Y: b.Min.Y}, b.Max, {X: b.Min.X, Y: b.Max.Y},
		}
		out := r2.Box{Min: d.apply(corners[0]), Max: d.apply(corners[0])}
		for _, c := range corners[1:] {
			q := d.apply(c)
			out.Min = r2.Vec{X: math.Min(out.Min.X, q.X), Y: math.Min(out.Min.Y, q.Y)}
			out.Max = r2.Vec{X: math.Max(out.Max.X, q.X), Y: math.Max(out.Max.Y, q.Y)}
		}
		return out, true
	}
	return r2.Box{}, false
}

// BoxEmpty reports whether b contains no points. Unlike r3.Box.Empty, a
// degenerate box of zero volume is not empty.
func BoxEmpty(b r3.Box) bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

// ExpandBox grows b by margin on every side.
func ExpandBox(b r3.Box, margin float64) r3.Box {
	m := r3.Vec{X: margin, Y: margin, Z: margin}
	return r3.Box{Min: r3.Sub(b.Min, m), Max: r3.Add(b.Max, m)}
}

// IntersectBox returns the overlap of a and b, which may be empty.
func IntersectBox(a, b r3.Box) r3.Box { return intersectBox3(a, b) }

func unionBox3(a, b r3.Box) r3.Box {
	return r3.Box{
		Min: r3.Vec{X: math.Min(a.Min.X, b.Min.X), Y: math.Min(a.Min.Y, b.Min.Y), Z: math.Min(a.Min.Z, b.Min.Z)},
		Max: r3.Vec{X: math.Max(a.Max.X, b.Max.X), Y: math.Max(a.Max.Y, b.Max.Y), Z: math.Max(a.Max.Z, b.Max.Z)},
	}
}

func intersectBox3(a, b r3.Box) r3.Box {
	return r3.Box{
		Min: r3.Vec{X: math.Max(a.Min.X, b.Min.X), Y: math.Max(a.Min.Y, b.Min.Y), Z: math.Max(a.Min.Z, b.Min.Z)},
		Max: r3.Vec{X: math.Min(a.Max.X, b.Max.X), Y: math.Min(a.Max.Y, b.Max.Y), Z: math.Min(a.Max.Z, b.Max.Z)},
	}
}

func transformBox(b r3.Box, t RigidTransform) r3.Box {
	vs := b.Vertices()
	q := t.Apply(vs[0])
	out := r3.Box{Min: q, Max: q}
	for _, v := range vs[1:] {
		q = t.Apply(v)
		out = unionBox3(out, r3.Box{Min: q, Max: q})
	}
	return out
}

// Bounds is Bounds3 for solids and the planar box lifted to z=0 for 2D shapes.
func (n *Node) Bounds() (r3.Box, bool) {
	if n.Is3D() {
		return Bounds3(n)
	}
	b, ok := Bounds2(n)
	return r3.Box{
		Min: r3.Vec{X: b.Min.X, Y: b.Min.Y},
		Max: r3.Vec{X: b.Max.X, Y: b.Max.Y},
	}, ok
}
