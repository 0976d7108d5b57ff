package geotree

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// GradientEpsilon is the finite difference step used by Gradient3.
const GradientEpsilon = 0.001

// Eval3 returns the signed distance from p to the solid n: negative inside,
// zero on the boundary, positive outside. For booleans the value is the
// usual min/max bound rather than the exact Euclidean distance.
func Eval3(n *Node, p r3.Vec) float64 {
	switch d := n.data.(type) {
	case HalfSpaceData:
		return r3.Dot(d.Normal, p) - d.Offset

	case SphereData:
		return r3.Norm(r3.Sub(p, d.Center)) - d.Radius

	case BooleanData:
		return evalBoolean3(n, p)

	case TransformData:
		return Eval3(n.children[0], d.Transform.ApplyInverse(p))

	case ExtrudeData:
		return evalExtrude(n.children[0], d, p)
	}
	// 2D nodes have no volume.
	return math.Inf(1)
}

func evalBoolean3(n *Node, p r3.Vec) float64 {
	switch n.kind {
	case KindUnion:
		v := math.Inf(1)
		for _, c := range n.children {
			v = math.Min(v, Eval3(c, p))
		}
		return v
	case KindIntersection:
		v := math.Inf(-1)
		for _, c := range n.children {
			v = math.Max(v, Eval3(c, p))
		}
		return v
	default:
		return math.Max(Eval3(n.children[0], p), -Eval3(n.children[1], p))
	}
}

func evalExtrude(child *Node, d ExtrudeData, p r3.Vec) float64 {
	// Shear the point back onto the z=0 profile along the sweep direction.
	t := p.Z / d.Direction.Z
	q := r2.Vec{X: p.X - d.Direction.X*t, Y: p.Y - d.Direction.Y*t}
	profile := Eval2(child, q)

	top := d.Height * d.Direction.Z
	var slab float64
	if top >= 0 {
		slab = math.Max(-p.Z, p.Z-top)
	} else {
		slab = math.Max(p.Z, top-p.Z)
	}
	return math.Max(profile, slab)
}

// Eval2 returns the signed distance from p to the planar shape n.
func Eval2(n *Node, p r2.Vec) float64 {
	switch d := n.data.(type) {
	case CircleData:
		return r2.Norm(r2.Sub(p, d.Center)) - d.Radius

	case PolygonData:
		return polygonSDF(d.Vertices, p)

	case HalfPlaneData:
		dir := r2.Unit(r2.Sub(d.Point2, d.Point1))
		// Positive cross product means p is left of the line, i.e. inside.
		return -r2.Cross(dir, r2.Sub(p, d.Point1))

	case BooleanData:
		switch n.kind {
		case KindUnion:
			v := math.Inf(1)
			for _, c := range n.children {
				v = math.Min(v, Eval2(c, p))
			}
			return v
		case KindIntersection:
			v := math.Inf(-1)
			for _, c := range n.children {
				v = math.Max(v, Eval2(c, p))
			}
			return v
		default:
			return math.Max(Eval2(n.children[0], p), -Eval2(n.children[1], p))
		}

	case Transform2DData:
		return Eval2(n.children[0], d.applyInverse(p))
	}
	return math.Inf(1)
}

// polygonSDF is the distance to the nearest edge, negated when p is inside
// by even-odd parity.
func polygonSDF(vs []r2.Vec, p r2.Vec) float64 {
	best := math.Inf(1)
	inside := false
	for i, j := 0, len(vs)-1; i < len(vs); j, i = i, i+1 {
		a, b := vs[j], vs[i]
		e := r2.Sub(b, a)
		w := r2.Sub(p, a)
		t := 0.0
		if l2 := r2.Dot(e, e); l2 > 0 {
			t = math.Max(0, math.Min(1, r2.Dot(w, e)/l2))
		}
		dist := r2.Norm(r2.Sub(w, r2.Scale(t, e)))
		if dist < best {
			best = dist
		}
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if p.X < x {
				inside = !inside
			}
		}
	}
	if inside {
		return -best
	}
	return best
}

// Gradient3 returns the normalized gradient of the distance field at p,
// which on the surface is the outward normal. It uses a central difference
// with step GradientEpsilon.
func Gradient3(n *Node, p r3.Vec) r3.Vec {
	h := GradientEpsilon
	g := r3.Vec{
		X: Eval3(n, r3.Vec{X: p.X + h, Y: p.Y, Z: p.Z}) - Eval3(n, r3.Vec{X: p.X - h, Y: p.Y, Z: p.Z}),
		Y: Eval3(n, r3.Vec{X: p.X, Y: p.Y + h, Z: p.Z}) - Eval3(n, r3.Vec{X: p.X, Y: p.Y - h, Z: p.Z}),
		Z: Eval3(n, r3.Vec{X: p.X, Y: p.Y, Z: p.Z + h}) - Eval3(n, r3.Vec{X: p.X, Y: p.Y, Z: p.Z - h}),
	}
	if l := r3.Norm(g); l > 0 {
		return r3.Scale(1/l, g)
	}
	return r3.Vec{}
}

// Gradient2 is the planar counterpart of Gradient3.
func Gradient2(n *Node, p r2.Vec) r2.Vec {
	h := GradientEpsilon
	g := r2.Vec{
		X: Eval2(n, r2.Vec{X: p.X + h, Y: p.Y}) - Eval2(n, r2.Vec{X: p.X - h, Y: p.Y}),
		Y: Eval2(n, r2.Vec{X: p.X, Y: p.Y + h}) - Eval2(n, r2.Vec{X: p.X, Y: p.Y - h}),
	}
	if l := r2.Norm(g); l > 0 {
		return r2.Scale(1/l, g)
	}
	return r2.Vec{}
}

// Normal3 returns the outward surface normal at p.
func Normal3(n *Node, p r3.Vec) r3.Vec { return Gradient3(n, p) }
