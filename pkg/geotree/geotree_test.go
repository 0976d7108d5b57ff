package geotree

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func mustNode(t *testing.T) func(*Node, error) *Node {
	return func(n *Node, err error) *Node {
		t.Helper()
		require.NoError(t, err)
		require.NotNil(t, n)
		return n
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "sphere", KindSphere.String())
	assert.Equal(t, "half-plane", KindHalfPlane.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestHashStableAcrossConstruction(t *testing.T) {
	build := func() *Node {
		a := mustNode(t)(Sphere(r3.Vec{X: 1}, 2))
		b := mustNode(t)(HalfSpace(r3.Vec{Z: 2}, 4))
		u := mustNode(t)(Union(a, b))
		return mustNode(t)(Transform(u, RigidTransform{Translation: r3.Vec{Y: 3}, Axis: r3.Vec{Z: 1}, Angle: 0.5}))
	}
	x, y := build(), build()
	assert.NotSame(t, x, y)
	assert.Equal(t, x.Hash(), y.Hash())
	assert.True(t, Equal(x, y))
	assert.Len(t, x.Hash().String(), 64)
	assert.Len(t, x.Hash().Short(), 8)
	assert.False(t, x.Hash().IsZero())
}

func TestHashDistinguishesStructure(t *testing.T) {
	a := mustNode(t)(Sphere(r3.Vec{}, 1))
	b := mustNode(t)(Sphere(r3.Vec{}, 2))

	cases := []struct {
		name string
		x, y *Node
	}{
		{"radius", a, b},
		{"difference order", mustNode(t)(Difference(a, b)), mustNode(t)(Difference(b, a))},
		{"union vs intersection", mustNode(t)(Union(a, b)), mustNode(t)(Intersection(a, b))},
		{"child order", mustNode(t)(Union(a, b)), mustNode(t)(Union(b, a))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotEqual(t, tc.x.Hash(), tc.y.Hash())
			assert.False(t, Equal(tc.x, tc.y))
		})
	}
}

func TestHash2DAnd3DBooleansDiffer(t *testing.T) {
	c := mustNode(t)(Circle(r2.Vec{}, 1))
	s := mustNode(t)(Sphere(r3.Vec{}, 1))
	u2 := mustNode(t)(Union(c))
	u3 := mustNode(t)(Union(s))
	assert.Equal(t, booleanTag(KindUnion, Dim2)+1, booleanTag(KindUnion, Dim3))
	assert.NotEqual(t, u2.Hash(), u3.Hash())
}

func TestHashIgnoresSignedZero(t *testing.T) {
	negZero := math.Copysign(0, -1)
	require.True(t, math.Signbit(negZero))

	cases := []struct {
		name string
		x, y *Node
	}{
		{"sphere centre", mustNode(t)(Sphere(r3.Vec{X: negZero, Z: negZero}, 1)), mustNode(t)(Sphere(r3.Vec{}, 1))},
		{"half-space normal", mustNode(t)(HalfSpace(r3.Vec{X: negZero, Z: 1}, 0)), mustNode(t)(HalfSpace(r3.Vec{Z: 1}, negZero))},
		{"circle centre", mustNode(t)(Circle(r2.Vec{Y: negZero}, 1)), mustNode(t)(Circle(r2.Vec{}, 1))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.x.Hash(), tc.y.Hash())
			assert.True(t, Equal(tc.x, tc.y))
		})
	}
}

func TestGradientIsCentral(t *testing.T) {
	s := mustNode(t)(Sphere(r3.Vec{}, 1))
	p := r3.Vec{X: 0.6, Y: 0.8}
	// A one-sided difference is off by about GradientEpsilon/2 here.
	assert.InDelta(t, 0.0, r3.Norm(r3.Sub(Gradient3(s, p), p)), 1e-5)
	assert.InDelta(t, 0.0, r3.Norm(r3.Sub(Normal3(s, r3.Scale(2, p)), p)), 1e-5)

	c := mustNode(t)(Circle(r2.Vec{}, 1))
	q := r2.Vec{X: 0.6, Y: 0.8}
	assert.InDelta(t, 0.0, r2.Norm(r2.Sub(Gradient2(c, q), q)), 1e-5)
}

func TestHalfSpaceNormalized(t *testing.T) {
	h := mustNode(t)(HalfSpace(r3.Vec{Z: 2}, 4))
	d := h.Data().(HalfSpaceData)
	assert.InDelta(t, 1.0, d.Normal.Z, 1e-12)
	assert.InDelta(t, 2.0, d.Offset, 1e-12)

	assert.Equal(t, mustNode(t)(HalfSpace(r3.Vec{Z: 1}, 2)).Hash(), h.Hash())

	through := mustNode(t)(HalfSpaceThrough(r3.Vec{Z: 3}, r3.Vec{X: 7, Z: 2}))
	assert.Equal(t, h.Hash(), through.Hash())
}

func TestConstructionErrors(t *testing.T) {
	circle := mustNode(t)(Circle(r2.Vec{}, 1))
	sphere := mustNode(t)(Sphere(r3.Vec{}, 1))

	cases := []struct {
		name  string
		build func() (*Node, error)
		kind  Kind
		dim   bool
	}{
		{"zero normal", func() (*Node, error) { return HalfSpace(r3.Vec{}, 1) }, KindHalfSpace, false},
		{"nan offset", func() (*Node, error) { return HalfSpace(r3.Vec{Z: 1}, math.NaN()) }, KindHalfSpace, false},
		{"negative radius", func() (*Node, error) { return Sphere(r3.Vec{}, -1) }, KindSphere, false},
		{"zero radius", func() (*Node, error) { return Circle(r2.Vec{}, 0) }, KindCircle, false},
		{"two vertices", func() (*Node, error) { return Polygon([]r2.Vec{{}, {X: 1}}) }, KindPolygon, false},
		{"coincident points", func() (*Node, error) { return HalfPlane(r2.Vec{X: 1}, r2.Vec{X: 1}) }, KindHalfPlane, false},
		{"empty union", func() (*Node, error) { return Union() }, KindUnion, false},
		{"mixed union", func() (*Node, error) { return Union(circle, sphere) }, KindUnion, true},
		{"mixed difference", func() (*Node, error) { return Difference(sphere, circle) }, KindDifference, true},
		{"transform of 2D", func() (*Node, error) { return Transform(circle, Translation(r3.Vec{X: 1})) }, KindTransform, true},
		{"extrude of 3D", func() (*Node, error) { return Extrude(sphere, 1) }, KindExtrude, true},
		{"extrude zero height", func() (*Node, error) { return Extrude(circle, 0) }, KindExtrude, false},
		{"extrude flat direction", func() (*Node, error) { return ExtrudeAlong(circle, 1, r3.Vec{X: 1}) }, KindExtrude, false},
		{"transform2d of 3D", func() (*Node, error) { return Transform2D(sphere, r2.Vec{}, 1) }, KindTransform2D, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := tc.build()
			require.Error(t, err)
			assert.Nil(t, n)
			var ce *ConstructionError
			require.True(t, errors.As(err, &ce))
			assert.Equal(t, tc.kind, ce.Kind)
			assert.Equal(t, tc.dim, errors.Is(err, ErrDimensionMismatch))
			assert.Contains(t, err.Error(), "geotree: "+tc.kind.String())
		})
	}
}

func TestEvalPrimitives(t *testing.T) {
	s := mustNode(t)(Sphere(r3.Vec{X: 1}, 2))
	assert.InDelta(t, -2.0, Eval3(s, r3.Vec{X: 1}), 1e-12)
	assert.InDelta(t, 0.0, Eval3(s, r3.Vec{X: 3}), 1e-12)
	assert.InDelta(t, 1.0, Eval3(s, r3.Vec{X: 1, Y: 3}), 1e-12)

	c := mustNode(t)(Circle(r2.Vec{}, 1))
	assert.InDelta(t, -1.0, Eval2(c, r2.Vec{}), 1e-12)
	assert.True(t, math.IsInf(Eval3(c, r3.Vec{}), 1), "2D node has no volume")

	sq := mustNode(t)(Polygon([]r2.Vec{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}}))
	assert.InDelta(t, -1.0, Eval2(sq, r2.Vec{}), 1e-12)
	assert.InDelta(t, 1.0, Eval2(sq, r2.Vec{X: 2}), 1e-12)
	assert.InDelta(t, -0.5, Eval2(sq, r2.Vec{X: 0.5}), 1e-12)

	// Vertex order must not matter.
	rev := mustNode(t)(Polygon([]r2.Vec{{X: -1, Y: 1}, {X: 1, Y: 1}, {X: 1, Y: -1}, {X: -1, Y: -1}}))
	assert.InDelta(t, Eval2(sq, r2.Vec{X: 0.3, Y: 0.2}), Eval2(rev, r2.Vec{X: 0.3, Y: 0.2}), 1e-12)

	hp := mustNode(t)(HalfPlane(r2.Vec{}, r2.Vec{X: 1}))
	assert.Less(t, Eval2(hp, r2.Vec{Y: 1}), 0.0, "left of the line is inside")
	assert.Greater(t, Eval2(hp, r2.Vec{Y: -1}), 0.0)

	hn := mustNode(t)(HalfPlaneNormal(r2.Vec{Y: 1}, 2))
	assert.InDelta(t, -2.0, Eval2(hn, r2.Vec{}), 1e-12)
	assert.InDelta(t, 1.0, Eval2(hn, r2.Vec{Y: 3}), 1e-12)
}

func TestHalfSpaceBoundaryConsistency(t *testing.T) {
	h := mustNode(t)(HalfSpace(r3.Vec{X: 1, Y: 2, Z: -2}, 3))
	d := h.Data().(HalfSpaceData)
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		p := r3.Vec{X: rng.Float64()*20 - 10, Y: rng.Float64()*20 - 10, Z: rng.Float64()*20 - 10}
		v := Eval3(h, p)
		inside := r3.Dot(d.Normal, p) <= d.Offset
		assert.Equal(t, inside, v <= 0, "point %v value %g", p, v)
	}
	on := r3.Scale(d.Offset, d.Normal)
	assert.InDelta(t, 0.0, Eval3(h, on), 1e-12)
	assert.InDelta(t, 0.0, r3.Norm(r3.Sub(Gradient3(h, on), d.Normal)), 1e-6)
}

func TestBooleanRules(t *testing.T) {
	a := mustNode(t)(Sphere(r3.Vec{}, 2))
	b := mustNode(t)(Sphere(r3.Vec{X: 2}, 2))
	u := mustNode(t)(Union(a, b))
	i := mustNode(t)(Intersection(a, b))
	d := mustNode(t)(Difference(a, b))

	rng := rand.New(rand.NewSource(2))
	for k := 0; k < 100; k++ {
		p := r3.Vec{X: rng.Float64()*8 - 3, Y: rng.Float64()*6 - 3, Z: rng.Float64()*6 - 3}
		va, vb := Eval3(a, p), Eval3(b, p)
		assert.Equal(t, math.Min(va, vb), Eval3(u, p))
		assert.Equal(t, math.Max(va, vb), Eval3(i, p))
		assert.Equal(t, math.Max(va, -vb), Eval3(d, p))
	}
}

func TestBooleanAssociativity(t *testing.T) {
	a := mustNode(t)(Sphere(r3.Vec{}, 2))
	b := mustNode(t)(Sphere(r3.Vec{X: 1.5, Y: 0.5}, 1.5))
	sq := mustNode(t)(Polygon([]r2.Vec{{X: -1, Y: -1}, {X: 1, Y: -1}, {X: 1, Y: 1}, {X: -1, Y: 1}}))
	ext := mustNode(t)(Extrude(sq, 3))
	c := mustNode(t)(Transform(ext, RigidTransform{Translation: r3.Vec{Z: -1}, Axis: r3.Vec{X: 1, Y: 1}, Angle: 0.7}))

	type pair struct {
		name string
		x, y *Node
	}
	var pairs []pair
	for _, op := range []struct {
		name string
		fn   func(...*Node) (*Node, error)
	}{{"union", Union}, {"intersection", Intersection}} {
		ab := mustNode(t)(op.fn(a, b))
		bc := mustNode(t)(op.fn(b, c))
		pairs = append(pairs,
			pair{op.name + " left/right", mustNode(t)(op.fn(ab, c)), mustNode(t)(op.fn(a, bc))},
			pair{op.name + " flat/nested", mustNode(t)(op.fn(a, b, c)), mustNode(t)(op.fn(ab, c))},
			pair{op.name + " permuted", mustNode(t)(op.fn(c, a, b)), mustNode(t)(op.fn(b, c, a))},
		)
	}

	rng := rand.New(rand.NewSource(3))
	for _, pr := range pairs {
		t.Run(pr.name, func(t *testing.T) {
			for k := 0; k < 300; k++ {
				p := r3.Vec{X: rng.Float64()*8 - 4, Y: rng.Float64()*8 - 4, Z: rng.Float64()*8 - 4}
				assert.Equal(t, Eval3(pr.x, p), Eval3(pr.y, p), "at %v", p)
			}
		})
	}
}

func TestTransformEval(t *testing.T) {
	s := mustNode(t)(Sphere(r3.Vec{X: 1}, 0.5))
	rot := mustNode(t)(Transform(s, Rotation(r3.Vec{Z: 1}, math.Pi/2)))
	// (1,0,0) rotated a quarter turn about +Z lands on (0,1,0).
	assert.InDelta(t, -0.5, Eval3(rot, r3.Vec{Y: 1}), 1e-9)
	assert.InDelta(t, math.Sqrt2-0.5, Eval3(rot, r3.Vec{X: 1}), 1e-9)

	moved := mustNode(t)(Transform(rot, Translation(r3.Vec{Z: 4})))
	assert.InDelta(t, -0.5, Eval3(moved, r3.Vec{Y: 1, Z: 4}), 1e-9)

	tr := RigidTransform{Translation: r3.Vec{X: 1, Y: -2, Z: 3}, Axis: r3.Vec{X: 1, Y: 2, Z: 3}, Angle: 1.1}
	p := r3.Vec{X: 0.3, Y: 0.7, Z: -0.2}
	back := tr.ApplyInverse(tr.Apply(p))
	assert.InDelta(t, 0.0, r3.Norm(r3.Sub(back, p)), 1e-12)
}

func TestExtrude(t *testing.T) {
	c := mustNode(t)(Circle(r2.Vec{}, 1))
	e := mustNode(t)(Extrude(c, 2))
	assert.True(t, e.Is3D())
	assert.Less(t, Eval3(e, r3.Vec{Z: 1}), 0.0)
	assert.InDelta(t, 1.0, Eval3(e, r3.Vec{Z: 3}), 1e-12)
	assert.InDelta(t, 0.5, Eval3(e, r3.Vec{Z: -0.5}), 1e-12)
	assert.Greater(t, Eval3(e, r3.Vec{X: 1.5, Z: 1}), 0.0)

	// A slanted extrusion follows its direction.
	slant := mustNode(t)(ExtrudeAlong(c, 2, r3.Vec{X: 1, Z: 1}))
	top := 2 / math.Sqrt2
	assert.Less(t, Eval3(slant, r3.Vec{X: top * 0.9, Z: top * 0.9}), 0.0)
	assert.Greater(t, Eval3(slant, r3.Vec{X: -1.2, Z: top * 0.9}), 0.0)

	b, ok := Bounds3(slant)
	require.True(t, ok)
	assert.InDelta(t, -1.0, b.Min.X, 1e-12)
	assert.InDelta(t, 1+top, b.Max.X, 1e-9)
	assert.InDelta(t, top, b.Max.Z, 1e-9)
}

func TestTransform2D(t *testing.T) {
	sq := mustNode(t)(Polygon([]r2.Vec{{}, {X: 2}, {X: 2, Y: 1}, {Y: 1}}))
	moved := mustNode(t)(Transform2D(sq, r2.Vec{X: 5}, math.Pi/2))
	// After a quarter turn the 2x1 rectangle spans x in [-1,0], y in [0,2].
	assert.Less(t, Eval2(moved, r2.Vec{X: 4.5, Y: 1}), 0.0)
	assert.Greater(t, Eval2(moved, r2.Vec{X: 5.5, Y: 1}), 0.0)

	b, ok := Bounds2(moved)
	require.True(t, ok)
	assert.InDelta(t, 4.0, b.Min.X, 1e-9)
	assert.InDelta(t, 2.0, b.Max.Y, 1e-9)
}

func TestBounds(t *testing.T) {
	s := mustNode(t)(Sphere(r3.Vec{X: 1}, 2))
	h := mustNode(t)(HalfSpace(r3.Vec{Z: 1}, 0))
	far := mustNode(t)(Sphere(r3.Vec{X: 10}, 1))

	cases := []struct {
		name    string
		n       *Node
		bounded bool
		empty   bool
		min     r3.Vec
		max     r3.Vec
	}{
		{"sphere", s, true, false, r3.Vec{X: -1, Y: -2, Z: -2}, r3.Vec{X: 3, Y: 2, Z: 2}},
		{"half-space", h, false, false, r3.Vec{}, r3.Vec{}},
		{"union with unbounded", mustNode(t)(Union(s, h)), false, false, r3.Vec{}, r3.Vec{}},
		{"intersection clips", mustNode(t)(Intersection(s, h)), true, false, r3.Vec{X: -1, Y: -2, Z: -2}, r3.Vec{X: 3, Y: 2, Z: 2}},
		{"disjoint intersection", mustNode(t)(Intersection(s, far)), true, true, r3.Vec{}, r3.Vec{}},
		{"difference keeps base", mustNode(t)(Difference(s, far)), true, false, r3.Vec{X: -1, Y: -2, Z: -2}, r3.Vec{X: 3, Y: 2, Z: 2}},
		{"unbounded base", mustNode(t)(Difference(h, s)), false, false, r3.Vec{}, r3.Vec{}},
		{"translated", mustNode(t)(Transform(s, Translation(r3.Vec{Z: 5}))), true, false, r3.Vec{X: -1, Y: -2, Z: 3}, r3.Vec{X: 3, Y: 2, Z: 7}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, ok := tc.n.Bounds()
			require.Equal(t, tc.bounded, ok)
			if !ok {
				return
			}
			require.Equal(t, tc.empty, BoxEmpty(b))
			if tc.empty {
				return
			}
			assert.InDelta(t, 0.0, r3.Norm(r3.Sub(b.Min, tc.min)), 1e-9)
			assert.InDelta(t, 0.0, r3.Norm(r3.Sub(b.Max, tc.max)), 1e-9)
		})
	}
}

func TestBoundsContainSurface(t *testing.T) {
	s := mustNode(t)(Sphere(r3.Vec{}, 1))
	rot := mustNode(t)(Transform(s, RigidTransform{Translation: r3.Vec{X: 2}, Axis: r3.Vec{Y: 1}, Angle: 0.4}))
	b, ok := Bounds3(rot)
	require.True(t, ok)
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 200; i++ {
		p := r3.Vec{X: rng.Float64()*8 - 4, Y: rng.Float64()*8 - 4, Z: rng.Float64()*8 - 4}
		if Eval3(rot, p) <= 0 {
			assert.True(t, p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y && p.Z >= b.Min.Z && p.Z <= b.Max.Z)
		}
	}
	assert.InDelta(t, 2.0, b.Center().X, 1e-9)
	assert.InDelta(t, 2.0, ExpandBox(r3.Box{}, 1).Size().Y, 1e-12)
}

func TestString(t *testing.T) {
	s := mustNode(t)(Sphere(r3.Vec{X: 1}, 2.5))
	assert.Equal(t, "(sphere :center (vec3 1 0 0) :radius 2.5)", s.String())

	c := mustNode(t)(Circle(r2.Vec{}, 1))
	e := mustNode(t)(Extrude(c, 3))
	d := mustNode(t)(Difference(mustNode(t)(Transform(s, Translation(r3.Vec{Z: 1}))), e))
	assert.Equal(t,
		"(difference (translate (sphere :center (vec3 1 0 0) :radius 2.5) (vec3 0 0 1)) (extrude (circle :center (vec2 0 0) :radius 1) :height 3))",
		d.String())
}
