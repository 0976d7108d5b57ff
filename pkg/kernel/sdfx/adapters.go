package sdfx

import (
	"math"

	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// halfSpace3 is the solid dot(n, p) <= d. sdfx has no unbounded
// primitives, so the box is the kernel's working volume.
type halfSpace3 struct {
	n  v3.Vec
	d  float64
	bb sdf.Box3
}

func (h *halfSpace3) Evaluate(p v3.Vec) float64 {
	return h.n.X*p.X + h.n.Y*p.Y + h.n.Z*p.Z - h.d
}

func (h *halfSpace3) BoundingBox() sdf.Box3 { return h.bb }

// halfPlane2 is the region left of the line through p along unit d.
type halfPlane2 struct {
	p, d v2.Vec
	bb   sdf.Box2
}

func (h *halfPlane2) Evaluate(q v2.Vec) float64 {
	wx, wy := q.X-h.p.X, q.Y-h.p.Y
	return -(h.d.X*wy - h.d.Y*wx)
}

func (h *halfPlane2) BoundingBox() sdf.Box2 { return h.bb }

// bounded3 overrides the bounding box of an SDF3.
type bounded3 struct {
	sdf.SDF3
	bb sdf.Box3
}

func (b *bounded3) BoundingBox() sdf.Box3 { return b.bb }

type bounded2 struct {
	sdf.SDF2
	bb sdf.Box2
}

func (b *bounded2) BoundingBox() sdf.Box2 { return b.bb }

// shear is a slanted extrusion: the profile swept along dir from z=0 to
// z = height*dir.Z.
type shear struct {
	profile sdf.SDF2
	dir     v3.Vec
	top     float64
	bb      sdf.Box3
}

func newShear(profile sdf.SDF2, height float64, dir v3.Vec) *shear {
	top := height * dir.Z
	pb := profile.BoundingBox()
	sx, sy := height*dir.X, height*dir.Y
	return &shear{
		profile: profile,
		dir:     dir,
		top:     top,
		bb: sdf.Box3{
			Min: v3.Vec{X: math.Min(pb.Min.X, pb.Min.X+sx), Y: math.Min(pb.Min.Y, pb.Min.Y+sy), Z: math.Min(0, top)},
			Max: v3.Vec{X: math.Max(pb.Max.X, pb.Max.X+sx), Y: math.Max(pb.Max.Y, pb.Max.Y+sy), Z: math.Max(0, top)},
		},
	}
}

func (s *shear) Evaluate(p v3.Vec) float64 {
	t := p.Z / s.dir.Z
	d := s.profile.Evaluate(v2.Vec{X: p.X - s.dir.X*t, Y: p.Y - s.dir.Y*t})
	var slab float64
	if s.top >= 0 {
		slab = math.Max(-p.Z, p.Z-s.top)
	} else {
		slab = math.Max(p.Z, s.top-p.Z)
	}
	return math.Max(d, slab)
}

func (s *shear) BoundingBox() sdf.Box3 { return s.bb }

func unionBox3(a, b sdf.Box3) sdf.Box3 {
	return sdf.Box3{
		Min: v3.Vec{X: math.Min(a.Min.X, b.Min.X), Y: math.Min(a.Min.Y, b.Min.Y), Z: math.Min(a.Min.Z, b.Min.Z)},
		Max: v3.Vec{X: math.Max(a.Max.X, b.Max.X), Y: math.Max(a.Max.Y, b.Max.Y), Z: math.Max(a.Max.Z, b.Max.Z)},
	}
}

func intersectBox3(a, b sdf.Box3) sdf.Box3 {
	return sdf.Box3{
		Min: v3.Vec{X: math.Max(a.Min.X, b.Min.X), Y: math.Max(a.Min.Y, b.Min.Y), Z: math.Max(a.Min.Z, b.Min.Z)},
		Max: v3.Vec{X: math.Min(a.Max.X, b.Max.X), Y: math.Min(a.Max.Y, b.Max.Y), Z: math.Min(a.Max.Z, b.Max.Z)},
	}
}

func intersectBox2(a, b sdf.Box2) sdf.Box2 {
	return sdf.Box2{
		Min: v2.Vec{X: math.Max(a.Min.X, b.Min.X), Y: math.Max(a.Min.Y, b.Min.Y)},
		Max: v2.Vec{X: math.Min(a.Max.X, b.Max.X), Y: math.Min(a.Max.Y, b.Max.Y)},
	}
}

func emptyBox3(b sdf.Box3) bool {
	return b.Min.X >= b.Max.X || b.Min.Y >= b.Max.Y || b.Min.Z >= b.Max.Z
}
