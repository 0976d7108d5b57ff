package geotree

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// RigidTransform is a rotation of Angle radians about Axis followed by a
// translation. A zero Axis or zero Angle means no rotation.
type RigidTransform struct {
	Translation r3.Vec
	Axis        r3.Vec
	Angle       float64
}

// Translation returns a pure translation.
func Translation(v r3.Vec) RigidTransform {
	return RigidTransform{Translation: v}
}

// Rotation returns a pure rotation of angle radians about axis.
func Rotation(axis r3.Vec, angle float64) RigidTransform {
	return RigidTransform{Axis: axis, Angle: angle}
}

// HasRotation reports whether the transform rotates at all.
func (t RigidTransform) HasRotation() bool {
	return t.Angle != 0 && r3.Norm(t.Axis) > 0
}

// Apply maps a point from the child's frame into the parent frame.
func (t RigidTransform) Apply(p r3.Vec) r3.Vec {
	if t.HasRotation() {
		p = r3.NewRotation(t.Angle, r3.Unit(t.Axis)).Rotate(p)
	}
	return r3.Add(p, t.Translation)
}

// ApplyInverse maps a point from the parent frame into the child's frame.
func (t RigidTransform) ApplyInverse(p r3.Vec) r3.Vec {
	p = r3.Sub(p, t.Translation)
	if t.HasRotation() {
		p = r3.NewRotation(-t.Angle, r3.Unit(t.Axis)).Rotate(p)
	}
	return p
}

// ApplyVector rotates a direction without translating it.
func (t RigidTransform) ApplyVector(v r3.Vec) r3.Vec {
	if t.HasRotation() {
		return r3.NewRotation(t.Angle, r3.Unit(t.Axis)).Rotate(v)
	}
	return v
}

func rotate2(p r2.Vec, angle float64) r2.Vec {
	if angle == 0 {
		return p
	}
	s, c := math.Sincos(angle)
	return r2.Vec{X: c*p.X - s*p.Y, Y: s*p.X + c*p.Y}
}

func (d Transform2DData) apply(p r2.Vec) r2.Vec {
	return r2.Add(rotate2(p, d.Angle), d.Translation)
}

func (d Transform2DData) applyInverse(p r2.Vec) r2.Vec {
	return rotate2(r2.Sub(p, d.Translation), -d.Angle)
}
