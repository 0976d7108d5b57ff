package lattice

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// IVec3 is an integer lattice vector, used for cell coordinates.
type IVec3 struct {
	X, Y, Z int
}

// Add returns v+w.
func (v IVec3) Add(w IVec3) IVec3 { return IVec3{v.X + w.X, v.Y + w.Y, v.Z + w.Z} }

// Sub returns v-w.
func (v IVec3) Sub(w IVec3) IVec3 { return IVec3{v.X - w.X, v.Y - w.Y, v.Z - w.Z} }

// IsZero reports whether v is the origin.
func (v IVec3) IsZero() bool { return v == IVec3{} }

// Vec converts v to floating point.
func (v IVec3) Vec() r3.Vec { return r3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)} }

// Axis returns component i (0 = X, 1 = Y, 2 = Z).
func (v IVec3) Axis(i int) int {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

func (v IVec3) String() string { return fmt.Sprintf("(%d,%d,%d)", v.X, v.Y, v.Z) }
