package lattice

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DiamondLatticeConstant is the cubic diamond cell edge in Å.
const DiamondLatticeConstant = 3.567

// cellEpsilon is the tolerance for cubic and size comparisons.
const cellEpsilon = 1e-5

// ErrSingularCell is wrapped when the lattice vectors are (nearly) coplanar.
var ErrSingularCell = errors.New("singular unit cell")

// UnitCellError reports invalid unit cell input.
type UnitCellError struct {
	Param   string
	Message string
	Err     error
}

func (e *UnitCellError) Error() string {
	return fmt.Sprintf("lattice: unit cell: %s: %s", e.Param, e.Message)
}

func (e *UnitCellError) Unwrap() error { return e.Err }

// UnitCell is the parallelepiped spanned by A, B and C (Å). Lattice
// coordinates (u, v, w) map to real space as u*A + v*B + w*C.
type UnitCell struct {
	A, B, C r3.Vec
}

// NewUnitCell validates and returns a unit cell.
func NewUnitCell(a, b, c r3.Vec) (UnitCell, error) {
	u := UnitCell{A: a, B: b, C: c}
	if err := u.Validate(); err != nil {
		return UnitCell{}, err
	}
	return u, nil
}

// FromParameters builds a cell from edge lengths (Å) and the angles alpha
// (between B and C), beta (A, C) and gamma (A, B) in degrees. A lies on +X and
// B in the XY plane.
func FromParameters(a, b, c, alpha, beta, gamma float64) (UnitCell, error) {
	for _, p := range []struct {
		name string
		v    float64
	}{{"a", a}, {"b", b}, {"c", c}} {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return UnitCell{}, &UnitCellError{Param: p.name, Message: fmt.Sprintf("length must be positive, got %g", p.v)}
		}
	}
	for _, p := range []struct {
		name string
		v    float64
	}{{"alpha", alpha}, {"beta", beta}, {"gamma", gamma}} {
		if !(p.v > 0 && p.v < 180) {
			return UnitCell{}, &UnitCellError{Param: p.name, Message: fmt.Sprintf("angle must be in (0, 180), got %g", p.v)}
		}
	}

	rad := math.Pi / 180
	ca, cb, cg := math.Cos(alpha*rad), math.Cos(beta*rad), math.Cos(gamma*rad)
	sg := math.Sin(gamma * rad)

	cy := (ca - cb*cg) / sg
	cz2 := 1 - cb*cb - cy*cy
	if cz2 <= 0 {
		return UnitCell{}, &UnitCellError{Param: "angles", Message: "do not form a valid cell", Err: ErrSingularCell}
	}
	return NewUnitCell(
		r3.Vec{X: a},
		r3.Vec{X: b * cg, Y: b * sg},
		r3.Vec{X: c * cb, Y: c * cy, Z: c * math.Sqrt(cz2)},
	)
}

// CubicDiamond returns the conventional cubic cell of diamond.
func CubicDiamond() UnitCell {
	return UnitCell{
		A: r3.Vec{X: DiamondLatticeConstant},
		B: r3.Vec{Y: DiamondLatticeConstant},
		C: r3.Vec{Z: DiamondLatticeConstant},
	}
}

// Det returns the signed cell volume.
func (u UnitCell) Det() float64 {
	return r3.Dot(u.A, r3.Cross(u.B, u.C))
}

// Validate rejects cells with non-finite or coplanar vectors.
func (u UnitCell) Validate() error {
	for _, v := range []r3.Vec{u.A, u.B, u.C} {
		if math.IsNaN(v.X+v.Y+v.Z) || math.IsInf(v.X+v.Y+v.Z, 0) {
			return &UnitCellError{Param: "vectors", Message: "must be finite"}
		}
	}
	if math.Abs(u.Det()) < 1e-12 {
		return &UnitCellError{Param: "vectors", Message: "are coplanar", Err: ErrSingularCell}
	}
	return nil
}

// LatticeToReal maps fractional lattice coordinates to real space.
func (u UnitCell) LatticeToReal(p r3.Vec) r3.Vec {
	return r3.Add(r3.Add(r3.Scale(p.X, u.A), r3.Scale(p.Y, u.B)), r3.Scale(p.Z, u.C))
}

// RealToLattice maps a real space point to fractional lattice coordinates
// using the reciprocal vectors. The cell must be valid.
func (u UnitCell) RealToLattice(p r3.Vec) r3.Vec {
	inv := 1 / u.Det()
	return r3.Vec{
		X: r3.Dot(r3.Scale(inv, r3.Cross(u.B, u.C)), p),
		Y: r3.Dot(r3.Scale(inv, r3.Cross(u.C, u.A)), p),
		Z: r3.Dot(r3.Scale(inv, r3.Cross(u.A, u.B)), p),
	}
}

// Lengths returns |A|, |B|, |C|.
func (u UnitCell) Lengths() (a, b, c float64) {
	return r3.Norm(u.A), r3.Norm(u.B), r3.Norm(u.C)
}

// Angles returns alpha, beta and gamma in degrees.
func (u UnitCell) Angles() (alpha, beta, gamma float64) {
	deg := func(x, y r3.Vec) float64 {
		return math.Acos(r3.Cos(x, y)) * 180 / math.Pi
	}
	return deg(u.B, u.C), deg(u.A, u.C), deg(u.A, u.B)
}

// IsApproximatelyCubic reports whether the edges have equal length and are
// mutually orthogonal within a small tolerance.
func (u UnitCell) IsApproximatelyCubic() bool {
	a, b, c := u.Lengths()
	if math.Abs(a-b) >= cellEpsilon || math.Abs(b-c) >= cellEpsilon || math.Abs(a-c) >= cellEpsilon {
		return false
	}
	eps := cellEpsilon * a * b
	return math.Abs(r3.Dot(u.A, u.B)) < eps &&
		math.Abs(r3.Dot(u.B, u.C)) < eps &&
		math.Abs(r3.Dot(u.A, u.C)) < eps
}

// MaxDiagonal returns the longest body diagonal of the cell.
func (u UnitCell) MaxDiagonal() float64 {
	d := 0.0
	for _, v := range []r3.Vec{
		r3.Add(r3.Add(u.A, u.B), u.C),
		r3.Sub(r3.Add(u.A, u.B), u.C),
		r3.Add(r3.Sub(u.A, u.B), u.C),
		r3.Sub(r3.Sub(u.A, u.B), u.C),
	} {
		d = math.Max(d, r3.Norm(v))
	}
	return d
}

// cellBounds returns the axis-aligned box around the cell parallelepiped
// whose origin corner is at origin.
func (u UnitCell) cellBounds(origin r3.Vec) r3.Box {
	b := r3.Box{Min: origin, Max: origin}
	for i := 1; i < 8; i++ {
		c := origin
		if i&1 != 0 {
			c = r3.Add(c, u.A)
		}
		if i&2 != 0 {
			c = r3.Add(c, u.B)
		}
		if i&4 != 0 {
			c = r3.Add(c, u.C)
		}
		b.Min = r3.Vec{X: math.Min(b.Min.X, c.X), Y: math.Min(b.Min.Y, c.Y), Z: math.Min(b.Min.Z, c.Z)}
		b.Max = r3.Vec{X: math.Max(b.Max.X, c.X), Y: math.Max(b.Max.Y, c.Y), Z: math.Max(b.Max.Z, c.Z)}
	}
	return b
}
