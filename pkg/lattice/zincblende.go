package lattice

import "gonum.org/v1/gonum/spatial/r3"

// Zincblende site indexes. The four face-centred cubic sites carry the
// PRIMARY element and the four tetrahedral interior sites SECONDARY.
const (
	SiteCorner    = 0 // (0, 0, 0)
	SiteFaceZ     = 1 // (½, ½, 0)
	SiteFaceY     = 2 // (½, 0, ½)
	SiteFaceX     = 3 // (0, ½, ½)
	SiteInterior1 = 4 // (¼, ¼, ¼)
	SiteInterior2 = 5 // (¼, ¾, ¾)
	SiteInterior3 = 6 // (¾, ¼, ¾)
	SiteInterior4 = 7 // (¾, ¾, ¼)
)

// Zincblende parameter names.
const (
	ParamPrimary   = "PRIMARY"
	ParamSecondary = "SECONDARY"
)

// ZincblendeMotif returns the conventional 8-site zincblende motif with
// PRIMARY and SECONDARY both defaulting to carbon, i.e. diamond. Each
// interior site bonds to its four nearest face-centred neighbours.
func ZincblendeMotif() *Motif {
	primary, secondary := -1, -2
	sites := []Site{
		SiteCorner:    {Z: primary, Position: r3.Vec{}},
		SiteFaceZ:     {Z: primary, Position: r3.Vec{X: 0.5, Y: 0.5}},
		SiteFaceY:     {Z: primary, Position: r3.Vec{X: 0.5, Z: 0.5}},
		SiteFaceX:     {Z: primary, Position: r3.Vec{Y: 0.5, Z: 0.5}},
		SiteInterior1: {Z: secondary, Position: r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}},
		SiteInterior2: {Z: secondary, Position: r3.Vec{X: 0.25, Y: 0.75, Z: 0.75}},
		SiteInterior3: {Z: secondary, Position: r3.Vec{X: 0.75, Y: 0.25, Z: 0.75}},
		SiteInterior4: {Z: secondary, Position: r3.Vec{X: 0.75, Y: 0.75, Z: 0.25}},
	}

	bond := func(from, to int, rel IVec3) MotifBond {
		return MotifBond{
			Site1:        SiteSpecifier{SiteIndex: from},
			Site2:        SiteSpecifier{SiteIndex: to, RelativeCell: rel},
			Multiplicity: 1,
		}
	}
	bonds := []MotifBond{
		bond(SiteInterior1, SiteCorner, IVec3{}),
		bond(SiteInterior1, SiteFaceZ, IVec3{}),
		bond(SiteInterior1, SiteFaceY, IVec3{}),
		bond(SiteInterior1, SiteFaceX, IVec3{}),

		bond(SiteInterior2, SiteFaceX, IVec3{}),
		bond(SiteInterior2, SiteFaceZ, IVec3{0, 0, 1}),
		bond(SiteInterior2, SiteFaceY, IVec3{0, 1, 0}),
		bond(SiteInterior2, SiteCorner, IVec3{0, 1, 1}),

		bond(SiteInterior3, SiteFaceY, IVec3{}),
		bond(SiteInterior3, SiteFaceZ, IVec3{0, 0, 1}),
		bond(SiteInterior3, SiteFaceX, IVec3{1, 0, 0}),
		bond(SiteInterior3, SiteCorner, IVec3{1, 0, 1}),

		bond(SiteInterior4, SiteFaceZ, IVec3{}),
		bond(SiteInterior4, SiteFaceY, IVec3{0, 1, 0}),
		bond(SiteInterior4, SiteFaceX, IVec3{1, 0, 0}),
		bond(SiteInterior4, SiteCorner, IVec3{1, 1, 0}),
	}

	m, err := NewMotif([]Parameter{
		{Name: ParamPrimary, DefaultZ: 6},
		{Name: ParamSecondary, DefaultZ: 6},
	}, sites, bonds)
	if err != nil {
		panic("lattice: built-in zincblende motif is invalid: " + err.Error())
	}
	return m
}
