package lattice

import (
	"math"

	"github.com/chazu/atomfill/pkg/atomic"
	"gonum.org/v1/gonum/spatial/r3"
)

// Dimer geometry for (100) diamond reconstruction, in Å.
const (
	dimerLengthClean       = 1.42
	dimerLengthPassivated  = 1.60
	dimerDropClean         = -0.205
	dimerDropPassivated    = -0.076
	dimerHydrogenTiltAngle = 24.0 // degrees from the surface normal

	// surfaceDepth is how deep (Å) an atom may sit and still be surface.
	surfaceDepth = 0.5
)

// surface is the (100) facet an atom belongs to. The six facets come first
// so they can index the tables below.
type surface int

const (
	surfacePosX surface = iota
	surfaceNegX
	surfacePosY
	surfaceNegY
	surfacePosZ
	surfaceNegZ
	surfaceBulk
	surfaceUnknown
)

func (s surface) axis() int { return int(s) / 2 }

func (s surface) normal() r3.Vec {
	sign := 1.0
	if s%2 == 1 {
		sign = -1
	}
	switch s.axis() {
	case 0:
		return r3.Vec{X: sign}
	case 1:
		return r3.Vec{Y: sign}
	default:
		return r3.Vec{Z: sign}
	}
}

// dimerPartner is where a primary atom finds its dimer partner: the cell
// offset from its own cell and the partner's site.
type dimerPartner struct {
	offset IVec3
	site   int
}

// off parses a cell offset written as three of '.', '+' or '-'.
func off(s string) IVec3 {
	v := [3]int{}
	for i, c := range s {
		switch c {
		case '+':
			v[i] = 1
		case '-':
			v[i] = -1
		}
	}
	return IVec3{v[0], v[1], v[2]}
}

// dimerPartners[site][surface] for the zincblende motif.
var dimerPartners = [8][6]dimerPartner{
	SiteCorner: {
		{off("..."), SiteFaceX}, {off("..-"), SiteFaceX},
		{off("..."), SiteFaceY}, {off("..-"), SiteFaceY},
		{off("..."), SiteFaceZ}, {off(".-."), SiteFaceZ},
	},
	SiteFaceZ: {
		{off(".+."), SiteFaceY}, {off(".+-"), SiteFaceY},
		{off("+.."), SiteFaceX}, {off("+.-"), SiteFaceX},
		{off("++."), SiteCorner}, {off("+.."), SiteCorner},
	},
	SiteFaceY: {
		{off("..+"), SiteFaceZ}, {off("..."), SiteFaceZ},
		{off("+.+"), SiteCorner}, {off("+.."), SiteCorner},
		{off("+.."), SiteFaceX}, {off("+-."), SiteFaceX},
	},
	SiteFaceX: {
		{off(".++"), SiteCorner}, {off(".+."), SiteCorner},
		{off("..+"), SiteFaceZ}, {off("..."), SiteFaceZ},
		{off(".+."), SiteFaceY}, {off("..."), SiteFaceY},
	},
	SiteInterior1: {
		{off("..-"), SiteInterior2}, {off("..."), SiteInterior2},
		{off("..-"), SiteInterior3}, {off("..."), SiteInterior3},
		{off(".-."), SiteInterior4}, {off("..."), SiteInterior4},
	},
	SiteInterior2: {
		{off(".+."), SiteInterior1}, {off(".++"), SiteInterior1},
		{off("..."), SiteInterior4}, {off("..+"), SiteInterior4},
		{off("..."), SiteInterior3}, {off(".+."), SiteInterior3},
	},
	SiteInterior3: {
		{off("..."), SiteInterior4}, {off("..+"), SiteInterior4},
		{off("+.."), SiteInterior1}, {off("+.+"), SiteInterior1},
		{off("+-."), SiteInterior2}, {off("+.."), SiteInterior2},
	},
	SiteInterior4: {
		{off(".+-"), SiteInterior3}, {off(".+."), SiteInterior3},
		{off("+.-"), SiteInterior2}, {off("+.."), SiteInterior2},
		{off("+.."), SiteInterior1}, {off("++."), SiteInterior1},
	},
}

// siteLayer places a zincblende site within the four atomic layers of a
// (100) cell: which of the two in-layer sublattices it is on and its depth.
type siteLayer struct {
	inSurface int
	depth     int
}

// siteLayers[axis][site]; both signs of an axis share a map.
var siteLayers = [3][8]siteLayer{
	{{0, 0}, {0, 2}, {1, 2}, {1, 0}, {0, 1}, {1, 1}, {0, 3}, {1, 3}},
	{{0, 0}, {0, 2}, {1, 0}, {1, 2}, {0, 1}, {0, 3}, {1, 1}, {1, 3}},
	{{0, 0}, {1, 0}, {0, 2}, {1, 2}, {0, 1}, {0, 3}, {1, 3}, {1, 1}},
}

// inPlaneAxes are the two cell axes spanning each facet.
var inPlaneAxes = [3][2]int{{1, 2}, {0, 2}, {0, 1}}

// checkerboard[c1%2][c2%2][inSurface] decides which atom of a would-be
// dimer is primary. The two patterns alternate with layer depth.
type checkerboard [2][2][2]bool

var (
	patternA = checkerboard{{{true, false}, {false, true}}, {{false, true}, {true, false}}}
	patternB = checkerboard{{{false, false}, {true, true}}, {{true, true}, {false, false}}}
)

// primaryTables[surface*4+depth].
var primaryTables = func() [24]checkerboard {
	var t [24]checkerboard
	pos := [4]checkerboard{patternA, patternB, patternB, patternA}
	neg := [4]checkerboard{patternB, patternA, patternA, patternB}
	for s := surfacePosX; s <= surfaceNegZ; s++ {
		layers := pos
		if s%2 == 1 {
			layers = neg
		}
		for d := 0; d < 4; d++ {
			t[int(s)*4+d] = layers[d]
		}
	}
	return t
}()

func mod2(v int) int { return ((v % 2) + 2) % 2 }

// classifySurface decides which (100) facet an atom lies on from its depth
// and the directions of its two bonds.
func classifySurface(s *atomic.Structure, a *atomic.Atom) surface {
	if a.Depth > surfaceDepth {
		return surfaceBulk
	}
	if len(a.Bonds) != 2 {
		return surfaceUnknown
	}
	var d [2]r3.Vec
	for i, b := range a.Bonds {
		o := s.Atom(b.Other)
		if o == nil {
			return surfaceUnknown
		}
		d[i] = r3.Unit(r3.Sub(o.Position, a.Position))
	}
	comp := func(v r3.Vec, axis int) float64 {
		switch axis {
		case 0:
			return v.X
		case 1:
			return v.Y
		default:
			return v.Z
		}
	}
	for axis := 0; axis < 3; axis++ {
		c0, c1 := comp(d[0], axis), comp(d[1], axis)
		if math.Abs(c0) <= 0.5 || math.Abs(c1) <= 0.5 {
			continue
		}
		// Both bonds point into the crystal, away from the facet.
		switch {
		case c0 > 0 && c1 > 0:
			return surface(2*axis + 1)
		case c0 < 0 && c1 < 0:
			return surface(2 * axis)
		}
	}
	return surfaceUnknown
}

// isCubicDiamond reports whether reconstruction applies: the zincblende
// motif with carbon on both sublattices in a cubic 3.567 Å cell.
func isCubicDiamond(m *Motif, cell UnitCell, params map[string]int) bool {
	if !m.StructurallyEqual(ZincblendeMotif()) || !cell.IsApproximatelyCubic() {
		return false
	}
	if math.Abs(r3.Norm(cell.A)-DiamondLatticeConstant) > cellEpsilon {
		return false
	}
	eff := m.EffectiveParameters(params)
	return eff[ParamPrimary] == 6 && eff[ParamSecondary] == 6
}

// ReconstructOptions controls ReconstructSurface.
type ReconstructOptions struct {
	// Passivate caps each dimer atom with a tilted hydrogen and flags it.
	Passivate bool
	// InvertPhase swaps which atoms of the checkerboard pair up.
	InvertPhase bool
	// SingleBondedRemoved skips the single-bonded atom removal that
	// reconstruction otherwise runs first.
	SingleBondedRemoved bool
}

type dimerCandidate struct {
	primary, partner int
	surface          surface
}

// ReconstructSurface forms 2x1 dimers on the (100) facets of a cubic
// diamond fill. Surface atoms with two bonds are paired by a checkerboard
// over cells and layers, pulled together to dimer length, dropped slightly
// into the surface and bonded. It returns the number of dimers formed, and
// 0 when the crystal is not cubic diamond.
func ReconstructSurface(s *atomic.Structure, t *PlacedAtomTracker, m *Motif, cell UnitCell, params map[string]int, opts ReconstructOptions) int {
	if !isCubicDiamond(m, cell, params) {
		return 0
	}
	if !opts.SingleBondedRemoved {
		s.RemoveSingleBondAtoms(true)
	}

	var candidates []dimerCandidate
	orientation := make(map[int]surface)
	t.Each(func(addr Address, id int) {
		a := s.Atom(id)
		if a == nil {
			return
		}
		surf := classifySurface(s, a)
		if surf == surfaceBulk || surf == surfaceUnknown {
			return
		}
		axis := surf.axis()
		layer := siteLayers[axis][addr.Site]
		planar := inPlaneAxes[axis]
		c1, c2 := mod2(addr.Cell.Axis(planar[0])), mod2(addr.Cell.Axis(planar[1]))
		primary := primaryTables[int(surf)*4+layer.depth][c1][c2][layer.inSurface] != opts.InvertPhase
		if !primary {
			orientation[id] = surf
			return
		}
		p := dimerPartners[addr.Site][surf]
		pid, ok := t.Lookup(Address{Cell: addr.Cell.Add(p.offset), Site: p.site})
		if !ok || s.Atom(pid) == nil {
			return
		}
		candidates = append(candidates, dimerCandidate{primary: id, partner: pid, surface: surf})
	})

	paired := make(map[int]bool)
	n := 0
	for _, c := range candidates {
		if o, ok := orientation[c.partner]; !ok || o != c.surface {
			continue
		}
		if paired[c.primary] || paired[c.partner] {
			continue
		}
		if formDimer(s, c, opts.Passivate) {
			paired[c.primary], paired[c.partner] = true, true
			n++
		}
	}
	return n
}

func formDimer(s *atomic.Structure, c dimerCandidate, passivate bool) bool {
	a1, a2 := s.Atom(c.primary), s.Atom(c.partner)
	p1, p2 := a1.Position, a2.Position
	dist := r3.Norm(r3.Sub(p2, p1))
	if dist < 0.01 {
		return false
	}

	length, drop := dimerLengthClean, dimerDropClean
	if passivate {
		length, drop = dimerLengthPassivated, dimerDropPassivated
	}
	normal := c.surface.normal()
	inplane := r3.Unit(r3.Sub(p2, p1))
	move := (dist - length) / 2
	vertical := r3.Scale(drop, normal)

	s.SetPosition(c.primary, r3.Add(r3.Add(p1, r3.Scale(move, inplane)), vertical))
	s.SetPosition(c.partner, r3.Add(r3.Sub(p2, r3.Scale(move, inplane)), vertical))
	s.AddBond(c.primary, c.partner, atomic.BondSingle)

	if passivate {
		tilt := dimerHydrogenTiltAngle * math.Pi / 180
		up := r3.Scale(math.Cos(tilt), normal)
		side := r3.Scale(math.Sin(tilt), inplane)
		addHydrogen(s, c.primary, r3.Unit(r3.Sub(up, side)))
		addHydrogen(s, c.partner, r3.Unit(r3.Add(up, side)))
		s.SetHydrogenPassivated(c.primary, true)
		s.SetHydrogenPassivated(c.partner, true)
	}
	return true
}
