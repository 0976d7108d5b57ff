package lattice

import (
	"math"

	"github.com/chazu/atomfill/pkg/atomic"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// CarbonHydrogenBond is the C-H bond length in Å.
	CarbonHydrogenBond = 1.09

	// tetrahedralHalfAngle is half the H-X-H angle of an sp3 centre, in
	// degrees, used to place two hydrogens around two existing bonds.
	tetrahedralHalfAngle = 54.74
)

// hydrogenBondLength is the X-H distance for an atom of element z.
func hydrogenBondLength(z int) float64 {
	if z == 6 {
		return CarbonHydrogenBond
	}
	return atomic.CovalentRadius(z) + atomic.CovalentRadius(1)
}

func addHydrogen(s *atomic.Structure, id int, dir r3.Vec) {
	a := s.Atom(id)
	pos := r3.Add(a.Position, r3.Scale(hydrogenBondLength(a.Z), dir))
	h := s.AddAtom(1, pos)
	s.AddBond(id, h, atomic.BondSingle)
}

// PassivateMotif caps every dangling motif bond with a hydrogen. A bond is
// dangling when its partner site was never placed or has since been
// removed. The hydrogen points along the lattice direction of the missing
// partner. Atoms already flagged as passivated are skipped, and capped atoms
// are flagged. It returns the number of hydrogens added.
func PassivateMotif(s *atomic.Structure, t *PlacedAtomTracker, m *Motif, cell UnitCell) int {
	placed := func(id int, ok bool) bool { return ok && s.Atom(id) != nil }

	direction := func(found, missing SiteSpecifier) r3.Vec {
		from := r3.Add(m.Sites[found.SiteIndex].Position, found.RelativeCell.Vec())
		to := r3.Add(m.Sites[missing.SiteIndex].Position, missing.RelativeCell.Vec())
		return r3.Unit(cell.LatticeToReal(r3.Sub(to, from)))
	}

	added := 0
	t.Each(func(addr Address, id int) {
		a := s.Atom(id)
		if a == nil || a.HydrogenPassivated {
			return
		}
		if len(a.Bonds) >= m.ExpectedBonds(addr.Site) {
			return
		}

		capped := false
		for _, bi := range m.BondsBySite1[addr.Site] {
			b := m.Bonds[bi]
			if placed(t.LookupSpecifier(addr.Cell, b.Site2)) {
				continue
			}
			addHydrogen(s, id, direction(b.Site1, b.Site2))
			added++
			capped = true
		}
		for _, bi := range m.BondsBySite2[addr.Site] {
			b := m.Bonds[bi]
			base := addr.Cell.Sub(b.Site2.RelativeCell)
			if placed(t.LookupSpecifier(base, b.Site1)) {
				continue
			}
			addHydrogen(s, id, direction(b.Site2, b.Site1))
			added++
			capped = true
		}
		if capped {
			s.SetHydrogenPassivated(id, true)
		}
	})
	return added
}

// PassivateGeometric fills every atom up to its element's valence with
// hydrogens placed tetrahedrally around the bonds it already has. It needs
// no motif, so it also works on structures that did not come from a fill.
// Hydrogens, atoms of unknown valence and passivated atoms are skipped. It
// returns the number of hydrogens added.
func PassivateGeometric(s *atomic.Structure) int {
	added := 0
	for _, id := range s.IDs() {
		a := s.Atom(id)
		if a.Z == 1 || a.HydrogenPassivated {
			continue
		}
		missing := atomic.Valence(a.Z)
		bonds := make([]r3.Vec, 0, len(a.Bonds))
		for _, b := range a.Bonds {
			missing -= int(b.Order)
			if o := s.Atom(b.Other); o != nil {
				bonds = append(bonds, r3.Sub(o.Position, a.Position))
			}
		}
		if missing <= 0 {
			continue
		}
		dirs := missingDirections(bonds)
		if len(dirs) > missing {
			dirs = dirs[:missing]
		}
		for _, d := range dirs {
			addHydrogen(s, id, d)
			added++
		}
		if len(dirs) > 0 {
			s.SetHydrogenPassivated(id, true)
		}
	}
	return added
}

// missingDirections returns unit vectors completing a tetrahedron around
// the given bond vectors.
func missingDirections(bonds []r3.Vec) []r3.Vec {
	for i := range bonds {
		bonds[i] = r3.Unit(bonds[i])
	}
	switch len(bonds) {
	case 0:
		k := 1 / math.Sqrt(3)
		return []r3.Vec{
			{X: k, Y: k, Z: k},
			{X: k, Y: -k, Z: -k},
			{X: -k, Y: k, Z: -k},
			{X: -k, Y: -k, Z: k},
		}

	case 1:
		b := bonds[0]
		u := perpendicular(b)
		v := r3.Cross(b, u)
		out := make([]r3.Vec, 0, 3)
		for _, phi := range []float64{0, 2 * math.Pi / 3, 4 * math.Pi / 3} {
			around := r3.Add(r3.Scale(math.Cos(phi), u), r3.Scale(math.Sin(phi), v))
			d := r3.Add(r3.Scale(-1.0/3, b), r3.Scale(math.Sqrt(8)/3, around))
			out = append(out, r3.Unit(d))
		}
		return out

	case 2:
		sum := r3.Add(bonds[0], bonds[1])
		n := r3.Cross(bonds[0], bonds[1])
		if r3.Norm(n) < 1e-9 {
			n = perpendicular(bonds[0])
		}
		n = r3.Unit(n)
		var m r3.Vec
		if r3.Norm(sum) < 1e-9 {
			m = r3.Cross(n, bonds[0])
		} else {
			m = r3.Scale(-1, r3.Unit(sum))
		}
		theta := tetrahedralHalfAngle * math.Pi / 180
		return []r3.Vec{
			r3.Add(r3.Scale(math.Cos(theta), m), r3.Scale(math.Sin(theta), n)),
			r3.Sub(r3.Scale(math.Cos(theta), m), r3.Scale(math.Sin(theta), n)),
		}

	case 3:
		sum := r3.Add(r3.Add(bonds[0], bonds[1]), bonds[2])
		if r3.Norm(sum) < 1e-9 {
			// Planar: either side of the plane will do.
			n := r3.Cross(r3.Sub(bonds[1], bonds[0]), r3.Sub(bonds[2], bonds[0]))
			if r3.Norm(n) < 1e-9 {
				return nil
			}
			return []r3.Vec{r3.Unit(n)}
		}
		return []r3.Vec{r3.Scale(-1, r3.Unit(sum))}
	}
	return nil
}

// perpendicular returns some unit vector orthogonal to v.
func perpendicular(v r3.Vec) r3.Vec {
	ref := r3.Vec{X: 1}
	if math.Abs(v.X) > 0.9 {
		ref = r3.Vec{Y: 1}
	}
	return r3.Unit(r3.Cross(v, ref))
}
