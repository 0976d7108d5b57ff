package atomic

import (
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Bond orders.
const (
	BondSingle uint8 = 1
	BondDouble uint8 = 2
	BondTriple uint8 = 3
)

// Bond is one end of a bond as seen from the owning atom.
type Bond struct {
	Other int
	Order uint8
}

// Atom is a placed atom. Fields must only be changed through the Structure
// setters so the spatial index and bond lists stay consistent.
type Atom struct {
	ID       int
	Z        int
	Position r3.Vec
	Bonds    []Bond

	// Depth is how far inside the geometry the atom was placed (Å).
	Depth float32

	// HydrogenPassivated marks atoms whose dangling bonds were already
	// capped, so passivation skips them.
	HydrogenPassivated bool
}

// Structure is a set of atoms and bonds. Atom ids start at 1 and are never
// reused after deletion. A Structure is not safe for concurrent mutation.
type Structure struct {
	atoms []*Atom // atoms[id-1], nil once deleted
	live  int
	bonds int
	index *spatialIndex
}

// New returns an empty structure.
func New() *Structure {
	return &Structure{index: newSpatialIndex()}
}

// AddAtom adds an atom and returns its id.
func (s *Structure) AddAtom(z int, pos r3.Vec) int {
	id := len(s.atoms) + 1
	s.atoms = append(s.atoms, &Atom{ID: id, Z: z, Position: pos})
	s.live++
	s.index.insert(id, pos)
	return id
}

// Atom returns the atom with the given id, or nil.
func (s *Structure) Atom(id int) *Atom {
	if id < 1 || id > len(s.atoms) {
		return nil
	}
	return s.atoms[id-1]
}

// DeleteAtom removes an atom and every bond that references it.
func (s *Structure) DeleteAtom(id int) bool {
	a := s.Atom(id)
	if a == nil {
		return false
	}
	for _, b := range a.Bonds {
		if o := s.Atom(b.Other); o != nil {
			o.Bonds = removeBond(o.Bonds, id)
		}
		s.bonds--
	}
	s.index.remove(id)
	s.atoms[id-1] = nil
	s.live--
	return true
}

// SetPosition moves an atom.
func (s *Structure) SetPosition(id int, p r3.Vec) {
	if a := s.Atom(id); a != nil {
		a.Position = p
		s.index.move(id, p)
	}
}

// SetDepth records the placement depth of an atom.
func (s *Structure) SetDepth(id int, d float32) {
	if a := s.Atom(id); a != nil {
		a.Depth = d
	}
}

// SetHydrogenPassivated sets or clears the passivated flag.
func (s *Structure) SetHydrogenPassivated(id int, v bool) {
	if a := s.Atom(id); a != nil {
		a.HydrogenPassivated = v
	}
}

// SetElement changes an atom's atomic number.
func (s *Structure) SetElement(id, z int) {
	if a := s.Atom(id); a != nil {
		a.Z = z
	}
}

// AddBond adds a bond without checking for an existing one. Callers that
// cannot guarantee uniqueness should use AddBondChecked.
func (s *Structure) AddBond(a, b int, order uint8) {
	x, y := s.Atom(a), s.Atom(b)
	if x == nil || y == nil || a == b {
		return
	}
	x.Bonds = append(x.Bonds, Bond{Other: b, Order: order})
	y.Bonds = append(y.Bonds, Bond{Other: a, Order: order})
	s.bonds++
}

// AddBondChecked adds a bond, or updates its order if the atoms are already
// bonded.
func (s *Structure) AddBondChecked(a, b int, order uint8) error {
	x, y := s.Atom(a), s.Atom(b)
	switch {
	case x == nil:
		return fmt.Errorf("atomic: bond %d-%d: atom %d does not exist", a, b, a)
	case y == nil:
		return fmt.Errorf("atomic: bond %d-%d: atom %d does not exist", a, b, b)
	case a == b:
		return fmt.Errorf("atomic: atom %d cannot bond to itself", a)
	case order < BondSingle || order > BondTriple:
		return fmt.Errorf("atomic: bond %d-%d: invalid order %d", a, b, order)
	}
	if i := bondIndex(x.Bonds, b); i >= 0 {
		x.Bonds[i].Order = order
		y.Bonds[bondIndex(y.Bonds, a)].Order = order
		return nil
	}
	s.AddBond(a, b, order)
	return nil
}

// DeleteBond removes the bond between a and b if present.
func (s *Structure) DeleteBond(a, b int) bool {
	x, y := s.Atom(a), s.Atom(b)
	if x == nil || y == nil || bondIndex(x.Bonds, b) < 0 {
		return false
	}
	x.Bonds = removeBond(x.Bonds, b)
	y.Bonds = removeBond(y.Bonds, a)
	s.bonds--
	return true
}

// HasBond reports whether a and b are bonded.
func (s *Structure) HasBond(a, b int) bool {
	x := s.Atom(a)
	return x != nil && bondIndex(x.Bonds, b) >= 0
}

// BondOrder returns the order of the bond between a and b.
func (s *Structure) BondOrder(a, b int) (uint8, bool) {
	x := s.Atom(a)
	if x == nil {
		return 0, false
	}
	if i := bondIndex(x.Bonds, b); i >= 0 {
		return x.Bonds[i].Order, true
	}
	return 0, false
}

// NumAtoms returns the number of live atoms.
func (s *Structure) NumAtoms() int { return s.live }

// NumBonds returns the number of bonds, each counted once.
func (s *Structure) NumBonds() int { return s.bonds }

// Each calls fn for every live atom in id order. Deleting the current atom
// from inside fn is allowed.
func (s *Structure) Each(fn func(a *Atom)) {
	for i := 0; i < len(s.atoms); i++ {
		if a := s.atoms[i]; a != nil {
			fn(a)
		}
	}
}

// IDs returns the ids of all live atoms in ascending order.
func (s *Structure) IDs() []int {
	return lo.FilterMap(s.atoms, func(a *Atom, _ int) (int, bool) {
		if a == nil {
			return 0, false
		}
		return a.ID, true
	})
}

// AtomsInRadius returns the ids of atoms within r of p, in ascending order.
func (s *Structure) AtomsInRadius(p r3.Vec, r float64) []int {
	ids := lo.Filter(s.index.candidates(p, r), func(id int, _ int) bool {
		a := s.Atom(id)
		return a != nil && r3.Norm(r3.Sub(a.Position, p)) <= r
	})
	sort.Ints(ids)
	return ids
}

// Validate checks that every bond is mirrored on its partner with the same
// order, points at a live atom other than itself, and appears only once.
func (s *Structure) Validate() error {
	ends := 0
	for _, a := range s.atoms {
		if a == nil {
			continue
		}
		seen := make(map[int]bool, len(a.Bonds))
		for _, b := range a.Bonds {
			o := s.Atom(b.Other)
			switch {
			case b.Other == a.ID:
				return fmt.Errorf("atomic: atom %d is bonded to itself", a.ID)
			case o == nil:
				return fmt.Errorf("atomic: atom %d is bonded to missing atom %d", a.ID, b.Other)
			case seen[b.Other]:
				return fmt.Errorf("atomic: duplicate bond %d-%d", a.ID, b.Other)
			}
			seen[b.Other] = true
			i := bondIndex(o.Bonds, a.ID)
			if i < 0 {
				return fmt.Errorf("atomic: bond %d-%d has no reverse entry", a.ID, b.Other)
			}
			if o.Bonds[i].Order != b.Order {
				return fmt.Errorf("atomic: bond %d-%d order mismatch (%d vs %d)", a.ID, b.Other, b.Order, o.Bonds[i].Order)
			}
			ends++
		}
		if math.IsNaN(a.Position.X + a.Position.Y + a.Position.Z) {
			return fmt.Errorf("atomic: atom %d has a NaN position", a.ID)
		}
	}
	if ends != 2*s.bonds {
		return fmt.Errorf("atomic: bond count %d does not match %d bond ends", s.bonds, ends)
	}
	return nil
}

func bondIndex(bs []Bond, other int) int {
	for i, b := range bs {
		if b.Other == other {
			return i
		}
	}
	return -1
}

func removeBond(bs []Bond, other int) []Bond {
	return lo.Reject(bs, func(b Bond, _ int) bool { return b.Other == other })
}
