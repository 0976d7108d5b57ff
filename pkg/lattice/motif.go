package lattice

import (
	"fmt"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r3"
)

// Parameter is a named element placeholder, such as PRIMARY in a zincblende
// motif, with the atomic number used when no override is given.
type Parameter struct {
	Name     string
	DefaultZ int
}

// Site is an atomic position inside the cell. A positive Z is an atomic
// number; a negative Z refers to parameter -Z-1 (so -1 is the first).
type Site struct {
	Z        int
	Position r3.Vec // fractional lattice coordinates
}

// SiteSpecifier names a site in a cell relative to a base cell.
type SiteSpecifier struct {
	SiteIndex    int
	RelativeCell IVec3
}

// MotifBond connects two sites. Site1 always lies in the base cell.
type MotifBond struct {
	Site1        SiteSpecifier
	Site2        SiteSpecifier
	Multiplicity int
}

// Motif is the content of one unit cell: sites, bonds and element
// parameters. Build it with NewMotif so the indexes are populated.
type Motif struct {
	Parameters []Parameter
	Sites      []Site
	Bonds      []MotifBond

	// BondsBySite1[i] lists the indexes of bonds whose Site1 is site i.
	BondsBySite1 [][]int
	// BondsBySite2[i] lists the indexes of bonds whose Site2 is site i.
	BondsBySite2 [][]int
}

// MotifError identifies the part of a motif that failed validation.
// BondIndex or SiteIndex is -1 when the error is not about a bond or site.
type MotifError struct {
	BondIndex int
	SiteIndex int
	Message   string
}

func (e *MotifError) Error() string {
	switch {
	case e.BondIndex >= 0:
		return fmt.Sprintf("lattice: motif bond %d: %s", e.BondIndex, e.Message)
	case e.SiteIndex >= 0:
		return fmt.Sprintf("lattice: motif site %d: %s", e.SiteIndex, e.Message)
	default:
		return "lattice: motif: " + e.Message
	}
}

func bondErr(i int, format string, args ...any) error {
	return &MotifError{BondIndex: i, SiteIndex: -1, Message: fmt.Sprintf(format, args...)}
}

func siteErr(i int, format string, args ...any) error {
	return &MotifError{BondIndex: -1, SiteIndex: i, Message: fmt.Sprintf(format, args...)}
}

// NewMotif validates the inputs and builds the per-site bond indexes.
func NewMotif(params []Parameter, sites []Site, bonds []MotifBond) (*Motif, error) {
	m := &Motif{
		Parameters: append([]Parameter(nil), params...),
		Sites:      append([]Site(nil), sites...),
		Bonds:      append([]MotifBond(nil), bonds...),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.index()
	return m, nil
}

func (m *Motif) index() {
	m.BondsBySite1 = make([][]int, len(m.Sites))
	m.BondsBySite2 = make([][]int, len(m.Sites))
	for i, b := range m.Bonds {
		m.BondsBySite1[b.Site1.SiteIndex] = append(m.BondsBySite1[b.Site1.SiteIndex], i)
		m.BondsBySite2[b.Site2.SiteIndex] = append(m.BondsBySite2[b.Site2.SiteIndex], i)
	}
}

// Validate checks parameters, sites and bonds, and that the bond indexes
// match the bonds when they have been built.
func (m *Motif) Validate() error {
	if len(m.Sites) == 0 {
		return &MotifError{BondIndex: -1, SiteIndex: -1, Message: "no sites"}
	}
	seen := make(map[string]bool, len(m.Parameters))
	for _, p := range m.Parameters {
		if p.Name == "" {
			return &MotifError{BondIndex: -1, SiteIndex: -1, Message: "parameter with empty name"}
		}
		if seen[p.Name] {
			return &MotifError{BondIndex: -1, SiteIndex: -1, Message: fmt.Sprintf("duplicate parameter %q", p.Name)}
		}
		seen[p.Name] = true
		if p.DefaultZ <= 0 {
			return &MotifError{BondIndex: -1, SiteIndex: -1, Message: fmt.Sprintf("parameter %q has invalid default element %d", p.Name, p.DefaultZ)}
		}
	}

	for i, s := range m.Sites {
		switch {
		case s.Z == 0:
			return siteErr(i, "atomic number must not be zero")
		case s.Z < 0 && -s.Z > len(m.Parameters):
			return siteErr(i, "refers to parameter %d but only %d are defined", -s.Z, len(m.Parameters))
		}
	}

	n := len(m.Sites)
	for i, b := range m.Bonds {
		switch {
		case b.Site1.SiteIndex < 0 || b.Site1.SiteIndex >= n:
			return bondErr(i, "first site %d out of range (have %d sites)", b.Site1.SiteIndex, n)
		case b.Site2.SiteIndex < 0 || b.Site2.SiteIndex >= n:
			return bondErr(i, "second site %d out of range (have %d sites)", b.Site2.SiteIndex, n)
		case !b.Site1.RelativeCell.IsZero():
			return bondErr(i, "first site must be in the base cell, got %s", b.Site1.RelativeCell)
		case b.Site1.SiteIndex == b.Site2.SiteIndex && b.Site2.RelativeCell.IsZero():
			return bondErr(i, "site %d bonds to itself", b.Site1.SiteIndex)
		case b.Multiplicity < 1 || b.Multiplicity > 3:
			return bondErr(i, "multiplicity must be 1..3, got %d", b.Multiplicity)
		}
	}

	if m.BondsBySite1 != nil && (len(m.BondsBySite1) != n || len(m.BondsBySite2) != n) {
		return &MotifError{BondIndex: -1, SiteIndex: -1, Message: "bond index does not match sites; build motifs with NewMotif"}
	}
	return nil
}

// EffectiveParameters returns the atomic number of every parameter, taking
// overrides where present and defaults elsewhere. Overrides for names the
// motif does not define are ignored.
func (m *Motif) EffectiveParameters(overrides map[string]int) map[string]int {
	return lo.SliceToMap(m.Parameters, func(p Parameter) (string, int) {
		if z, ok := overrides[p.Name]; ok && z > 0 {
			return p.Name, z
		}
		return p.Name, p.DefaultZ
	})
}

// ElementOf returns the atomic number of a site given effective parameter
// values. The second result is false for an invalid site or placeholder.
func (m *Motif) ElementOf(site int, params map[string]int) (int, bool) {
	if site < 0 || site >= len(m.Sites) {
		return 0, false
	}
	z := m.Sites[site].Z
	if z > 0 {
		return z, true
	}
	pi := -z - 1
	if pi < 0 || pi >= len(m.Parameters) {
		return 0, false
	}
	p := m.Parameters[pi]
	if v, ok := params[p.Name]; ok && v > 0 {
		return v, true
	}
	return p.DefaultZ, true
}

// ExpectedBonds returns the number of motif bonds that touch site i.
func (m *Motif) ExpectedBonds(i int) int {
	return len(m.BondsBySite1[i]) + len(m.BondsBySite2[i])
}

// StructurallyEqual compares parameters, sites and bonds exactly. The bond
// indexes are derived data and are not compared.
func (m *Motif) StructurallyEqual(o *Motif) bool {
	if m == nil || o == nil {
		return m == o
	}
	if len(m.Parameters) != len(o.Parameters) || len(m.Sites) != len(o.Sites) || len(m.Bonds) != len(o.Bonds) {
		return false
	}
	for i := range m.Parameters {
		if m.Parameters[i] != o.Parameters[i] {
			return false
		}
	}
	for i := range m.Sites {
		if m.Sites[i] != o.Sites[i] {
			return false
		}
	}
	for i := range m.Bonds {
		if m.Bonds[i] != o.Bonds[i] {
			return false
		}
	}
	return true
}
