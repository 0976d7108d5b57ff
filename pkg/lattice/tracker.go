package lattice

// Address identifies a motif site in a specific cell.
type Address struct {
	Cell IVec3
	Site int
}

// PlacedAtomTracker maps lattice addresses to the atoms placed for them.
// Iteration follows insertion order so post-processing is deterministic.
type PlacedAtomTracker struct {
	ids   map[Address]int
	order []Address
}

// NewPlacedAtomTracker returns an empty tracker.
func NewPlacedAtomTracker() *PlacedAtomTracker {
	return &PlacedAtomTracker{ids: make(map[Address]int)}
}

// Record stores the atom placed at addr. A second record for the same
// address replaces the id but keeps the original position in the order.
func (t *PlacedAtomTracker) Record(addr Address, id int) {
	if _, ok := t.ids[addr]; !ok {
		t.order = append(t.order, addr)
	}
	t.ids[addr] = id
}

// Lookup returns the atom placed at addr.
func (t *PlacedAtomTracker) Lookup(addr Address) (int, bool) {
	id, ok := t.ids[addr]
	return id, ok
}

// LookupSpecifier resolves a site specifier relative to base.
func (t *PlacedAtomTracker) LookupSpecifier(base IVec3, s SiteSpecifier) (int, bool) {
	return t.Lookup(Address{Cell: base.Add(s.RelativeCell), Site: s.SiteIndex})
}

// Each calls fn for every recorded address in insertion order.
func (t *PlacedAtomTracker) Each(fn func(addr Address, id int)) {
	for _, a := range t.order {
		fn(a, t.ids[a])
	}
}

// Len returns the number of recorded addresses.
func (t *PlacedAtomTracker) Len() int { return len(t.order) }
