package atomic

// RemoveLoneAtoms deletes every atom without bonds and returns the count.
func (s *Structure) RemoveLoneAtoms() int {
	n := 0
	s.Each(func(a *Atom) {
		if len(a.Bonds) == 0 {
			s.DeleteAtom(a.ID)
			n++
		}
	})
	return n
}

// RemoveSingleBondAtoms deletes atoms that have exactly one bond. When
// recursive is set, atoms left with a single bond by a deletion are removed
// too, until none remain. Atoms stripped of all bonds along the way are
// removed as well.
func (s *Structure) RemoveSingleBondAtoms(recursive bool) int {
	var queue []int
	s.Each(func(a *Atom) {
		if len(a.Bonds) == 1 {
			queue = append(queue, a.ID)
		}
	})

	removed := 0
	for len(queue) > 0 {
		var next []int
		for _, id := range queue {
			a := s.Atom(id)
			if a == nil || len(a.Bonds) != 1 {
				continue
			}
			partner := a.Bonds[0].Other
			s.DeleteAtom(id)
			removed++

			p := s.Atom(partner)
			if p == nil {
				continue
			}
			switch len(p.Bonds) {
			case 0:
				s.DeleteAtom(partner)
				removed++
			case 1:
				if recursive {
					next = append(next, partner)
				}
			}
		}
		queue = next
	}
	return removed
}
