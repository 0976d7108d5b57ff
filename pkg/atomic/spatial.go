package atomic

import (
	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/spatial/r3"
)

// pointTolerance is the half-width of the degenerate box stored per atom;
// rtreego requires strictly positive extents.
const pointTolerance = 1e-6

type indexEntry struct {
	id   int
	rect rtreego.Rect
}

func (e *indexEntry) Bounds() rtreego.Rect { return e.rect }

func pointRect(p r3.Vec) rtreego.Rect {
	return rtreego.Point{p.X, p.Y, p.Z}.ToRect(pointTolerance)
}

// spatialIndex is an R-tree over atom positions.
type spatialIndex struct {
	tree    *rtreego.Rtree
	entries map[int]*indexEntry
}

func newSpatialIndex() *spatialIndex {
	return &spatialIndex{
		tree:    rtreego.NewTree(3, 25, 50),
		entries: make(map[int]*indexEntry),
	}
}

func (s *spatialIndex) insert(id int, p r3.Vec) {
	e := &indexEntry{id: id, rect: pointRect(p)}
	s.entries[id] = e
	s.tree.Insert(e)
}

func (s *spatialIndex) remove(id int) {
	e, ok := s.entries[id]
	if !ok {
		return
	}
	s.tree.Delete(e)
	delete(s.entries, id)
}

func (s *spatialIndex) move(id int, p r3.Vec) {
	s.remove(id)
	s.insert(id, p)
}

// candidates returns ids whose stored box intersects the cube of half-width
// r around p.
func (s *spatialIndex) candidates(p r3.Vec, r float64) []int {
	if r <= 0 {
		r = pointTolerance
	}
	rect, err := rtreego.NewRect(rtreego.Point{p.X - r, p.Y - r, p.Z - r}, []float64{2 * r, 2 * r, 2 * r})
	if err != nil {
		return nil
	}
	hits := s.tree.SearchIntersect(rect)
	ids := make([]int, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.(*indexEntry).id)
	}
	return ids
}
