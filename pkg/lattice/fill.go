package lattice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/chazu/atomfill/pkg/atomic"
	"github.com/chazu/atomfill/pkg/evaluator"
	"github.com/chazu/atomfill/pkg/geotree"
	"gonum.org/v1/gonum/spatial/r3"
)

// flushBatches is how many evaluator batches are queued before a flush.
const flushBatches = 16

type fillBox struct {
	box   r3.Box
	depth int
}

type pendingSite struct {
	addr Address
	z    int
	pos  r3.Vec
}

type filler struct {
	ctx       context.Context
	cell      UnitCell
	motif     *Motif
	params    map[string]int
	geometry  *geotree.Node
	opts      FillOptions
	eval      *evaluator.BatchedEvaluator
	structure *atomic.Structure
	tracker   *PlacedAtomTracker
	processed map[IVec3]struct{}
	pending   []pendingSite
	stats     Statistics
}

// Fill places motif atoms at every lattice site inside (or within tolerance
// of) the geometry, bonds them according to the motif and runs the
// post-processing steps selected in opts.
//
// The motif and cell are validated before any evaluation. Geometry that is
// empty or lies outside the region limit yields an empty structure.
func Fill(ctx context.Context, in FillInput, opts FillOptions) (*FillResult, error) {
	start := time.Now()
	opts = opts.normalized()

	if in.Geometry == nil {
		return nil, errors.New("lattice: fill: nil geometry")
	}
	if !in.Geometry.Is3D() {
		return nil, fmt.Errorf("lattice: fill: %w", geotree.ErrNot3D)
	}
	if in.Motif == nil {
		return nil, errors.New("lattice: fill: nil motif")
	}
	if err := in.Motif.Validate(); err != nil {
		return nil, err
	}
	if in.Motif.BondsBySite1 == nil {
		in.Motif.index()
	}
	if err := in.Cell.Validate(); err != nil {
		return nil, err
	}

	f := &filler{
		ctx:       ctx,
		cell:      in.Cell,
		motif:     in.Motif,
		params:    in.Motif.EffectiveParameters(in.Parameters),
		geometry:  in.Geometry,
		opts:      opts,
		structure: atomic.New(),
		tracker:   NewPlacedAtomTracker(),
		processed: make(map[IVec3]struct{}),
	}

	region := f.region()
	res := &FillResult{Structure: f.structure, Tracker: f.tracker, Region: region}
	if geotree.BoxEmpty(region) {
		opts.Logger.WithField("geometry", in.Geometry.Kind()).Debug("fill region is empty")
		f.finish(start)
		res.Stats = f.stats
		return res, nil
	}

	var err error
	f.eval, err = evaluator.New(in.Geometry, opts.Evaluator)
	if err != nil {
		return nil, fmt.Errorf("lattice: fill: %w", err)
	}

	if err := f.subdivide(region); err != nil {
		return nil, err
	}
	if err := f.flush(); err != nil {
		return nil, err
	}
	f.bond()
	f.cleanup()

	f.finish(start)
	res.Stats = f.stats
	return res, nil
}

// region is the box to subdivide: the geometry bounds grown by one cell
// diagonal, clipped to the region limit cube.
func (f *filler) region() r3.Box {
	l := f.opts.RegionLimit
	limit := r3.Box{Min: r3.Vec{X: -l, Y: -l, Z: -l}, Max: r3.Vec{X: l, Y: l, Z: l}}
	if f.opts.Region != nil {
		return geotree.IntersectBox(*f.opts.Region, limit)
	}
	b, ok := f.geometry.Bounds()
	if !ok {
		return limit
	}
	if geotree.BoxEmpty(b) {
		return b
	}
	return geotree.IntersectBox(geotree.ExpandBox(b, f.cell.MaxDiagonal()), limit)
}

func (f *filler) subdivide(region r3.Box) error {
	stack := []fillBox{{box: region}}
	tol := f.opts.Tolerance

	for len(stack) > 0 {
		if err := f.ctx.Err(); err != nil {
			return err
		}
		fb := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		f.stats.FillBoxCalls++
		if fb.depth > f.stats.MaxRecursionDepth {
			f.stats.MaxRecursionDepth = fb.depth
		}

		size := fb.box.Size()
		halfDiag := r3.Norm(size) / 2
		sdf := geotree.Eval3(f.geometry, fb.box.Center())
		f.stats.NonBatchedEvaluations++

		if sdf > halfDiag+tol+conservativeEpsilon {
			continue
		}
		if sdf < -halfDiag-conservativeEpsilon {
			// Entirely inside: every cell touching the box is kept.
			if err := f.leaf(fb.box); err != nil {
				return err
			}
			continue
		}

		var split [3]bool
		splittable := false
		for i, s := range []float64{size.X, size.Y, size.Z} {
			split[i] = s >= 2*smallestFillBox
			splittable = splittable || split[i]
		}
		if !splittable {
			if err := f.leaf(fb.box); err != nil {
				return err
			}
			continue
		}
		if fb.depth >= f.opts.MaxDepth {
			f.stats.DepthCapHits++
			if err := f.leaf(fb.box); err != nil {
				return err
			}
			continue
		}

		children := splitBox(fb.box, split)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, fillBox{box: children[i], depth: fb.depth + 1})
		}
	}
	return nil
}

// splitBox halves b along every flagged axis.
func splitBox(b r3.Box, split [3]bool) []r3.Box {
	out := []r3.Box{b}
	c := b.Center()
	for axis := 0; axis < 3; axis++ {
		if !split[axis] {
			continue
		}
		next := make([]r3.Box, 0, 2*len(out))
		for _, x := range out {
			lo, hi := x, x
			switch axis {
			case 0:
				lo.Max.X, hi.Min.X = c.X, c.X
			case 1:
				lo.Max.Y, hi.Min.Y = c.Y, c.Y
			default:
				lo.Max.Z, hi.Min.Z = c.Z, c.Z
			}
			next = append(next, lo, hi)
		}
		out = next
	}
	return out
}

// leaf queues every site of every unprocessed cell that can overlap b.
func (f *filler) leaf(b r3.Box) error {
	f.stats.LeafBoxes++
	s := b.Size()
	f.stats.TotalLeafSize += s.X * s.Y * s.Z

	lo, hi := f.cellRange(b)
	margin := f.opts.Tolerance + conservativeEpsilon
	probe := geotree.ExpandBox(b, margin)

	for x := lo.X; x < hi.X; x++ {
		for y := lo.Y; y < hi.Y; y++ {
			for z := lo.Z; z < hi.Z; z++ {
				c := IVec3{x, y, z}
				if _, done := f.processed[c]; done {
					continue
				}
				origin := f.cell.LatticeToReal(r3.Add(c.Vec(), f.opts.MotifOffset))
				if !boxesOverlap(f.cell.cellBounds(origin), probe) {
					continue
				}
				f.processed[c] = struct{}{}
				f.stats.MotifCellsProcessed++
				f.queueCell(c, origin)
			}
		}
	}

	if len(f.pending) >= flushBatches*f.eval.Options().BatchSize {
		return f.flush()
	}
	return nil
}

// cellRange returns the half-open range of cell indexes whose cells can
// intersect b. All eight corners are mapped so skewed cells are covered.
func (f *filler) cellRange(b r3.Box) (lo, hi IVec3) {
	var mn, mx r3.Vec
	for i, v := range b.Vertices() {
		p := r3.Sub(f.cell.RealToLattice(v), f.opts.MotifOffset)
		if i == 0 {
			mn, mx = p, p
			continue
		}
		mn = r3.Vec{X: math.Min(mn.X, p.X), Y: math.Min(mn.Y, p.Y), Z: math.Min(mn.Z, p.Z)}
		mx = r3.Vec{X: math.Max(mx.X, p.X), Y: math.Max(mx.Y, p.Y), Z: math.Max(mx.Z, p.Z)}
	}
	fl := func(v float64) int { return int(math.Floor(v - conservativeEpsilon)) }
	cl := func(v float64) int { return int(math.Ceil(v + conservativeEpsilon)) }
	return IVec3{fl(mn.X), fl(mn.Y), fl(mn.Z)}, IVec3{cl(mx.X), cl(mx.Y), cl(mx.Z)}
}

func boxesOverlap(a, b r3.Box) bool {
	return a.Min.X <= b.Max.X && b.Min.X <= a.Max.X &&
		a.Min.Y <= b.Max.Y && b.Min.Y <= a.Max.Y &&
		a.Min.Z <= b.Max.Z && b.Min.Z <= a.Max.Z
}

func (f *filler) queueCell(c IVec3, origin r3.Vec) {
	for i, site := range f.motif.Sites {
		z, ok := f.motif.ElementOf(i, f.params)
		if !ok {
			continue
		}
		pos := r3.Add(origin, f.cell.LatticeToReal(site.Position))
		f.eval.Add(pos)
		f.pending = append(f.pending, pendingSite{addr: Address{Cell: c, Site: i}, z: z, pos: pos})
		f.stats.SitesEvaluated++
	}
}

// flush evaluates queued sites and places the accepted ones.
func (f *filler) flush() error {
	if f.eval == nil || len(f.pending) == 0 {
		return nil
	}
	pending := f.pending
	f.pending = nil
	sdfs, err := f.eval.Flush(f.ctx)
	if err != nil {
		return err
	}
	f.stats.BatchedEvaluations += len(sdfs)
	for i, p := range pending {
		sdf := sdfs[i]
		if sdf > f.opts.Tolerance {
			continue
		}
		id := f.structure.AddAtom(p.z, p.pos)
		f.structure.SetDepth(id, float32(-sdf))
		f.tracker.Record(p.addr, id)
		f.stats.Atoms++
		f.stats.TotalDepth += -sdf
		f.stats.MaxDepth = math.Max(f.stats.MaxDepth, -sdf)
	}
	return nil
}

// bond creates every motif bond whose two ends were placed. Bonds are
// walked from their first site only, so each is created once.
func (f *filler) bond() {
	f.tracker.Each(func(addr Address, id int) {
		for _, bi := range f.motif.BondsBySite1[addr.Site] {
			b := f.motif.Bonds[bi]
			other, ok := f.tracker.LookupSpecifier(addr.Cell, b.Site2)
			if !ok || f.structure.HasBond(id, other) {
				continue
			}
			f.structure.AddBond(id, other, uint8(b.Multiplicity))
			f.stats.Bonds++
		}
	})
}

func (f *filler) cleanup() {
	s := f.structure
	f.stats.LoneAtomsRemoved = s.RemoveLoneAtoms()
	if f.opts.RemoveSingleBonded {
		f.stats.SingleBondedRemoved = s.RemoveSingleBondAtoms(true)
	}

	if f.opts.SurfaceReconstruction && isCubicDiamond(f.motif, f.cell, f.params) {
		if !f.opts.RemoveSingleBonded {
			f.stats.SingleBondedRemoved += s.RemoveSingleBondAtoms(true)
		}
		atoms, bonds := s.NumAtoms(), s.NumBonds()
		f.stats.SurfaceReconstructions = ReconstructSurface(s, f.tracker, f.motif, f.cell, f.params, ReconstructOptions{
			Passivate:           f.opts.Passivate,
			InvertPhase:         f.opts.InvertPhase,
			SingleBondedRemoved: true,
		})
		f.stats.HydrogensAdded += s.NumAtoms() - atoms
		f.stats.Atoms += s.NumAtoms() - atoms
		f.stats.Bonds += s.NumBonds() - bonds
	}

	var h int
	switch {
	case f.opts.GeometricPassivation:
		h = PassivateGeometric(s)
	case f.opts.Passivate:
		h = PassivateMotif(s, f.tracker, f.motif, f.cell)
	}
	f.stats.HydrogensAdded += h
	f.stats.Atoms += h
	f.stats.Bonds += h
}

func (f *filler) finish(start time.Time) {
	f.stats.Duration = time.Since(start)
	f.opts.Metrics.observe(f.stats)
	f.stats.Log(f.opts.Logger)
}
