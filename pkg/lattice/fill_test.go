package lattice

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/chazu/atomfill/pkg/atomic"
	"github.com/chazu/atomfill/pkg/evaluator"
	"github.com/chazu/atomfill/pkg/geotree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

const sphereRadius = 5 * DiamondLatticeConstant

func sphere(t *testing.T, r float64) *geotree.Node {
	t.Helper()
	n, err := geotree.Sphere(r3.Vec{}, r)
	require.NoError(t, err)
	return n
}

// cube is the solid [lo, hi]^3 built from six half-spaces.
func cube(t *testing.T, lo, hi float64) *geotree.Node {
	t.Helper()
	var faces []*geotree.Node
	for _, n := range []r3.Vec{{X: 1}, {Y: 1}, {Z: 1}} {
		top, err := geotree.HalfSpace(n, hi)
		require.NoError(t, err)
		bottom, err := geotree.HalfSpace(r3.Scale(-1, n), -lo)
		require.NoError(t, err)
		faces = append(faces, top, bottom)
	}
	c, err := geotree.Intersection(faces...)
	require.NoError(t, err)
	return c
}

func diamond(geometry *geotree.Node) FillInput {
	return FillInput{Cell: CubicDiamond(), Motif: ZincblendeMotif(), Geometry: geometry}
}

func fill(t *testing.T, in FillInput, opts FillOptions) *FillResult {
	t.Helper()
	res, err := Fill(context.Background(), in, opts)
	require.NoError(t, err)
	require.NoError(t, res.Structure.Validate())
	return res
}

type placed struct {
	Z   int
	Pos r3.Vec
}

func snapshot(s *atomic.Structure) []placed {
	var out []placed
	s.Each(func(a *atomic.Atom) { out = append(out, placed{a.Z, a.Position}) })
	return out
}

func TestFillSphereAtomCount(t *testing.T) {
	res := fill(t, diamond(sphere(t, sphereRadius)), DefaultFillOptions())
	a := DiamondLatticeConstant
	volume := 4.0 / 3 * math.Pi * math.Pow(sphereRadius, 3)
	expected := volume * 8 / (a * a * a)
	got := float64(res.Structure.NumAtoms())
	assert.InEpsilon(t, expected, got, 0.15, "expected about %.0f atoms", expected)

	st := res.Stats
	assert.Equal(t, res.Structure.NumAtoms()+st.LoneAtomsRemoved, st.Atoms)
	assert.Greater(t, st.LeafBoxes, 0)
	assert.Greater(t, st.MotifCellsProcessed, 0)
	assert.Equal(t, 8*st.MotifCellsProcessed, st.SitesEvaluated)
	assert.Equal(t, st.SitesEvaluated, st.BatchedEvaluations)
	assert.Equal(t, st.FillBoxCalls, st.NonBatchedEvaluations)
	assert.Equal(t, 0, st.DepthCapHits)
	assert.Equal(t, res.Structure.NumBonds(), st.Bonds)
	assert.Greater(t, st.AverageDepth(), 0.0)
	assert.LessOrEqual(t, st.MaxDepth, sphereRadius)

	res.Structure.Each(func(at *atomic.Atom) {
		assert.LessOrEqual(t, r3.Norm(at.Position), sphereRadius+DefaultTolerance)
		assert.NotEmpty(t, at.Bonds, "lone atom %d", at.ID)
	})
}

func TestFillNoDuplicates(t *testing.T) {
	res := fill(t, diamond(sphere(t, 9)), DefaultFillOptions())
	seen := make(map[[3]int64]bool)
	res.Structure.Each(func(a *atomic.Atom) {
		key := [3]int64{
			int64(math.Round(a.Position.X * 1e4)),
			int64(math.Round(a.Position.Y * 1e4)),
			int64(math.Round(a.Position.Z * 1e4)),
		}
		assert.False(t, seen[key], "duplicate atom at %v", a.Position)
		seen[key] = true
	})

	ids := make(map[int]bool)
	res.Tracker.Each(func(_ Address, id int) {
		assert.False(t, ids[id])
		ids[id] = true
	})
}

func TestFillIsIdempotent(t *testing.T) {
	in := diamond(sphere(t, 8))
	serial := DefaultFillOptions()
	serial.Evaluator = evaluator.Options{Deterministic: true}
	parallel := DefaultFillOptions()
	parallel.Evaluator = evaluator.Options{BatchSize: 32, ParallelThreshold: 32, Workers: 4}

	first := fill(t, in, serial)
	second := fill(t, in, serial)
	third := fill(t, in, parallel)
	assert.Equal(t, snapshot(first.Structure), snapshot(second.Structure))
	assert.Equal(t, snapshot(first.Structure), snapshot(third.Structure))
	assert.Equal(t, first.Structure.NumBonds(), third.Structure.NumBonds())
}

func TestFillDepthCap(t *testing.T) {
	in := diamond(sphere(t, 10))
	full := fill(t, in, DefaultFillOptions())

	opts := DefaultFillOptions()
	opts.MaxDepth = 1
	capped := fill(t, in, opts)
	assert.Greater(t, capped.Stats.DepthCapHits, 0)
	assert.LessOrEqual(t, capped.Stats.MaxRecursionDepth, 1)
	assert.ElementsMatch(t, snapshot(full.Structure), snapshot(capped.Structure))
}

func TestFillSkewedCell(t *testing.T) {
	// Primitive two-site cell of diamond.
	p := DiamondLatticeConstant / math.Sqrt2
	cell, err := FromParameters(p, p, p, 60, 60, 60)
	require.NoError(t, err)
	bonds := make([]MotifBond, 0, 4)
	for _, rel := range []IVec3{{}, {X: 1}, {Y: 1}, {Z: 1}} {
		bonds = append(bonds, MotifBond{
			Site1:        SiteSpecifier{SiteIndex: 1},
			Site2:        SiteSpecifier{SiteIndex: 0, RelativeCell: rel},
			Multiplicity: 1,
		})
	}
	m, err := NewMotif(nil, []Site{
		{Z: 6},
		{Z: 6, Position: r3.Vec{X: 0.25, Y: 0.25, Z: 0.25}},
	}, bonds)
	require.NoError(t, err)

	opts := DefaultFillOptions()
	opts.Passivate = true
	res := fill(t, FillInput{Cell: cell, Motif: m, Geometry: sphere(t, sphereRadius)}, opts)

	carbons := 0
	res.Structure.Each(func(a *atomic.Atom) {
		if a.Z == 6 {
			carbons++
			assert.Len(t, a.Bonds, 4)
		}
	})
	volume := 4.0 / 3 * math.Pi * math.Pow(sphereRadius, 3)
	expected := volume * 8 / math.Pow(DiamondLatticeConstant, 3)
	assert.InEpsilon(t, expected, float64(carbons), 0.15)
}

func TestFillPassivation(t *testing.T) {
	cases := []struct {
		name string
		opts func(*FillOptions)
	}{
		{"motif", func(o *FillOptions) { o.Passivate = true }},
		{"motif after single bonded removal", func(o *FillOptions) { o.Passivate, o.RemoveSingleBonded = true, true }},
		{"geometric", func(o *FillOptions) { o.GeometricPassivation = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultFillOptions()
			tc.opts(&opts)
			res := fill(t, diamond(sphere(t, sphereRadius)), opts)
			s := res.Structure

			hydrogens := 0
			s.Each(func(a *atomic.Atom) {
				switch {
				case a.Z == 1:
					hydrogens++
					require.Len(t, a.Bonds, 1)
					o := s.Atom(a.Bonds[0].Other)
					assert.InDelta(t, CarbonHydrogenBond, r3.Norm(r3.Sub(o.Position, a.Position)), 1e-9)
				case a.HydrogenPassivated:
					assert.GreaterOrEqual(t, len(a.Bonds), 1)
					assert.LessOrEqual(t, len(a.Bonds), 4)
				}
				if a.Z == 6 {
					assert.Len(t, a.Bonds, 4, "carbon %d", a.ID)
				}
			})
			assert.Greater(t, hydrogens, 0)
			assert.Equal(t, hydrogens, res.Stats.HydrogensAdded)
			assert.Equal(t, s.NumAtoms(), res.Stats.Atoms-res.Stats.LoneAtomsRemoved-res.Stats.SingleBondedRemoved)
			assert.Equal(t, 0, s.RemoveLoneAtoms())
		})
	}
}

func TestFillRegions(t *testing.T) {
	t.Run("empty geometry", func(t *testing.T) {
		a, err := geotree.Sphere(r3.Vec{X: -10}, 2)
		require.NoError(t, err)
		b, err := geotree.Sphere(r3.Vec{X: 10}, 2)
		require.NoError(t, err)
		none, err := geotree.Intersection(a, b)
		require.NoError(t, err)
		res := fill(t, diamond(none), DefaultFillOptions())
		assert.Equal(t, 0, res.Structure.NumAtoms())
		assert.True(t, geotree.BoxEmpty(res.Region))
	})

	t.Run("beyond region limit", func(t *testing.T) {
		far, err := geotree.Sphere(r3.Vec{X: 5000}, 3)
		require.NoError(t, err)
		res := fill(t, diamond(far), DefaultFillOptions())
		assert.Equal(t, 0, res.Structure.NumAtoms())
	})

	t.Run("unbounded", func(t *testing.T) {
		h, err := geotree.HalfSpace(r3.Vec{Z: 1}, 0)
		require.NoError(t, err)
		opts := DefaultFillOptions()
		opts.RegionLimit = 6
		res := fill(t, diamond(h), opts)
		assert.Greater(t, res.Structure.NumAtoms(), 0)
		assert.Equal(t, 6.0, res.Region.Max.X)
		res.Structure.Each(func(a *atomic.Atom) {
			assert.LessOrEqual(t, a.Position.Z, DefaultTolerance)
		})
	})

	t.Run("explicit region", func(t *testing.T) {
		opts := DefaultFillOptions()
		opts.Region = &r3.Box{Min: r3.Vec{X: -4, Y: -4, Z: -4}, Max: r3.Vec{X: 4, Y: 4, Z: 4}}
		small := fill(t, diamond(sphere(t, sphereRadius)), opts)
		full := fill(t, diamond(sphere(t, sphereRadius)), DefaultFillOptions())
		assert.Greater(t, small.Structure.NumAtoms(), 0)
		assert.Less(t, small.Structure.NumAtoms(), full.Structure.NumAtoms())
	})
}

func TestFillRejectsBadInput(t *testing.T) {
	solid := sphere(t, 3)

	t.Run("bond to missing site", func(t *testing.T) {
		m := &Motif{
			Sites: []Site{{Z: 6}, {Z: 6, Position: r3.Vec{X: 0.5}}},
			Bonds: []MotifBond{{
				Site1:        SiteSpecifier{SiteIndex: 0},
				Site2:        SiteSpecifier{SiteIndex: 99},
				Multiplicity: 1,
			}},
		}
		res, err := Fill(context.Background(), FillInput{Cell: CubicDiamond(), Motif: m, Geometry: solid}, DefaultFillOptions())
		assert.Nil(t, res)
		var me *MotifError
		require.True(t, errors.As(err, &me))
		assert.Equal(t, 0, me.BondIndex)
	})

	t.Run("planar geometry", func(t *testing.T) {
		c, err := geotree.Circle(r2.Vec{}, 1)
		require.NoError(t, err)
		_, err = Fill(context.Background(), diamond(c), DefaultFillOptions())
		assert.ErrorIs(t, err, geotree.ErrNot3D)
	})

	t.Run("singular cell", func(t *testing.T) {
		in := diamond(solid)
		in.Cell = UnitCell{A: r3.Vec{X: 1}, B: r3.Vec{X: 1}, C: r3.Vec{Z: 1}}
		_, err := Fill(context.Background(), in, DefaultFillOptions())
		assert.ErrorIs(t, err, ErrSingularCell)
	})

	t.Run("nil inputs", func(t *testing.T) {
		_, err := Fill(context.Background(), FillInput{Cell: CubicDiamond(), Motif: ZincblendeMotif()}, DefaultFillOptions())
		assert.Error(t, err)
		_, err = Fill(context.Background(), FillInput{Cell: CubicDiamond(), Geometry: solid}, DefaultFillOptions())
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := Fill(ctx, diamond(solid), DefaultFillOptions())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestFillParameters(t *testing.T) {
	in := diamond(sphere(t, 6))
	in.Parameters = map[string]int{ParamPrimary: 14}
	res := fill(t, in, DefaultFillOptions())

	byZ := map[int]int{}
	res.Tracker.Each(func(addr Address, id int) {
		a := res.Structure.Atom(id)
		if a == nil {
			return
		}
		byZ[a.Z]++
		if addr.Site < SiteInterior1 {
			assert.Equal(t, 14, a.Z)
		} else {
			assert.Equal(t, 6, a.Z)
		}
	})
	assert.Greater(t, byZ[14], 0)
	assert.Greater(t, byZ[6], 0)
}

func TestFillMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	opts := DefaultFillOptions()
	opts.Metrics = NewFillMetrics(reg)
	res := fill(t, diamond(sphere(t, 5)), opts)
	fill(t, diamond(sphere(t, 5)), opts)

	assert.Equal(t, 2.0, testutil.ToFloat64(opts.Metrics.Fills))
	assert.Equal(t, float64(2*res.Stats.Atoms), testutil.ToFloat64(opts.Metrics.AtomsPlaced))
	n, err := testutil.GatherAndCount(reg, "atomfill_lattice_fill_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSurfaceReconstruction(t *testing.T) {
	a := DiamondLatticeConstant
	in := diamond(cube(t, -0.1, 3*a+0.1))

	for _, passivate := range []bool{false, true} {
		opts := DefaultFillOptions()
		opts.SurfaceReconstruction = true
		opts.Passivate = passivate
		res := fill(t, in, opts)
		s := res.Structure
		dimers := res.Stats.SurfaceReconstructions
		require.Greater(t, dimers, 0, "passivate=%v", passivate)

		length := dimerLengthClean
		if passivate {
			length = dimerLengthPassivated
		}
		found := 0
		s.Each(func(at *atomic.Atom) {
			if at.Z != 6 {
				return
			}
			assert.LessOrEqual(t, len(at.Bonds), 4)
			for _, b := range at.Bonds {
				o := s.Atom(b.Other)
				if b.Other > at.ID && o.Z == 6 && math.Abs(r3.Norm(r3.Sub(o.Position, at.Position))-length) < 1e-6 {
					found++
				}
			}
		})
		assert.Equal(t, dimers, found)
	}

	// Inverting the phase pairs the other atoms but still forms dimers.
	opts := DefaultFillOptions()
	opts.SurfaceReconstruction = true
	opts.InvertPhase = true
	res := fill(t, in, opts)
	assert.Greater(t, res.Stats.SurfaceReconstructions, 0)
}

func TestSurfaceReconstructionOnlyForDiamond(t *testing.T) {
	in := diamond(cube(t, -0.1, 2*DiamondLatticeConstant+0.1))
	in.Parameters = map[string]int{ParamPrimary: 14, ParamSecondary: 14}
	opts := DefaultFillOptions()
	opts.SurfaceReconstruction = true
	res := fill(t, in, opts)
	assert.Equal(t, 0, res.Stats.SurfaceReconstructions)

	assert.True(t, isCubicDiamond(ZincblendeMotif(), CubicDiamond(), nil))
	assert.False(t, isCubicDiamond(ZincblendeMotif(), CubicDiamond(), map[string]int{ParamSecondary: 14}))
	stretched := CubicDiamond()
	stretched.A.X = 3.6
	assert.False(t, isCubicDiamond(ZincblendeMotif(), stretched, nil))
}

func TestClassifySurface(t *testing.T) {
	s := atomic.New()
	center := s.AddAtom(6, r3.Vec{})
	b1 := s.AddAtom(6, r3.Vec{X: 0.89, Y: 0.89, Z: 0.89})
	b2 := s.AddAtom(6, r3.Vec{X: 0.89, Y: -0.89, Z: -0.89})
	s.AddBond(center, b1, atomic.BondSingle)
	s.AddBond(center, b2, atomic.BondSingle)
	assert.Equal(t, surfaceNegX, classifySurface(s, s.Atom(center)))

	s.SetDepth(center, 1)
	assert.Equal(t, surfaceBulk, classifySurface(s, s.Atom(center)))

	s.SetDepth(center, 0)
	b3 := s.AddAtom(6, r3.Vec{X: -0.89, Y: 0.89, Z: -0.89})
	s.AddBond(center, b3, atomic.BondSingle)
	assert.Equal(t, surfaceUnknown, classifySurface(s, s.Atom(center)))

	assert.Equal(t, r3.Vec{Y: -1}, surfaceNegY.normal())
	assert.Equal(t, r3.Vec{Z: 1}, surfacePosZ.normal())
}

func TestPassivateGeometric(t *testing.T) {
	t.Run("methane", func(t *testing.T) {
		s := atomic.New()
		c := s.AddAtom(6, r3.Vec{})
		assert.Equal(t, 4, PassivateGeometric(s))
		assert.Len(t, s.Atom(c).Bonds, 4)
		assert.True(t, s.Atom(c).HydrogenPassivated)
		assert.Equal(t, 0, PassivateGeometric(s), "passivated atoms are skipped")
	})

	t.Run("ethane angles", func(t *testing.T) {
		s := atomic.New()
		c1 := s.AddAtom(6, r3.Vec{})
		c2 := s.AddAtom(6, r3.Vec{X: 1.54})
		s.AddBond(c1, c2, atomic.BondSingle)
		assert.Equal(t, 6, PassivateGeometric(s))
		for _, id := range []int{c1, c2} {
			a := s.Atom(id)
			require.Len(t, a.Bonds, 4)
			for i := range a.Bonds {
				for j := i + 1; j < len(a.Bonds); j++ {
					u := r3.Sub(s.Atom(a.Bonds[i].Other).Position, a.Position)
					v := r3.Sub(s.Atom(a.Bonds[j].Other).Position, a.Position)
					angle := math.Acos(r3.Cos(u, v)) * 180 / math.Pi
					assert.InDelta(t, 109.47, angle, 0.1)
				}
			}
		}
	})

	t.Run("double bond counts twice", func(t *testing.T) {
		s := atomic.New()
		c := s.AddAtom(6, r3.Vec{})
		o := s.AddAtom(8, r3.Vec{X: 1.2})
		s.AddBond(c, o, atomic.BondDouble)
		assert.Equal(t, 2, PassivateGeometric(s))
		assert.Len(t, s.Atom(o).Bonds, 1)
	})
}

func TestMissingDirectionsTwoBonds(t *testing.T) {
	b1 := r3.Unit(r3.Vec{X: 1, Y: 1, Z: 1})
	b2 := r3.Unit(r3.Vec{X: 1, Y: -1, Z: -1})
	dirs := missingDirections([]r3.Vec{b1, b2})
	require.Len(t, dirs, 2)
	for _, d := range dirs {
		assert.InDelta(t, 1, r3.Norm(d), 1e-9)
		assert.InDelta(t, -1.0/3, r3.Dot(d, b1), 1e-3)
		assert.InDelta(t, -1.0/3, r3.Dot(d, b2), 1e-3)
	}
}

// onMotifSite reports whether the real position p, shifted back by the
// fractional offset, sits on a motif site of some cell.
func onMotifSite(cell UnitCell, m *Motif, p, offset r3.Vec) bool {
	f := r3.Sub(cell.RealToLattice(p), offset)
	near := func(v float64) bool { return math.Abs(v-math.Round(v)) < 1e-6 }
	for _, s := range m.Sites {
		d := r3.Sub(f, s.Position)
		if near(d.X) && near(d.Y) && near(d.Z) {
			return true
		}
	}
	return false
}

// positionSet keys atoms by position on a 1e-5 Å grid. Diamond sites are
// multiples of a/4, which sit exactly on half-steps of a 1e-4 grid.
func positionSet(s *atomic.Structure) map[[3]int64]int {
	out := make(map[[3]int64]int)
	s.Each(func(a *atomic.Atom) {
		out[[3]int64{
			int64(math.Round(a.Position.X * 1e5)),
			int64(math.Round(a.Position.Y * 1e5)),
			int64(math.Round(a.Position.Z * 1e5)),
		}] = a.Z
	})
	return out
}

func TestFillMotifOffsetIsFractional(t *testing.T) {
	in := diamond(sphere(t, 9))
	base := fill(t, in, DefaultFillOptions())
	want := positionSet(base.Structure)

	tests := []struct {
		name   string
		offset r3.Vec
	}{
		{"whole cell along a", r3.Vec{X: 1}},
		{"whole cell diagonal", r3.Vec{X: -1, Y: 2, Z: 1}},
		{"fcc translation", r3.Vec{X: 0.5, Y: 0.5}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultFillOptions()
			opts.MotifOffset = tc.offset
			res := fill(t, in, opts)
			assert.Equal(t, base.Structure.NumAtoms(), res.Structure.NumAtoms())
			assert.Equal(t, base.Structure.NumBonds(), res.Structure.NumBonds())
			assert.Equal(t, want, positionSet(res.Structure))
		})
	}

	t.Run("half cell shifts every site", func(t *testing.T) {
		offset := r3.Vec{X: 0.5}
		opts := DefaultFillOptions()
		opts.MotifOffset = offset
		res := fill(t, in, opts)
		require.Positive(t, res.Structure.NumAtoms())

		moved := 0
		res.Structure.Each(func(a *atomic.Atom) {
			assert.True(t, onMotifSite(in.Cell, in.Motif, a.Position, offset), "atom %d at %v", a.ID, a.Position)
			shifted := r3.Sub(a.Position, r3.Vec{X: 0.5 * DiamondLatticeConstant})
			assert.True(t, onMotifSite(in.Cell, in.Motif, shifted, r3.Vec{}), "atom %d at %v", a.ID, a.Position)
			if !onMotifSite(in.Cell, in.Motif, a.Position, r3.Vec{}) {
				moved++
			}
		})
		assert.Equal(t, res.Structure.NumAtoms(), moved)
	})
}
