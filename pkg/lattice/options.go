package lattice

import (
	"io"

	"github.com/chazu/atomfill/pkg/atomic"
	"github.com/chazu/atomfill/pkg/evaluator"
	"github.com/chazu/atomfill/pkg/geotree"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// DefaultTolerance is how far outside the surface (Å) a site may lie and
	// still be accepted.
	DefaultTolerance = 0.01

	// DefaultMaxDepth caps the box subdivision depth.
	DefaultMaxDepth = 24

	// DefaultRegionLimit is the half-width (Å) of the cube around the origin
	// that bounds every fill.
	DefaultRegionLimit = 800.0

	// conservativeEpsilon widens every pruning and cell overlap test.
	conservativeEpsilon = 0.001

	// smallestFillBox is the minimum box edge (Å); an axis is split only
	// when it is at least twice this.
	smallestFillBox = 4.9
)

// FillInput is what to fill and with which crystal.
type FillInput struct {
	Cell  UnitCell
	Motif *Motif
	// Parameters overrides motif parameter elements by name.
	Parameters map[string]int
	Geometry   *geotree.Node
}

// FillOptions controls the fill and its post-processing.
type FillOptions struct {
	// Passivate caps dangling motif bonds with hydrogen.
	Passivate bool
	// GeometricPassivation adds hydrogens from atom valence and existing
	// bond directions instead of motif bonds.
	GeometricPassivation bool
	RemoveSingleBonded   bool
	// SurfaceReconstruction forms (100) dimers on cubic diamond.
	SurfaceReconstruction bool
	InvertPhase           bool

	// MotifOffset shifts every motif site, in fractional lattice
	// coordinates: {0.5, 0, 0} moves the motif half a cell along A.
	MotifOffset r3.Vec

	Tolerance   float64
	MaxDepth    int
	Region      *r3.Box
	RegionLimit float64

	Evaluator evaluator.Options
	Logger    logrus.FieldLogger
	Metrics   *FillMetrics
}

// DefaultFillOptions returns options with every numeric field at its default.
func DefaultFillOptions() FillOptions {
	return FillOptions{
		Tolerance:   DefaultTolerance,
		MaxDepth:    DefaultMaxDepth,
		RegionLimit: DefaultRegionLimit,
		Evaluator:   evaluator.DefaultOptions(),
	}
}

func (o FillOptions) normalized() FillOptions {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.RegionLimit <= 0 {
		o.RegionLimit = DefaultRegionLimit
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Logger = l
	}
	return o
}

// FillResult is the outcome of Fill.
type FillResult struct {
	Structure *atomic.Structure
	// Tracker maps lattice addresses to atom ids. Atoms removed during
	// cleanup keep their entries; look them up in Structure to check.
	Tracker *PlacedAtomTracker
	Stats   Statistics
	// Region is the box that was filled. It is empty when nothing could be.
	Region r3.Box
}
