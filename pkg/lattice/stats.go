package lattice

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Statistics counts the work done by a fill.
type Statistics struct {
	FillBoxCalls        int
	LeafBoxes           int
	TotalLeafSize       float64 // sum of leaf box volumes, Å³
	MotifCellsProcessed int
	SitesEvaluated      int

	// Atoms and Bonds count additions, hydrogens included.
	Atoms int
	Bonds int

	TotalDepth        float64
	MaxDepth          float64
	MaxRecursionDepth int
	DepthCapHits      int

	NonBatchedEvaluations int
	BatchedEvaluations    int

	SurfaceReconstructions int
	HydrogensAdded         int
	LoneAtomsRemoved       int
	SingleBondedRemoved    int

	Duration time.Duration
}

// AverageDepth is the mean placement depth of lattice atoms.
func (s Statistics) AverageDepth() float64 {
	if s.Atoms-s.HydrogensAdded <= 0 {
		return 0
	}
	return s.TotalDepth / float64(s.Atoms-s.HydrogensAdded)
}

// AverageLeafSize is the mean leaf box volume.
func (s Statistics) AverageLeafSize() float64 {
	if s.LeafBoxes == 0 {
		return 0
	}
	return s.TotalLeafSize / float64(s.LeafBoxes)
}

// Log writes the statistics at debug level.
func (s Statistics) Log(l logrus.FieldLogger) {
	l.WithFields(logrus.Fields{
		"fill_box_calls":      s.FillBoxCalls,
		"leaf_boxes":          s.LeafBoxes,
		"avg_leaf_size":       s.AverageLeafSize(),
		"cells":               s.MotifCellsProcessed,
		"sites":               s.SitesEvaluated,
		"atoms":               s.Atoms,
		"bonds":               s.Bonds,
		"avg_depth":           s.AverageDepth(),
		"max_depth":           s.MaxDepth,
		"max_recursion":       s.MaxRecursionDepth,
		"depth_cap_hits":      s.DepthCapHits,
		"direct_evals":        s.NonBatchedEvaluations,
		"batched_evals":       s.BatchedEvaluations,
		"dimers":              s.SurfaceReconstructions,
		"hydrogens":           s.HydrogensAdded,
		"lone_removed":        s.LoneAtomsRemoved,
		"single_bond_removed": s.SingleBondedRemoved,
		"duration":            s.Duration,
	}).Debug("lattice fill statistics")
}

// FillMetrics exports fill activity to Prometheus.
type FillMetrics struct {
	Fills        prometheus.Counter
	AtomsPlaced  prometheus.Counter
	DepthCapHits prometheus.Counter
	Duration     prometheus.Histogram
}

// NewFillMetrics creates the metrics and registers them with reg when it is
// not nil.
func NewFillMetrics(reg prometheus.Registerer) *FillMetrics {
	m := &FillMetrics{
		Fills: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "atomfill",
			Subsystem: "lattice",
			Name:      "fills_total",
			Help:      "Completed lattice fills.",
		}),
		AtomsPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "atomfill",
			Subsystem: "lattice",
			Name:      "atoms_placed_total",
			Help:      "Atoms added by lattice fills, hydrogens included.",
		}),
		DepthCapHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "atomfill",
			Subsystem: "lattice",
			Name:      "depth_cap_hits_total",
			Help:      "Boxes forced to leaves by the subdivision depth cap.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "atomfill",
			Subsystem: "lattice",
			Name:      "fill_duration_seconds",
			Help:      "Wall time of lattice fills.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Fills, m.AtomsPlaced, m.DepthCapHits, m.Duration)
	}
	return m
}

func (m *FillMetrics) observe(s Statistics) {
	if m == nil {
		return
	}
	m.Fills.Inc()
	m.AtomsPlaced.Add(float64(s.Atoms))
	m.DepthCapHits.Add(float64(s.DepthCapHits))
	m.Duration.Observe(s.Duration.Seconds())
}
