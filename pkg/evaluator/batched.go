package evaluator

import (
	"context"
	"fmt"

	"github.com/chazu/atomfill/pkg/geotree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Stats counts the work done by an evaluator over its lifetime.
type Stats struct {
	Points          int // points evaluated, excluding padding
	Batches         int
	PaddedPoints    int
	SerialFlushes   int
	ParallelFlushes int
}

// BatchedEvaluator queues points and evaluates them in batches against a
// fixed solid. It is not safe for concurrent use; Flush itself may use many
// goroutines internally.
type BatchedEvaluator struct {
	node    *geotree.Node
	opts    Options
	pending []r3.Vec
	stats   Stats
}

// New returns an evaluator for the solid n.
func New(n *geotree.Node, opts Options) (*BatchedEvaluator, error) {
	if n == nil {
		return nil, fmt.Errorf("evaluator: nil geometry")
	}
	if !n.Is3D() {
		return nil, fmt.Errorf("evaluator: %w", geotree.ErrNot3D)
	}
	return &BatchedEvaluator{node: n, opts: opts.normalized()}, nil
}

// Options returns the effective options after defaults were applied.
func (e *BatchedEvaluator) Options() Options { return e.opts }

// Add queues p and returns its index in the slice returned by the next Flush.
func (e *BatchedEvaluator) Add(p r3.Vec) int {
	e.pending = append(e.pending, p)
	return len(e.pending) - 1
}

// Len returns the number of queued points.
func (e *BatchedEvaluator) Len() int { return len(e.pending) }

// Stats returns the accumulated counters.
func (e *BatchedEvaluator) Stats() Stats { return e.stats }

// Flush evaluates every queued point and clears the queue. The result has one
// value per Add call since the previous Flush, in submission order. On
// cancellation the queue is still cleared and ctx.Err() is returned.
func (e *BatchedEvaluator) Flush(ctx context.Context) ([]float64, error) {
	points := e.pending
	e.pending = nil
	if len(points) == 0 {
		return nil, nil
	}

	out := make([]float64, len(points))
	nb := (len(points) + e.opts.BatchSize - 1) / e.opts.BatchSize

	var err error
	if e.opts.Workers > 1 && len(points) >= e.opts.ParallelThreshold {
		e.stats.ParallelFlushes++
		err = runPool(ctx, e.opts.Workers, nb, func(b int) {
			e.evalBatch(points, out, b)
		})
	} else {
		e.stats.SerialFlushes++
		for b := 0; b < nb; b++ {
			if err = ctx.Err(); err != nil {
				break
			}
			e.evalBatch(points, out, b)
		}
	}
	if err != nil {
		return nil, err
	}

	e.stats.Points += len(points)
	e.stats.Batches += nb
	if rem := len(points) % e.opts.BatchSize; rem != 0 {
		e.stats.PaddedPoints += e.opts.BatchSize - rem
	}
	return out, nil
}

// evalBatch fills out for batch b. A short final batch is padded to the full
// batch size so every batch has the same shape; padded values are dropped.
func (e *BatchedEvaluator) evalBatch(points []r3.Vec, out []float64, b int) {
	size := e.opts.BatchSize
	lo := b * size
	hi := lo + size
	if hi <= len(points) {
		evaluate(e.node, points[lo:hi], out[lo:hi])
		return
	}
	in := make([]r3.Vec, size)
	copy(in, points[lo:])
	res := make([]float64, size)
	evaluate(e.node, in, res)
	copy(out[lo:], res)
}

func evaluate(n *geotree.Node, in []r3.Vec, out []float64) {
	for i, p := range in {
		out[i] = geotree.Eval3(n, p)
	}
}

// EvaluateAll evaluates n at every point in one flush.
func EvaluateAll(ctx context.Context, n *geotree.Node, points []r3.Vec, opts Options) ([]float64, error) {
	e, err := New(n, opts)
	if err != nil {
		return nil, err
	}
	e.pending = append(e.pending, points...)
	return e.Flush(ctx)
}
