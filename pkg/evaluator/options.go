package evaluator

import "runtime"

const (
	// DefaultBatchSize is the number of points evaluated per batch.
	DefaultBatchSize = 1024

	// MaxWorkers caps the automatic worker count.
	MaxWorkers = 16
)

// Options controls batching and parallelism.
type Options struct {
	// BatchSize is the number of points per batch. Zero means DefaultBatchSize.
	BatchSize int

	// ParallelThreshold is the number of pending points at or above which a
	// flush runs in parallel. Zero means 4 * BatchSize.
	ParallelThreshold int

	// Workers is the size of the worker pool. Zero means runtime.NumCPU(),
	// capped at MaxWorkers. An explicit value is not capped.
	Workers int

	// Deterministic forces single-threaded evaluation.
	Deterministic bool
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{}.normalized()
}

func (o Options) normalized() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.ParallelThreshold <= 0 {
		o.ParallelThreshold = 4 * o.BatchSize
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
		if o.Workers > MaxWorkers {
			o.Workers = MaxWorkers
		}
	}
	if o.Deterministic {
		o.Workers = 1
	}
	return o
}
