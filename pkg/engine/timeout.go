package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chazu/atomfill/pkg/geotree"
)

// EvalTimeout is the default hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

var (
	// ErrTimeout is returned when a script runs longer than the engine's
	// timeout.
	ErrTimeout = errors.New("engine: evaluation timed out")

	// ErrSuperseded is returned to a caller whose evaluation finished after
	// a newer one had started on the same Engine.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
)

type evalResult struct {
	node   *geotree.Node
	errors []EvalError
	err    error
}

// begin starts a new generation and returns it with the effective timeout.
func (e *Engine) begin() (uint64, time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = EvalTimeout
	}
	return e.generation, timeout
}

func (e *Engine) stale(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return gen != e.generation
}

// await blocks until the script goroutine reports on ch, the timeout
// expires or the caller's ctx is done. The interpreter cannot be stopped
// from outside, so on timeout or cancellation the goroutine keeps running
// and its result is dropped by the buffered channel.
func (e *Engine) await(ctx context.Context, ch <-chan evalResult, gen uint64, timeout time.Duration) (*geotree.Node, []EvalError, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case res := <-ch:
		if e.stale(gen) {
			return nil, nil, ErrSuperseded
		}
		return res.node, res.errors, res.err

	case <-tctx.Done():
		if err := ctx.Err(); err != nil {
			return nil, nil, fmt.Errorf("engine: evaluation cancelled: %w", err)
		}
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
