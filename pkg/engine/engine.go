// Package engine evaluates geometry scripts. It wraps zygomys in a
// sandboxed environment and produces a geometry tree from user source code.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/atomfill/pkg/geotree"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// call to Evaluate creates a fresh sandboxed environment for determinism.
type Engine struct {
	// Timeout bounds one evaluation. Zero means EvalTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a new Engine instance.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs a geometry script and returns the geometry it outputs.
//
// The result is the union of every value passed to (output ...). A script
// that never calls output yields its last value when that is geometry.
//
// Return semantics:
//   - On success: returns geometry (nil if the script produced none) + nil + nil
//   - On parse/eval failure: returns nil + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*geotree.Node, []EvalError, error) {
	return e.EvaluateContext(context.Background(), source)
}

// EvaluateContext is Evaluate bounded by ctx as well as the engine timeout.
// Cancelling ctx returns an error wrapping ctx.Err().
func (e *Engine) EvaluateContext(ctx context.Context, source string) (*geotree.Node, []EvalError, error) {
	gen, timeout := e.begin()
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("engine: evaluation cancelled: %w", err)
	}

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		n, evalErrs, err := e.evaluate(source)
		ch <- evalResult{node: n, errors: evalErrs, err: err}
	}()

	return e.await(ctx, ch, gen, timeout)
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*geotree.Node, []EvalError, error) {
	// Empty source is a valid program that produces no geometry.
	if strings.TrimSpace(source) == "" {
		return nil, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	sc := &script{}
	registerBuiltins(env, sc)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}

	last, err := env.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}

	outputs := sc.outputs
	if len(outputs) == 0 {
		if n, ok := last.(*sexpNode); ok {
			outputs = []*geotree.Node{n.node}
		}
	}
	switch len(outputs) {
	case 0:
		return nil, nil, nil
	case 1:
		return outputs[0], nil, nil
	}
	n, err := geotree.Union(outputs...)
	if err != nil {
		return nil, []EvalError{{Message: fmt.Sprintf("output: %v", err)}}, nil
	}
	return n, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{
				Line:    line,
				Message: strings.TrimSpace(m[2]),
			}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
