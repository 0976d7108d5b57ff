// Package app wires the script engine, the polygonization kernel and its
// cache, and the lattice fill into the operations the command line exposes.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/chazu/atomfill/pkg/config"
	"github.com/chazu/atomfill/pkg/engine"
	"github.com/chazu/atomfill/pkg/geotree"
	"github.com/chazu/atomfill/pkg/kernel"
	"github.com/chazu/atomfill/pkg/kernel/sdfx"
	"github.com/chazu/atomfill/pkg/lattice"
	"github.com/chazu/atomfill/pkg/meshcache"
	"github.com/chazu/atomfill/pkg/tessellate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// App holds one engine, kernel and cache for the lifetime of a process, so
// that repeated evaluations of the same geometry hit the cache.
type App struct {
	cfg       config.Config
	log       logrus.FieldLogger
	engine    *engine.Engine
	kernel    kernel.Kernel
	cache     *meshcache.Cache
	converter *tessellate.Converter
	cell      lattice.UnitCell
	motif     *lattice.Motif
	params    map[string]int
	metrics   *lattice.FillMetrics
}

// MeshData is the JSON-serializable mesh format.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Hash     string    `json:"hash"`
}

// SketchData is the JSON-serializable outline format.
type SketchData struct {
	Polylines [][]float32 `json:"polylines"`
	Hash      string      `json:"hash"`
}

// EvalErrorData is a JSON-serializable eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the result of Evaluate. A script with no geometry has
// neither a mesh nor a sketch and no errors.
type EvalResult struct {
	Mesh   *MeshData       `json:"mesh,omitempty"`
	Sketch *SketchData     `json:"sketch,omitempty"`
	Errors []EvalErrorData `json:"errors"`
}

// New builds an App from cfg. Metrics are registered with reg when it is
// not nil; log may be nil to discard output.
func New(cfg config.Config, log logrus.FieldLogger, reg prometheus.Registerer) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	cell, err := cfg.UnitCell()
	if err != nil {
		return nil, err
	}
	params, err := cfg.ParameterElements()
	if err != nil {
		return nil, err
	}
	metrics := lattice.NewFillMetrics(reg)

	cache := meshcache.New(cfg.CacheOptions())
	if reg != nil {
		if err := reg.Register(meshcache.NewCollector(cache)); err != nil {
			return nil, fmt.Errorf("app: registering cache metrics: %w", err)
		}
	}
	k := sdfx.NewWithOptions(cfg.KernelOptions())
	conv := tessellate.NewConverter(k, cache)
	conv.Logger = log.WithField("component", "tessellate")

	return &App{
		cfg:       cfg,
		log:       log,
		engine:    engine.NewEngine(),
		kernel:    k,
		cache:     cache,
		converter: conv,
		cell:      cell,
		motif:     lattice.ZincblendeMotif(),
		params:    params,
		metrics:   metrics,
	}, nil
}

// NewDefault returns an App with the default configuration and no logging
// or metrics.
func NewDefault() *App {
	a, err := New(config.Default(), nil, nil)
	if err != nil {
		panic(fmt.Sprintf("app: default configuration is invalid: %v", err))
	}
	return a
}

// CacheStats returns the mesh cache counters.
func (a *App) CacheStats() meshcache.Stats { return a.cache.Stats() }

// Geometry evaluates a script into a geometry tree. Cancelling ctx abandons
// the script.
func (a *App) Geometry(ctx context.Context, source string) (*geotree.Node, []engine.EvalError, error) {
	n, evalErrs, err := a.engine.EvaluateContext(ctx, source)
	if err != nil {
		a.log.WithError(err).Warn("script evaluation failed")
		return nil, nil, err
	}
	for _, e := range evalErrs {
		a.log.WithField("line", e.Line).Debug(e.Message)
	}
	return n, evalErrs, nil
}

func errorData(errs []engine.EvalError) []EvalErrorData {
	out := make([]EvalErrorData, len(errs))
	for i, e := range errs {
		out[i] = EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message}
	}
	return out
}

// Evaluate runs a script and converts its output to a mesh (solids) or a
// sketch (planar shapes). Every failure, cancellation included, is reported
// in Errors.
func (a *App) Evaluate(ctx context.Context, source string) EvalResult {
	result := EvalResult{Errors: []EvalErrorData{}}

	n, evalErrs, err := a.Geometry(ctx, source)
	if err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		result.Errors = append(result.Errors, errorData(evalErrs)...)
		return result
	}
	if n == nil {
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	hash := n.Hash().String()
	if n.Is2D() {
		sk, err := a.converter.Sketch(n)
		if err != nil {
			a.log.WithError(err).Warn("sketch conversion failed")
			result.Errors = append(result.Errors, EvalErrorData{Message: "sketch conversion failed: " + err.Error()})
			return result
		}
		result.Sketch = &SketchData{Polylines: sk.Polylines, Hash: hash}
		return result
	}

	m, err := a.converter.Mesh(n)
	if err != nil {
		a.log.WithError(err).Warn("mesh conversion failed")
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	result.Mesh = &MeshData{Vertices: m.Vertices, Normals: m.Normals, Indices: m.Indices, Hash: hash}
	return result
}

// FillError is returned by Fill when the script itself is at fault.
type FillError struct {
	Errors []engine.EvalError
}

func (e *FillError) Error() string {
	if len(e.Errors) == 1 {
		return "app: script: " + e.Errors[0].Error()
	}
	return fmt.Sprintf("app: script: %d errors, first: %s", len(e.Errors), e.Errors[0].Error())
}

// ErrNoGeometry is returned by Fill when the script outputs nothing.
var ErrNoGeometry = errors.New("app: script produced no geometry")

// FillOptions returns the configured fill options with the App's logger
// and metrics attached.
func (a *App) FillOptions() lattice.FillOptions {
	o := a.cfg.FillOptions()
	o.Logger = a.log.WithField("component", "fill")
	o.Metrics = a.metrics
	return o
}

// Fill evaluates a script and fills its solid with the configured crystal.
func (a *App) Fill(ctx context.Context, source string, opts lattice.FillOptions) (*lattice.FillResult, error) {
	n, evalErrs, err := a.Geometry(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(evalErrs) > 0 {
		return nil, &FillError{Errors: evalErrs}
	}
	if n == nil {
		return nil, ErrNoGeometry
	}
	res, err := lattice.Fill(ctx, lattice.FillInput{
		Cell:       a.cell,
		Motif:      a.motif,
		Parameters: a.params,
		Geometry:   n,
	}, opts)
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{
		"atoms":    res.Structure.NumAtoms(),
		"bonds":    res.Structure.NumBonds(),
		"duration": res.Stats.Duration,
	}).Info("fill complete")
	return res, nil
}
