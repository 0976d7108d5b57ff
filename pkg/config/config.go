// Package config loads atomfill settings from TOML and converts them to
// the option structs of the core packages.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/chazu/atomfill/pkg/evaluator"
	"github.com/chazu/atomfill/pkg/kernel/sdfx"
	"github.com/chazu/atomfill/pkg/lattice"
	"github.com/chazu/atomfill/pkg/meshcache"
	"github.com/pelletier/go-toml/v2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Config is the whole file. Field names follow the TOML keys.
type Config struct {
	Log       Log       `toml:"log"`
	Evaluator Evaluator `toml:"evaluator"`
	Cache     Cache     `toml:"cache"`
	Mesh      Mesh      `toml:"mesh"`
	Crystal   Crystal   `toml:"crystal"`
	Fill      Fill      `toml:"fill"`
}

type Log struct {
	Level string `toml:"level"`
}

type Evaluator struct {
	BatchSize         int  `toml:"batch_size"`
	ParallelThreshold int  `toml:"parallel_threshold"`
	Workers           int  `toml:"workers"`
	Deterministic     bool `toml:"deterministic"`
}

type Cache struct {
	MeshBudgetBytes   int64 `toml:"mesh_budget_bytes"`
	SketchBudgetBytes int64 `toml:"sketch_budget_bytes"`
}

type Mesh struct {
	Cells         int     `toml:"cells"`
	SketchCells   int     `toml:"sketch_cells"`
	WorkingVolume float64 `toml:"working_volume"`
}

// Crystal is the unit cell by its six lattice parameters (Å, degrees).
type Crystal struct {
	A     float64 `toml:"a"`
	B     float64 `toml:"b"`
	C     float64 `toml:"c"`
	Alpha float64 `toml:"alpha"`
	Beta  float64 `toml:"beta"`
	Gamma float64 `toml:"gamma"`
}

type Fill struct {
	Passivate             bool      `toml:"passivate"`
	GeometricPassivation  bool      `toml:"geometric_passivation"`
	RemoveSingleBonded    bool      `toml:"remove_single_bonded"`
	SurfaceReconstruction bool      `toml:"surface_reconstruction"`
	InvertPhase           bool      `toml:"invert_phase"`
	// MotifOffset is in fractional cell coordinates.
	MotifOffset           []float64 `toml:"motif_offset"`
	Tolerance             float64   `toml:"tolerance"`
	MaxDepth              int       `toml:"max_depth"`
	RegionLimit           float64   `toml:"region_limit"`
	// Parameters maps motif parameter names to element symbols.
	Parameters map[string]string `toml:"parameters"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	a := lattice.DiamondLatticeConstant
	return Config{
		Log: Log{Level: "info"},
		Evaluator: Evaluator{
			BatchSize: evaluator.DefaultBatchSize,
		},
		Cache: Cache{
			MeshBudgetBytes:   meshcache.DefaultMeshBudget,
			SketchBudgetBytes: meshcache.DefaultSketchBudget,
		},
		Mesh: Mesh{
			Cells:         sdfx.DefaultMeshCells,
			SketchCells:   sdfx.DefaultSketchCells,
			WorkingVolume: sdfx.DefaultWorkingVolume,
		},
		Crystal: Crystal{A: a, B: a, C: a, Alpha: 90, Beta: 90, Gamma: 90},
		Fill: Fill{
			Passivate:   true,
			Tolerance:   lattice.DefaultTolerance,
			MaxDepth:    lattice.DefaultMaxDepth,
			RegionLimit: lattice.DefaultRegionLimit,
		},
	}
}

// Load reads a TOML file over the defaults. Keys the file omits keep their
// default values; unknown keys are an error.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var sm *toml.StrictMissingError
		if errors.As(err, &sm) {
			return Config{}, fmt.Errorf("unknown keys:\n%s", sm.String())
		}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			row, col := de.Position()
			return Config{}, fmt.Errorf("line %d column %d: %s", row, col, de.Error())
		}
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values the core packages would otherwise silently
// replace with defaults.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if n := len(c.Fill.MotifOffset); n != 0 && n != 3 {
		return fmt.Errorf("config: fill.motif_offset: need 3 components, got %d", n)
	}
	if c.Evaluator.BatchSize < 0 || c.Evaluator.Workers < 0 || c.Evaluator.ParallelThreshold < 0 {
		return fmt.Errorf("config: evaluator: values must not be negative")
	}
	if c.Cache.MeshBudgetBytes < 0 || c.Cache.SketchBudgetBytes < 0 {
		return fmt.Errorf("config: cache: budgets must not be negative")
	}
	if _, err := c.UnitCell(); err != nil {
		return fmt.Errorf("config: crystal: %w", err)
	}
	if _, err := lattice.ResolveParameterElements(c.Fill.Parameters); err != nil {
		return fmt.Errorf("config: fill.parameters: %w", err)
	}
	return nil
}

// Marshal encodes the configuration as TOML.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return buf.Bytes(), nil
}

// EvaluatorOptions converts the [evaluator] section.
func (c Config) EvaluatorOptions() evaluator.Options {
	return evaluator.Options{
		BatchSize:         c.Evaluator.BatchSize,
		ParallelThreshold: c.Evaluator.ParallelThreshold,
		Workers:           c.Evaluator.Workers,
		Deterministic:     c.Evaluator.Deterministic,
	}
}

// CacheOptions converts the [cache] section.
func (c Config) CacheOptions() meshcache.Options {
	return meshcache.Options{
		MeshBudget:   c.Cache.MeshBudgetBytes,
		SketchBudget: c.Cache.SketchBudgetBytes,
	}
}

// KernelOptions converts the [mesh] section.
func (c Config) KernelOptions() sdfx.Options {
	return sdfx.Options{
		MeshCells:     c.Mesh.Cells,
		SketchCells:   c.Mesh.SketchCells,
		WorkingVolume: c.Mesh.WorkingVolume,
	}
}

// UnitCell builds the cell from the [crystal] section.
func (c Config) UnitCell() (lattice.UnitCell, error) {
	k := c.Crystal
	return lattice.FromParameters(k.A, k.B, k.C, k.Alpha, k.Beta, k.Gamma)
}

// FillOptions converts the [fill] and [evaluator] sections. Logger and
// metrics are left for the caller.
func (c Config) FillOptions() lattice.FillOptions {
	f := c.Fill
	o := lattice.DefaultFillOptions()
	o.Passivate = f.Passivate
	o.GeometricPassivation = f.GeometricPassivation
	o.RemoveSingleBonded = f.RemoveSingleBonded
	o.SurfaceReconstruction = f.SurfaceReconstruction
	o.InvertPhase = f.InvertPhase
	if len(f.MotifOffset) == 3 {
		o.MotifOffset = r3.Vec{X: f.MotifOffset[0], Y: f.MotifOffset[1], Z: f.MotifOffset[2]}
	}
	o.Tolerance = f.Tolerance
	o.MaxDepth = f.MaxDepth
	o.RegionLimit = f.RegionLimit
	o.Evaluator = c.EvaluatorOptions()
	return o
}

// ParameterElements resolves [fill.parameters] to atomic numbers.
func (c Config) ParameterElements() (map[string]int, error) {
	if len(c.Fill.Parameters) == 0 {
		return nil, nil
	}
	return lattice.ResolveParameterElements(c.Fill.Parameters)
}
