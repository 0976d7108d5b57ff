package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/chazu/atomfill/pkg/config"
	"github.com/chazu/atomfill/pkg/lattice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func readExample(t *testing.T, name string) string {
	t.Helper()
	src, err := os.ReadFile(filepath.Join("..", "..", "examples", name))
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(src)
}

// testApp uses a coarse kernel so mesh tests stay fast.
func testApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Mesh.Cells = 40
	cfg.Mesh.SketchCells = 60
	a, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return a
}

// TestE2EExamples runs every bundled script through the mesh path.
func TestE2EExamples(t *testing.T) {
	app := testApp(t)
	tests := []struct {
		file   string
		sketch bool
	}{
		{"sphere.geo", false},
		{"bearing.geo", false},
		{"slab.geo", false},
		{"outline.geo", true},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			result := app.Evaluate(context.Background(), readExample(t, tt.file))
			if len(result.Errors) > 0 {
				for _, e := range result.Errors {
					t.Errorf("eval error (line %d): %s", e.Line, e.Message)
				}
				t.FailNow()
			}
			if tt.sketch {
				if result.Sketch == nil || len(result.Sketch.Polylines) != 2 {
					t.Fatalf("expected a two-loop sketch, got %+v", result.Sketch)
				}
				return
			}
			if result.Mesh == nil {
				t.Fatal("expected a mesh")
			}
			if len(result.Mesh.Vertices) == 0 || len(result.Mesh.Normals) == 0 || len(result.Mesh.Indices) == 0 {
				t.Error("mesh should have vertices, normals and indices")
			}
			if len(result.Mesh.Hash) != 64 {
				t.Errorf("hash %q should be the full digest", result.Mesh.Hash)
			}
		})
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := testApp(t)
	for _, src := range []string{"", "   \n ", ";; just a comment", "(+ 1 2)"} {
		result := app.Evaluate(context.Background(), src)
		if len(result.Errors) > 0 {
			t.Errorf("unexpected errors for %q: %v", src, result.Errors)
		}
		if result.Mesh != nil || result.Sketch != nil {
			t.Errorf("expected no output for %q", src)
		}
		// JSON should serialize as [] not null.
		if result.Errors == nil {
			t.Error("Errors should be non-nil empty slice, got nil")
		}
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	app := testApp(t)
	result := app.Evaluate(context.Background(), "(+ 1 2)\n(sphere :radius")

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if result.Errors[0].Message == "" {
		t.Error("syntax error should have a non-empty message")
	}
	if result.Mesh != nil {
		t.Error("expected no mesh on error")
	}
}

// TestE2ERepeatedEvaluationHitsCache checks that re-evaluating identical
// geometry reuses the cached mesh, even from a differently written script.
func TestE2ERepeatedEvaluationHitsCache(t *testing.T) {
	app := testApp(t)
	first := app.Evaluate(context.Background(), `(sphere :radius 4)`)
	second := app.Evaluate(context.Background(), "(def r 2)\n(output (sphere :center (vec3 0 0 0) :radius (* r 2)))")
	if len(first.Errors)+len(second.Errors) > 0 {
		t.Fatalf("unexpected errors: %v %v", first.Errors, second.Errors)
	}
	if first.Mesh.Hash != second.Mesh.Hash {
		t.Fatalf("hashes differ: %s vs %s", first.Mesh.Hash, second.Mesh.Hash)
	}
	st := app.CacheStats().Mesh
	if st.Hits != 1 || st.Misses != 1 {
		t.Errorf("cache stats = %+v, want 1 hit and 1 miss", st)
	}
}

// TestE2ERapidEvaluationAlternating alternates valid and invalid sources
// and checks the engine recovers cleanly between them.
func TestE2ERapidEvaluationAlternating(t *testing.T) {
	app := testApp(t)

	sources := []string{
		`(sphere 2)`,
		`(sphere`,
		``,
		`(union (sphere 1) (circle 1))`,
		`(circle 3)`,
		`(undefined-func 1 2 3)`,
		`(box :min (vec3 0 0 0) :max (vec3 1 1 1))`,
	}
	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked on source %q: %v", i, source, r)
				}
			}()
			_ = app.Evaluate(context.Background(), source)
		}()
	}
}

func TestFill(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	app, err := New(config.Default(), nil, reg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	opts := app.FillOptions()
	res, err := app.Fill(context.Background(), `(sphere 6)`, opts)
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	s := res.Structure
	if s.NumAtoms() == 0 {
		t.Fatal("expected atoms")
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("invalid structure: %v", err)
	}
	for _, id := range s.IDs() {
		if n := len(s.Atom(id).Bonds); n == 0 || n > 4 {
			t.Fatalf("atom %d has %d bonds", id, n)
		}
	}
	if got := testutil.ToFloat64(opts.Metrics.Fills); got != 1 {
		t.Errorf("fills_total = %v, want 1", got)
	}
	if n, err := testutil.GatherAndCount(reg, "atomfill_meshcache_hits_total"); err != nil || n != 2 {
		t.Errorf("cache collector series = %d (%v), want 2", n, err)
	}
}

func TestFillParameters(t *testing.T) {
	cfg := config.Default()
	cfg.Fill.Passivate = false
	cfg.Fill.Parameters = map[string]string{lattice.ParamPrimary: "Si", lattice.ParamSecondary: "Si"}
	app, err := New(cfg, nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	res, err := app.Fill(context.Background(), `(sphere 5)`, app.FillOptions())
	if err != nil {
		t.Fatalf("Fill failed: %v", err)
	}
	for _, id := range res.Structure.IDs() {
		if z := res.Structure.Atom(id).Z; z != 14 {
			t.Fatalf("atom %d has Z=%d, want silicon", id, z)
		}
	}
}

func TestFillErrors(t *testing.T) {
	app := testApp(t)
	ctx := context.Background()

	_, err := app.Fill(ctx, ``, app.FillOptions())
	if !errors.Is(err, ErrNoGeometry) {
		t.Errorf("empty script: got %v, want ErrNoGeometry", err)
	}

	_, err = app.Fill(ctx, `(sphere -2)`, app.FillOptions())
	var fe *FillError
	if !errors.As(err, &fe) || len(fe.Errors) == 0 {
		t.Errorf("bad script: got %v, want FillError", err)
	}

	_, err = app.Fill(ctx, `(circle 2)`, app.FillOptions())
	if err == nil {
		t.Error("filling a planar shape should fail")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	if _, err := New(cfg, nil, nil); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestCancellationReachesScriptAndFill(t *testing.T) {
	app := testApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := app.Fill(ctx, `(sphere 6)`, app.FillOptions()); !errors.Is(err, context.Canceled) {
		t.Errorf("Fill: got %v, want context.Canceled", err)
	}
	if _, _, err := app.Geometry(ctx, `(sphere 6)`); !errors.Is(err, context.Canceled) {
		t.Errorf("Geometry: got %v, want context.Canceled", err)
	}
	result := app.Evaluate(ctx, `(sphere 6)`)
	if result.Mesh != nil || len(result.Errors) != 1 {
		t.Errorf("Evaluate: got mesh %v errors %v", result.Mesh != nil, result.Errors)
	}
	if stats := app.CacheStats(); stats.Mesh.Entries != 0 {
		t.Errorf("cancelled evaluation populated the cache: %+v", stats.Mesh)
	}
}
