package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/chazu/atomfill/pkg/atomic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func script(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shape.geo")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestFillCommand(t *testing.T) {
	path := script(t, `(sphere 6)`)
	out := filepath.Join(t.TempDir(), "out.xyz")
	metrics := filepath.Join(t.TempDir(), "metrics.prom")

	_, stderr, err := run(t, "fill", path, "-o", out, "--deterministic", "--param", "PRIMARY=Si", "--metrics-out", metrics)
	require.NoError(t, err)
	assert.Contains(t, stderr, "atoms")
	assert.Contains(t, stderr, "depth cap hits")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	n, err := strconv.Atoi(lines[0])
	require.NoError(t, err)
	assert.Equal(t, n, len(lines)-2)
	assert.Contains(t, string(data), "Si ")
	assert.Contains(t, string(data), "H ", "passivation is on by default")

	prom, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "atomfill_lattice_fills_total 1")
}

func TestFillCommandOutputErrors(t *testing.T) {
	path := script(t, `(sphere 4)`)
	missing := filepath.Join(t.TempDir(), "no-such-dir", "out.xyz")
	_, _, err := run(t, "fill", path, "-o", missing)
	require.Error(t, err)
	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteXYZFile(t *testing.T) {
	s := atomic.New()
	c := s.AddAtom(6, r3.Vec{})
	h := s.AddAtom(1, r3.Vec{X: 1.09})
	s.AddBond(c, h, atomic.BondSingle)

	path := filepath.Join(t.TempDir(), "ch.xyz")
	require.NoError(t, writeXYZFile(path, s, "methyl fragment"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "2", lines[0])
	assert.Equal(t, "methyl fragment", lines[1])
}

func TestFillCommandFlagsOverrideConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "atomfill.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[fill]\npassivate = true\n"), 0o644))

	stdout, _, err := run(t, "--config", cfg, "fill", script(t, `(sphere 5)`), "--passivate=false")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "\nH ")
}

func TestMeshCommand(t *testing.T) {
	path := script(t, `(sphere 3)`)
	stdout, _, err := run(t, "mesh", path, "--repeat", "3")
	require.NoError(t, err)
	assert.Contains(t, stdout, "triangles")
	assert.Contains(t, stdout, "2 hits, 1 misses")

	stdout, _, err = run(t, "mesh", script(t, `(circle 2)`), "--json")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"polylines"`)

	_, _, err = run(t, "mesh", script(t, `(sphere`))
	require.Error(t, err)
}

func TestEvalCommand(t *testing.T) {
	path := script(t, `(sphere :center (vec3 1 0 0) :radius 2)`)
	stdout, _, err := run(t, "eval", path, "4", "0", "0")
	require.NoError(t, err)
	assert.Contains(t, stdout, "distance 1.000000")

	_, _, err = run(t, "eval", path, "x", "0", "0")
	require.Error(t, err)

	_, _, err = run(t, "eval", script(t, `(circle 1)`), "0", "0", "0")
	require.Error(t, err)
}

func TestConfigCommand(t *testing.T) {
	stdout, _, err := run(t, "--log-level", "debug", "config")
	require.NoError(t, err)
	assert.Contains(t, stdout, "level = 'debug'")
	assert.Contains(t, stdout, "[fill]")

	_, _, err = run(t, "--log-level", "loud", "config")
	require.Error(t, err)
}
