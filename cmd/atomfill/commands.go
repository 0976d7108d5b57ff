package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chazu/atomfill/pkg/app"
	"github.com/chazu/atomfill/pkg/atomic"
	"github.com/chazu/atomfill/pkg/config"
	"github.com/chazu/atomfill/pkg/geotree"
	"github.com/chazu/atomfill/pkg/lattice"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/spatial/r3"
)

func newFillCmd(e *env) *cobra.Command {
	var (
		out           string
		params        map[string]string
		deterministic bool
		workers       int
	)
	// Flag variables start from the defaults; only flags the user sets are
	// copied over the configuration.
	f := config.Default().Fill
	cmd := &cobra.Command{
		Use:   "fill <script>",
		Short: "fill the script's solid with atoms and write XYZ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			set := func(name string, dst *bool, v bool) {
				if flags.Changed(name) {
					*dst = v
				}
			}
			set("passivate", &e.cfg.Fill.Passivate, f.Passivate)
			set("geometric-passivation", &e.cfg.Fill.GeometricPassivation, f.GeometricPassivation)
			set("remove-single-bonded", &e.cfg.Fill.RemoveSingleBonded, f.RemoveSingleBonded)
			set("reconstruct", &e.cfg.Fill.SurfaceReconstruction, f.SurfaceReconstruction)
			set("invert-phase", &e.cfg.Fill.InvertPhase, f.InvertPhase)
			set("deterministic", &e.cfg.Evaluator.Deterministic, deterministic)
			if flags.Changed("workers") {
				e.cfg.Evaluator.Workers = workers
			}
			if len(params) > 0 {
				e.cfg.Fill.Parameters = lo.Assign(e.cfg.Fill.Parameters, params)
			}

			src, err := readScript(args[0])
			if err != nil {
				return err
			}
			a, err := e.app()
			if err != nil {
				return err
			}
			res, err := a.Fill(cmd.Context(), src, a.FillOptions())
			if err != nil {
				return err
			}
			res.Stats.Log(e.log)

			comment := fmt.Sprintf("atomfill %s: %d atoms, %d bonds", filepath.Base(args[0]), res.Structure.NumAtoms(), res.Structure.NumBonds())
			if out == "" {
				err = atomic.WriteXYZ(cmd.OutOrStdout(), res.Structure, comment)
			} else {
				err = writeXYZFile(out, res.Structure, comment)
			}
			if err != nil {
				return err
			}
			printStats(cmd.ErrOrStderr(), res.Stats)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&out, "output", "o", "", "XYZ output file (default stdout)")
	fl.BoolVar(&f.Passivate, "passivate", f.Passivate, "cap dangling motif bonds with hydrogen")
	fl.BoolVar(&f.GeometricPassivation, "geometric-passivation", f.GeometricPassivation, "add hydrogens from valence and bond directions")
	fl.BoolVar(&f.RemoveSingleBonded, "remove-single-bonded", f.RemoveSingleBonded, "remove atoms with a single bond, recursively")
	fl.BoolVar(&f.SurfaceReconstruction, "reconstruct", f.SurfaceReconstruction, "form (100) surface dimers on cubic diamond")
	fl.BoolVar(&f.InvertPhase, "invert-phase", f.InvertPhase, "use the other dimer row phase")
	fl.StringToStringVar(&params, "param", nil, "motif parameter element, e.g. --param PRIMARY=Si")
	fl.BoolVar(&deterministic, "deterministic", false, "evaluate on a single goroutine")
	fl.IntVar(&workers, "workers", 0, "evaluation workers (0 = number of CPUs)")
	return cmd
}

// writeXYZFile writes s to path. A failed close is reported, since it can
// mean the file was truncated.
func writeXYZFile(path string, s *atomic.Structure, comment string) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := atomic.WriteXYZ(fh, s, comment); err != nil {
		fh.Close()
		return err
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

func printStats(w io.Writer, s lattice.Statistics) {
	rows := []struct {
		name  string
		value string
	}{
		{"atoms", strconv.Itoa(s.Atoms)},
		{"bonds", strconv.Itoa(s.Bonds)},
		{"hydrogens", strconv.Itoa(s.HydrogensAdded)},
		{"leaf boxes", strconv.Itoa(s.LeafBoxes)},
		{"depth cap hits", strconv.Itoa(s.DepthCapHits)},
		{"average depth (Å)", strconv.FormatFloat(s.AverageDepth(), 'f', 3, 64)},
		{"duration", s.Duration.String()},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-18s %s\n", r.name, r.value)
	}
}

func newMeshCmd(e *env) *cobra.Command {
	var (
		asJSON bool
		repeat int
	)
	cmd := &cobra.Command{
		Use:   "mesh <script>",
		Short: "mesh the script's geometry and print statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readScript(args[0])
			if err != nil {
				return err
			}
			a, err := e.app()
			if err != nil {
				return err
			}
			var res app.EvalResult
			for i := 0; i < max(repeat, 1); i++ {
				res = a.Evaluate(cmd.Context(), src)
			}
			if len(res.Errors) > 0 {
				msgs := lo.Map(res.Errors, func(e app.EvalErrorData, _ int) string {
					if e.Line > 0 {
						return fmt.Sprintf("line %d: %s", e.Line, e.Message)
					}
					return e.Message
				})
				return fmt.Errorf("%s", strings.Join(msgs, "\n"))
			}
			a.CacheStats().Log(e.log)

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				return enc.Encode(res)
			}
			switch {
			case res.Mesh != nil:
				fmt.Fprintf(w, "hash      %s\nvertices  %d\ntriangles %d\n",
					res.Mesh.Hash[:8], len(res.Mesh.Vertices)/3, len(res.Mesh.Indices)/3)
			case res.Sketch != nil:
				points := lo.SumBy(res.Sketch.Polylines, func(p []float32) int { return len(p) / 2 })
				fmt.Fprintf(w, "hash      %s\npolylines %d\npoints    %d\n",
					res.Sketch.Hash[:8], len(res.Sketch.Polylines), points)
			default:
				fmt.Fprintln(w, "no geometry")
			}
			st := a.CacheStats()
			fmt.Fprintf(w, "cache     %d hits, %d misses\n", st.Mesh.Hits+st.Sketch.Hits, st.Mesh.Misses+st.Sketch.Misses)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the mesh as JSON")
	cmd.Flags().IntVar(&repeat, "repeat", 1, "evaluate this many times (exercises the cache)")
	return cmd
}

func newEvalCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "eval <script> <x> <y> <z>",
		Short: "print the signed distance and normal at a point",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c [3]float64
			for i, s := range args[1:] {
				v, err := strconv.ParseFloat(s, 64)
				if err != nil {
					return fmt.Errorf("coordinate %q: %w", s, err)
				}
				c[i] = v
			}
			src, err := readScript(args[0])
			if err != nil {
				return err
			}
			a, err := e.app()
			if err != nil {
				return err
			}
			n, evalErrs, err := a.Geometry(cmd.Context(), src)
			if err != nil {
				return err
			}
			if len(evalErrs) > 0 {
				return evalErrs[0]
			}
			if n == nil {
				return app.ErrNoGeometry
			}
			if !n.Is3D() {
				return fmt.Errorf("eval: %w", geotree.ErrNot3D)
			}
			p := r3.Vec{X: c[0], Y: c[1], Z: c[2]}
			d := geotree.Eval3(n, p)
			g := geotree.Normal3(n, p)
			fmt.Fprintf(cmd.OutOrStdout(), "distance %.6f\nnormal   %.6f %.6f %.6f\n", d, g.X, g.Y, g.Z)
			return nil
		},
	}
}

func newConfigCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration as TOML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := e.cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
