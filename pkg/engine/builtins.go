package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/atomfill/pkg/geotree"
	zygo "github.com/glycerine/zygomys/zygo"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms geometry script source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: half-space -> half_space
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only a hyphen between identifier characters is kebab case; anything
		// else is the minus operator or a negative number.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNode wraps a geometry node so it can be passed between builtins.
type sexpNode struct {
	node *geotree.Node
}

func (n *sexpNode) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %s)", n.node.Kind(), n.node.Hash().Short())
}
func (n *sexpNode) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps an r3.Vec.
type sexpVec3 struct {
	vec r3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpVec2 wraps an r2.Vec.
type sexpVec2 struct {
	vec r2.Vec
}

func (v *sexpVec2) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec2 %g %g)", v.vec.X, v.vec.Y)
}
func (v *sexpVec2) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// float returns the keyword value, the first positional argument when pos
// is set, or def.
func (a kwArgs) float(key string, pos int, def float64, required bool) (float64, error) {
	v, ok := a.kw[key]
	if !ok && pos >= 0 && pos < len(a.positional) {
		v, ok = a.positional[pos], true
	}
	if !ok {
		if required {
			return 0, fmt.Errorf("%s: required", key)
		}
		return def, nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts an r3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return r3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toVec2 extracts an r2.Vec from a sexpVec2.
func toVec2(s zygo.Sexp) (r2.Vec, error) {
	if v, ok := s.(*sexpVec2); ok {
		return v.vec, nil
	}
	return r2.Vec{}, fmt.Errorf("expected vec2, got %T (%s)", s, s.SexpString(nil))
}

// toNode extracts a geometry node from a sexpNode.
func toNode(s zygo.Sexp) (*geotree.Node, error) {
	if n, ok := s.(*sexpNode); ok {
		return n.node, nil
	}
	return nil, fmt.Errorf("expected geometry, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// nodes converts every argument to a geometry node.
func nodes(args []zygo.Sexp) ([]*geotree.Node, error) {
	out := make([]*geotree.Node, len(args))
	for i, a := range args {
		n, err := toNode(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = n
	}
	return out, nil
}

func degrees(d float64) float64 { return d * math.Pi / 180 }

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// script collects the values passed to output during one evaluation.
type script struct {
	outputs []*geotree.Node
}

type builtin func(pa kwArgs, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the geometry builtins into a zygomys environment.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, sc *script) {
	add := func(name string, fn builtin) {
		// Scripts spell names in kebab case; errors should too.
		display := strings.ReplaceAll(name, "_", "-")
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			out, err := fn(parseArgs(args), args)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", display, err)
			}
			return out, nil
		})
	}
	wrap := func(n *geotree.Node, err error) (zygo.Sexp, error) {
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpNode{node: n}, nil
	}

	// -----------------------------------------------------------------------
	// (vec3 1 2 3) and (vec2 1 2)
	// -----------------------------------------------------------------------
	add("vec3", func(_ kwArgs, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: r3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	add("vec2", func(_ kwArgs, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("requires exactly 2 arguments, got %d", len(args))
		}
		x, err := toFloat64(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("x: %w", err)
		}
		y, err := toFloat64(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("y: %w", err)
		}
		return &sexpVec2{vec: r2.Vec{X: x, Y: y}}, nil
	})

	// -----------------------------------------------------------------------
	// (sphere :center (vec3 0 0 0) :radius 5), or (sphere 5)
	// -----------------------------------------------------------------------
	add("sphere", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		var center r3.Vec
		if v, ok := pa.kw["center"]; ok {
			c, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("center: %w", err)
			}
			center = c
		}
		r, err := pa.float("radius", 0, 0, true)
		if err != nil {
			return zygo.SexpNull, err
		}
		return wrap(geotree.Sphere(center, r))
	})

	// -----------------------------------------------------------------------
	// (half-space :normal (vec3 0 0 1) :offset 2)
	// (half-space :normal (vec3 0 0 1) :through (vec3 0 0 2))
	// -----------------------------------------------------------------------
	add("half_space", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		v, ok := pa.kw["normal"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("normal: required")
		}
		normal, err := toVec3(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("normal: %w", err)
		}
		if v, ok := pa.kw["through"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("through: %w", err)
			}
			return wrap(geotree.HalfSpaceThrough(normal, p))
		}
		offset, err := pa.float("offset", -1, 0, false)
		if err != nil {
			return zygo.SexpNull, err
		}
		return wrap(geotree.HalfSpace(normal, offset))
	})

	// -----------------------------------------------------------------------
	// (box :min (vec3 0 0 0) :max (vec3 1 2 3)), the intersection of six
	// half-spaces.
	// -----------------------------------------------------------------------
	add("box", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		var corners [2]r3.Vec
		for i, key := range []string{"min", "max"} {
			v, ok := pa.kw[key]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("%s: required", key)
			}
			c, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", key, err)
			}
			corners[i] = c
		}
		lo, hi := corners[0], corners[1]
		if lo.X >= hi.X || lo.Y >= hi.Y || lo.Z >= hi.Z {
			return zygo.SexpNull, fmt.Errorf("min must be below max on every axis")
		}
		faces := []struct {
			normal r3.Vec
			offset float64
		}{
			{r3.Vec{X: 1}, hi.X}, {r3.Vec{X: -1}, -lo.X},
			{r3.Vec{Y: 1}, hi.Y}, {r3.Vec{Y: -1}, -lo.Y},
			{r3.Vec{Z: 1}, hi.Z}, {r3.Vec{Z: -1}, -lo.Z},
		}
		hs := make([]*geotree.Node, len(faces))
		for i, f := range faces {
			h, err := geotree.HalfSpace(f.normal, f.offset)
			if err != nil {
				return zygo.SexpNull, err
			}
			hs[i] = h
		}
		return wrap(geotree.Intersection(hs...))
	})

	// -----------------------------------------------------------------------
	// (circle :center (vec2 0 0) :radius 3), or (circle 3)
	// -----------------------------------------------------------------------
	add("circle", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		var center r2.Vec
		if v, ok := pa.kw["center"]; ok {
			c, err := toVec2(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("center: %w", err)
			}
			center = c
		}
		r, err := pa.float("radius", 0, 0, true)
		if err != nil {
			return zygo.SexpNull, err
		}
		return wrap(geotree.Circle(center, r))
	})

	// -----------------------------------------------------------------------
	// (polygon (vec2 0 0) (vec2 1 0) (vec2 0 1)), or (polygon (list ...))
	// -----------------------------------------------------------------------
	add("polygon", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		items := pa.positional
		if len(items) == 1 {
			if l, err := sexpListToSlice(items[0]); err == nil {
				items = l
			}
		}
		vs := make([]r2.Vec, len(items))
		for i, it := range items {
			v, err := toVec2(it)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vertex %d: %w", i, err)
			}
			vs[i] = v
		}
		return wrap(geotree.Polygon(vs))
	})

	// -----------------------------------------------------------------------
	// (half-plane :from (vec2 0 0) :to (vec2 1 0)); inside is on the left.
	// -----------------------------------------------------------------------
	add("half_plane", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		var ends [2]r2.Vec
		for i, key := range []string{"from", "to"} {
			v, ok := pa.kw[key]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("%s: required", key)
			}
			p, err := toVec2(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", key, err)
			}
			ends[i] = p
		}
		return wrap(geotree.HalfPlane(ends[0], ends[1]))
	})

	// -----------------------------------------------------------------------
	// (union a b ...), (intersection a b ...), (difference a b)
	// -----------------------------------------------------------------------
	add("union", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		ns, err := nodes(pa.positional)
		if err != nil {
			return zygo.SexpNull, err
		}
		return wrap(geotree.Union(ns...))
	})

	add("intersection", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		ns, err := nodes(pa.positional)
		if err != nil {
			return zygo.SexpNull, err
		}
		return wrap(geotree.Intersection(ns...))
	})

	add("difference", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("requires a base and a subtrahend, got %d arguments", len(pa.positional))
		}
		ns, err := nodes(pa.positional)
		if err != nil {
			return zygo.SexpNull, err
		}
		return wrap(geotree.Difference(ns[0], ns[1]))
	})

	// -----------------------------------------------------------------------
	// (translate x (vec3 1 2 3)) for solids, (translate s (vec2 1 2)) for
	// shapes.
	// -----------------------------------------------------------------------
	add("translate", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		if len(pa.positional) != 2 {
			return zygo.SexpNull, fmt.Errorf("requires geometry and an offset")
		}
		n, err := toNode(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		if n.Is2D() {
			v, err := toVec2(pa.positional[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("offset: %w", err)
			}
			return wrap(geotree.Transform2D(n, v, 0))
		}
		v, err := toVec3(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("offset: %w", err)
		}
		return wrap(geotree.Transform(n, geotree.Translation(v)))
	})

	// -----------------------------------------------------------------------
	// (rotate x :axis (vec3 0 0 1) :angle 90); angles are in degrees and
	// shapes ignore the axis.
	// -----------------------------------------------------------------------
	add("rotate", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("requires exactly one geometry argument")
		}
		n, err := toNode(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		angle, err := pa.float("angle", -1, 0, true)
		if err != nil {
			return zygo.SexpNull, err
		}
		if n.Is2D() {
			return wrap(geotree.Transform2D(n, r2.Vec{}, degrees(angle)))
		}
		axis := r3.Vec{Z: 1}
		if v, ok := pa.kw["axis"]; ok {
			if axis, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("axis: %w", err)
			}
		}
		return wrap(geotree.Transform(n, geotree.Rotation(axis, degrees(angle))))
	})

	// -----------------------------------------------------------------------
	// (extrude shape :height 4 :direction (vec3 0 0 1))
	// -----------------------------------------------------------------------
	add("extrude", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("requires a shape")
		}
		n, err := toNode(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, err
		}
		h, err := pa.float("height", 1, 0, true)
		if err != nil {
			return zygo.SexpNull, err
		}
		if v, ok := pa.kw["direction"]; ok {
			dir, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("direction: %w", err)
			}
			return wrap(geotree.ExtrudeAlong(n, h, dir))
		}
		return wrap(geotree.Extrude(n, h))
	})

	// -----------------------------------------------------------------------
	// (output x ...) marks the geometry the script produces.
	// -----------------------------------------------------------------------
	add("output", func(pa kwArgs, _ []zygo.Sexp) (zygo.Sexp, error) {
		ns, err := nodes(pa.positional)
		if err != nil {
			return zygo.SexpNull, err
		}
		if len(ns) == 0 {
			return zygo.SexpNull, fmt.Errorf("requires at least one geometry argument")
		}
		sc.outputs = append(sc.outputs, ns...)
		return pa.positional[len(pa.positional)-1], nil
	})
}
