// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"
	"math"

	"github.com/chazu/atomfill/pkg/kernel"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

const (
	// DefaultMeshCells controls marching cubes tessellation resolution.
	DefaultMeshCells = 200

	// DefaultSketchCells controls marching squares resolution.
	DefaultSketchCells = 200

	// DefaultWorkingVolume is the edge of the cube (Å), centred on the
	// origin, that unbounded half-spaces and half-planes are clipped to.
	DefaultWorkingVolume = 1200.0
)

// Options configures the kernel. Zero fields take the defaults.
type Options struct {
	MeshCells     int
	SketchCells   int
	WorkingVolume float64
}

func (o Options) normalized() Options {
	if o.MeshCells <= 0 {
		o.MeshCells = DefaultMeshCells
	}
	if o.SketchCells <= 0 {
		o.SketchCells = DefaultSketchCells
	}
	if o.WorkingVolume <= 0 {
		o.WorkingVolume = DefaultWorkingVolume
	}
	return o
}

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// BoundingBox returns the axis-aligned bounding box.
func (s *sdfxSolid) BoundingBox() (min, max [3]float64) {
	bb := s.s.BoundingBox()
	min = [3]float64{bb.Min.X, bb.Min.Y, bb.Min.Z}
	max = [3]float64{bb.Max.X, bb.Max.Y, bb.Max.Z}
	return min, max
}

// sdfxShape wraps an sdf.SDF2 to implement kernel.Shape.
type sdfxShape struct {
	s sdf.SDF2
}

func (s *sdfxShape) BoundingBox() (min, max [2]float64) {
	bb := s.s.BoundingBox()
	return [2]float64{bb.Min.X, bb.Min.Y}, [2]float64{bb.Max.X, bb.Max.Y}
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	opts Options
}

// New returns a new SdfxKernel with default options.
func New() *SdfxKernel {
	return NewWithOptions(Options{})
}

// NewWithOptions returns a kernel with the given resolution and working
// volume.
func NewWithOptions(o Options) *SdfxKernel {
	return &SdfxKernel{opts: o.normalized()}
}

// Options returns the effective options.
func (k *SdfxKernel) Options() Options { return k.opts }

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

func unwrap2(s kernel.Shape) sdf.SDF2 {
	return s.(*sdfxShape).s
}

func wrap2(s sdf.SDF2) kernel.Shape {
	return &sdfxShape{s: s}
}

func vec3(a [3]float64) v3.Vec { return v3.Vec{X: a[0], Y: a[1], Z: a[2]} }
func vec2(a [2]float64) v2.Vec { return v2.Vec{X: a[0], Y: a[1]} }

func (k *SdfxKernel) workingBox3() sdf.Box3 {
	h := k.opts.WorkingVolume / 2
	return sdf.Box3{Min: v3.Vec{X: -h, Y: -h, Z: -h}, Max: v3.Vec{X: h, Y: h, Z: h}}
}

func (k *SdfxKernel) workingBox2() sdf.Box2 {
	h := k.opts.WorkingVolume / 2
	return sdf.Box2{Min: v2.Vec{X: -h, Y: -h}, Max: v2.Vec{X: h, Y: h}}
}

// Sphere creates a ball. sdf.Sphere3D is centred on the origin, so it is
// translated into place.
func (k *SdfxKernel) Sphere(center [3]float64, radius float64) kernel.Solid {
	s, err := sdf.Sphere3D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Sphere3D: %v", err))
	}
	return wrap(sdf.Transform3D(s, sdf.Translate3d(vec3(center))))
}

// HalfSpace creates the solid dot(normal, p) <= offset, bounded by the
// working volume for rendering.
func (k *SdfxKernel) HalfSpace(normal [3]float64, offset float64) kernel.Solid {
	n := vec3(normal)
	l := math.Sqrt(n.X*n.X + n.Y*n.Y + n.Z*n.Z)
	n = v3.Vec{X: n.X / l, Y: n.Y / l, Z: n.Z / l}
	d := offset / l

	// Axis-aligned planes also cut the box, which keeps boxes built from
	// six half-spaces tight.
	bb := k.workingBox3()
	switch {
	case n.X == 1:
		bb.Max.X = math.Min(bb.Max.X, d)
	case n.X == -1:
		bb.Min.X = math.Max(bb.Min.X, -d)
	case n.Y == 1:
		bb.Max.Y = math.Min(bb.Max.Y, d)
	case n.Y == -1:
		bb.Min.Y = math.Max(bb.Min.Y, -d)
	case n.Z == 1:
		bb.Max.Z = math.Min(bb.Max.Z, d)
	case n.Z == -1:
		bb.Min.Z = math.Max(bb.Min.Z, -d)
	}
	return wrap(&halfSpace3{n: n, d: d, bb: bb})
}

// Union returns the union of two solids.
func (k *SdfxKernel) Union(a, b kernel.Solid) kernel.Solid {
	u := sdf.Union3D(unwrap(a), unwrap(b))
	return wrap(&bounded3{SDF3: u, bb: unionBox3(unwrap(a).BoundingBox(), unwrap(b).BoundingBox())})
}

// Difference returns the difference a - b. It never extends past a.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(&bounded3{SDF3: sdf.Difference3D(unwrap(a), unwrap(b)), bb: unwrap(a).BoundingBox()})
}

// Intersection returns the intersection of two solids, bounded by the
// overlap of their boxes so clipped half-spaces do not inflate it.
func (k *SdfxKernel) Intersection(a, b kernel.Solid) kernel.Solid {
	bb := intersectBox3(unwrap(a).BoundingBox(), unwrap(b).BoundingBox())
	return wrap(&bounded3{SDF3: sdf.Intersect3D(unwrap(a), unwrap(b)), bb: bb})
}

// Translate moves a solid by (x, y, z).
func (k *SdfxKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	m := sdf.Translate3d(v3.Vec{X: x, Y: y, Z: z})
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Rotate rotates a solid by angle radians about axis.
func (k *SdfxKernel) Rotate(s kernel.Solid, axis [3]float64, angle float64) kernel.Solid {
	m := sdf.Rotate3d(vec3(axis), angle)
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// Circle creates a disc.
func (k *SdfxKernel) Circle(center [2]float64, radius float64) kernel.Shape {
	s, err := sdf.Circle2D(radius)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Circle2D: %v", err))
	}
	return wrap2(sdf.Transform2D(s, sdf.Translate2d(vec2(center))))
}

// Polygon creates a simple polygon from its vertices.
func (k *SdfxKernel) Polygon(vertices [][2]float64) kernel.Shape {
	vs := make([]v2.Vec, len(vertices))
	for i, v := range vertices {
		vs[i] = vec2(v)
	}
	s, err := sdf.Polygon2D(vs)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Polygon2D: %v", err))
	}
	return wrap2(s)
}

// HalfPlane creates the region left of the directed line from -> to,
// bounded by the working volume.
func (k *SdfxKernel) HalfPlane(from, to [2]float64) kernel.Shape {
	dx, dy := to[0]-from[0], to[1]-from[1]
	l := math.Hypot(dx, dy)
	return wrap2(&halfPlane2{
		p:  vec2(from),
		d:  v2.Vec{X: dx / l, Y: dy / l},
		bb: k.workingBox2(),
	})
}

// Union2 returns the union of two shapes.
func (k *SdfxKernel) Union2(a, b kernel.Shape) kernel.Shape {
	return wrap2(sdf.Union2D(unwrap2(a), unwrap2(b)))
}

// Difference2 returns the difference a - b.
func (k *SdfxKernel) Difference2(a, b kernel.Shape) kernel.Shape {
	return wrap2(sdf.Difference2D(unwrap2(a), unwrap2(b)))
}

// Intersection2 returns the intersection of two shapes.
func (k *SdfxKernel) Intersection2(a, b kernel.Shape) kernel.Shape {
	bb := intersectBox2(unwrap2(a).BoundingBox(), unwrap2(b).BoundingBox())
	return wrap2(&bounded2{SDF2: sdf.Intersect2D(unwrap2(a), unwrap2(b)), bb: bb})
}

// Transform2 rotates a shape by angle radians and then translates it.
func (k *SdfxKernel) Transform2(s kernel.Shape, x, y, angle float64) kernel.Shape {
	m := sdf.Translate2d(v2.Vec{X: x, Y: y}).Mul(sdf.Rotate2d(angle))
	return wrap2(sdf.Transform2D(unwrap2(s), m))
}

// Extrude sweeps a shape from z=0. Straight extrusions use sdf.Extrude3D,
// which is centred on z=0 and therefore shifted up by half its height.
func (k *SdfxKernel) Extrude(s kernel.Shape, height float64, direction [3]float64) kernel.Solid {
	profile := unwrap2(s)
	d := vec3(direction)
	top := height * d.Z
	if d.X == 0 && d.Y == 0 {
		e := sdf.Extrude3D(profile, math.Abs(top))
		return wrap(sdf.Transform3D(e, sdf.Translate3d(v3.Vec{Z: top / 2})))
	}
	return wrap(newShear(profile, height, d))
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)
	if emptyBox3(sdf3.BoundingBox()) {
		return &kernel.Mesh{}, nil
	}

	renderer := render.NewMarchingCubesUniform(k.opts.MeshCells)
	triangles := render.ToTriangles(sdf3, renderer)

	numTri := len(triangles)
	numVerts := numTri * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}

// ToSketch traces the outline of a shape using marching squares.
func (k *SdfxKernel) ToSketch(s kernel.Shape) (*kernel.Sketch, error) {
	sdf2 := unwrap2(s)
	bb := sdf2.BoundingBox()
	if bb.Min.X > bb.Max.X || bb.Min.Y > bb.Max.Y {
		return &kernel.Sketch{}, nil
	}
	return marchingSquares(sdf2, bb, k.opts.SketchCells), nil
}
