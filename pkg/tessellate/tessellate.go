// Package tessellate walks a geometry tree and rebuilds it with a
// polygonization kernel, producing triangle meshes for solids and outlines
// for planar shapes. The walk is read-only and never mutates the tree.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/atomfill/pkg/geotree"
	"github.com/chazu/atomfill/pkg/kernel"
)

// ErrNilGeometry is returned when asked to convert a nil tree.
var ErrNilGeometry = errors.New("tessellate: nil geometry")

// ToMesh converts the solid n into a triangle mesh using k.
func ToMesh(n *geotree.Node, k kernel.Kernel) (*kernel.Mesh, error) {
	if n == nil {
		return nil, ErrNilGeometry
	}
	if !n.Is3D() {
		return nil, fmt.Errorf("tessellate: mesh of %s: %w", n.Kind(), geotree.ErrNot3D)
	}
	s, err := solid(n, k)
	if err != nil {
		return nil, err
	}
	m, err := k.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed for %s %s: %w", n.Kind(), n.Hash().Short(), err)
	}
	return m, nil
}

// ToSketch converts the planar shape n into polylines using k.
func ToSketch(n *geotree.Node, k kernel.Kernel) (*kernel.Sketch, error) {
	if n == nil {
		return nil, ErrNilGeometry
	}
	if !n.Is2D() {
		return nil, fmt.Errorf("tessellate: sketch of 3D %s", n.Kind())
	}
	s, err := shape(n, k)
	if err != nil {
		return nil, err
	}
	sk, err := k.ToSketch(s)
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToSketch failed for %s %s: %w", n.Kind(), n.Hash().Short(), err)
	}
	return sk, nil
}

func arr3(x, y, z float64) [3]float64 { return [3]float64{x, y, z} }
func arr2(x, y float64) [2]float64    { return [2]float64{x, y} }

// solid rebuilds a 3D subtree as a kernel solid.
func solid(n *geotree.Node, k kernel.Kernel) (kernel.Solid, error) {
	switch d := n.Data().(type) {
	case geotree.HalfSpaceData:
		return k.HalfSpace(arr3(d.Normal.X, d.Normal.Y, d.Normal.Z), d.Offset), nil

	case geotree.SphereData:
		return k.Sphere(arr3(d.Center.X, d.Center.Y, d.Center.Z), d.Radius), nil

	case geotree.BooleanData:
		children := make([]kernel.Solid, len(n.Children()))
		for i, c := range n.Children() {
			s, err := solid(c, k)
			if err != nil {
				return nil, err
			}
			children[i] = s
		}
		acc := children[0]
		for _, s := range children[1:] {
			switch n.Kind() {
			case geotree.KindUnion:
				acc = k.Union(acc, s)
			case geotree.KindIntersection:
				acc = k.Intersection(acc, s)
			case geotree.KindDifference:
				acc = k.Difference(acc, s)
			default:
				return nil, fmt.Errorf("tessellate: unknown boolean kind %v", n.Kind())
			}
		}
		return acc, nil

	case geotree.TransformData:
		s, err := solid(n.Children()[0], k)
		if err != nil {
			return nil, err
		}
		t := d.Transform
		// Rotation first, then translation.
		if t.HasRotation() {
			s = k.Rotate(s, arr3(t.Axis.X, t.Axis.Y, t.Axis.Z), t.Angle)
		}
		if v := t.Translation; v.X != 0 || v.Y != 0 || v.Z != 0 {
			s = k.Translate(s, v.X, v.Y, v.Z)
		}
		return s, nil

	case geotree.ExtrudeData:
		profile, err := shape(n.Children()[0], k)
		if err != nil {
			return nil, err
		}
		return k.Extrude(profile, d.Height, arr3(d.Direction.X, d.Direction.Y, d.Direction.Z)), nil

	default:
		return nil, fmt.Errorf("tessellate: %s node %s is not a solid (data %T)", n.Kind(), n.Hash().Short(), n.Data())
	}
}

// shape rebuilds a 2D subtree as a kernel shape.
func shape(n *geotree.Node, k kernel.Kernel) (kernel.Shape, error) {
	switch d := n.Data().(type) {
	case geotree.CircleData:
		return k.Circle(arr2(d.Center.X, d.Center.Y), d.Radius), nil

	case geotree.PolygonData:
		vs := make([][2]float64, len(d.Vertices))
		for i, v := range d.Vertices {
			vs[i] = arr2(v.X, v.Y)
		}
		return k.Polygon(vs), nil

	case geotree.HalfPlaneData:
		return k.HalfPlane(arr2(d.Point1.X, d.Point1.Y), arr2(d.Point2.X, d.Point2.Y)), nil

	case geotree.BooleanData:
		children := make([]kernel.Shape, len(n.Children()))
		for i, c := range n.Children() {
			s, err := shape(c, k)
			if err != nil {
				return nil, err
			}
			children[i] = s
		}
		acc := children[0]
		for _, s := range children[1:] {
			switch n.Kind() {
			case geotree.KindUnion:
				acc = k.Union2(acc, s)
			case geotree.KindIntersection:
				acc = k.Intersection2(acc, s)
			case geotree.KindDifference:
				acc = k.Difference2(acc, s)
			default:
				return nil, fmt.Errorf("tessellate: unknown boolean kind %v", n.Kind())
			}
		}
		return acc, nil

	case geotree.Transform2DData:
		s, err := shape(n.Children()[0], k)
		if err != nil {
			return nil, err
		}
		return k.Transform2(s, d.Translation.X, d.Translation.Y, d.Angle), nil

	default:
		return nil, fmt.Errorf("tessellate: %s node %s is not a shape (data %T)", n.Kind(), n.Hash().Short(), n.Data())
	}
}
