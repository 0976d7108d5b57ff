package geotree

import (
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// String renders the tree as an S-expression in the script syntax accepted
// by the engine package. Shared subtrees are printed once per reference.
func (n *Node) String() string {
	var sb strings.Builder
	n.format(&sb)
	return sb.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func v3(v r3.Vec) string {
	return "(vec3 " + num(v.X) + " " + num(v.Y) + " " + num(v.Z) + ")"
}

func v2(v r2.Vec) string {
	return "(vec2 " + num(v.X) + " " + num(v.Y) + ")"
}

func (n *Node) format(sb *strings.Builder) {
	if n == nil {
		sb.WriteString("nil")
		return
	}
	switch d := n.data.(type) {
	case HalfSpaceData:
		sb.WriteString("(half-space :normal " + v3(d.Normal) + " :offset " + num(d.Offset) + ")")
	case SphereData:
		sb.WriteString("(sphere :center " + v3(d.Center) + " :radius " + num(d.Radius) + ")")
	case CircleData:
		sb.WriteString("(circle :center " + v2(d.Center) + " :radius " + num(d.Radius) + ")")
	case PolygonData:
		sb.WriteString("(polygon")
		for _, v := range d.Vertices {
			sb.WriteString(" " + v2(v))
		}
		sb.WriteString(")")
	case HalfPlaneData:
		sb.WriteString("(half-plane :from " + v2(d.Point1) + " :to " + v2(d.Point2) + ")")
	case BooleanData:
		sb.WriteString("(" + n.kind.String())
		for _, c := range n.children {
			sb.WriteByte(' ')
			c.format(sb)
		}
		sb.WriteString(")")
	case TransformData:
		t := d.Transform
		inner := n.children[0]
		if t.HasRotation() {
			sb.WriteString("(translate (rotate ")
			inner.format(sb)
			sb.WriteString(" :axis " + v3(t.Axis) + " :angle " + num(t.Angle*180/math.Pi) + ") " + v3(t.Translation) + ")")
			return
		}
		sb.WriteString("(translate ")
		inner.format(sb)
		sb.WriteString(" " + v3(t.Translation) + ")")
	case Transform2DData:
		sb.WriteString("(transform-2d ")
		n.children[0].format(sb)
		sb.WriteString(" " + v2(d.Translation) + " " + num(d.Angle) + ")")
	case ExtrudeData:
		sb.WriteString("(extrude ")
		n.children[0].format(sb)
		sb.WriteString(" :height " + num(d.Height))
		if d.Direction != (r3.Vec{Z: 1}) {
			sb.WriteString(" :direction " + v3(d.Direction))
		}
		sb.WriteString(")")
	default:
		sb.WriteString("(unknown)")
	}
}
