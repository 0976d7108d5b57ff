package geotree

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"

	"golang.org/x/crypto/blake2b"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Digest is the content hash of a node. It depends only on the structure and
// parameters of the subtree, never on pointer identity, and is stable across
// process runs.
type Digest [32]byte

// String returns the digest as lowercase hex.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Short returns the first 8 hex characters, for log messages.
func (d Digest) Short() string { return hex.EncodeToString(d[:4]) }

// IsZero reports whether the digest is unset.
func (d Digest) IsZero() bool { return d == Digest{} }

// Variant tags. The 2D and 3D booleans hash differently so a 2D union can
// never collide with a 3D union of children with equal digests.
const (
	tagHalfSpace      byte = 0x01
	tagHalfPlane      byte = 0x02
	tagCircle         byte = 0x03
	tagSphere         byte = 0x04
	tagPolygon        byte = 0x05
	tagExtrude        byte = 0x06
	tagTransform      byte = 0x07
	tagUnion2D        byte = 0x08
	tagUnion3D        byte = 0x09
	tagIntersection2D byte = 0x0A
	tagIntersection3D byte = 0x0B
	tagDifference2D   byte = 0x0C
	tagDifference3D   byte = 0x0D
	tagTransform2D    byte = 0x0E
)

type hashWriter struct {
	h   hash.Hash
	buf [8]byte
}

func (w *hashWriter) tag(b byte) { w.h.Write([]byte{b}) }

func (w *hashWriter) f64(v float64) {
	if v == 0 {
		// -0 and +0 describe the same geometry.
		v = 0
	}
	binary.LittleEndian.PutUint64(w.buf[:], math.Float64bits(v))
	w.h.Write(w.buf[:])
}

func (w *hashWriter) u32(v uint32) {
	binary.LittleEndian.PutUint32(w.buf[:4], v)
	w.h.Write(w.buf[:4])
}

func (w *hashWriter) vec3(v r3.Vec) {
	w.f64(v.X)
	w.f64(v.Y)
	w.f64(v.Z)
}

func (w *hashWriter) vec2(v r2.Vec) {
	w.f64(v.X)
	w.f64(v.Y)
}

func (w *hashWriter) digest(d Digest) { w.h.Write(d[:]) }

func (w *hashWriter) children(cs []*Node) {
	w.u32(uint32(len(cs)))
	for _, c := range cs {
		w.digest(c.hash)
	}
}

func computeHash(n *Node) Digest {
	h, err := blake2b.New256(nil)
	if err != nil {
		// Only possible with an oversized key, and we pass none.
		panic(err)
	}
	w := &hashWriter{h: h}

	switch d := n.data.(type) {
	case HalfSpaceData:
		w.tag(tagHalfSpace)
		w.vec3(d.Normal)
		w.f64(d.Offset)
	case SphereData:
		w.tag(tagSphere)
		w.vec3(d.Center)
		w.f64(d.Radius)
	case CircleData:
		w.tag(tagCircle)
		w.vec2(d.Center)
		w.f64(d.Radius)
	case PolygonData:
		w.tag(tagPolygon)
		w.u32(uint32(len(d.Vertices)))
		for _, v := range d.Vertices {
			w.vec2(v)
		}
	case HalfPlaneData:
		w.tag(tagHalfPlane)
		w.vec2(d.Point1)
		w.vec2(d.Point2)
	case BooleanData:
		w.tag(booleanTag(n.kind, n.dim))
		if n.kind == KindDifference {
			w.digest(n.children[0].hash)
			w.digest(n.children[1].hash)
		} else {
			w.children(n.children)
		}
	case TransformData:
		w.tag(tagTransform)
		w.vec3(d.Transform.Translation)
		w.vec3(d.Transform.Axis)
		w.f64(d.Transform.Angle)
		w.digest(n.children[0].hash)
	case Transform2DData:
		w.tag(tagTransform2D)
		w.vec2(d.Translation)
		w.f64(d.Angle)
		w.digest(n.children[0].hash)
	case ExtrudeData:
		w.tag(tagExtrude)
		w.f64(d.Height)
		w.vec3(d.Direction)
		w.digest(n.children[0].hash)
	}

	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

func booleanTag(k Kind, dim Dim) byte {
	var t byte
	switch k {
	case KindUnion:
		t = tagUnion2D
	case KindIntersection:
		t = tagIntersection2D
	default:
		t = tagDifference2D
	}
	if dim == Dim3 {
		t++
	}
	return t
}
