package kernel

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// SizeBytes is the memory held by the mesh arrays, used for cache budgets.
func (m *Mesh) SizeBytes() int64 {
	return 4 * int64(len(m.Vertices)+len(m.Normals)+len(m.Indices))
}

// Sketch is the outline of a 2D shape as polylines. Each polyline is a flat
// [x0,y0, x1,y1, ...] list; a closed loop repeats its first point last.
type Sketch struct {
	Polylines [][]float32 `json:"polylines"`
}

// PolylineCount returns the number of polylines.
func (s *Sketch) PolylineCount() int {
	return len(s.Polylines)
}

// PointCount returns the total number of points over all polylines.
func (s *Sketch) PointCount() int {
	n := 0
	for _, p := range s.Polylines {
		n += len(p) / 2
	}
	return n
}

// IsEmpty returns true if the sketch has no outline.
func (s *Sketch) IsEmpty() bool {
	return len(s.Polylines) == 0
}

// SizeBytes is the memory held by the sketch, used for cache budgets.
func (s *Sketch) SizeBytes() int64 {
	n := int64(24 * len(s.Polylines))
	for _, p := range s.Polylines {
		n += 4 * int64(len(p))
	}
	return n
}
