package sdfx

import (
	"math"

	"github.com/chazu/atomfill/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v2 "github.com/deadsy/sdfx/vec/v2"
)

// squareEdges lists, for each of the 16 corner sign cases, the pairs of cell
// edges the contour crosses. Corners are 0 (x,y), 1 (x+1,y), 2 (x+1,y+1),
// 3 (x,y+1); edges are 0 bottom, 1 right, 2 top, 3 left. The saddle cases 5
// and 10 hold the variant used when the cell centre is outside.
var squareEdges = [16][][2]int{
	{},
	{{3, 0}},
	{{0, 1}},
	{{3, 1}},
	{{1, 2}},
	{{3, 0}, {1, 2}},
	{{0, 2}},
	{{3, 2}},
	{{2, 3}},
	{{0, 2}},
	{{0, 1}, {2, 3}},
	{{1, 2}},
	{{1, 3}},
	{{0, 1}},
	{{3, 0}},
	{},
}

// saddleInside are the saddle segments when the cell centre is inside.
var saddleInside = map[int][][2]int{
	5:  {{0, 1}, {2, 3}},
	10: {{3, 0}, {1, 2}},
}

// marchingSquares samples s on a uniform grid over bb (padded by one cell
// so outlines on the box close) and joins the crossing segments into
// polylines.
func marchingSquares(s sdf.SDF2, bb sdf.Box2, cells int) *kernel.Sketch {
	w, h := bb.Max.X-bb.Min.X, bb.Max.Y-bb.Min.Y
	step := math.Max(w, h) / float64(cells)
	if step <= 0 {
		return &kernel.Sketch{}
	}
	x0, y0 := bb.Min.X-step, bb.Min.Y-step
	nx := int(math.Ceil(w/step)) + 3
	ny := int(math.Ceil(h/step)) + 3

	vals := make([]float64, nx*ny)
	at := func(i, j int) v2.Vec { return v2.Vec{X: x0 + float64(i)*step, Y: y0 + float64(j)*step} }
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			vals[j*nx+i] = s.Evaluate(at(i, j))
		}
	}
	val := func(i, j int) float64 { return vals[j*nx+i] }

	// Edge ids: horizontal (i,j)-(i+1,j) is 2*(j*nx+i), vertical
	// (i,j)-(i,j+1) is 2*(j*nx+i)+1.
	points := make(map[int]v2.Vec)
	crossing := func(id int) v2.Vec {
		if p, ok := points[id]; ok {
			return p
		}
		k := id / 2
		i, j := k%nx, k/nx
		i2, j2 := i+1, j
		if id%2 == 1 {
			i2, j2 = i, j+1
		}
		a, b := val(i, j), val(i2, j2)
		t := a / (a - b)
		pa, pb := at(i, j), at(i2, j2)
		p := v2.Vec{X: pa.X + t*(pb.X-pa.X), Y: pa.Y + t*(pb.Y-pa.Y)}
		points[id] = p
		return p
	}

	var segs [][2]int
	for j := 0; j < ny-1; j++ {
		for i := 0; i < nx-1; i++ {
			c := 0
			if val(i, j) < 0 {
				c |= 1
			}
			if val(i+1, j) < 0 {
				c |= 2
			}
			if val(i+1, j+1) < 0 {
				c |= 4
			}
			if val(i, j+1) < 0 {
				c |= 8
			}
			pairs := squareEdges[c]
			if c == 5 || c == 10 {
				centre := s.Evaluate(v2.Vec{X: x0 + (float64(i)+0.5)*step, Y: y0 + (float64(j)+0.5)*step})
				if centre < 0 {
					pairs = saddleInside[c]
				}
			}
			edge := [4]int{
				2 * (j*nx + i),
				2*(j*nx+i+1) + 1,
				2 * ((j+1)*nx + i),
				2*(j*nx+i) + 1,
			}
			for _, p := range pairs {
				segs = append(segs, [2]int{edge[p[0]], edge[p[1]]})
			}
		}
	}

	sk := &kernel.Sketch{}
	for _, chain := range joinSegments(segs) {
		line := make([]float32, 0, 2*len(chain))
		for _, id := range chain {
			p := crossing(id)
			line = append(line, float32(p.X), float32(p.Y))
		}
		sk.Polylines = append(sk.Polylines, line)
	}
	return sk
}

// joinSegments links segments sharing an edge id into chains. Open chains
// start at an end of degree one; closed loops repeat their first id last.
func joinSegments(segs [][2]int) [][]int {
	adj := make(map[int][]int, 2*len(segs))
	for si, s := range segs {
		adj[s[0]] = append(adj[s[0]], si)
		adj[s[1]] = append(adj[s[1]], si)
	}
	used := make([]bool, len(segs))

	walk := func(start, si int) []int {
		chain := []int{start}
		cur := start
		for si >= 0 && !used[si] {
			used[si] = true
			s := segs[si]
			next := s[0]
			if next == cur {
				next = s[1]
			}
			chain = append(chain, next)
			cur = next
			si = -1
			for _, cand := range adj[cur] {
				if !used[cand] {
					si = cand
					break
				}
			}
		}
		return chain
	}

	var out [][]int
	for si, s := range segs {
		if used[si] {
			continue
		}
		if len(adj[s[0]]) == 1 {
			out = append(out, walk(s[0], si))
		} else if len(adj[s[1]]) == 1 {
			out = append(out, walk(s[1], si))
		}
	}
	for si, s := range segs {
		if !used[si] {
			out = append(out, walk(s[0], si))
		}
	}
	return out
}
