package features

import (
	"github.com/paulmach/orb"

	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/mesh"
	"github.com/NERVsystems/osmterrain/pkg/osm"
)

// BaseHeight is the mean terrain height under a ring's vertices, the
// closing duplicate excluded
func BaseHeight(ring orb.Ring, field elevation.Field) float64 {
	pts := osm.OpenRing(ring)
	if len(pts) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pts {
		sum += field.Sample(p[0], p[1])
	}
	return sum / float64(len(pts))
}

// Polygon builds a flat n-gon at the ring's base height plus lift. A
// non-zero height extrudes it into a prism with a bottom face, a top
// face and one side quad per edge. The top face winds counter-clockwise
// seen from above whatever the input orientation. Rings with fewer than
// three vertices produce nil.
func Polygon(ring orb.Ring, height, lift float64, field elevation.Field) *mesh.Mesh {
	pts := osm.OpenRing(ring)
	if len(pts) < 3 {
		return nil
	}
	pts = counterClockwise(pts)
	n := len(pts)
	base := BaseHeight(ring, field) + lift

	m := &mesh.Mesh{}
	for _, p := range pts {
		m.AddVertex(p[0], p[1], base)
	}

	if height == 0 {
		m.AddFace(seq(0, n)...)
		return m
	}

	for _, p := range pts {
		m.AddVertex(p[0], p[1], base+height)
	}

	bottom := seq(0, n)
	for i, j := 0, n-1; i < j; i, j = i+1, j-1 {
		bottom[i], bottom[j] = bottom[j], bottom[i]
	}
	m.AddFace(bottom...)
	m.AddFace(seq(n, n)...)
	for i := 0; i < n; i++ {
		k := (i + 1) % n
		m.AddFace(i, k, n+k, n+i)
	}
	return m
}

func counterClockwise(pts []orb.Point) []orb.Point {
	ring := make(orb.Ring, len(pts), len(pts)+1)
	copy(ring, pts)
	ring = append(ring, pts[0])
	if ring.Orientation() != orb.CW {
		return pts
	}
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}

func seq(start, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i
	}
	return out
}
