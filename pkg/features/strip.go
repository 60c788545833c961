package features

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/mesh"
)

// Normals returns the unit left-hand normal at each polyline vertex.
// Interior vertices use the direction from the previous to the next
// vertex; endpoints use their single adjacent segment. A zero-length
// direction is treated as length 1, which yields a zero normal.
func Normals(pts []orb.Point) []orb.Point {
	n := len(pts)
	out := make([]orb.Point, n)
	for i := range pts {
		a, b := pts[i], pts[i]
		if i > 0 {
			a = pts[i-1]
		}
		if i < n-1 {
			b = pts[i+1]
		}
		dx, dy := b[0]-a[0], b[1]-a[1]
		l := math.Hypot(dx, dy)
		if l == 0 {
			l = 1
		}
		out[i] = orb.Point{-dy / l, dx / l}
	}
	return out
}

// Strip extrudes a centreline sideways into a ribbon that follows the
// terrain. Both edge vertices of a station share the centre height
// field.Sample(centre) + zExtra. One quad is emitted per segment. A
// half-width of 0 yields coincident chains. Lines with fewer than two
// points produce nil.
func Strip(line orb.LineString, halfWidth, zExtra float64, field elevation.Field) *mesh.Mesh {
	if len(line) < 2 {
		return nil
	}
	norms := Normals(line)
	n := len(line)

	m := &mesh.Mesh{
		Vertices: make([]mesh.Vec3, 2*n),
		Faces:    make([][]int, 0, n-1),
	}
	for i, p := range line {
		z := field.Sample(p[0], p[1]) + zExtra
		nx, ny := norms[i][0]*halfWidth, norms[i][1]*halfWidth
		m.Vertices[i] = mesh.Vec3{X: p[0] + nx, Y: p[1] + ny, Z: z}
		m.Vertices[n+i] = mesh.Vec3{X: p[0] - nx, Y: p[1] - ny, Z: z}
	}
	for i := 0; i < n-1; i++ {
		m.AddFace(i, i+1, n+i+1, n+i)
	}
	return m
}
