package features

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/NERVsystems/osmterrain/pkg/mesh"
	"github.com/NERVsystems/osmterrain/pkg/osm"
)

// NearestSegment finds the segment of a polyline closest to p. It
// returns the segment index, the segment's unit tangent and the squared
// distance from p to its clamped projection on the segment. Lines with
// fewer than two points report ok=false.
func NearestSegment(p orb.Point, line orb.LineString) (index int, tangent orb.Point, dist2 float64, ok bool) {
	dist2 = math.Inf(1)
	tangent = orb.Point{1, 0}
	for i := 0; i < len(line)-1; i++ {
		a, b := line[i], line[i+1]
		vx, vy := b[0]-a[0], b[1]-a[1]
		wx, wy := p[0]-a[0], p[1]-a[1]
		l2 := vx*vx + vy*vy
		if l2 == 0 {
			l2 = 1e-9
		}
		t := math.Max(0, math.Min(1, (wx*vx+wy*vy)/l2))
		dx, dy := p[0]-(a[0]+t*vx), p[1]-(a[1]+t*vy)
		if d2 := dx*dx + dy*dy; d2 < dist2 {
			dist2, index, ok = d2, i, true
			l := math.Sqrt(l2)
			tangent = orb.Point{vx / l, vy / l}
		}
	}
	return index, tangent, dist2, ok
}

// Match is the road a crossing node snaps to
type Match struct {
	Road    *osm.Line
	Segment int
	Tangent orb.Point
	Dist2   float64
}

// NearestRoad returns the road whose nearest segment is closest to p.
// The first road wins ties.
func NearestRoad(p orb.Point, roads []osm.Line) (Match, bool) {
	var best Match
	found := false
	for i := range roads {
		idx, tan, d2, ok := NearestSegment(p, roads[i].Points)
		if !ok {
			continue
		}
		if !found || d2 < best.Dist2 {
			best = Match{Road: &roads[i], Segment: idx, Tangent: tan, Dist2: d2}
			found = true
		}
	}
	return best, found
}

// Crosswalk lays stripes across a road at center. Stripes run
// perpendicular to the road tangent, are spaced stripe+gap apart along
// it, and together span about opts.Depth centred on the crossing. Each
// stripe covers the road width less the edge margin on both sides. All
// stripes are flat at z, one quad each.
func Crosswalk(center, tangent orb.Point, roadWidth, z float64, opts CrosswalkOptions) *mesh.Mesh {
	tx, ty := tangent[0], tangent[1]
	nx, ny := -ty, tx

	across := roadWidth * (1 - 2*opts.Margin)
	step := opts.Stripe + opts.Gap
	n := 1
	if step > 0 {
		n = max(1, int(math.Floor(opts.Depth/step)))
	}
	start := -(float64(n)*step - opts.Gap) / 2

	halfAcross, halfAlong := across/2, opts.Stripe/2
	corners := [4][2]float64{
		{+halfAlong, +halfAcross},
		{-halfAlong, +halfAcross},
		{-halfAlong, -halfAcross},
		{+halfAlong, -halfAcross},
	}

	m := &mesh.Mesh{}
	for k := 0; k < n; k++ {
		along := start + float64(k)*step + halfAlong
		cx, cy := center[0]+tx*along, center[1]+ty*along

		var face [4]int
		for c, off := range corners {
			face[c] = m.AddVertex(cx+tx*off[0]+nx*off[1], cy+ty*off[0]+ny*off[1], z)
		}
		m.AddFace(face[:]...)
	}
	return m
}
