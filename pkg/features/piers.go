package features

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/mesh"
)

// pierSegments is the number of sides of a pier cylinder
const pierSegments = 16

// Station is a point at a fixed arc length along a polyline
type Station struct {
	Point   orb.Point
	Segment int     // index of the segment holding the point
	T       float64 // fraction along that segment
}

// SamplePolylineEvery walks a polyline and emits a station every step
// meters of arc length, not counting the start. Distance carries over
// across vertices.
func SamplePolylineEvery(line orb.LineString, step float64) []Station {
	if len(line) < 2 || !(step > 0) {
		return nil
	}
	var out []Station
	acc := 0.0
	for i := 0; i < len(line)-1; i++ {
		a, b := line[i], line[i+1]
		seg := math.Hypot(b[0]-a[0], b[1]-a[1])
		t := 0.0
		for seg > 0 && acc+(seg-t) >= step {
			t += step - acc
			tt := t / seg
			out = append(out, Station{
				Point:   orb.Point{a[0] + (b[0]-a[0])*tt, a[1] + (b[1]-a[1])*tt},
				Segment: i,
				T:       tt,
			})
			acc = 0
		}
		acc += seg - t
	}
	return out
}

// Piers places a cylinder under a bridge deck every spacing meters
// (never closer than MinPierSpacing). Ground and deck heights are
// interpolated between the centreline vertex samples; the deck adds
// zExtra. Piers are at least MinPierHeight tall.
func Piers(line orb.LineString, zExtra, spacing, radius float64, field elevation.Field) *mesh.Mesh {
	stations := SamplePolylineEvery(line, math.Max(MinPierSpacing, spacing))
	if len(stations) == 0 {
		return nil
	}

	m := &mesh.Mesh{}
	for _, s := range stations {
		a, b := line[s.Segment], line[s.Segment+1]
		za, zb := field.Sample(a[0], a[1]), field.Sample(b[0], b[1])
		ground := za + (zb-za)*s.T
		deck := ground + zExtra
		m.Append(Cylinder(s.Point, ground, math.Max(MinPierHeight, deck-ground), radius, pierSegments))
	}
	return m
}

// Cylinder builds a closed vertical cylinder standing on (center, base)
func Cylinder(center orb.Point, base, height, radius float64, sides int) *mesh.Mesh {
	sides = max(sides, 3)
	m := &mesh.Mesh{}
	for i := 0; i < sides; i++ {
		a := 2 * math.Pi * float64(i) / float64(sides)
		x, y := center[0]+radius*math.Cos(a), center[1]+radius*math.Sin(a)
		m.AddVertex(x, y, base)
		m.AddVertex(x, y, base+height)
	}

	bottom := make([]int, sides)
	top := make([]int, sides)
	for i := 0; i < sides; i++ {
		bottom[sides-1-i] = 2 * i
		top[i] = 2*i + 1
		k := (i + 1) % sides
		m.AddFace(2*i, 2*k, 2*k+1, 2*i+1)
	}
	m.AddFace(bottom...)
	m.AddFace(top...)
	return m
}
