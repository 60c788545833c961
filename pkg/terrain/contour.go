package terrain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/mesh"
)

// ContourLift raises contour lines above the terrain surface
const ContourLift = 0.1

// Levels returns the contour levels, multiples of interval within the
// grid's elevation range
func Levels(lo, hi, interval float64) []float64 {
	if !(interval > 0) || math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil
	}
	var levels []float64
	for level := math.Floor(lo/interval) * interval; level <= hi; level += interval {
		if level >= lo {
			levels = append(levels, level)
		}
	}
	return levels
}

// Contours traces iso-elevation lines with marching squares, one edge
// mesh per level. Lines sit at level + zOffset. Levels that produce no
// segment are omitted.
func Contours(grid *elevation.Grid, interval, zOffset float64) []*mesh.Mesh {
	if grid == nil {
		return nil
	}
	lo, hi := grid.Range()

	var out []*mesh.Mesh
	for _, level := range Levels(lo, hi, interval) {
		m := mesh.New(mesh.CategoryContour, fmt.Sprintf("contour/%.0f", level))
		z := level + zOffset
		n := grid.Size()
		for j := 0; j < n-1; j++ {
			for i := 0; i < n-1; i++ {
				for _, seg := range cellSegments(grid, i, j, level) {
					a := m.AddVertex(seg[0][0], seg[0][1], z)
					b := m.AddVertex(seg[1][0], seg[1][1], z)
					m.AddEdge(a, b)
				}
			}
		}
		if len(m.Edges) > 0 {
			out = append(out, m)
		}
	}
	return out
}

// cell edges
const (
	bottom = iota
	right
	top
	left
)

// segments per marching-squares case; corners bl=1 br=2 tr=4 tl=8
var cases = [16][][2]int{
	1:  {{left, bottom}},
	2:  {{bottom, right}},
	3:  {{left, right}},
	4:  {{right, top}},
	6:  {{bottom, top}},
	7:  {{left, top}},
	8:  {{top, left}},
	9:  {{bottom, top}},
	11: {{right, top}},
	12: {{left, right}},
	13: {{bottom, right}},
	14: {{left, bottom}},
}

func cellSegments(grid *elevation.Grid, i, j int, level float64) [][2]orb.Point {
	bl, br := grid.At(i, j), grid.At(i+1, j)
	tr, tl := grid.At(i+1, j+1), grid.At(i, j+1)

	idx := 0
	for bit, v := range []float64{bl, br, tr, tl} {
		if v >= level {
			idx |= 1 << bit
		}
	}

	segs := cases[idx]
	switch idx {
	case 5, 10:
		// saddle: the cell centre decides which corners connect
		centre := (bl + br + tr + tl) / 4
		if (centre >= level) == (idx == 5) {
			segs = [][2]int{{bottom, right}, {top, left}}
		} else {
			segs = [][2]int{{left, bottom}, {right, top}}
		}
	}
	if len(segs) == 0 {
		return nil
	}

	p00, p11 := grid.Position(i, j), grid.Position(i+1, j+1)
	edgePoint := func(e int) orb.Point {
		switch e {
		case bottom:
			return orb.Point{lerp(p00[0], p11[0], frac(bl, br, level)), p00[1]}
		case right:
			return orb.Point{p11[0], lerp(p00[1], p11[1], frac(br, tr, level))}
		case top:
			return orb.Point{lerp(p00[0], p11[0], frac(tl, tr, level)), p11[1]}
		default:
			return orb.Point{p00[0], lerp(p00[1], p11[1], frac(bl, tl, level))}
		}
	}

	out := make([][2]orb.Point, len(segs))
	for k, s := range segs {
		out[k] = [2]orb.Point{edgePoint(s[0]), edgePoint(s[1])}
	}
	return out
}

// frac is where level crosses the edge from a to b, as a fraction of the edge
func frac(a, b, level float64) float64 {
	if a == b {
		return 0.5
	}
	return (level - a) / (b - a)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
