package elevation

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// SlopeProbe is the fixed forward-difference distance of Grid.Slope, in meters
const SlopeProbe = 1.0

// Grid is an immutable N×N elevation raster covering a square world
// bounding box. Row 0 lies on the south edge and column 0 on the west
// edge, so node (i, j) sits at (minx + i*dx, miny + j*dy).
type Grid struct {
	n        int
	heights  []float64 // row-major, len n*n
	bound    orb.Bound
	encoding string
	min, max float64
}

// NewGrid wraps row-major heights (row 0 south) covering bound. The
// bound must be square and non-degenerate and the grid at least 2×2.
func NewGrid(heights [][]float64, bound orb.Bound, encoding string) (*Grid, error) {
	n := len(heights)
	if n < 2 {
		return nil, fmt.Errorf("elevation grid needs at least 2x2 samples, got %d rows", n)
	}
	w, h := bound.Max[0]-bound.Min[0], bound.Max[1]-bound.Min[1]
	if !(w > 0) || !(h > 0) {
		return nil, errors.New("elevation grid bbox is degenerate")
	}
	if math.Abs(w-h) > 1e-6*math.Max(w, h) {
		return nil, fmt.Errorf("elevation grid bbox is not square (%.3f x %.3f)", w, h)
	}

	g := &Grid{
		n:        n,
		heights:  make([]float64, 0, n*n),
		bound:    bound,
		encoding: encoding,
		min:      math.Inf(1),
		max:      math.Inf(-1),
	}
	for j, row := range heights {
		if len(row) != n {
			return nil, fmt.Errorf("elevation grid row %d has %d samples, want %d", j, len(row), n)
		}
		for _, e := range row {
			g.heights = append(g.heights, e)
			g.min = math.Min(g.min, e)
			g.max = math.Max(g.max, e)
		}
	}
	return g, nil
}

// Size returns N
func (g *Grid) Size() int { return g.n }

// Bound returns the world bbox in local meters
func (g *Grid) Bound() orb.Bound { return g.bound }

// Encoding returns the name of the raster encoding the grid was decoded from
func (g *Grid) Encoding() string { return g.encoding }

// Range returns the observed minimum and maximum elevation
func (g *Grid) Range() (min, max float64) { return g.min, g.max }

// At returns the height of node (i, j), column i and row j
func (g *Grid) At(i, j int) float64 { return g.heights[j*g.n+i] }

// Position returns the world position of node (i, j)
func (g *Grid) Position(i, j int) orb.Point {
	dx, dy := g.Spacing()
	return orb.Point{g.bound.Min[0] + float64(i)*dx, g.bound.Min[1] + float64(j)*dy}
}

// Spacing returns the node spacing along x and y
func (g *Grid) Spacing() (dx, dy float64) {
	return (g.bound.Max[0] - g.bound.Min[0]) / float64(g.n-1),
		(g.bound.Max[1] - g.bound.Min[1]) / float64(g.n-1)
}

// Sample returns the bilinearly interpolated elevation at (x, y). Grid
// nodes return their stored value exactly. Points outside the bbox
// return 0; the grid never extrapolates.
func (g *Grid) Sample(x, y float64) float64 {
	minx, miny := g.bound.Min[0], g.bound.Min[1]
	maxx, maxy := g.bound.Max[0], g.bound.Max[1]
	if x < minx || x > maxx || y < miny || y > maxy {
		return 0
	}

	u := (x - minx) / math.Max(1e-9, maxx-minx)
	v := (y - miny) / math.Max(1e-9, maxy-miny)
	fx, fy := u*float64(g.n-1), v*float64(g.n-1)

	x0, y0 := int(math.Floor(fx)), int(math.Floor(fy))
	x1, y1 := min(x0+1, g.n-1), min(y0+1, g.n-1)
	tx, ty := fx-float64(x0), fy-float64(y0)

	e0 := g.At(x0, y0)*(1-tx) + g.At(x1, y0)*tx
	e1 := g.At(x0, y1)*(1-tx) + g.At(x1, y1)*tx
	return e0*(1-ty) + e1*ty
}

// Slope estimates the terrain gradient magnitude at (x, y) from forward
// differences SlopeProbe meters east and north. Within SlopeProbe of the
// east or north edge the difference is taken backward instead, so probes
// stay inside the bbox. The probe does not scale with grid spacing, so on
// coarse grids it measures the slope of the cell containing the point.
func (g *Grid) Slope(x, y float64) float64 {
	z := g.Sample(x, y)
	sx := g.difference(z, x, y, 1, 0)
	sy := g.difference(z, x, y, 0, 1)
	return math.Sqrt(sx*sx + sy*sy)
}

// Available implements Field
func (g *Grid) Available() bool { return true }

// difference returns |dz|/d along the unit direction (ux, uy)
func (g *Grid) difference(z, x, y, ux, uy float64) float64 {
	d := SlopeProbe
	px, py := x+ux*d, y+uy*d
	if px > g.bound.Max[0] || py > g.bound.Max[1] {
		px, py = x-ux*d, y-uy*d
	}
	return math.Abs(g.Sample(px, py)-z) / d
}
