package features

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
)

// Simplify reduces a centreline with Douglas-Peucker. The endpoints are
// always kept. A tolerance of 0 or less returns the line unchanged.
func Simplify(line orb.LineString, tolerance float64) orb.LineString {
	if tolerance <= 0 || len(line) < 3 {
		return line
	}
	return simplify.DouglasPeucker(tolerance).Simplify(line.Clone()).(orb.LineString)
}
