package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Projector maps lat/lon to planar meters around a fixed anchor.
//
// Both scale factors are evaluated once at the anchor latitude, which keeps
// the transform linear and exactly invertible across the whole build. The
// projection degrades towards the poles where cos(lat0) approaches zero;
// this is a known limitation and is not corrected.
type Projector struct {
	anchor Location
	mLat   float64
	mLon   float64
}

// NewProjector creates a projector anchored at the given location
func NewProjector(anchor Location) Projector {
	return Projector{
		anchor: anchor,
		mLat:   MetersPerDegree,
		mLon:   MetersPerDegree * math.Cos(anchor.Latitude*math.Pi/180),
	}
}

// Anchor returns the origin of the local frame
func (p Projector) Anchor() Location {
	return p.anchor
}

// Scale returns the meters per degree of latitude and longitude
func (p Projector) Scale() (mLat, mLon float64) {
	return p.mLat, p.mLon
}

// Project converts lat/lon to local (x, y) meters
func (p Projector) Project(lat, lon float64) orb.Point {
	return orb.Point{
		(lon - p.anchor.Longitude) * p.mLon,
		(lat - p.anchor.Latitude) * p.mLat,
	}
}

// ProjectLocation is Project for a Location
func (p Projector) ProjectLocation(l Location) orb.Point {
	return p.Project(l.Latitude, l.Longitude)
}

// Unproject converts local meters back to lat/lon.
// At the poles the longitude scale is zero and the anchor longitude is returned.
func (p Projector) Unproject(pt orb.Point) (lat, lon float64) {
	lat = pt[1]/p.mLat + p.anchor.Latitude
	lon = p.anchor.Longitude
	if p.mLon != 0 {
		lon += pt[0] / p.mLon
	}
	return lat, lon
}

// UnprojectBound converts a local bound to a lat/lon bounding box
func (p Projector) UnprojectBound(b orb.Bound) BoundingBox {
	bb := NewBoundingBox()
	for _, c := range []orb.Point{b.Min, b.Max, {b.Min[0], b.Max[1]}, {b.Max[0], b.Min[1]}} {
		lat, lon := p.Unproject(c)
		bb.ExtendWithPoint(lat, lon)
	}
	return *bb
}

// SquareBound returns the square local bound of the given side centred on the anchor
func SquareBound(size float64) orb.Bound {
	half := size / 2
	return orb.Bound{Min: orb.Point{-half, -half}, Max: orb.Point{half, half}}
}
