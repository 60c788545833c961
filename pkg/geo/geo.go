// Package geo provides geographic primitives and the local planar
// projection shared by every stage of a scene build.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

const (
	// EarthRadius is the mean Earth radius in meters
	EarthRadius = 6371000.0

	// MetersPerDegree is the length of one degree of latitude used by the
	// local projection. It is also the equatorial length of one degree of
	// longitude.
	MetersPerDegree = 111320.0
)

// Location is a WGS84 coordinate in decimal degrees
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// String formats the location as "lat, lon"
func (l Location) String() string {
	return fmt.Sprintf("%.6f, %.6f", l.Latitude, l.Longitude)
}

// Validate reports whether the location is inside the WGS84 range
func (l Location) Validate() error {
	if l.Latitude < -90 || l.Latitude > 90 {
		return fmt.Errorf("invalid latitude: %f (must be between -90 and 90)", l.Latitude)
	}
	if l.Longitude < -180 || l.Longitude > 180 {
		return fmt.Errorf("invalid longitude: %f (must be between -180 and 180)", l.Longitude)
	}
	return nil
}

// Point returns the location as an orb point (lon, lat)
func (l Location) Point() orb.Point {
	return orb.Point{l.Longitude, l.Latitude}
}

// BoundingBox is a lat/lon rectangle
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MinLon float64 `json:"minLon"`
	MaxLat float64 `json:"maxLat"`
	MaxLon float64 `json:"maxLon"`
}

// NewBoundingBox creates an empty bounding box that any extension will replace
func NewBoundingBox() *BoundingBox {
	return &BoundingBox{
		MinLat: math.Inf(1),
		MinLon: math.Inf(1),
		MaxLat: math.Inf(-1),
		MaxLon: math.Inf(-1),
	}
}

// ExtendWithPoint grows the box to include the point
func (b *BoundingBox) ExtendWithPoint(lat, lon float64) {
	b.MinLat = math.Min(b.MinLat, lat)
	b.MinLon = math.Min(b.MinLon, lon)
	b.MaxLat = math.Max(b.MaxLat, lat)
	b.MaxLon = math.Max(b.MaxLon, lon)
}

// Bound converts the box to an orb bound in (lon, lat) order
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// HaversineDistance calculates the great-circle distance in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}
