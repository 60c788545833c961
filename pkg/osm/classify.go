package osm

import (
	"strconv"
	"strings"
)

// Class is the mutually exclusive category of a resolved feature
type Class string

const (
	ClassNone     Class = ""
	ClassRoad     Class = "road"
	ClassBuilding Class = "building"
	ClassWater    Class = "water"
	ClassLanduse  Class = "landuse"
	ClassRail     Class = "rail"
	ClassCrossing Class = "crossing"
)

// AreaType buckets land-use polygons for vegetation rules
type AreaType string

const (
	AreaForest      AreaType = "forest"
	AreaPark        AreaType = "park"
	AreaResidential AreaType = "residential"
	AreaWaterEdge   AreaType = "water_edge"
	AreaTropical    AreaType = "tropical"
)

// DefaultRoadHalfWidths maps highway classes to half carriageway widths in meters.
// Highway values missing from the table are not built.
func DefaultRoadHalfWidths() map[string]float64 {
	return map[string]float64{
		"motorway":      6.0,
		"trunk":         5.0,
		"primary":       4.5,
		"secondary":     3.8,
		"tertiary":      3.2,
		"unclassified":  2.2,
		"residential":   2.6,
		"service":       1.8,
		"living_street": 2.0,
		"track":         1.5,
		"path":          0.6,
		"footway":       0.6,
		"cycleway":      0.8,
	}
}

// DefaultRailHalfWidths maps railway values to half track widths in meters
func DefaultRailHalfWidths() map[string]float64 {
	return map[string]float64{
		"rail":       1.4,
		"light_rail": 1.2,
		"subway":     1.2,
		"tram":       0.9,
	}
}

// DefaultRailHalfWidth is used for railway values missing from the table
const DefaultRailHalfWidth = 1.0

// Classifier assigns a Class to tagged elements
type Classifier struct {
	RoadHalfWidths map[string]float64
}

// Classify returns the feature class for a way or relation tag set, and
// for land-use the area bucket. The checks run in priority order and the
// first match wins. A highway tag that is not in the width table yields
// ClassNone with matched=false so the caller can report it.
func (c Classifier) Classify(tags map[string]string) (class Class, area AreaType, matched bool) {
	if hw, ok := tags["highway"]; ok {
		if _, known := c.RoadHalfWidths[hw]; known {
			return ClassRoad, "", true
		}
		return ClassNone, "", false
	}

	if _, ok := tags["building"]; ok {
		return ClassBuilding, "", true
	}

	if tags["natural"] == "water" || tags["waterway"] == "riverbank" {
		return ClassWater, "", true
	}

	if a, ok := landuseArea(tags); ok {
		return ClassLanduse, a, true
	}

	if _, ok := tags["railway"]; ok {
		return ClassRail, "", true
	}

	return ClassNone, "", true
}

func landuseArea(tags map[string]string) (AreaType, bool) {
	switch {
	case tags["landuse"] == "forest", tags["natural"] == "wood":
		return AreaForest, true
	case tags["leisure"] == "park", tags["leisure"] == "pitch", tags["landuse"] == "grass":
		return AreaPark, true
	}
	return "", false
}

// IsCrossing reports whether a node marks a pedestrian crossing
func IsCrossing(tags map[string]string) bool {
	return tags["highway"] == "crossing"
}

// Structure describes the tags that lift or sink a linear feature
type Structure struct {
	Bridge bool
	Tunnel bool
	Layer  float64
}

// ParseStructure reads bridge, tunnel and layer tags. An unparseable
// layer counts as ground level.
func ParseStructure(tags map[string]string) Structure {
	s := Structure{
		Bridge: truthy(tags["bridge"]),
		Tunnel: truthy(tags["tunnel"]),
	}
	if v, ok := tags["layer"]; ok {
		if layer, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			s.Layer = layer
		}
	}
	return s
}
