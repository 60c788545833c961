// Package features builds terrain-following meshes for roads, railways,
// buildings, water, land-use, crosswalks and bridge piers.
//
// Every function here is pure: geometry in, mesh descriptors out. Heights
// come from an elevation.Field.
package features

import "github.com/NERVsystems/osmterrain/pkg/osm"

const (
	// CasingDrop sinks road casings just under the road fill
	CasingDrop = 0.001
	// LanduseLift raises land-use faces just above water and terrain
	LanduseLift = 0.001
	// CrosswalkLift raises stripes just above the road deck
	CrosswalkLift = 0.0015
	// MinPierSpacing is the smallest allowed distance between bridge piers
	MinPierSpacing = 4.0
	// MinPierHeight is the shortest pier emitted under a low deck
	MinPierHeight = 1.0
)

// Options holds the tunables of feature mesh generation
type Options struct {
	BridgeClearance float64
	TunnelOffset    float64
	LayerStep       float64

	Casing      bool
	CasingScale float64

	LevelHeight   float64
	DefaultHeight float64

	Crosswalk CrosswalkOptions

	Piers       bool
	PierSpacing float64
	PierRadius  float64

	// SimplifyTolerance is the Douglas-Peucker tolerance applied to road
	// and rail centrelines; 0 disables simplification
	SimplifyTolerance float64
}

// CrosswalkOptions shapes crosswalk stripes
type CrosswalkOptions struct {
	Depth  float64 // extent along the road
	Stripe float64 // stripe width along the road
	Gap    float64
	Margin float64 // fraction of road width kept clear on each side
}

// DefaultOptions returns the stock tunables
func DefaultOptions() Options {
	return Options{
		BridgeClearance: 1.5,
		TunnelOffset:    -0.5,
		LayerStep:       0.25,
		Casing:          true,
		CasingScale:     0.20,
		LevelHeight:     3.2,
		DefaultHeight:   10.0,
		Crosswalk: CrosswalkOptions{
			Depth:  3.0,
			Stripe: 0.5,
			Gap:    0.5,
			Margin: 0.06,
		},
		PierSpacing: 14.0,
		PierRadius:  0.35,
	}
}

// VerticalOffset sums the bridge, tunnel and layer contributions for a
// linear feature. The terms are additive: a bridge that is also a tunnel
// gets both.
func (o Options) VerticalOffset(s osm.Structure) float64 {
	var dz float64
	if s.Bridge {
		dz += o.BridgeClearance
	}
	if s.Tunnel {
		dz += o.TunnelOffset
	}
	return dz + s.Layer*o.LayerStep
}
