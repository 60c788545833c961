// Package config holds the validated build configuration of a scene.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/NERVsystems/osmterrain/pkg/coords"
	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/features"
	"github.com/NERVsystems/osmterrain/pkg/geo"
	"github.com/NERVsystems/osmterrain/pkg/osm"
	"github.com/NERVsystems/osmterrain/pkg/vegetation"
)

// MetersPerMile converts radius values given in miles
const MetersPerMile = 1609.344

// Config is the complete set of build parameters
type Config struct {
	// Anchor is the scene origin in any notation coords.Parse accepts
	Anchor string  `yaml:"anchor"`
	Radius float64 `yaml:"radius_m"`

	Layers     Layers     `yaml:"layers"`
	Terrain    Terrain    `yaml:"terrain"`
	Roads      Roads      `yaml:"roads"`
	Rail       Rail       `yaml:"rail"`
	Structures Structures `yaml:"structures"`
	Buildings  Buildings  `yaml:"buildings"`
	Crosswalk  Crosswalk  `yaml:"crosswalk"`
	Trees      Trees      `yaml:"trees"`
	Fetch      Fetch      `yaml:"fetch"`

	// GroundSize is the side of an optional flat ground plane; 0 disables it
	GroundSize float64 `yaml:"ground_size_m"`
}

// Layers switches feature classes on and off
type Layers struct {
	Roads      bool `yaml:"roads"`
	Crosswalks bool `yaml:"crosswalks"`
	Buildings  bool `yaml:"buildings"`
	Water      bool `yaml:"water"`
	Landuse    bool `yaml:"landuse"`
	Rail       bool `yaml:"rail"`
}

// Terrain configures elevation decoding and the terrain mesh
type Terrain struct {
	Enabled     bool   `yaml:"enabled"`
	Source      string `yaml:"source"` // MAPBOX or TERRARIUM
	MapboxToken string `yaml:"mapbox_token"`
	Resolution  int    `yaml:"resolution"`
	Zoom        int    `yaml:"zoom"`
	// Size is the side of the terrain square; 0 means twice the radius
	Size            float64 `yaml:"size_m"`
	ZOffset         float64 `yaml:"z_offset"`
	Subdivisions    int     `yaml:"subdivisions"`
	Contours        bool    `yaml:"contours"`
	ContourInterval float64 `yaml:"contour_interval_m"`
}

// Roads configures road strips
type Roads struct {
	HalfWidths  map[string]float64 `yaml:"half_widths"`
	Casing      bool               `yaml:"casing"`
	CasingScale float64            `yaml:"casing_scale"`
	// SimplifyTolerance enables Douglas-Peucker on centrelines when > 0
	SimplifyTolerance float64 `yaml:"simplify_tolerance_m"`
}

// Rail configures railway strips
type Rail struct {
	HalfWidths map[string]float64 `yaml:"half_widths"`
}

// Structures configures bridge and tunnel handling
type Structures struct {
	BridgeClearance float64 `yaml:"bridge_clearance_m"`
	TunnelOffset    float64 `yaml:"tunnel_offset_m"`
	LayerStep       float64 `yaml:"layer_step_m"`
	Piers           bool    `yaml:"piers"`
	PierSpacing     float64 `yaml:"pier_spacing_m"`
	PierRadius      float64 `yaml:"pier_radius_m"`
}

// Buildings configures footprint extrusion
type Buildings struct {
	LevelHeight   float64 `yaml:"level_height_m"`
	DefaultHeight float64 `yaml:"default_height_m"`
}

// Crosswalk configures stripe layout
type Crosswalk struct {
	Depth  float64 `yaml:"depth_m"`
	Stripe float64 `yaml:"stripe_m"`
	Gap    float64 `yaml:"gap_m"`
	Margin float64 `yaml:"edge_margin"`
}

// Trees configures vegetation placement
type Trees struct {
	Enabled bool    `yaml:"enabled"`
	Density float64 `yaml:"density"`
	// SlopeLimiting toggles the slope test; SlopeLimit is rise over run
	SlopeLimiting bool    `yaml:"slope_limiting"`
	SlopeLimit    float64 `yaml:"slope_limit"`
	InForests     bool    `yaml:"in_forests"`
	InParks       bool    `yaml:"in_parks"`
	Street        bool    `yaml:"street"`
	StreetSpacing float64 `yaml:"street_spacing_m"`
	// Meshes synthesises a mesh for every placed tree
	Meshes bool   `yaml:"meshes"`
	Seed   uint64 `yaml:"seed"`

	Rules map[osm.AreaType]vegetation.Rule `yaml:"rules"`
}

// Fetch configures the network collaborators
type Fetch struct {
	OverpassURL       string        `yaml:"overpass_url"`
	TerrariumURL      string        `yaml:"terrarium_url"`
	MapboxURL         string        `yaml:"mapbox_url"`
	ContactEmail      string        `yaml:"contact_email"`
	Timeout           time.Duration `yaml:"timeout"`
	Concurrency       int           `yaml:"concurrency"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	TileCacheSize     int           `yaml:"tile_cache_size"`
	TileCacheTTL      time.Duration `yaml:"tile_cache_ttl"`
}

// Default returns the stock configuration (no anchor)
func Default() Config {
	fo := features.DefaultOptions()
	return Config{
		Radius: MetersPerMile,
		Layers: Layers{
			Roads:     true,
			Buildings: true,
			Water:     true,
			Landuse:   true,
		},
		Terrain: Terrain{
			Enabled:         true,
			Source:          elevation.EncodingTerrarium,
			Resolution:      256,
			Zoom:            int(elevation.DefaultZoom),
			ContourInterval: 10,
		},
		Roads: Roads{
			HalfWidths:  osm.DefaultRoadHalfWidths(),
			Casing:      fo.Casing,
			CasingScale: fo.CasingScale,
		},
		Rail: Rail{HalfWidths: osm.DefaultRailHalfWidths()},
		Structures: Structures{
			BridgeClearance: fo.BridgeClearance,
			TunnelOffset:    fo.TunnelOffset,
			LayerStep:       fo.LayerStep,
			PierSpacing:     fo.PierSpacing,
			PierRadius:      fo.PierRadius,
		},
		Buildings: Buildings{
			LevelHeight:   fo.LevelHeight,
			DefaultHeight: fo.DefaultHeight,
		},
		Crosswalk: Crosswalk{
			Depth:  fo.Crosswalk.Depth,
			Stripe: fo.Crosswalk.Stripe,
			Gap:    fo.Crosswalk.Gap,
			Margin: fo.Crosswalk.Margin,
		},
		Trees: Trees{
			Density:       0.5,
			SlopeLimiting: true,
			SlopeLimit:    0.3,
			InForests:     true,
			InParks:       true,
			StreetSpacing: 15,
			Seed:          1,
			Rules:         vegetation.DefaultRules(),
		},
		Fetch: Fetch{
			OverpassURL:       "https://overpass-api.de/api/interpreter",
			TerrariumURL:      "https://s3.amazonaws.com/elevation-tiles-prod/terrarium/{z}/{x}/{y}.png",
			MapboxURL:         "https://api.mapbox.com/v4/mapbox.terrain-rgb/{z}/{x}/{y}.pngraw?access_token={token}",
			Timeout:           60 * time.Second,
			Concurrency:       4,
			RequestsPerSecond: 4,
			TileCacheSize:     256,
			TileCacheTTL:      24 * time.Hour,
		},
	}
}

// Load reads a YAML file over the defaults. Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid setting at once
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	check(c.Radius > 0, "radius_m must be positive, got %g", c.Radius)
	check(c.GroundSize >= 0, "ground_size_m must not be negative, got %g", c.GroundSize)

	t := c.Terrain
	enc, err := elevation.ParseEncoding(t.Source)
	if err != nil {
		errs = append(errs, err)
	}
	if t.Enabled {
		check(t.Resolution >= 64 && t.Resolution <= 1024, "terrain.resolution must be within 64..1024, got %d", t.Resolution)
		check(t.Zoom >= 1 && t.Zoom <= 15, "terrain.zoom must be within 1..15, got %d", t.Zoom)
		check(enc == nil || enc.Name() != elevation.EncodingMapbox || strings.TrimSpace(t.MapboxToken) != "",
			"terrain.mapbox_token is required for the MAPBOX source")
	}
	check(t.Size >= 0, "terrain.size_m must not be negative, got %g", t.Size)
	check(t.Subdivisions >= 0 && t.Subdivisions <= 3, "terrain.subdivisions must be within 0..3, got %d", t.Subdivisions)
	check(!t.Contours || (t.ContourInterval >= 1 && t.ContourInterval <= 100),
		"terrain.contour_interval_m must be within 1..100, got %g", t.ContourInterval)

	for k, v := range c.Roads.HalfWidths {
		check(v >= 0, "roads.half_widths[%s] must not be negative, got %g", k, v)
	}
	for k, v := range c.Rail.HalfWidths {
		check(v >= 0, "rail.half_widths[%s] must not be negative, got %g", k, v)
	}
	check(c.Roads.CasingScale >= 0, "roads.casing_scale must not be negative, got %g", c.Roads.CasingScale)
	check(c.Roads.SimplifyTolerance >= 0, "roads.simplify_tolerance_m must not be negative")

	s := c.Structures
	check(s.BridgeClearance >= 0, "structures.bridge_clearance_m must not be negative, got %g", s.BridgeClearance)
	check(s.TunnelOffset <= 0, "structures.tunnel_offset_m must not be positive, got %g", s.TunnelOffset)
	check(!s.Piers || s.PierSpacing >= features.MinPierSpacing, "structures.pier_spacing_m must be at least %g, got %g", features.MinPierSpacing, s.PierSpacing)
	check(!s.Piers || s.PierRadius > 0, "structures.pier_radius_m must be positive, got %g", s.PierRadius)

	check(c.Buildings.LevelHeight > 0, "buildings.level_height_m must be positive, got %g", c.Buildings.LevelHeight)
	check(c.Buildings.DefaultHeight > 0, "buildings.default_height_m must be positive, got %g", c.Buildings.DefaultHeight)

	x := c.Crosswalk
	check(x.Depth > 0, "crosswalk.depth_m must be positive, got %g", x.Depth)
	check(x.Stripe > 0, "crosswalk.stripe_m must be positive, got %g", x.Stripe)
	check(x.Gap >= 0, "crosswalk.gap_m must not be negative, got %g", x.Gap)
	check(x.Margin >= 0 && x.Margin < 0.5, "crosswalk.edge_margin must be within [0, 0.5), got %g", x.Margin)

	tr := c.Trees
	check(tr.Density >= 0 && tr.Density <= 1, "trees.density must be within 0..1, got %g", tr.Density)
	check(tr.SlopeLimit >= 0, "trees.slope_limit must not be negative, got %g", tr.SlopeLimit)
	check(tr.StreetSpacing > 0, "trees.street_spacing_m must be positive, got %g", tr.StreetSpacing)
	for k, r := range tr.Rules {
		check(r.Density >= 0 && r.Density <= 1, "trees.rules[%s].density must be within 0..1, got %g", k, r.Density)
		check(r.Spacing > 0, "trees.rules[%s].spacing must be positive, got %g", k, r.Spacing)
		check(len(r.Species) > 0, "trees.rules[%s].species must not be empty", k)
	}

	f := c.Fetch
	check(f.Concurrency > 0, "fetch.concurrency must be positive, got %d", f.Concurrency)
	check(f.RequestsPerSecond > 0, "fetch.requests_per_second must be positive, got %g", f.RequestsPerSecond)
	check(f.Timeout > 0, "fetch.timeout must be positive, got %s", f.Timeout)

	return errors.Join(errs...)
}

// Location parses the anchor
func (c Config) Location() (geo.Location, error) {
	if strings.TrimSpace(c.Anchor) == "" {
		return geo.Location{}, errors.New("anchor is required")
	}
	a, err := coords.Parse(c.Anchor)
	if err != nil {
		return geo.Location{}, fmt.Errorf("anchor: %w", err)
	}
	return a.Location, nil
}

// TerrainSize is the side of the terrain square in meters
func (c Config) TerrainSize() float64 {
	if c.Terrain.Size > 0 {
		return c.Terrain.Size
	}
	return 2 * c.Radius
}

// Encoding returns the configured raster encoding
func (c Config) Encoding() (elevation.Encoding, error) {
	return elevation.ParseEncoding(c.Terrain.Source)
}

// ResolveOptions returns the feature resolver settings
func (c Config) ResolveOptions() osm.ResolveOptions {
	return osm.ResolveOptions{
		RoadHalfWidths: c.Roads.HalfWidths,
		RailHalfWidths: c.Rail.HalfWidths,
	}
}

// FeatureOptions returns the mesh builder settings
func (c Config) FeatureOptions() features.Options {
	return features.Options{
		BridgeClearance: c.Structures.BridgeClearance,
		TunnelOffset:    c.Structures.TunnelOffset,
		LayerStep:       c.Structures.LayerStep,
		Casing:          c.Roads.Casing,
		CasingScale:     c.Roads.CasingScale,
		LevelHeight:     c.Buildings.LevelHeight,
		DefaultHeight:   c.Buildings.DefaultHeight,
		Crosswalk: features.CrosswalkOptions{
			Depth:  c.Crosswalk.Depth,
			Stripe: c.Crosswalk.Stripe,
			Gap:    c.Crosswalk.Gap,
			Margin: c.Crosswalk.Margin,
		},
		Piers:             c.Structures.Piers,
		PierSpacing:       c.Structures.PierSpacing,
		PierRadius:        c.Structures.PierRadius,
		SimplifyTolerance: c.Roads.SimplifyTolerance,
	}
}

// Placer returns a vegetation placer for these settings
func (c Config) Placer() *vegetation.Placer {
	p := vegetation.NewPlacer()
	if len(c.Trees.Rules) > 0 {
		p.Rules = c.Trees.Rules
	}
	p.Density = c.Trees.Density
	p.SlopeLimit = c.Trees.SlopeLimit
	if !c.Trees.SlopeLimiting {
		p.SlopeLimit = math.Inf(1)
	}
	p.ZOffset = c.Terrain.ZOffset
	p.Street.Spacing = c.Trees.StreetSpacing
	return p
}

// ParseDistance reads a length such as "1609", "1.5km", "2mi" or "800 m"
// and returns meters. A bare number is meters.
func ParseDistance(s string) (float64, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	scale := 1.0
	for _, u := range []struct {
		suffix string
		scale  float64
	}{
		{"km", 1000},
		{"mi", MetersPerMile},
		{"m", 1},
	} {
		if strings.HasSuffix(v, u.suffix) {
			v, scale = strings.TrimSpace(strings.TrimSuffix(v, u.suffix)), u.scale
			break
		}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid distance %q", s)
	}
	return f * scale, nil
}
