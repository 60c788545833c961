// Package scene runs a complete build: features are resolved, elevation
// is decoded and every mesh descriptor and placed object is emitted.
//
// The build itself is synchronous and single-threaded. Only the optional
// sources (Overpass, tile server) touch the network.
package scene

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/paulmach/orb/maptile"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/osmterrain/pkg/config"
	"github.com/NERVsystems/osmterrain/pkg/core"
	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/features"
	"github.com/NERVsystems/osmterrain/pkg/geo"
	"github.com/NERVsystems/osmterrain/pkg/mesh"
	"github.com/NERVsystems/osmterrain/pkg/monitoring"
	"github.com/NERVsystems/osmterrain/pkg/osm"
	"github.com/NERVsystems/osmterrain/pkg/osm/queries"
	"github.com/NERVsystems/osmterrain/pkg/terrain"
	"github.com/NERVsystems/osmterrain/pkg/tracing"
	"github.com/NERVsystems/osmterrain/pkg/vegetation"
)

// Independent PCG streams, so tree meshes never shift placement
const (
	placementStream uint64 = 1
	meshStream      uint64 = 2
)

// ErrNoTileSource is reported when terrain is enabled but neither tiles
// nor a tile source were supplied
var ErrNoTileSource = errors.New("no elevation tiles and no tile source")

// TileSource supplies decoded raster tiles
type TileSource interface {
	FetchRange(ctx context.Context, rng elevation.TileRange) (map[maptile.Tile]image.Image, error)
}

// ElementSource supplies OSM elements around an anchor
type ElementSource interface {
	Scene(ctx context.Context, anchor geo.Location, radius float64, layers queries.Layers) ([]osm.Element, error)
}

// Input carries pre-fetched data. Nil fields are requested from the
// builder's sources.
type Input struct {
	Elements []osm.Element
	Tiles    map[maptile.Tile]image.Image
}

// Result is everything a build produced
type Result struct {
	Meshes  []*mesh.Mesh              `json:"meshes"`
	Objects []vegetation.PlacedObject `json:"objects"`
	Report  Report                    `json:"report"`

	Grid      *elevation.Grid `json:"-"`
	Projector geo.Projector   `json:"-"`
}

// ElevationReport describes the decoded terrain
type ElevationReport struct {
	Available  bool                 `json:"available"`
	Encoding   string               `json:"encoding,omitempty"`
	Resolution int                  `json:"resolution,omitempty"`
	Min        float64              `json:"min_m"`
	Max        float64              `json:"max_m"`
	Tiles      *elevation.TileRange `json:"tiles,omitempty"`
}

// Report summarises a build
type Report struct {
	Anchor    geo.Location               `json:"anchor"`
	Radius    float64                    `json:"radius_m"`
	Elevation ElevationReport            `json:"elevation"`
	Meshes    map[mesh.Category]int      `json:"meshes"`
	Objects   map[vegetation.Species]int `json:"objects"`
	Issues    []*BuildError              `json:"issues,omitempty"`
	Duration  time.Duration              `json:"duration_ns"`
}

// Degraded reports whether any issue degraded the build
func (r Report) Degraded() bool {
	for _, e := range r.Issues {
		if e.Outcome == OutcomeDegraded {
			return true
		}
	}
	return false
}

// Count returns the number of issues with the given outcome
func (r Report) Count(o Outcome) int {
	n := 0
	for _, e := range r.Issues {
		if e.Outcome == o {
			n++
		}
	}
	return n
}

// Builder runs builds for one configuration
type Builder struct {
	Config   config.Config
	Tiles    TileSource
	Elements ElementSource
	Logger   *slog.Logger
}

// NewBuilder creates a builder without network sources
func NewBuilder(cfg config.Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{Config: cfg, Logger: logger.With("component", "scene_builder")}
}

// Build validates the configuration and runs every stage. Only an
// invalid configuration or a failed element fetch returns an error;
// missing elevation and unusable features are recorded in the report.
func (b *Builder) Build(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := b.Config

	ctx, span := tracing.StartSpan(ctx, "scene.build")
	defer span.End()

	if err := cfg.Validate(); err != nil {
		monitoring.RecordBuild(monitoring.StatusError)
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid configuration")
		return nil, Fatal(core.ErrInvalidConfig, err).WithGuidance("Fix the listed settings and retry.")
	}
	loc, _ := cfg.Location()
	proj := geo.NewProjector(loc)
	span.SetAttributes(tracing.SceneAttributes(loc.Latitude, loc.Longitude, cfg.Radius)...)

	res := &Result{
		Projector: proj,
		Report: Report{
			Anchor:  loc,
			Radius:  cfg.Radius,
			Meshes:  make(map[mesh.Category]int),
			Objects: make(map[vegetation.Species]int),
		},
	}

	elements := in.Elements
	if elements == nil && b.Elements != nil {
		var err error
		b.stage(ctx, "fetch_elements", func(ctx context.Context) {
			elements, err = b.Elements.Scene(ctx, loc, cfg.Radius, Layers(cfg))
		})
		if err != nil {
			monitoring.RecordBuild(monitoring.StatusError)
			span.RecordError(err)
			span.SetStatus(codes.Error, "element fetch failed")
			return nil, Fatal(core.ErrServiceUnavailable, err)
		}
	}

	var feats *osm.Features
	b.stage(ctx, "resolve", func(ctx context.Context) {
		opts := cfg.ResolveOptions()
		opts.Logger = logger
		feats = osm.Resolve(elements, proj, opts)
	})
	for _, s := range feats.Skipped {
		res.issue(Skipped(mesh.SourceID(s.Type, s.ID), s.Reason))
		monitoring.RecordSkipped(string(s.Class))
		logger.Debug("feature skipped", "type", s.Type, "id", s.ID, "class", s.Class, "reason", s.Reason)
	}

	var field elevation.Field
	b.stage(ctx, "elevation", func(ctx context.Context) {
		field = b.elevation(ctx, in, proj, res, logger)
	})

	b.stage(ctx, "terrain", func(ctx context.Context) {
		if res.Grid != nil {
			res.add(terrain.BuildMesh(res.Grid, terrain.Options{
				ZOffset:      cfg.Terrain.ZOffset,
				Subdivisions: cfg.Terrain.Subdivisions,
			}))
			if cfg.Terrain.Contours {
				res.add(terrain.Contours(res.Grid, cfg.Terrain.ContourInterval, cfg.Terrain.ZOffset+terrain.ContourLift)...)
			}
		}
		if cfg.GroundSize > 0 {
			res.add(terrain.GroundPlane(cfg.GroundSize))
		}
	})

	b.stage(ctx, "features", func(ctx context.Context) {
		b.features(feats, field, res)
	})

	if cfg.Trees.Enabled {
		b.stage(ctx, "vegetation", func(ctx context.Context) {
			b.vegetation(feats, field, res, logger)
		})
	}

	for _, m := range res.Meshes {
		res.Report.Meshes[m.Category]++
	}
	for cat, n := range res.Report.Meshes {
		monitoring.RecordMeshes(string(cat), n)
	}
	for sp, n := range res.Report.Objects {
		monitoring.RecordPlaced(string(sp), n)
	}
	res.Report.Duration = time.Since(start)

	status := monitoring.StatusSuccess
	if res.Report.Degraded() {
		status = monitoring.StatusDegraded
	}
	monitoring.RecordBuild(status)
	span.SetAttributes(tracing.ResultAttributes(len(res.Meshes), len(res.Objects),
		res.Report.Count(OutcomeSkipped), res.Report.Elevation.Available)...)
	span.SetStatus(codes.Ok, "")

	logger.Info("scene built",
		"anchor", loc.String(),
		"radius", cfg.Radius,
		"meshes", len(res.Meshes),
		"objects", len(res.Objects),
		"skipped", res.Report.Count(OutcomeSkipped),
		"elevation", res.Report.Elevation.Available,
		"status", status,
		"duration", res.Report.Duration)
	return res, nil
}

func (b *Builder) stage(ctx context.Context, name string, fn func(ctx context.Context)) {
	ctx, span := tracing.StartSpan(ctx, "scene."+name,
		trace.WithAttributes(attribute.String(tracing.AttrSceneStage, name)))
	defer span.End()

	start := time.Now()
	fn(ctx)
	monitoring.RecordStage(name, time.Since(start))
}

// elevation returns the decoded grid, or a flat field when terrain is
// disabled or could not be decoded
func (b *Builder) elevation(ctx context.Context, in Input, proj geo.Projector, res *Result, logger *slog.Logger) elevation.Field {
	t := b.Config.Terrain
	if !t.Enabled {
		return elevation.Unavailable(nil)
	}

	grid, rng, err := b.decode(ctx, in, proj)
	res.Report.Elevation.Tiles = &rng
	if err != nil {
		res.issue(Degraded(core.ErrNoElevation, err).
			WithGuidance("Terrain is flat. Check the tile source or disable terrain."))
		monitoring.RecordFieldDegraded()
		tracing.AddEvent(ctx, "elevation_unavailable", trace.WithAttributes(tracing.ErrorAttributes(err)...))
		logger.Warn("elevation unavailable, continuing on flat ground", "error", err)
		return elevation.Unavailable(err)
	}

	lo, hi := grid.Range()
	res.Grid = grid
	res.Report.Elevation = ElevationReport{
		Available:  true,
		Encoding:   grid.Encoding(),
		Resolution: grid.Size(),
		Min:        lo,
		Max:        hi,
		Tiles:      &rng,
	}
	tracing.SetAttributes(ctx, attribute.Int(tracing.AttrSceneResolution, grid.Size()))
	logger.Debug("elevation decoded", "tiles", rng.Count(), "min", lo, "max", hi)
	return grid
}

func (b *Builder) decode(ctx context.Context, in Input, proj geo.Projector) (*elevation.Grid, elevation.TileRange, error) {
	t := b.Config.Terrain
	rng, window := elevation.TilesFor(geo.SquareBound(b.Config.TerrainSize()), proj, maptile.Zoom(t.Zoom))

	enc, err := b.Config.Encoding()
	if err != nil {
		return nil, rng, err
	}

	tiles := in.Tiles
	if tiles == nil {
		if b.Tiles == nil {
			return nil, rng, ErrNoTileSource
		}
		if tiles, err = b.Tiles.FetchRange(ctx, rng); err != nil {
			return nil, rng, err
		}
	}

	mosaic, err := elevation.Mosaic(tiles, rng)
	if err != nil {
		return nil, rng, err
	}
	grid, err := elevation.Decode(mosaic, rng, window, enc, t.Resolution)
	return grid, rng, err
}

func (b *Builder) features(f *osm.Features, field elevation.Field, res *Result) {
	cfg := b.Config
	if field.Available() {
		field = elevation.Offset(field, cfg.Terrain.ZOffset)
	}
	fb := features.NewBuilder(cfg.FeatureOptions(), field)
	layers := cfg.Layers

	if layers.Water {
		for _, a := range f.Water {
			res.add(fb.Water(a))
		}
	}
	if layers.Landuse {
		for _, a := range f.Landuse {
			res.add(fb.Landuse(a))
		}
	}
	if layers.Roads {
		for _, r := range f.Roads {
			res.add(fb.Road(r)...)
			res.add(fb.Piers(r))
		}
	}
	if layers.Rail {
		for _, r := range f.Rails {
			res.add(fb.Rail(r))
		}
	}
	if layers.Buildings {
		for _, a := range f.Buildings {
			res.add(fb.Building(a))
		}
	}
	if layers.Crosswalks {
		for _, p := range f.Crossings {
			m, ok := fb.Crosswalk(p, f.Roads)
			if !ok {
				res.issue(Skipped(mesh.SourceID(osm.TypeNode, p.ID), "no road to snap the crossing to"))
				monitoring.RecordSkipped(string(osm.ClassCrossing))
				continue
			}
			res.add(m)
		}
	}
}

func (b *Builder) vegetation(f *osm.Features, field elevation.Field, res *Result, logger *slog.Logger) {
	trees := b.Config.Trees
	placer := b.Config.Placer()
	placer.Logger = logger
	if !field.Available() {
		placer.ZOffset = 0
	}

	var areas []osm.Area
	for _, a := range f.Landuse {
		if treesAllowed(trees, a.Type) {
			areas = append(areas, a)
		}
	}

	rng := rand.New(rand.NewPCG(trees.Seed, placementStream))
	objs := placer.PlaceInAreas(areas, field, rng)
	if trees.Street {
		objs = append(objs, placer.PlaceAlongRoads(f.Roads, field, rng)...)
	}
	res.Objects = objs
	for _, o := range objs {
		res.Report.Objects[o.Species]++
	}

	if trees.Meshes {
		synth := vegetation.NewSynthesizer()
		res.add(synth.Trees(objs, rand.New(rand.NewPCG(trees.Seed, meshStream)))...)
	}
}

func treesAllowed(t config.Trees, area osm.AreaType) bool {
	switch area {
	case osm.AreaForest:
		return t.InForests
	case osm.AreaPark:
		return t.InParks
	}
	return true
}

// Layers returns the element groups a configuration needs. Roads are
// fetched for crosswalk snapping and street trees, land-use for trees.
func Layers(cfg config.Config) queries.Layers {
	l := cfg.Layers
	trees := cfg.Trees.Enabled
	return queries.Layers{
		Water:     l.Water,
		Landuse:   l.Landuse || (trees && (cfg.Trees.InForests || cfg.Trees.InParks)),
		Roads:     l.Roads || l.Crosswalks || (trees && cfg.Trees.Street),
		Rail:      l.Rail,
		Buildings: l.Buildings,
		Crossings: l.Crosswalks,
	}
}

func (r *Result) add(ms ...*mesh.Mesh) {
	for _, m := range ms {
		if m != nil && !m.Empty() {
			r.Meshes = append(r.Meshes, m)
		}
	}
}

func (r *Result) issue(e *BuildError) {
	r.Report.Issues = append(r.Report.Issues, e)
}
