package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/NERVsystems/osmterrain/pkg/config"
	"github.com/NERVsystems/osmterrain/pkg/coords"
	"github.com/NERVsystems/osmterrain/pkg/core"
	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/geo"
	"github.com/NERVsystems/osmterrain/pkg/mesh"
	"github.com/NERVsystems/osmterrain/pkg/scene"
	"github.com/NERVsystems/osmterrain/pkg/vegetation"
)

// DefaultMaxRadius bounds tool builds
const DefaultMaxRadius = 5000.0

// SceneService holds what the scene tools need to run builds. Each call
// starts from Config and applies its own overrides.
type SceneService struct {
	Config    config.Config
	Tiles     scene.TileSource
	Elements  scene.ElementSource
	MaxRadius float64
	Logger    *slog.Logger
}

// BuildSceneInput defines the input parameters for build_scene
type BuildSceneInput struct {
	Anchor        string   `json:"anchor"`
	Radius        Distance `json:"radius,omitempty"`
	Terrain       *bool    `json:"terrain,omitempty"`
	Trees         *bool    `json:"trees,omitempty"`
	Seed          *uint64  `json:"seed,omitempty"`
	Layers        []string `json:"layers,omitempty"`
	IncludeMeshes bool     `json:"include_meshes,omitempty"`
	IncludeTrees  bool     `json:"include_trees,omitempty"`
}

// BuildSceneOutput defines the output of build_scene
type BuildSceneOutput struct {
	Report  scene.Report               `json:"report"`
	Objects int                        `json:"objects"`
	Meshes  []*mesh.Mesh               `json:"meshes,omitempty"`
	Trees   *geojson.FeatureCollection `json:"trees,omitempty"`
}

// BuildSceneTool returns the tool definition for build_scene
func BuildSceneTool() mcp.Tool {
	return mcp.NewTool("build_scene",
		mcp.WithDescription("Build terrain, roads, buildings, water, land-use and trees around an anchor and report what was produced"),
		mcp.WithString("anchor",
			mcp.Required(),
			mcp.Description("Scene origin as decimal degrees, DMS, UTM or MGRS"),
		),
		mcp.WithString("radius",
			mcp.Description("Scene radius in meters or with a unit, e.g. \"800\", \"2km\", \"1mi\""),
		),
		mcp.WithBoolean("terrain",
			mcp.Description("Decode elevation tiles into a terrain mesh"),
		),
		mcp.WithBoolean("trees",
			mcp.Description("Scatter trees over forests and parks"),
		),
		mcp.WithNumber("seed",
			mcp.Description("Random seed for tree placement"),
		),
		mcp.WithArray("layers",
			mcp.Description("Feature layers to build: roads, crosswalks, buildings, water, landuse, rail"),
		),
		mcp.WithBoolean("include_meshes",
			mcp.Description("Return every mesh descriptor, not just counts"),
		),
		mcp.WithBoolean("include_trees",
			mcp.Description("Return placed trees as GeoJSON points"),
		),
	)
}

// HandleBuildScene returns the build_scene handler
func (s *SceneService) HandleBuildScene() func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("build_scene", func(ctx context.Context, input BuildSceneInput, logger *slog.Logger) (any, error) {
		cfg, err := s.sceneConfig(input)
		if err != nil {
			return nil, err
		}

		b := scene.NewBuilder(cfg, s.logger())
		b.Tiles = s.Tiles
		b.Elements = s.Elements

		res, err := b.Build(ctx, scene.Input{})
		if err != nil {
			return nil, err
		}
		logger.Info("scene built", "meshes", len(res.Meshes), "objects", len(res.Objects))

		out := BuildSceneOutput{Report: res.Report, Objects: len(res.Objects)}
		if input.IncludeMeshes {
			out.Meshes = res.Meshes
		}
		if input.IncludeTrees {
			out.Trees = vegetation.FeatureCollection(res.Objects, res.Projector)
		}
		return out, nil
	})
}

func (s *SceneService) sceneConfig(input BuildSceneInput) (config.Config, error) {
	cfg := s.Config

	anchor, err := ParseAnchor(input.Anchor)
	if err != nil {
		return cfg, err
	}
	cfg.Anchor = anchor.Input

	if input.Radius != 0 {
		cfg.Radius = float64(input.Radius)
	}
	if err := ValidateRadius(cfg.Radius, s.maxRadius()); err != nil {
		return cfg, err
	}
	if input.Terrain != nil {
		cfg.Terrain.Enabled = *input.Terrain
	}
	if input.Trees != nil {
		cfg.Trees.Enabled = *input.Trees
	}
	if input.Seed != nil {
		cfg.Trees.Seed = *input.Seed
	}
	if input.Layers != nil {
		layers, err := ParseLayers(input.Layers)
		if err != nil {
			return cfg, err
		}
		cfg.Layers = layers
	}
	return cfg, nil
}

// ParseLayers turns layer names into a layer switch set
func ParseLayers(names []string) (config.Layers, error) {
	var l config.Layers
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "roads":
			l.Roads = true
		case "crosswalks":
			l.Crosswalks = true
		case "buildings":
			l.Buildings = true
		case "water":
			l.Water = true
		case "landuse":
			l.Landuse = true
		case "rail":
			l.Rail = true
		default:
			return l, core.NewError(core.ErrInvalidInput, fmt.Sprintf("unknown layer %q", name)).
				WithGuidance("Use roads, crosswalks, buildings, water, landuse or rail.")
		}
	}
	return l, nil
}

// ElevationTilesInput defines the input parameters for elevation_tiles
type ElevationTilesInput struct {
	Anchor string   `json:"anchor"`
	Radius Distance `json:"radius,omitempty"`
	Zoom   int      `json:"zoom,omitempty"`
}

// ElevationTilesOutput lists the tiles a terrain build would fetch
type ElevationTilesOutput struct {
	Anchor geo.Location         `json:"anchor"`
	Range  elevation.TileRange  `json:"range"`
	Count  int                  `json:"count"`
	Tiles  []elevation.TileInfo `json:"tiles"`
	URLs   []string             `json:"urls,omitempty"`
}

// ElevationTilesTool returns the tool definition for elevation_tiles
func ElevationTilesTool() mcp.Tool {
	return mcp.NewTool("elevation_tiles",
		mcp.WithDescription("List the elevation tiles that cover a scene, with their bounds and ground resolution"),
		mcp.WithString("anchor",
			mcp.Required(),
			mcp.Description("Scene origin as decimal degrees, DMS, UTM or MGRS"),
		),
		mcp.WithString("radius",
			mcp.Description("Scene radius in meters or with a unit"),
		),
		mcp.WithNumber("zoom",
			mcp.Description("Tile zoom level (1-15)"),
		),
	)
}

// TileURLer formats tile URLs
type TileURLer interface {
	URL(t maptile.Tile) string
}

// HandleElevationTiles returns the elevation_tiles handler
func (s *SceneService) HandleElevationTiles() func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("elevation_tiles", func(ctx context.Context, input ElevationTilesInput, logger *slog.Logger) (any, error) {
		anchor, err := ParseAnchor(input.Anchor)
		if err != nil {
			return nil, err
		}
		cfg := s.Config
		if input.Radius != 0 {
			cfg.Radius = float64(input.Radius)
		}
		if err := ValidateRadius(cfg.Radius, s.maxRadius()); err != nil {
			return nil, err
		}
		zoom := cfg.Terrain.Zoom
		if input.Zoom != 0 {
			zoom = input.Zoom
		}
		if zoom < 1 || zoom > 15 {
			return nil, core.NewError(core.ErrInvalidInput, fmt.Sprintf("zoom must be between 1 and 15, got %d", zoom))
		}

		proj := geo.NewProjector(anchor.Location)
		rng, _ := elevation.TilesFor(geo.SquareBound(cfg.TerrainSize()), proj, maptile.Zoom(zoom))
		out := ElevationTilesOutput{
			Anchor: anchor.Location,
			Range:  rng,
			Count:  rng.Count(),
			Tiles:  rng.Info(),
		}
		if u, ok := s.Tiles.(TileURLer); ok {
			for _, t := range rng.Tiles() {
				out.URLs = append(out.URLs, redactToken(u.URL(t), cfg.Terrain.MapboxToken))
			}
		}
		logger.Debug("elevation tiles listed", "count", out.Count, "zoom", zoom)
		return out, nil
	})
}

func redactToken(url, token string) string {
	if token == "" {
		return url
	}
	return strings.ReplaceAll(url, token, "REDACTED")
}

// ParseAnchorInput defines the input parameters for parse_anchor
type ParseAnchorInput struct {
	Anchor string `json:"anchor"`
}

// ParseAnchorOutput is a converted anchor
type ParseAnchorOutput struct {
	Input    string       `json:"input"`
	Format   string       `json:"format"`
	Location geo.Location `json:"location"`
	MGRS     string       `json:"mgrs,omitempty"`
}

// ParseAnchorTool returns the tool definition for parse_anchor
func ParseAnchorTool() mcp.Tool {
	return mcp.NewTool("parse_anchor",
		mcp.WithDescription("Convert a coordinate in decimal degrees, DMS, UTM or MGRS to latitude/longitude and MGRS"),
		mcp.WithString("anchor",
			mcp.Required(),
			mcp.Description("The coordinate string"),
		),
	)
}

// HandleParseAnchor implements anchor conversion
func HandleParseAnchor(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("parse_anchor", func(ctx context.Context, input ParseAnchorInput, logger *slog.Logger) (any, error) {
		a, err := ParseAnchor(input.Anchor)
		if err != nil {
			return nil, err
		}
		out := ParseAnchorOutput{Input: a.Input, Format: a.Format.String(), Location: a.Location}
		if m, err := coords.ToMGRS(a.Location, 5); err == nil {
			out.MGRS = m
		} else {
			logger.Debug("no MGRS for location", "error", err)
		}
		return out, nil
	})(ctx, req)
}

func (s *SceneService) maxRadius() float64 {
	if s.MaxRadius > 0 {
		return s.MaxRadius
	}
	return DefaultMaxRadius
}

func (s *SceneService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
