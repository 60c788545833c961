package scene

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/osmterrain/pkg/config"
	"github.com/NERVsystems/osmterrain/pkg/core"
	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/geo"
	"github.com/NERVsystems/osmterrain/pkg/mesh"
	"github.com/NERVsystems/osmterrain/pkg/osm"
	"github.com/NERVsystems/osmterrain/pkg/osm/queries"
)

func node(id int64, lat, lon float64, tags map[string]string) osm.Element {
	return osm.Element{ID: id, Type: osm.TypeNode, Lat: lat, Lon: lon, Tags: tags}
}

func way(id int64, nodes []int64, tags map[string]string) osm.Element {
	return osm.Element{ID: id, Type: osm.TypeWay, Nodes: nodes, Tags: tags}
}

// town is a building, a road with a crossing on it and a small forest
func town() []osm.Element {
	return []osm.Element{
		node(1, 41.5000, -72.9000, nil),
		node(2, 41.5000, -72.8995, nil),
		node(3, 41.5004, -72.8995, nil),
		node(4, 41.5004, -72.9000, nil),
		way(10, []int64{1, 2, 3, 4}, map[string]string{"building": "yes"}),

		node(5, 41.4990, -72.9010, nil),
		node(6, 41.4990, -72.8980, nil),
		node(7, 41.4990, -72.8995, map[string]string{"highway": "crossing"}),
		way(20, []int64{5, 7, 6}, map[string]string{"highway": "residential"}),

		node(11, 41.5010, -72.9010, nil),
		node(12, 41.5010, -72.9000, nil),
		node(13, 41.5018, -72.9000, nil),
		node(14, 41.5018, -72.9010, nil),
		way(30, []int64{11, 12, 13, 14}, map[string]string{"landuse": "forest"}),

		// unknown highway class
		way(41, []int64{1, 2}, map[string]string{"highway": "proposed"}),
	}
}

func offlineConfig() config.Config {
	cfg := config.Default()
	cfg.Anchor = "41.5, -72.9"
	cfg.Radius = 300
	cfg.Layers.Crosswalks = true
	cfg.Terrain.Enabled = false
	cfg.Trees.Enabled = true
	cfg.Trees.Street = false
	return cfg
}

func categories(ms []*mesh.Mesh) map[mesh.Category]int {
	out := make(map[mesh.Category]int)
	for _, m := range ms {
		out[m.Category]++
	}
	return out
}

// solidTiles covers the configured terrain square with Terrarium tiles of
// one height
func solidTiles(t *testing.T, cfg config.Config, height float64) map[maptile.Tile]image.Image {
	t.Helper()
	loc, err := cfg.Location()
	require.NoError(t, err)

	rng, _ := elevation.TilesFor(geo.SquareBound(cfg.TerrainSize()), geo.NewProjector(loc), maptile.Zoom(cfg.Terrain.Zoom))
	v := int(height + 32768)
	c := color.RGBA{R: uint8(v / 256), G: uint8(v % 256), B: 0, A: 255}

	tiles := make(map[maptile.Tile]image.Image)
	for _, tile := range rng.Tiles() {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				img.SetRGBA(x, y, c)
			}
		}
		tiles[tile] = img
	}
	return tiles
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := offlineConfig()
	cfg.Anchor = ""

	res, err := NewBuilder(cfg, nil).Build(context.Background(), Input{})
	require.Error(t, err)
	assert.Nil(t, res)

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, OutcomeFatal, be.Outcome)
	assert.Equal(t, string(core.ErrInvalidConfig), be.Code)
}

func TestBuildOffline(t *testing.T) {
	res, err := NewBuilder(offlineConfig(), nil).Build(context.Background(), Input{Elements: town()})
	require.NoError(t, err)

	cats := categories(res.Meshes)
	assert.Equal(t, 1, cats[mesh.CategoryBuilding])
	assert.Equal(t, 1, cats[mesh.CategoryRoad])
	assert.Equal(t, 1, cats[mesh.CategoryCrosswalk])
	assert.Equal(t, 1, cats[mesh.CategoryLanduse])
	assert.Zero(t, cats[mesh.CategoryTerrain])
	assert.Equal(t, cats, res.Report.Meshes)

	assert.False(t, res.Report.Elevation.Available)
	assert.Nil(t, res.Grid)
	assert.False(t, res.Report.Degraded())
	assert.Equal(t, 0, res.Report.Count(OutcomeFatal))

	require.Equal(t, 1, res.Report.Count(OutcomeSkipped))
	assert.Equal(t, "way/41", res.Report.Issues[0].SourceID)
	assert.NotEmpty(t, res.Objects)

	for _, m := range res.Meshes {
		require.NoError(t, m.Validate(), m.SourceID)
	}
	for _, m := range res.Meshes {
		if m.Category == mesh.CategoryBuilding {
			lo, _ := m.Bounds()
			assert.Zero(t, lo.Z)
		}
	}
}

func TestBuildCrossingWithoutRoad(t *testing.T) {
	els := []osm.Element{node(40, 41.5, -72.9, map[string]string{"highway": "crossing"})}

	res, err := NewBuilder(offlineConfig(), nil).Build(context.Background(), Input{Elements: els})
	require.NoError(t, err)

	assert.Empty(t, res.Meshes)
	require.Len(t, res.Report.Issues, 1)
	assert.Equal(t, "node/40", res.Report.Issues[0].SourceID)
	assert.Equal(t, OutcomeSkipped, res.Report.Issues[0].Outcome)
}

func TestBuildLayersOff(t *testing.T) {
	cfg := offlineConfig()
	cfg.Layers = config.Layers{Buildings: true}
	cfg.Trees.Enabled = false

	res, err := NewBuilder(cfg, nil).Build(context.Background(), Input{Elements: town()})
	require.NoError(t, err)

	cats := categories(res.Meshes)
	assert.Equal(t, map[mesh.Category]int{mesh.CategoryBuilding: 1}, cats)
	assert.Empty(t, res.Objects)
}

func TestBuildWithoutTilesDegrades(t *testing.T) {
	cfg := offlineConfig()
	cfg.Terrain.Enabled = true

	res, err := NewBuilder(cfg, nil).Build(context.Background(), Input{Elements: town()})
	require.NoError(t, err)

	assert.True(t, res.Report.Degraded())
	assert.False(t, res.Report.Elevation.Available)
	require.NotNil(t, res.Report.Elevation.Tiles)

	var degraded *BuildError
	for _, e := range res.Report.Issues {
		if e.Outcome == OutcomeDegraded {
			degraded = e
		}
	}
	require.NotNil(t, degraded)
	assert.Equal(t, string(core.ErrNoElevation), degraded.Code)
	assert.ErrorIs(t, degraded, ErrNoTileSource)

	// features still land on flat ground
	assert.Equal(t, 1, categories(res.Meshes)[mesh.CategoryBuilding])
	assert.Zero(t, categories(res.Meshes)[mesh.CategoryTerrain])
}

func TestBuildWithElevation(t *testing.T) {
	cfg := offlineConfig()
	cfg.Terrain.Enabled = true
	cfg.Terrain.Resolution = 64
	cfg.Terrain.ZOffset = 0.5
	cfg.Terrain.Contours = true
	cfg.Terrain.ContourInterval = 10

	in := Input{Elements: town(), Tiles: solidTiles(t, cfg, 100)}
	res, err := NewBuilder(cfg, nil).Build(context.Background(), in)
	require.NoError(t, err)

	require.NotNil(t, res.Grid)
	assert.True(t, res.Report.Elevation.Available)
	assert.Equal(t, "TERRARIUM", res.Report.Elevation.Encoding)
	assert.Equal(t, 64, res.Report.Elevation.Resolution)
	assert.InDelta(t, 100, res.Report.Elevation.Min, 1e-9)
	assert.InDelta(t, 100, res.Report.Elevation.Max, 1e-9)
	assert.False(t, res.Report.Degraded())

	cats := categories(res.Meshes)
	assert.Equal(t, 1, cats[mesh.CategoryTerrain])
	// a flat field has no contour crossings
	assert.Zero(t, cats[mesh.CategoryContour])

	for _, m := range res.Meshes {
		if m.Category == mesh.CategoryBuilding {
			lo, _ := m.Bounds()
			assert.InDelta(t, 100.5, lo.Z, 1e-6)
		}
	}
	for _, o := range res.Objects {
		assert.InDelta(t, 100.5, o.Position.Z, 1e-6)
	}
}

func TestBuildTreesDeterministic(t *testing.T) {
	cfg := offlineConfig()
	cfg.Trees.Seed = 42

	first, err := NewBuilder(cfg, nil).Build(context.Background(), Input{Elements: town()})
	require.NoError(t, err)
	second, err := NewBuilder(cfg, nil).Build(context.Background(), Input{Elements: town()})
	require.NoError(t, err)

	require.NotEmpty(t, first.Objects)
	assert.Equal(t, first.Objects, second.Objects)

	total := 0
	for _, n := range first.Report.Objects {
		total += n
	}
	assert.Equal(t, len(first.Objects), total)

	cfg.Trees.Meshes = true
	withMeshes, err := NewBuilder(cfg, nil).Build(context.Background(), Input{Elements: town()})
	require.NoError(t, err)
	assert.Equal(t, first.Objects, withMeshes.Objects)
	assert.Equal(t, len(first.Objects), categories(withMeshes.Meshes)[mesh.CategoryTree])
}

func TestBuildTreesRespectAreaSwitches(t *testing.T) {
	cfg := offlineConfig()
	cfg.Trees.InForests = false

	res, err := NewBuilder(cfg, nil).Build(context.Background(), Input{Elements: town()})
	require.NoError(t, err)
	assert.Empty(t, res.Objects)
}

type stubElements struct {
	layers queries.Layers
	err    error
}

func (s *stubElements) Scene(_ context.Context, _ geo.Location, _ float64, layers queries.Layers) ([]osm.Element, error) {
	s.layers = layers
	if s.err != nil {
		return nil, s.err
	}
	return town(), nil
}

type stubTiles struct {
	tiles map[maptile.Tile]image.Image
	err   error
	calls int
}

func (s *stubTiles) FetchRange(_ context.Context, _ elevation.TileRange) (map[maptile.Tile]image.Image, error) {
	s.calls++
	return s.tiles, s.err
}

func TestBuildUsesSources(t *testing.T) {
	cfg := offlineConfig()
	cfg.Terrain.Enabled = true
	cfg.Terrain.Resolution = 64

	elements := &stubElements{}
	tiles := &stubTiles{tiles: solidTiles(t, cfg, 20)}
	b := NewBuilder(cfg, nil)
	b.Elements = elements
	b.Tiles = tiles

	res, err := b.Build(context.Background(), Input{})
	require.NoError(t, err)

	assert.Equal(t, 1, tiles.calls)
	assert.True(t, res.Report.Elevation.Available)
	assert.True(t, elements.layers.Crossings)
	assert.True(t, elements.layers.Roads)
	assert.Equal(t, 1, categories(res.Meshes)[mesh.CategoryBuilding])
}

func TestBuildTileFailureDegrades(t *testing.T) {
	cfg := offlineConfig()
	cfg.Terrain.Enabled = true

	b := NewBuilder(cfg, nil)
	b.Tiles = &stubTiles{err: core.NewError(core.ErrServiceUnavailable, "tile server down")}

	res, err := b.Build(context.Background(), Input{Elements: town()})
	require.NoError(t, err)
	assert.True(t, res.Report.Degraded())
}

func TestBuildElementFailureIsFatal(t *testing.T) {
	b := NewBuilder(offlineConfig(), nil)
	b.Elements = &stubElements{err: core.NewError(core.ErrRateLimit, "too many requests")}

	_, err := b.Build(context.Background(), Input{})
	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, OutcomeFatal, be.Outcome)
	assert.Equal(t, string(core.ErrRateLimit), be.Code)
}

func TestLayers(t *testing.T) {
	cfg := config.Default()
	cfg.Layers = config.Layers{}
	cfg.Trees.Enabled = true
	cfg.Trees.Street = true

	l := Layers(cfg)
	assert.True(t, l.Landuse)
	assert.True(t, l.Roads)
	assert.False(t, l.Buildings)
	assert.False(t, l.Crossings)

	cfg.Trees.Enabled = false
	assert.Equal(t, queries.Layers{}, Layers(cfg))
}
