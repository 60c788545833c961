package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/osm"
)

func valid() Config {
	c := Default()
	c.Anchor = "41.5, -72.9"
	return c
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, valid().Validate())
}

func TestDefaultMissingAnchor(t *testing.T) {
	err := Default().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anchor is required")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	c := valid()
	c.Terrain.Resolution = 10
	c.Trees.Density = 2
	c.Crosswalk.Margin = 0.6

	err := c.Validate()
	require.Error(t, err)
	for _, want := range []string{"terrain.resolution", "trees.density", "crosswalk.edge_margin"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateMapboxToken(t *testing.T) {
	c := valid()
	c.Terrain.Source = elevation.EncodingMapbox
	require.Error(t, c.Validate())

	c.Terrain.MapboxToken = "pk.test"
	require.NoError(t, c.Validate())

	// disabled terrain does not need a token
	c.Terrain.MapboxToken = ""
	c.Terrain.Enabled = false
	require.NoError(t, c.Validate())
}

func TestValidatePiers(t *testing.T) {
	c := valid()
	c.Structures.PierSpacing = 2
	require.NoError(t, c.Validate(), "spacing is only checked when piers are on")

	c.Structures.Piers = true
	require.Error(t, c.Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	doc := `
anchor: "18T 630084 4833438"
radius_m: 500
terrain:
  resolution: 128
  contours: true
roads:
  half_widths:
    primary: 5
trees:
  enabled: true
  rules:
    forest: {density: 1, species: [pine], spacing: 4}
fetch:
  timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())

	assert.Equal(t, 500.0, c.Radius)
	assert.Equal(t, 1000.0, c.TerrainSize())
	assert.Equal(t, 128, c.Terrain.Resolution)
	assert.Equal(t, 10.0, c.Terrain.ContourInterval)
	assert.Equal(t, 5.0, c.Roads.HalfWidths["primary"])
	assert.Equal(t, 3.8, c.Roads.HalfWidths["secondary"], "unlisted widths keep their defaults")
	assert.True(t, c.Layers.Buildings)
	assert.Equal(t, 5*time.Second, c.Fetch.Timeout)
	assert.Equal(t, 1.0, c.Trees.Rules[osm.AreaForest].Density)

	loc, err := c.Location()
	require.NoError(t, err)
	assert.InDelta(t, 43.6, loc.Latitude, 0.2)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("radius: 5\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPlacer(t *testing.T) {
	c := valid()
	c.Trees.Density = 0.9
	c.Terrain.ZOffset = 2
	p := c.Placer()
	assert.Equal(t, 0.9, p.Density)
	assert.Equal(t, 0.3, p.SlopeLimit)
	assert.Equal(t, 2.0, p.ZOffset)

	c.Trees.SlopeLimiting = false
	assert.True(t, math.IsInf(c.Placer().SlopeLimit, 1))
}

func TestFeatureOptions(t *testing.T) {
	c := valid()
	c.Structures.Piers = true
	o := c.FeatureOptions()
	assert.True(t, o.Piers)
	assert.Equal(t, 1.5, o.BridgeClearance)
	assert.Equal(t, 3.0, o.Crosswalk.Depth)
}

func TestParseDistance(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		err  bool
	}{
		{"1609", 1609, false},
		{"800 m", 800, false},
		{"1.5km", 1500, false},
		{"1mi", MetersPerMile, false},
		{"2 MI", 2 * MetersPerMile, false},
		{"far", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDistance(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
