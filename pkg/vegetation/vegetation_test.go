package vegetation

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/geo"
	"github.com/NERVsystems/osmterrain/pkg/mesh"
	"github.com/NERVsystems/osmterrain/pkg/osm"
)

// ramp is a field with constant slope g along x
type ramp struct{ g float64 }

func (r ramp) Sample(x, y float64) float64 { return r.g * x }
func (r ramp) Slope(x, y float64) float64  { return math.Abs(r.g) }
func (r ramp) Available() bool             { return true }

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func squareArea(t osm.AreaType, size float64) osm.Area {
	return osm.Area{
		ID:     1,
		Source: osm.TypeWay,
		Type:   t,
		Ring:   orb.Ring{{0, 0}, {size, 0}, {size, size}, {0, size}, {0, 0}},
	}
}

func TestPointInRing(t *testing.T) {
	ring := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	concave := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {5, 5}, {0, 10}, {0, 0}}

	tests := []struct {
		name string
		ring orb.Ring
		pt   orb.Point
		want bool
	}{
		{"centre", ring, orb.Point{5, 5}, true},
		{"outside", ring, orb.Point{15, 5}, false},
		{"below", ring, orb.Point{5, -1}, false},
		{"concave notch", concave, orb.Point{5, 8}, false},
		{"concave body", concave, orb.Point{5, 2}, true},
		{"degenerate ring", orb.Ring{{0, 0}, {1, 1}, {0, 0}}, orb.Point{0.5, 0.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PointInRing(tt.pt, tt.ring))
		})
	}
}

func TestPlaceInAreasZeroDensity(t *testing.T) {
	p := NewPlacer()
	p.Density = 0

	objs := p.PlaceInAreas([]osm.Area{squareArea(osm.AreaForest, 100)}, ramp{}, seeded(1))
	assert.Empty(t, objs)
}

func TestPlaceInAreasDeterministic(t *testing.T) {
	p := NewPlacer()
	areas := []osm.Area{squareArea(osm.AreaForest, 60), squareArea(osm.AreaPark, 80)}

	first := p.PlaceInAreas(areas, ramp{}, seeded(42))
	second := p.PlaceInAreas(areas, ramp{}, seeded(42))

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
}

func TestPlaceInAreasContainment(t *testing.T) {
	p := NewPlacer()
	p.Density = 1
	triangle := osm.Area{
		ID:     2,
		Source: osm.TypeWay,
		Type:   osm.AreaForest,
		Ring:   orb.Ring{{0, 0}, {60, 0}, {0, 60}, {0, 0}},
	}

	objs := p.PlaceInAreas([]osm.Area{triangle}, ramp{}, seeded(7))
	require.NotEmpty(t, objs)

	allowed := map[Species]bool{Oak: true, Pine: true, Birch: true}
	for _, o := range objs {
		assert.True(t, PointInRing(orb.Point{o.Position.X, o.Position.Y}, triangle.Ring))
		assert.True(t, allowed[o.Species], "species %s", o.Species)
		assert.GreaterOrEqual(t, o.Scale, 0.7)
		assert.Less(t, o.Scale, 1.3)
		assert.Equal(t, "way/2", o.Source)
	}
}

func TestPlaceInAreasFullDensityFillsGrid(t *testing.T) {
	p := NewPlacer()
	p.Density = 1
	p.Rules = map[osm.AreaType]Rule{
		osm.AreaPark: {Density: 1, Species: []Species{Oak}, Spacing: 10},
	}

	// jitter keeps every candidate inside its cell, so all 3×3 cells of a
	// 30 m square land inside
	objs := p.PlaceInAreas([]osm.Area{squareArea(osm.AreaPark, 30)}, ramp{}, seeded(3))
	assert.Len(t, objs, 9)
}

func TestPlaceInAreasSlopeLimit(t *testing.T) {
	p := NewPlacer()
	p.Density = 1
	area := []osm.Area{squareArea(osm.AreaForest, 60)}

	assert.Empty(t, p.PlaceInAreas(area, ramp{g: 0.5}, seeded(9)))

	p.SlopeLimit = math.Inf(1)
	assert.NotEmpty(t, p.PlaceInAreas(area, ramp{g: 0.5}, seeded(9)))

	p.SlopeLimit = 0.5
	assert.NotEmpty(t, p.PlaceInAreas(area, ramp{g: 0.5}, seeded(9)), "slope equal to the limit is accepted")
	p.SlopeLimit = 0.49
	assert.Empty(t, p.PlaceInAreas(area, ramp{g: 0.5}, seeded(9)))
}

func TestPlaceInAreasHeight(t *testing.T) {
	p := NewPlacer()
	p.Density = 1
	p.ZOffset = 2
	p.SlopeLimit = math.Inf(1)

	for _, o := range p.PlaceInAreas([]osm.Area{squareArea(osm.AreaForest, 30)}, ramp{g: 0.1}, seeded(5)) {
		assert.InDelta(t, 0.1*o.Position.X+2, o.Position.Z, 1e-9)
	}
}

func TestUnknownAreaTypeUsesPark(t *testing.T) {
	p := NewPlacer()
	p.Density = 1
	objs := p.PlaceInAreas([]osm.Area{squareArea("meadow", 80)}, ramp{}, seeded(11))
	for _, o := range objs {
		assert.Contains(t, []Species{Oak, Birch}, o.Species)
	}
}

func TestPlaceAlongRoads(t *testing.T) {
	p := NewPlacer()
	roads := []osm.Line{
		{ID: 1, Kind: "residential", Points: orb.LineString{{0, 0}, {40, 0}}, HalfWidth: 2.6},
		{ID: 2, Kind: "motorway", Points: orb.LineString{{0, 50}, {40, 50}}, HalfWidth: 6},
	}

	objs := p.PlaceAlongRoads(roads, ramp{}, seeded(1))

	// stations at 0, 15 and 30 m on both sides of the residential road
	require.Len(t, objs, 6)
	for _, o := range objs {
		assert.InDelta(t, 4.6, math.Abs(o.Position.Y), 1e-9)
		assert.Equal(t, "way/1", o.Source)
		assert.GreaterOrEqual(t, o.Scale, 0.8)
		assert.Less(t, o.Scale, 1.2)
	}
	assert.InDelta(t, 15.0, objs[1].Position.X, 1e-9)
}

func TestPlaceAlongRoadsCarriesDistance(t *testing.T) {
	p := NewPlacer()
	p.Street.Spacing = 4
	p.Street.Setback = 0
	road := osm.Line{ID: 3, Kind: "secondary", Points: orb.LineString{{0, 0}, {6, 0}, {6, 6}}}

	objs := p.PlaceAlongRoads([]osm.Line{road}, ramp{}, seeded(2))

	// per side: 0 and 4 on the first segment, then 2 on the second
	require.Len(t, objs, 6)
	assert.InDelta(t, 2.0, objs[2].Position.Y, 1e-9)
}

func TestTreeMeshes(t *testing.T) {
	s := NewSynthesizer()
	rng := seeded(99)

	for _, sp := range []Species{Oak, Pine, Birch, Palm, "baobab"} {
		t.Run(string(sp), func(t *testing.T) {
			m := s.Tree(PlacedObject{Species: sp, Position: mesh.Vec3{X: 10, Y: 20, Z: 5}, Scale: 1}, rng)
			require.NoError(t, m.Validate())
			assert.Equal(t, mesh.CategoryTree, m.Category)

			lo, hi := m.Bounds()
			assert.InDelta(t, 5.0, lo.Z, 1e-3)
			assert.Greater(t, hi.Z, 5.0+4.0)
		})
	}

	assert.Len(t, s.Trees([]PlacedObject{{Species: Oak, Scale: 1}, {Species: Pine, Scale: 1}}, rng), 2)
}

func TestFeatureCollection(t *testing.T) {
	proj := geo.NewProjector(geo.Location{Latitude: 41.5, Longitude: -72.9})
	objs := []PlacedObject{{Species: Birch, Position: mesh.Vec3{Z: 120}, Scale: 1.1, Source: "way/4"}}

	fc := FeatureCollection(objs, proj)
	require.Len(t, fc.Features, 1)

	pt, ok := fc.Features[0].Geometry.(orb.Point)
	require.True(t, ok)
	assert.InDelta(t, -72.9, pt.Lon(), 1e-9)
	assert.InDelta(t, 41.5, pt.Lat(), 1e-9)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"species":"birch"`)
}

func TestFlatFieldStillPlaces(t *testing.T) {
	p := NewPlacer()
	p.Density = 1
	objs := p.PlaceInAreas([]osm.Area{squareArea(osm.AreaForest, 30)}, elevation.Unavailable(nil), seeded(4))
	require.NotEmpty(t, objs)
	for _, o := range objs {
		assert.Equal(t, 0.0, o.Position.Z)
	}
}
