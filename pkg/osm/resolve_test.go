package osm

import (
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/osmterrain/pkg/geo"
)

var anchor = geo.Location{Latitude: 41.5, Longitude: -72.9}

func node(id int64, lat, lon float64, tags map[string]string) Element {
	return Element{ID: id, Type: TypeNode, Lat: lat, Lon: lon, Tags: tags}
}

func way(id int64, nodes []int64, tags map[string]string) Element {
	return Element{ID: id, Type: TypeWay, Nodes: nodes, Tags: tags}
}

func squareNodes() []Element {
	return []Element{
		node(1, 41.5000, -72.9000, nil),
		node(2, 41.5000, -72.8990, nil),
		node(3, 41.5010, -72.8990, nil),
		node(4, 41.5010, -72.9000, nil),
	}
}

func resolve(t *testing.T, elements []Element) *Features {
	t.Helper()
	return Resolve(elements, geo.NewProjector(anchor), DefaultResolveOptions())
}

func TestResolveClosesRing(t *testing.T) {
	tests := []struct {
		name  string
		nodes []int64
	}{
		{"open way", []int64{1, 2, 3, 4}},
		{"already closed", []int64{1, 2, 3, 4, 1}},
		{"missing reference dropped", []int64{1, 99, 2, 3, 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			els := append(squareNodes(), way(10, tt.nodes, map[string]string{"building": "yes"}))
			f := resolve(t, els)

			require.Len(t, f.Buildings, 1)
			ring := f.Buildings[0].Ring
			assert.Equal(t, ring[0], ring[len(ring)-1])
			assert.Len(t, ring, 5)
			assert.Empty(t, f.Skipped)
		})
	}
}

func TestResolveOrderIndependent(t *testing.T) {
	w := way(10, []int64{1, 2, 3, 4}, map[string]string{"natural": "water"})
	before := resolve(t, append([]Element{w}, squareNodes()...))
	after := resolve(t, append(squareNodes(), w))

	require.Len(t, before.Water, 1)
	assert.Equal(t, after.Water[0].Ring, before.Water[0].Ring)
}

func TestResolveTooFewPoints(t *testing.T) {
	els := append(squareNodes(),
		way(10, []int64{1, 2, 1}, map[string]string{"building": "yes"}),
		way(11, []int64{1, 77}, map[string]string{"highway": "residential"}),
	)
	f := resolve(t, els)

	assert.Empty(t, f.Buildings)
	assert.Empty(t, f.Roads)
	require.Len(t, f.Skipped, 2)
	assert.Equal(t, ReasonTooFewPoints, f.Skipped[0].Reason)
	assert.Equal(t, ClassRoad, f.Skipped[1].Class)
}

func TestResolveRoadKeepsOpenPolyline(t *testing.T) {
	els := append(squareNodes(), way(20, []int64{1, 2, 3}, map[string]string{
		"highway": "primary",
		"bridge":  "yes",
		"layer":   "2",
	}))
	f := resolve(t, els)

	require.Len(t, f.Roads, 1)
	road := f.Roads[0]
	assert.Len(t, road.Points, 3)
	assert.Equal(t, 4.5, road.HalfWidth)
	assert.True(t, road.Structure.Bridge)
	assert.Equal(t, 2.0, road.Structure.Layer)
}

func TestResolveUnknownHighwaySkipped(t *testing.T) {
	els := append(squareNodes(), way(21, []int64{1, 2, 3, 4}, map[string]string{
		"highway":  "proposed",
		"building": "yes",
	}))
	f := resolve(t, els)

	assert.Empty(t, f.Roads)
	assert.Empty(t, f.Buildings)
	require.Len(t, f.Skipped, 1)
	assert.Equal(t, ReasonUnknownHighway, f.Skipped[0].Reason)
}

func TestClassifyPriority(t *testing.T) {
	c := Classifier{RoadHalfWidths: DefaultRoadHalfWidths()}

	tests := []struct {
		name  string
		tags  map[string]string
		class Class
		area  AreaType
	}{
		{"road beats building", map[string]string{"highway": "service", "building": "yes"}, ClassRoad, ""},
		{"building beats water", map[string]string{"building": "yes", "natural": "water"}, ClassBuilding, ""},
		{"riverbank", map[string]string{"waterway": "riverbank"}, ClassWater, ""},
		{"water beats landuse", map[string]string{"natural": "water", "landuse": "forest"}, ClassWater, ""},
		{"forest", map[string]string{"landuse": "forest"}, ClassLanduse, AreaForest},
		{"wood", map[string]string{"natural": "wood"}, ClassLanduse, AreaForest},
		{"park", map[string]string{"leisure": "park"}, ClassLanduse, AreaPark},
		{"pitch", map[string]string{"leisure": "pitch"}, ClassLanduse, AreaPark},
		{"grass", map[string]string{"landuse": "grass"}, ClassLanduse, AreaPark},
		{"landuse beats rail", map[string]string{"landuse": "grass", "railway": "rail"}, ClassLanduse, AreaPark},
		{"rail", map[string]string{"railway": "tram"}, ClassRail, ""},
		{"unclassified", map[string]string{"amenity": "bench"}, ClassNone, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, area, matched := c.Classify(tt.tags)
			assert.True(t, matched)
			assert.Equal(t, tt.class, class)
			assert.Equal(t, tt.area, area)
		})
	}
}

func TestResolveRelationOuterOnly(t *testing.T) {
	els := append(squareNodes(),
		node(5, 41.5002, -72.8998, nil),
		node(6, 41.5002, -72.8996, nil),
		node(7, 41.5004, -72.8996, nil),
		way(30, []int64{1, 2, 3, 4, 1}, nil),
		way(31, []int64{5, 6, 7, 5}, nil),
		way(32, []int64{4, 3, 2}, nil),
		Element{ID: 40, Type: TypeRelation, Tags: map[string]string{"building": "yes", "type": "multipolygon"},
			Members: []Member{
				{Type: TypeWay, Ref: 30, Role: "outer"},
				{Type: TypeWay, Ref: 31, Role: "inner"},
				{Type: TypeWay, Ref: 32, Role: ""},
				{Type: TypeWay, Ref: 999, Role: "outer"},
			}},
	)
	f := resolve(t, els)

	require.Len(t, f.Buildings, 2)
	assert.Equal(t, "relation/40/0", f.Buildings[0].SourceID())
	assert.Equal(t, "relation/40/1", f.Buildings[1].SourceID())
	// No ring was built from the inner member
	for _, b := range f.Buildings {
		assert.NotContains(t, b.Ring, geo.NewProjector(anchor).Project(41.5002, -72.8998))
	}
}

func TestResolveCrossings(t *testing.T) {
	els := []Element{
		node(1, 41.5, -72.9, map[string]string{"highway": "crossing"}),
		node(2, 41.5, -72.9, map[string]string{"highway": "traffic_signals"}),
	}
	f := resolve(t, els)

	require.Len(t, f.Crossings, 1)
	assert.Equal(t, orb.Point{0, 0}, f.Crossings[0].Position)
}

func TestAreasGroupsByType(t *testing.T) {
	els := append(squareNodes(),
		way(50, []int64{1, 2, 3, 4}, map[string]string{"landuse": "forest"}),
		way(51, []int64{1, 2, 3, 4}, map[string]string{"leisure": "park"}),
		way(52, []int64{1, 2, 3, 4}, map[string]string{"natural": "wood"}),
	)
	areas := resolve(t, els).Areas()

	assert.Len(t, areas[AreaForest], 2)
	assert.Len(t, areas[AreaPark], 1)
}

func TestDecodeJSON(t *testing.T) {
	doc := `{"version":0.6,"elements":[
		{"type":"node","id":1,"lat":41.5,"lon":-72.9},
		{"type":"way","id":2,"nodes":[1,3],"tags":{"highway":"service"}},
		{"type":"relation","id":4,"members":[{"type":"way","ref":2,"role":"outer"}],"tags":{"building":"yes"}}
	]}`
	els, err := DecodeJSON(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, els, 3)
	assert.Equal(t, []int64{1, 3}, els[1].Nodes)
	assert.Equal(t, "outer", els[2].Members[0].Role)
}

func TestDecodeXML(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="41.5" lon="-72.9"><tag k="highway" v="crossing"/></node>
  <node id="2" lat="41.5" lon="-72.899"/>
  <way id="3"><nd ref="1"/><nd ref="2"/><tag k="highway" v="residential"/></way>
  <relation id="5"><member type="way" ref="3" role="outer"/><tag k="natural" v="water"/></relation>
</osm>`
	els, err := DecodeXML(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, els, 4)

	assert.Equal(t, TypeNode, els[0].Type)
	assert.Equal(t, "crossing", els[0].Tag("highway"))
	assert.Equal(t, []int64{1, 2}, els[2].Nodes)
	assert.Equal(t, Member{Type: TypeWay, Ref: 3, Role: "outer"}, els[3].Members[0])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".osm")
	require.NoError(t, err)
	assert.Equal(t, FormatXML, f)

	_, err = ParseFormat("pbf")
	assert.Error(t, err)
}
