package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/osmterrain/pkg/config"
	"github.com/NERVsystems/osmterrain/pkg/geo"
	"github.com/NERVsystems/osmterrain/pkg/osm"
	"github.com/NERVsystems/osmterrain/pkg/osm/queries"
)

func request(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil {
		t.Fatal("nil result")
	}
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			return text.Text
		}
	}
	t.Fatal("result has no text content")
	return ""
}

func parseResult(t *testing.T, result *mcp.CallToolResult, out any) {
	t.Helper()
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}
	if err := json.Unmarshal([]byte(resultText(t, result)), out); err != nil {
		t.Fatalf("failed to parse result: %v", err)
	}
}

type stubElements struct {
	layers queries.Layers
}

func (s *stubElements) Scene(_ context.Context, _ geo.Location, _ float64, layers queries.Layers) ([]osm.Element, error) {
	s.layers = layers
	return []osm.Element{
		{ID: 1, Type: osm.TypeNode, Lat: 41.5000, Lon: -72.9000},
		{ID: 2, Type: osm.TypeNode, Lat: 41.5000, Lon: -72.8990},
		{ID: 3, Type: osm.TypeNode, Lat: 41.5010, Lon: -72.8990},
		{ID: 4, Type: osm.TypeNode, Lat: 41.5010, Lon: -72.9000},
		{ID: 10, Type: osm.TypeWay, Nodes: []int64{1, 2, 3, 4}, Tags: map[string]string{"building": "yes"}},
		{ID: 11, Type: osm.TypeWay, Nodes: []int64{1, 2, 3, 4}, Tags: map[string]string{"leisure": "park"}},
	}, nil
}

func testService() (*SceneService, *stubElements) {
	cfg := config.Default()
	cfg.Terrain.Enabled = false
	elements := &stubElements{}
	return &SceneService{Config: cfg, Elements: elements}, elements
}

func TestGetToolNames(t *testing.T) {
	svc, _ := testService()
	r := NewRegistry(svc.logger(), svc)

	names := r.GetToolNames()
	want := []string{"get_version", "parse_anchor", "elevation_tiles", "build_scene"}
	if len(names) != len(want) {
		t.Fatalf("got %d tools, want %d", len(names), len(want))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("tool %d = %q, want %q", i, names[i], name)
		}
	}
	for _, def := range r.GetToolDefinitions() {
		if def.Tool.Name != def.Name {
			t.Errorf("tool %q registered as %q", def.Tool.Name, def.Name)
		}
	}
}

func TestHandleParseAnchor(t *testing.T) {
	tests := []struct {
		name    string
		anchor  string
		format  string
		wantErr bool
	}{
		{"decimal", "41.5, -72.9", "decimal", false},
		{"dms", `41°30'00"N 72°54'00"W`, "dms", false},
		{"empty", "", "", true},
		{"garbage", "somewhere nice", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := HandleParseAnchor(context.Background(), request("parse_anchor", map[string]any{"anchor": tt.anchor}))
			if err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if tt.wantErr {
				if !result.IsError {
					t.Fatalf("expected error result, got %s", resultText(t, result))
				}
				return
			}

			var out ParseAnchorOutput
			parseResult(t, result, &out)
			if out.Format != tt.format {
				t.Errorf("format = %q, want %q", out.Format, tt.format)
			}
			if d := out.Location.Latitude - 41.5; d > 1e-6 || d < -1e-6 {
				t.Errorf("latitude = %f, want 41.5", out.Location.Latitude)
			}
			if !strings.HasPrefix(out.MGRS, "18T") {
				t.Errorf("MGRS = %q, want zone 18T", out.MGRS)
			}
		})
	}
}

func TestHandleElevationTiles(t *testing.T) {
	svc, _ := testService()
	handler := svc.HandleElevationTiles()

	result, err := handler(context.Background(), request("elevation_tiles", map[string]any{
		"anchor": "41.5, -72.9",
		"radius": "500m",
		"zoom":   14,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var out ElevationTilesOutput
	parseResult(t, result, &out)
	if out.Count < 1 || out.Count != len(out.Tiles) {
		t.Errorf("count = %d with %d tiles", out.Count, len(out.Tiles))
	}
	for _, tile := range out.Tiles {
		if tile.Zoom != 14 {
			t.Errorf("tile zoom = %d, want 14", tile.Zoom)
		}
		if tile.NorthLat <= tile.SouthLat {
			t.Errorf("tile %d/%d has inverted latitudes", tile.X, tile.Y)
		}
	}

	result, err = handler(context.Background(), request("elevation_tiles", map[string]any{
		"anchor": "41.5, -72.9",
		"zoom":   22,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !result.IsError {
		t.Error("expected error result for zoom 22")
	}
}

func TestHandleBuildScene(t *testing.T) {
	svc, elements := testService()
	handler := svc.HandleBuildScene()

	result, err := handler(context.Background(), request("build_scene", map[string]any{
		"anchor":         "41.5, -72.9",
		"radius":         300,
		"trees":          true,
		"seed":           7,
		"layers":         []any{"buildings", "landuse"},
		"include_meshes": true,
		"include_trees":  true,
	}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var out struct {
		Report struct {
			Meshes map[string]int `json:"meshes"`
		} `json:"report"`
		Objects int               `json:"objects"`
		Meshes  []json.RawMessage `json:"meshes"`
		Trees   struct {
			Type     string            `json:"type"`
			Features []json.RawMessage `json:"features"`
		} `json:"trees"`
	}
	parseResult(t, result, &out)

	if out.Report.Meshes["building"] != 1 {
		t.Errorf("building meshes = %d, want 1", out.Report.Meshes["building"])
	}
	if out.Report.Meshes["road"] != 0 {
		t.Errorf("road layer was not requested")
	}
	if len(out.Meshes) == 0 {
		t.Error("include_meshes returned no meshes")
	}
	if out.Objects == 0 || len(out.Trees.Features) != out.Objects {
		t.Errorf("objects = %d, tree features = %d", out.Objects, len(out.Trees.Features))
	}
	if out.Trees.Type != "FeatureCollection" {
		t.Errorf("trees type = %q", out.Trees.Type)
	}
	if !elements.layers.Landuse || !elements.layers.Buildings || elements.layers.Rail {
		t.Errorf("unexpected fetched layers %+v", elements.layers)
	}
}

func TestHandleBuildSceneErrors(t *testing.T) {
	svc, _ := testService()
	handler := svc.HandleBuildScene()

	tests := []struct {
		name string
		args map[string]any
		code string
	}{
		{"missing anchor", map[string]any{}, "MISSING_PARAMETER"},
		{"bad anchor", map[string]any{"anchor": "nowhere"}, "INVALID_ANCHOR"},
		{"radius too large", map[string]any{"anchor": "41.5, -72.9", "radius": "20km"}, "INVALID_RADIUS"},
		{"unknown layer", map[string]any{"anchor": "41.5, -72.9", "layers": []any{"clouds"}}, "INVALID_INPUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := handler(context.Background(), request("build_scene", tt.args))
			if err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected error result")
			}
			if text := resultText(t, result); !strings.Contains(text, tt.code) {
				t.Errorf("error %q does not carry code %s", text, tt.code)
			}
		})
	}
}

func TestDistanceUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{`250`, 250, false},
		{`"2km"`, 2000, false},
		{`"1mi"`, config.MetersPerMile, false},
		{`"far"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Distance
			err := json.Unmarshal([]byte(tt.in), &d)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && float64(d) != tt.want {
				t.Errorf("got %f, want %f", float64(d), tt.want)
			}
		})
	}
}

func TestWrapWithTracingPassesThrough(t *testing.T) {
	svc, _ := testService()
	r := NewRegistry(svc.logger(), svc)

	want := ErrorResponse("boom")
	wrapped := r.wrapWithTracing("test_tool", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return want, nil
	})
	got, err := wrapped(context.Background(), request("test_tool", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != want {
		t.Error("wrapper replaced the handler result")
	}
}
