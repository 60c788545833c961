package tracing

import "go.opentelemetry.io/otel/attribute"

// Attribute keys
const (
	// MCP tool attributes
	AttrMCPToolName     = "mcp.tool.name"
	AttrMCPToolStatus   = "mcp.tool.status"
	AttrMCPToolDuration = "mcp.tool.duration_ms"
	AttrMCPResultSize   = "mcp.tool.result_size"

	// Scene build attributes
	AttrSceneLat        = "scene.anchor.lat"
	AttrSceneLon        = "scene.anchor.lon"
	AttrSceneRadius     = "scene.radius_m"
	AttrSceneStage      = "scene.stage"
	AttrSceneMeshes     = "scene.meshes"
	AttrSceneObjects    = "scene.objects"
	AttrSceneSkipped    = "scene.skipped"
	AttrSceneElevation  = "scene.elevation.available"
	AttrSceneResolution = "scene.elevation.resolution"

	// Tile attributes
	AttrTileZoom  = "tile.zoom"
	AttrTileCount = "tile.count"

	// External service attributes
	AttrServiceName      = "osm.service.name"
	AttrServiceOperation = "osm.service.operation"

	// Cache attributes
	AttrCacheType = "osm.cache.type"
	AttrCacheHit  = "osm.cache.hit"
	AttrCacheKey  = "osm.cache.key"

	// Rate limiting attributes
	AttrRateLimitService = "osm.ratelimit.service"
	AttrRateLimitWaitMs  = "osm.ratelimit.wait_ms"

	// HTTP attributes
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Service names
const (
	ServiceOverpass = "overpass"
	ServiceTiles    = "tiles"
)

// Cache types
const (
	CacheTypeTile = "tile"
)

// MCPToolAttributes returns attributes for MCP tool execution
func MCPToolAttributes(toolName string, status string, durationMs int64, resultSize int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrMCPToolName, toolName),
		attribute.String(AttrMCPToolStatus, status),
		attribute.Int64(AttrMCPToolDuration, durationMs),
		attribute.Int(AttrMCPResultSize, resultSize),
	}
}

// SceneAttributes describes the requested scene
func SceneAttributes(lat, lon, radius float64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Float64(AttrSceneLat, lat),
		attribute.Float64(AttrSceneLon, lon),
		attribute.Float64(AttrSceneRadius, radius),
	}
}

// ResultAttributes summarises a finished build
func ResultAttributes(meshes, objects, skipped int, elevation bool) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrSceneMeshes, meshes),
		attribute.Int(AttrSceneObjects, objects),
		attribute.Int(AttrSceneSkipped, skipped),
		attribute.Bool(AttrSceneElevation, elevation),
	}
}

// CacheAttributes returns attributes for cache operations
func CacheAttributes(cacheType string, hit bool, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrCacheType, cacheType),
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheKey, key),
	}
}

// ErrorAttributes returns attributes for errors
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, "error"),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
