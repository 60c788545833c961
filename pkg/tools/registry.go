// Package tools provides the MCP tools that expose scene building.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/osmterrain/pkg/monitoring"
	"github.com/NERVsystems/osmterrain/pkg/tracing"
)

// Handler is an MCP tool handler
type Handler = func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Registry contains all tool definitions and handlers
type Registry struct {
	logger *slog.Logger
	scenes *SceneService
}

// NewRegistry creates a new tool registry
func NewRegistry(logger *slog.Logger, scenes *SceneService) *Registry {
	if scenes.Logger == nil {
		scenes.Logger = logger
	}
	return &Registry{
		logger: logger,
		scenes: scenes,
	}
}

// ToolDefinition represents an MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     Handler
}

// GetToolDefinitions returns the list of all available tools.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "get_version",
			Description: "Get the version information for this scene builder",
			Tool:        GetVersionTool(),
			Handler:     HandleGetVersion,
		},
		{
			Name:        "parse_anchor",
			Description: "Convert decimal, DMS, UTM or MGRS coordinates to lat/lon. Parameters: anchor (string)",
			Tool:        ParseAnchorTool(),
			Handler:     HandleParseAnchor,
		},
		{
			Name:        "elevation_tiles",
			Description: "List the elevation tiles covering a scene. Parameters: anchor (string), radius (meters or with unit), zoom (number, 1-15)",
			Tool:        ElevationTilesTool(),
			Handler:     r.scenes.HandleElevationTiles(),
		},
		{
			Name:        "build_scene",
			Description: "Build a terrain scene around an anchor. Parameters: anchor (string), radius, terrain (bool), trees (bool), seed (number), layers (array), include_meshes (bool), include_trees (bool)",
			Tool:        BuildSceneTool(),
			Handler:     r.scenes.HandleBuildScene(),
		},
	}
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, r.wrapWithTracing(def.Name, def.Handler))
	}
}

// wrapWithTracing wraps a tool handler with OpenTelemetry tracing and
// request metrics
func (r *Registry) wrapWithTracing(toolName string, handler Handler) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		spanName := fmt.Sprintf("mcp.tool.%s", toolName)
		ctx, span := tracing.StartSpan(ctx, spanName,
			trace.WithAttributes(
				attribute.String(tracing.AttrMCPToolName, toolName),
			),
		)
		defer span.End()

		startTime := time.Now()
		result, err := handler(ctx, req)
		duration := time.Since(startTime)
		durationMs := duration.Milliseconds()

		status := tracing.StatusSuccess
		switch {
		case err != nil:
			status = tracing.StatusError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case result != nil && result.IsError:
			status = tracing.StatusError
			span.SetStatus(codes.Error, "tool returned an error result")
		default:
			span.SetStatus(codes.Ok, "")
		}
		monitoring.RecordMCPRequest(toolName, duration, status == tracing.StatusSuccess)

		resultSize := 0
		if result != nil && result.Content != nil {
			if data, marshalErr := json.Marshal(result.Content); marshalErr == nil {
				resultSize = len(data)
			}
		}

		span.SetAttributes(tracing.MCPToolAttributes(toolName, status, durationMs, resultSize)...)

		r.logger.Debug("tool execution traced",
			"tool", toolName,
			"duration_ms", durationMs,
			"status", status,
			"result_size", resultSize,
		)

		return result, err
	}
}

// GetToolNames returns a list of all tool names.
func (r *Registry) GetToolNames() []string {
	defs := r.GetToolDefinitions()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// RegisterAll registers all tools with the MCP server.
func (r *Registry) RegisterAll(mcpServer *server.MCPServer) {
	r.RegisterTools(mcpServer)
}
