package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/osmterrain/pkg/elevation"
)

// Version information
var (
	// Version is the application version, set during build
	Version = "dev"

	// BuildInfo contains additional build information
	BuildInfo *debug.BuildInfo
)

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		BuildInfo = info
	}
}

// VersionInfo represents version information for the service
type VersionInfo struct {
	Version     string   `json:"version"`
	GoVersion   string   `json:"go_version,omitempty"`
	BuildTime   string   `json:"build_time,omitempty"`
	VCSRevision string   `json:"vcs_revision,omitempty"`
	Encodings   []string `json:"encodings"`
}

// GetVersionTool returns a tool definition for retrieving version information
func GetVersionTool() mcp.Tool {
	return mcp.NewTool("get_version",
		mcp.WithDescription("Get the version and build information of the scene builder"),
	)
}

// HandleGetVersion implements version information retrieval
func HandleGetVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := slog.Default().With("tool", "get_version")

	info := VersionInfo{
		Version:   Version,
		Encodings: []string{elevation.EncodingMapbox, elevation.EncodingTerrarium},
	}
	if BuildInfo != nil {
		info.GoVersion = BuildInfo.GoVersion
		for _, setting := range BuildInfo.Settings {
			switch setting.Key {
			case "vcs.revision":
				info.VCSRevision = setting.Value
			case "vcs.time":
				info.BuildTime = setting.Value
			}
		}
	}

	resultBytes, err := json.Marshal(info)
	if err != nil {
		logger.Error("failed to marshal version info", "error", err)
		return ErrorResponse("Failed to retrieve version information"), nil
	}

	return mcp.NewToolResultText(string(resultBytes)), nil
}
