package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/osmterrain/pkg/core"
	"github.com/NERVsystems/osmterrain/pkg/scene"
)

// Common error guidance messages
const (
	GuidanceAnchorFormat = "Give the anchor as decimal degrees (\"41.5, -72.9\"), DMS, UTM (\"18T 693605 4598125\") or MGRS (\"18TXM9360538125\")."
	GuidanceRadius       = "Give the radius in meters, or with a unit such as \"2km\" or \"1mi\"."

	GuidanceOverpassTimeout   = "Reduce the radius or switch off layers you do not need."
	GuidanceOverpassRateLimit = "The Overpass API is under load. Try again in a minute."
	GuidanceTilesUnavailable  = "The elevation tile server did not answer. Retry, or build with terrain disabled."

	GuidanceGeneral      = "Please try again later or modify your request parameters."
	GuidanceNetworkError = "Check your internet connection and try again."
)

// ErrorResponse returns a plain tool error
func ErrorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// ErrorWithGuidance returns a properly formatted error response with user guidance.
func ErrorWithGuidance(err *core.Error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("Error: %s\n\nGuidance: %s", err.Message, err.Guidance))
}

// BuildErrorResult converts a failed build into a tool result. Coded
// errors keep their code so clients can react to it.
func BuildErrorResult(err error) *mcp.CallToolResult {
	var be *scene.BuildError
	if errors.As(err, &be) {
		if be.Guidance == "" {
			be.Guidance = guidanceFor(be.Code)
		}
		data, mErr := json.Marshal(be)
		if mErr == nil {
			return mcp.NewToolResultError(string(data))
		}
	}
	ce := core.AsError(err)
	if ce.Guidance == "" {
		ce.Guidance = guidanceFor(ce.Code)
	}
	return ce.ToMCPResult()
}

func guidanceFor(code string) string {
	switch core.ErrorCode(code) {
	case core.ErrInvalidAnchor:
		return GuidanceAnchorFormat
	case core.ErrInvalidRadius:
		return GuidanceRadius
	case core.ErrServiceTimeout:
		return GuidanceOverpassTimeout
	case core.ErrRateLimit:
		return GuidanceOverpassRateLimit
	case core.ErrNetworkError:
		return GuidanceNetworkError
	case core.ErrNoElevation:
		return GuidanceTilesUnavailable
	}
	return GuidanceGeneral
}
