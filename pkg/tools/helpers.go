package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/osmterrain/pkg/config"
	"github.com/NERVsystems/osmterrain/pkg/coords"
	"github.com/NERVsystems/osmterrain/pkg/core"
)

// InputParser is a generic function to parse request arguments into a strongly typed struct
func InputParser[T any](req mcp.CallToolRequest) (T, *mcp.CallToolResult, error) {
	var input T

	inputJSON, err := json.Marshal(req.Params.Arguments)
	if err != nil {
		return input, ErrorResponse(fmt.Sprintf("Invalid input format: %v", err)), err
	}

	if err := json.Unmarshal(inputJSON, &input); err != nil {
		return input, ErrorResponse(fmt.Sprintf("Failed to parse input: %v", err)), err
	}

	return input, nil, nil
}

// WithParsedInput is a higher-order function that handles request parsing and error handling
func WithParsedInput[T any](
	handlerName string,
	handler func(ctx context.Context, input T, logger *slog.Logger) (any, error),
) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := slog.Default().With("tool", handlerName)

		input, errResult, err := InputParser[T](req)
		if err != nil {
			logger.Error("failed to parse input", "error", err)
			return errResult, nil
		}

		result, err := handler(ctx, input, logger)
		if err != nil {
			logger.Error("handler error", "error", err)
			return BuildErrorResult(err), nil
		}

		resultBytes, err := json.Marshal(result)
		if err != nil {
			logger.Error("failed to marshal result", "error", err)
			return ErrorResponse("Failed to generate result"), nil
		}

		return mcp.NewToolResultText(string(resultBytes)), nil
	}
}

// Distance is a length in meters that also unmarshals from strings with
// a unit, such as "2km" or "1.5mi"
type Distance float64

// UnmarshalJSON implements json.Unmarshaler
func (d *Distance) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := config.ParseDistance(s)
		if err != nil {
			return err
		}
		*d = Distance(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("distance must be a number or a string with a unit: %w", err)
	}
	*d = Distance(v)
	return nil
}

// ParseAnchor converts an anchor string, reporting a coded error
func ParseAnchor(s string) (coords.Anchor, error) {
	if s == "" {
		return coords.Anchor{}, core.NewError(core.ErrMissingParameter, "anchor is required").
			WithGuidance(GuidanceAnchorFormat)
	}
	a, err := coords.Parse(s)
	if err != nil {
		return coords.Anchor{}, core.NewError(core.ErrInvalidAnchor, err.Error()).
			WithGuidance(GuidanceAnchorFormat)
	}
	return a, nil
}

// ValidateRadius validates that a radius is positive and within the specified maximum
func ValidateRadius(radius, maxRadius float64) error {
	if radius <= 0 {
		return core.NewError(core.ErrInvalidRadius, fmt.Sprintf("radius must be greater than 0, got %g", radius)).
			WithGuidance(GuidanceRadius)
	}
	if maxRadius > 0 && radius > maxRadius {
		return core.NewError(core.ErrInvalidRadius,
			fmt.Sprintf("radius must be less than or equal to %g, got %g", maxRadius, radius)).
			WithGuidance(GuidanceRadius)
	}
	return nil
}
