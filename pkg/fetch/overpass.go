package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"github.com/NERVsystems/osmterrain/pkg/core"
	"github.com/NERVsystems/osmterrain/pkg/geo"
	"github.com/NERVsystems/osmterrain/pkg/osm"
	"github.com/NERVsystems/osmterrain/pkg/osm/queries"
	"github.com/NERVsystems/osmterrain/pkg/tracing"
)

// OverpassClient posts Overpass QL queries to a single endpoint
type OverpassClient struct {
	endpoint string
	req      *core.Requester
	logger   *slog.Logger
}

// NewOverpassClient creates a client for endpoint
func NewOverpassClient(endpoint string, client *http.Client, rps float64, logger *slog.Logger) *OverpassClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &OverpassClient{
		endpoint: endpoint,
		req:      core.NewRequester(tracing.ServiceOverpass, client, rps, logger),
		logger:   logger.With("component", "overpass_client"),
	}
}

// SetUserAgent overrides the User-Agent sent to the endpoint
func (c *OverpassClient) SetUserAgent(ua string) {
	c.req.UserAgent = ua
}

// Query runs a query and decodes the element list
func (c *OverpassClient) Query(ctx context.Context, query string) ([]osm.Element, error) {
	body := url.Values{"data": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating overpass request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.req.Do(ctx, req, "query")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	elements, err := osm.DecodeJSON(resp.Body)
	if err != nil {
		return nil, core.NewError(core.ErrParseError, err.Error()).
			WithGuidance("The Overpass response was malformed. Try a smaller radius.")
	}
	return elements, nil
}

// Scene fetches the elements of the enabled layers around anchor. No
// layer enabled yields an empty list without a request.
func (c *OverpassClient) Scene(ctx context.Context, anchor geo.Location, radius float64, layers queries.Layers) ([]osm.Element, error) {
	ctx, span := tracing.StartSpan(ctx, "fetch.overpass")
	defer span.End()
	span.SetAttributes(tracing.SceneAttributes(anchor.Latitude, anchor.Longitude, radius)...)

	q, ok := queries.SceneQuery(anchor.Latitude, anchor.Longitude, radius, layers)
	if !ok {
		return nil, nil
	}

	elements, err := c.Query(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "overpass query failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	c.logger.Info("elements fetched", "count", len(elements), "radius", radius)
	return elements, nil
}
