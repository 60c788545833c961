package fetch

import (
	"fmt"
	"log/slog"

	"github.com/NERVsystems/osmterrain/pkg/config"
	"github.com/NERVsystems/osmterrain/pkg/core"
	"github.com/NERVsystems/osmterrain/pkg/elevation"
)

// Sources are the network inputs of a build
type Sources struct {
	Tiles    *TileFetcher
	Overpass *OverpassClient
}

// NewSources wires the tile fetcher and Overpass client a configuration
// asks for. Both share one HTTP client.
func NewSources(cfg config.Config, logger *slog.Logger) (*Sources, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f := cfg.Fetch
	client := core.NewHTTPClient(f.Timeout)
	ua := core.UserAgentFor(f.ContactEmail)

	enc, err := cfg.Encoding()
	if err != nil {
		return nil, err
	}

	var template, token string
	switch enc.Name() {
	case elevation.EncodingMapbox:
		template, token = f.MapboxURL, cfg.Terrain.MapboxToken
	case elevation.EncodingTerrarium:
		template = f.TerrariumURL
	default:
		return nil, fmt.Errorf("no tile template for elevation encoding %q", enc.Name())
	}

	overpass := NewOverpassClient(f.OverpassURL, client, f.RequestsPerSecond, logger)
	overpass.SetUserAgent(ua)

	return &Sources{
		Tiles: NewTileFetcher(TileOptions{
			URLTemplate:       template,
			Token:             token,
			CacheSize:         f.TileCacheSize,
			CacheTTL:          f.TileCacheTTL,
			Concurrency:       f.Concurrency,
			RequestsPerSecond: f.RequestsPerSecond,
			UserAgent:         ua,
			Client:            client,
			Logger:            logger,
		}),
		Overpass: overpass,
	}, nil
}
