// Package fetch retrieves the external inputs of a scene build: raster
// elevation tiles and OpenStreetMap elements.
package fetch

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/paulmach/orb/maptile"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/NERVsystems/osmterrain/pkg/core"
	"github.com/NERVsystems/osmterrain/pkg/elevation"
	"github.com/NERVsystems/osmterrain/pkg/monitoring"
	"github.com/NERVsystems/osmterrain/pkg/tracing"
)

// TileOptions configures a TileFetcher
type TileOptions struct {
	// URLTemplate holds {z}, {x}, {y} and optionally {token} placeholders
	URLTemplate       string
	Token             string
	CacheSize         int
	CacheTTL          time.Duration
	Concurrency       int
	RequestsPerSecond float64
	UserAgent         string
	Client            *http.Client
	Logger            *slog.Logger
}

// TileFetcher downloads and decodes raster elevation tiles. Decoded
// tiles are kept in an LRU with a TTL. Each tile is requested once per
// cache miss with no retry.
type TileFetcher struct {
	template    string
	token       string
	concurrency int
	req         *core.Requester
	cache       *expirable.LRU[maptile.Tile, image.Image]
	logger      *slog.Logger
}

// NewTileFetcher creates a fetcher for one tile source
func NewTileFetcher(opts TileOptions) *TileFetcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	req := core.NewRequester(tracing.ServiceTiles, opts.Client, opts.RequestsPerSecond, opts.Logger)
	if opts.UserAgent != "" {
		req.UserAgent = opts.UserAgent
	}
	return &TileFetcher{
		template:    opts.URLTemplate,
		token:       opts.Token,
		concurrency: opts.Concurrency,
		req:         req,
		cache:       expirable.NewLRU[maptile.Tile, image.Image](opts.CacheSize, nil, opts.CacheTTL),
		logger:      opts.Logger.With("component", "tile_fetcher"),
	}
}

// URL expands the template for a tile
func (f *TileFetcher) URL(t maptile.Tile) string {
	return strings.NewReplacer(
		"{z}", strconv.Itoa(int(t.Z)),
		"{x}", strconv.FormatUint(uint64(t.X), 10),
		"{y}", strconv.FormatUint(uint64(t.Y), 10),
		"{token}", f.token,
	).Replace(f.template)
}

// Fetch returns one decoded tile
func (f *TileFetcher) Fetch(ctx context.Context, t maptile.Tile) (image.Image, error) {
	key := elevation.TileKey(t)
	if img, ok := f.cache.Get(t); ok {
		monitoring.RecordCacheHit(tracing.CacheTypeTile)
		tracing.SetAttributes(ctx, tracing.CacheAttributes(tracing.CacheTypeTile, true, key)...)
		return img, nil
	}
	monitoring.RecordCacheMiss(tracing.CacheTypeTile)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(t), nil)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", key, err)
	}
	resp, err := f.req.Do(ctx, req, "tile")
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", key, err)
	}
	defer resp.Body.Close()

	img, err := png.Decode(resp.Body)
	if err != nil {
		monitoring.RecordError("tiles", "decode_error")
		return nil, core.NewError(core.ErrParseError, fmt.Sprintf("tile %s: decoding png: %v", key, err))
	}

	f.cache.Add(t, img)
	monitoring.UpdateCacheSize(tracing.CacheTypeTile, f.cache.Len())
	f.logger.Debug("tile fetched", "tile", key)
	return img, nil
}

// FetchRange downloads every tile of a range with bounded concurrency.
// The first failure cancels the remaining downloads and is returned.
func (f *TileFetcher) FetchRange(ctx context.Context, rng elevation.TileRange) (map[maptile.Tile]image.Image, error) {
	ctx, span := tracing.StartSpan(ctx, "fetch.tiles",
		trace.WithAttributes(
			attribute.Int(tracing.AttrTileZoom, int(rng.Zoom)),
			attribute.Int(tracing.AttrTileCount, rng.Count()),
		),
	)
	defer span.End()

	var mu sync.Mutex
	out := make(map[maptile.Tile]image.Image, rng.Count())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)
	for _, t := range rng.Tiles() {
		g.Go(func() error {
			img, err := f.Fetch(gctx, t)
			if err != nil {
				return err
			}
			mu.Lock()
			out[t] = img
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "tile download failed")
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	f.logger.Info("tiles fetched", "zoom", rng.Zoom, "count", len(out))
	return out, nil
}

// CacheLen returns the number of cached tiles
func (f *TileFetcher) CacheLen() int {
	return f.cache.Len()
}
