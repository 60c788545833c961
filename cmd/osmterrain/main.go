// Command osmterrain builds a terrain scene around an anchor and writes
// its mesh descriptors as JSON, or serves the scene tools over MCP.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/NERVsystems/osmterrain/pkg/config"
	"github.com/NERVsystems/osmterrain/pkg/fetch"
	"github.com/NERVsystems/osmterrain/pkg/osm"
	"github.com/NERVsystems/osmterrain/pkg/scene"
	"github.com/NERVsystems/osmterrain/pkg/server"
	"github.com/NERVsystems/osmterrain/pkg/tools"
	"github.com/NERVsystems/osmterrain/pkg/tracing"
	"github.com/NERVsystems/osmterrain/pkg/vegetation"
)

var (
	showVersionFlag bool
	debug           bool
	configPath      string

	anchor       string
	radius       string
	elementsPath string
	offline      bool
	noTerrain    bool
	trees        bool
	seed         uint64
	outPath      string
	treesPath    string

	mcpMode bool

	enableMonitoring bool
	monitoringAddr   string
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.StringVar(&configPath, "config", "", "YAML configuration file")

	flag.StringVar(&anchor, "anchor", "", "Scene origin: decimal degrees, DMS, UTM or MGRS")
	flag.StringVar(&radius, "radius", "", "Scene radius, e.g. 800, 2km, 1mi")
	flag.StringVar(&elementsPath, "elements", "", "Read OSM elements from a .json or .osm file instead of Overpass")
	flag.BoolVar(&offline, "offline", false, "Make no network requests; implies -no-terrain")
	flag.BoolVar(&noTerrain, "no-terrain", false, "Skip elevation and the terrain mesh")
	flag.BoolVar(&trees, "trees", false, "Scatter trees over forests and parks")
	flag.Uint64Var(&seed, "seed", 0, "Tree placement seed (0 keeps the configured seed)")
	flag.StringVar(&outPath, "out", "-", "Scene JSON output path, - for stdout")
	flag.StringVar(&treesPath, "trees-geojson", "", "Write placed trees as GeoJSON to this path")

	flag.BoolVar(&mcpMode, "mcp", false, "Serve the scene tools over MCP stdio")

	flag.BoolVar(&enableMonitoring, "enable-monitoring", false, "Serve Prometheus metrics")
	flag.StringVar(&monitoringAddr, "monitoring-addr", ":9090", "Monitoring server address")
}

func main() {
	flag.Parse()

	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if showVersionFlag {
		fmt.Printf("osmterrain %s\n", tools.Version)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, tools.Version)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()
		if endpoint := os.Getenv("OTLP_ENDPOINT"); endpoint != "" {
			logger.Info("OpenTelemetry tracing enabled", "endpoint", endpoint)
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}

	if enableMonitoring {
		stopMonitoring := startMonitoring(logger)
		defer stopMonitoring()
	}

	if mcpMode {
		err = serveMCP(ctx, cfg, logger)
	} else {
		err = build(ctx, cfg, logger)
	}
	if err != nil {
		logger.Error("osmterrain failed", "error", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies flag overrides
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return cfg, err
		}
	}
	if anchor != "" {
		cfg.Anchor = anchor
	}
	if radius != "" {
		r, err := config.ParseDistance(radius)
		if err != nil {
			return cfg, err
		}
		cfg.Radius = r
	}
	if noTerrain || offline {
		cfg.Terrain.Enabled = false
	}
	if trees {
		cfg.Trees.Enabled = true
	}
	if seed != 0 {
		cfg.Trees.Seed = seed
	}
	return cfg, nil
}

func build(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	b := scene.NewBuilder(cfg, logger)

	var in scene.Input
	if elementsPath != "" {
		els, err := fetch.LoadElements(elementsPath)
		if err != nil {
			return err
		}
		in.Elements = els
	} else if offline {
		in.Elements = []osm.Element{}
	}

	if !offline {
		src, err := fetch.NewSources(cfg, logger)
		if err != nil {
			return err
		}
		b.Tiles = src.Tiles
		b.Elements = src.Overpass
	}

	res, err := b.Build(ctx, in)
	if err != nil {
		return err
	}
	if res.Report.Degraded() {
		logger.Warn("scene built on a flat elevation field", "issues", len(res.Report.Issues))
	}

	if err := writeJSON(outPath, res); err != nil {
		return fmt.Errorf("write scene: %w", err)
	}
	if treesPath != "" {
		fc := vegetation.FeatureCollection(res.Objects, res.Projector)
		if err := writeJSON(treesPath, fc); err != nil {
			return fmt.Errorf("write trees: %w", err)
		}
	}
	return nil
}

func serveMCP(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	svc := &tools.SceneService{Config: cfg, Logger: logger}
	if !offline {
		src, err := fetch.NewSources(cfg, logger)
		if err != nil {
			return err
		}
		svc.Tiles = src.Tiles
		svc.Elements = src.Overpass
	}

	s, err := server.NewServer(svc, logger)
	if err != nil {
		return err
	}
	logger.Info("serving MCP over stdio", "tools", s.ToolNames())
	return s.RunWithContext(ctx)
}

func writeJSON(path string, v any) error {
	if path == "-" {
		return encodeJSON(os.Stdout, v)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func startMonitoring(logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              monitoringAddr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second,
	}
	go func() {
		logger.Info("starting Prometheus metrics server", "addr", monitoringAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("monitoring server error", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("monitoring server shutdown error", "error", err)
		}
	}
}
