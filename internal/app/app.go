// Package app wires the simulation, event routing and HTTP surface into a
// runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gglang/the-voices-sub000/internal/config"
	servernet "github.com/gglang/the-voices-sub000/internal/net"
	"github.com/gglang/the-voices-sub000/internal/net/ws"
	"github.com/gglang/the-voices-sub000/internal/observability"
	"github.com/gglang/the-voices-sub000/internal/sim"
	"github.com/gglang/the-voices-sub000/internal/telemetry"
	"github.com/gglang/the-voices-sub000/internal/world"
	"github.com/gglang/the-voices-sub000/logging"
	loggingSinks "github.com/gglang/the-voices-sub000/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// Config is the host configuration. Zero values fall back to the built-in
// tuning, the embedded layout and console-only event logging.
type Config struct {
	ListenAddr    string
	TuningPath    string
	LayoutPath    string
	Seed          string
	Logger        telemetry.LoggerConfig
	EventLogDir   string
	EventDBPath   string
	ReadOnly      bool
	Observability observability.Config
}

// ConfigFromEnv reads the host configuration from the process environment.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		ListenAddr:  envOr("LISTEN_ADDR", ":8080"),
		TuningPath:  os.Getenv("TUNING_PATH"),
		LayoutPath:  os.Getenv("LAYOUT_PATH"),
		Seed:        os.Getenv("SIM_SEED"),
		Logger:      telemetry.LoggerConfigFromEnv(),
		EventLogDir: os.Getenv("EVENT_LOG_DIR"),
		EventDBPath: os.Getenv("EVENT_DB_PATH"),
	}
	for name, target := range map[string]*bool{
		"ENABLE_PPROF_TRACE": &cfg.Observability.EnablePprofTrace,
		"OBSERVE_ONLY":       &cfg.ReadOnly,
	} {
		raw := os.Getenv(name)
		if raw == "" {
			continue
		}
		value, err := strconv.ParseBool(raw)
		if err != nil {
			return Config{}, fmt.Errorf("app: invalid %s=%q: %w", name, raw, err)
		}
		*target = value
	}
	return cfg, nil
}

func envOr(name, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(name)); v != "" {
		return v
	}
	return fallback
}

// LoggingConfig selects event sinks: console always, the compressed archive
// when EventLogDir is set and the incident index when EventDBPath is set.
func (c Config) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Console.Format = c.Logger.Format
	cfg.Console.Level = c.Logger.Level
	if c.EventLogDir != "" {
		cfg.EnabledSinks = append(cfg.EnabledSinks, "archive")
		cfg.Archive.Dir = c.EventLogDir
	}
	if c.EventDBPath != "" {
		cfg.EnabledSinks = append(cfg.EnabledSinks, "incidents")
		cfg.Incidents.Path = c.EventDBPath
	}
	return cfg
}

// LoadWorld resolves the tuning document and town layout.
func (c Config) LoadWorld() (config.Tuning, *world.Layout, error) {
	tuning := config.Default()
	if c.TuningPath != "" {
		loaded, err := config.Load(c.TuningPath)
		if err != nil {
			return config.Tuning{}, nil, err
		}
		tuning = loaded
	}
	var (
		layout *world.Layout
		err    error
	)
	if c.LayoutPath != "" {
		layout, err = world.LoadLayout(c.LayoutPath, tuning.TileSize)
	} else {
		layout, err = world.DefaultLayout(tuning.TileSize)
	}
	if err != nil {
		return config.Tuning{}, nil, fmt.Errorf("app: layout: %w", err)
	}
	return tuning, layout, nil
}

// Server is a seeded simulation with its HTTP surface, ready to run.
type Server struct {
	Loop    *sim.Loop
	Hub     *ws.Hub
	Handler nethttp.Handler
	Router  *logging.Router
}

// Build constructs every component without starting goroutines other than
// the event router's sink workers.
func Build(ctx context.Context, cfg Config, logger *logrus.Logger, console io.Writer) (*Server, error) {
	if logger == nil {
		logger = telemetry.NewLogrus(cfg.Logger)
	}
	if console == nil {
		console = os.Stdout
	}

	tuning, layout, err := cfg.LoadWorld()
	if err != nil {
		return nil, err
	}

	logCfg := cfg.LoggingConfig()
	named, err := loggingSinks.Build(logCfg, console)
	if err != nil {
		return nil, fmt.Errorf("app: event sinks: %w", err)
	}
	router, err := logging.NewRouter(nil, logCfg, named, logging.WithFallback(logger.WithField("component", "events")))
	if err != nil {
		return nil, fmt.Errorf("app: construct logging router: %w", err)
	}

	counters := telemetry.NewCounters()
	engine, err := sim.NewEngine(sim.Config{
		Tuning:    tuning,
		Layout:    layout,
		Seed:      cfg.Seed,
		Publisher: router,
		Logger:    telemetry.Component(logger, "sim"),
		Metrics:   counters,
	})
	if err != nil {
		router.Close(ctx)
		return nil, err
	}
	if err := engine.Seed(ctx); err != nil {
		router.Close(ctx)
		return nil, err
	}

	hub := ws.NewHub(ws.HubConfig{
		Publisher: router,
		Logger:    telemetry.Component(logger, "ws"),
		Metrics:   counters,
	})
	loop := sim.NewLoop(engine, sim.LoopConfig{TickRate: tuning.TickRate}, sim.LoopHooks{
		AfterStep: func(result sim.LoopStepResult) {
			hub.Broadcast(ctx, result.Snapshot)
		},
		OnCommandError: func(err error) {
			logger.WithField("component", "sim").WithError(err).Warn("rejected commands")
		},
	})
	socket := ws.NewHandler(hub, loop, ws.HandlerConfig{
		Logger:    telemetry.Component(logger, "ws"),
		Publisher: router,
		ReadOnly:  cfg.ReadOnly,
	})
	handler := servernet.NewHTTPHandler(loop, servernet.HTTPHandlerConfig{
		Logger:   telemetry.Component(logger, "http"),
		Counters: counters,
		TickRate: tuning.TickRate,
		Socket:   socket,
		Hub:      hub,
		Events:   router.Stats,
	})

	return &Server{
		Loop:    loop,
		Hub:     hub,
		Handler: cfg.Observability.Wrap(handler),
		Router:  router,
	}, nil
}

// Run serves until ctx is cancelled, then shuts the listener down and
// flushes the event sinks.
func Run(ctx context.Context, cfg Config, logger *logrus.Logger) error {
	if logger == nil {
		logger = telemetry.NewLogrus(cfg.Logger)
	}
	srv, err := Build(ctx, cfg, logger, os.Stdout)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if cerr := srv.Router.Close(closeCtx); cerr != nil {
			logger.WithError(cerr).Warn("failed to close logging router")
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan error, 1)
	go func() { loopDone <- srv.Loop.Run(ctx) }()

	httpServer := &nethttp.Server{Addr: cfg.ListenAddr, Handler: srv.Handler}
	serveDone := make(chan error, 1)
	go func() {
		logger.WithField("addr", httpServer.Addr).Info("server listening")
		serveDone <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		cancel()
		<-loopDone
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	<-loopDone
	srv.Hub.Close(shutdownCtx, srv.Loop.Tick())
	logger.Info("server stopped")
	return nil
}
