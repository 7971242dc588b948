// Command billowd runs the billow backend: REST API, focus session engine
// and websocket gateway on a single listener.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/billowhq/billow/internal/api"
	"github.com/billowhq/billow/internal/auth"
	"github.com/billowhq/billow/internal/cache"
	"github.com/billowhq/billow/internal/config"
	"github.com/billowhq/billow/internal/focus"
	"github.com/billowhq/billow/internal/log"
	"github.com/billowhq/billow/internal/storage"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// The logger must be configured before the config loader runs: loading
	// logs each value's source, and Configure only applies once. The level
	// is revisited below once the full config (including the file) is known.
	log.Configure(log.Config{
		Level:   os.Getenv("BILLOW_LOG_LEVEL"),
		Service: os.Getenv("BILLOW_LOG_SERVICE"),
		Version: version,
	})

	// Config path: explicit via --config, otherwise ${BILLOW_DATA}/config.yaml
	// if it exists.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("BILLOW_DATA", "/var/lib/billow"))
		autoPath := filepath.Join(dataDir, "config.yaml")
		if _, err := os.Stat(autoPath); err == nil {
			effectiveConfigPath = autoPath
		}
	}

	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		fatalLogger := log.WithComponent("daemon")
		fatalLogger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	log.SetLevel(cfg.LogLevel)
	logger := log.WithComponent("daemon")

	if effectiveConfigPath != "" {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "file").
			Str("path", effectiveConfigPath).
			Msg("loaded configuration")
	} else {
		logger.Info().
			Str("event", "config.loaded").
			Str("source", "env+defaults").
			Msg("loaded configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("daemon exited with error")
	}
}

func run(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	store, err := storage.Open(filepath.Join(cfg.DataDir, "billow.db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	tokens, err := auth.NewManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return fmt.Errorf("init token manager: %w", err)
	}

	// Redis if configured, in-memory otherwise. Cache misses are harmless;
	// an unreachable Redis must not keep the daemon down.
	var responseCache cache.Cache
	if cfg.RedisAddr != "" {
		responseCache, err = cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log.WithComponent("cache"))
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, falling back to in-memory cache")
			responseCache = nil
		}
	}
	if responseCache == nil {
		responseCache = cache.NewMemoryCache(time.Minute)
	}
	defer responseCache.Stop()

	engine := focus.NewEngine(focus.Config{TickInterval: cfg.FocusTickInterval})
	gateway := focus.NewGateway(engine, tokens)

	server := api.New(store, tokens, responseCache, cfg, gateway.Handler())

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().
			Str("event", "server.listening").
			Str("addr", cfg.ListenAddr).
			Msg("billowd listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Str("event", "server.shutdown").Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		gateway.Shutdown()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
