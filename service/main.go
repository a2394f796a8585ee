package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"gti/data/files"
	dm "gti/data/models"
	r "gti/data/repos"
	"gti/service/config"
	c "gti/service/core"
	"gti/service/logging"
)

func main() {
	// initialize context and signal handler, listen for interrupt and term signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// environment files first, then the GTI_ environment
	if err := config.LoadEnvFiles(); err != nil {
		bootLogger := logging.NewLogger("info")
		bootLogger.Fatal().Err(err).Msg("env file not loaded")
	}
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.NewLogger("info")
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := logging.NewLogger(cfg.LogLevel)

	postgresConnection, err := r.GetPostgresConnection(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer postgresConnection.Close()

	var cache *c.ResultCache
	if cfg.CacheEnabled() {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer client.Close()
		cache = c.NewResultCache(client, cfg.CacheTTL, logger)
		if err := cache.Ping(ctx); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, requests will be computed until it recovers")
		}
	}

	sc := &c.ServiceContext{
		Context:         ctx,
		Store:           postgresConnection,
		Cache:           cache,
		Metrics:         c.NewMetrics(),
		Logger:          logger,
		DefaultWeights:  loadDefaultWeights(cfg.WeightsPath, logger),
		DefaultSettings: loadDefaultSettings(cfg.SettingsPath, logger),
		ScenarioWorkers: cfg.ScenarioWorkers,
	}

	// get http server, makes all of the endpoints and routes
	s := c.GetHttpServer(sc, c.ServerOptions{
		Addr:           cfg.Addr,
		AllowedOrigins: cfg.AllowedOrigins,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
	})

	go func() {
		logger.Info().Str("addr", s.Addr).Msg("starting gti server")
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// wait here until the context is closed (ie, ctrl+C)
	<-ctx.Done()
	logger.Info().Msg("received shutdown signal, shutting down gracefully")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}

	logger.Info().Msg("server stopped successfully")
}

// loadDefaultWeights reads the basket used by requests without weights. A missing file only
// means every request has to bring its own, a broken one stops startup.
func loadDefaultWeights(path string, logger zerolog.Logger) dm.WeightTable {
	weights, err := files.LoadWeightsFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Str("path", path).Msg("no default weights, requests must include weights")
		return nil
	}
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("invalid default weights")
	}

	logger.Info().Str("path", path).Int("instruments", len(weights)).Msg("loaded default weights")
	return weights
}

func loadDefaultSettings(path string, logger zerolog.Logger) c.Settings {
	settings, err := config.LoadSettingsFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn().Str("path", path).Msg("no settings file, using built in defaults")
		return c.DefaultSettings()
	}
	if err != nil {
		logger.Fatal().Err(err).Str("path", path).Msg("invalid settings file")
	}
	return settings
}
