package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/codymoss/hopgate/cache"
	"github.com/codymoss/hopgate/config"
	"github.com/codymoss/hopgate/logger"
	"github.com/codymoss/hopgate/registry"
	"github.com/codymoss/hopgate/server"
)

const defaultConfigFile = "./config.yaml"

func main() {
	configFile := getEnv("CONFIG_FILE", defaultConfigFile)
	redisURL := getEnv("REDIS_URL", "")
	logLevel := getEnv("LOG_LEVEL", "info")

	log := logger.NewJSON(os.Stderr, logger.ParseLevel(logLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var cfg *config.Config
	if _, statErr := os.Stat(configFile); statErr == nil {
		log.Info("loading config from file", "file", configFile)
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		log.Info("using default configuration (config file not found)", "checked", configFile)
		cfg = config.New()
	}

	if addr := os.Getenv("ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}

	var redisClient *redis.Client
	if redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Error("failed to parse redis URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		log.Info("redis connection established")
	}

	store, source := setupRegistry(ctx, cfg, redisClient, log)
	if source != nil {
		defer source.Close()
	}

	srv, err := server.New(store, source, log, &server.Config{
		GatewayDomain:     cfg.Gateway.GetDomain(),
		PublicSuffix:      cfg.Match.PublicSuffix,
		RateLimitRequests: cfg.Server.RateLimit.GetRequests(),
		RateLimitWindow:   cfg.Server.RateLimit.GetWindow(),
		RedisClient:       redisClient,
	})
	if err != nil {
		log.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	if err := srv.StartWithShutdown(ctx, cfg.Server.GetAddr()); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server shutdown complete")
}

// setupRegistry loads the initial registry snapshot and starts whichever
// background refresh mechanism the configuration asks for.
func setupRegistry(ctx context.Context, cfg *config.Config, redisClient *redis.Client, log logger.Logger) (*registry.Store, *registry.Source) {
	if cfg.Registry.URL != "" {
		var cacheStore cache.Store
		if redisClient != nil {
			cacheStore = cache.NewRedisStore(redisClient, "", cache.Config{
				TTL:       cfg.Registry.Cache.TTL,
				StaleTime: cfg.Registry.Cache.StaleTime,
			})
		}

		source, err := registry.NewSource(registry.SourceConfig{
			URL:   cfg.Registry.URL,
			Cache: cacheStore,
			Retry: registry.RetryPolicy{
				MaxRetries:   cfg.Registry.Retry.MaxRetries,
				InitialDelay: cfg.Registry.Retry.InitialDelay,
				MaxDelay:     cfg.Registry.Retry.MaxDelay,
				Multiplier:   cfg.Registry.Retry.Multiplier,
			},
			MinRefreshInterval: cfg.Registry.MinRefreshInterval,
			Log:                log,
		})
		if err != nil {
			log.Error("failed to create registry source", "error", err)
			os.Exit(1)
		}

		reg, err := source.Load(ctx)
		if err != nil {
			log.Error("failed to load remote registry", "url", cfg.Registry.URL, "error", err)
			os.Exit(1)
		}
		log.Info("remote registry loaded", "url", cfg.Registry.URL, "platforms", reg.Len())

		store := registry.NewStore(reg)
		go source.Run(ctx, cfg.Registry.GetRefreshInterval(), store)

		return store, source
	}

	reg, err := registry.LoadFile(cfg.Registry.Path, log)
	if err != nil {
		log.Error("failed to load platform file", "path", cfg.Registry.Path, "error", err)
		os.Exit(1)
	}
	log.Info("platform file loaded", "path", cfg.Registry.Path, "platforms", reg.Len())

	store := registry.NewStore(reg)

	if cfg.Registry.Watch {
		watcher, err := registry.NewWatcher(cfg.Registry.Path, store, log)
		if err != nil {
			log.Warn("platform file watching disabled", "error", err)
		} else {
			go watcher.Run(ctx)
		}
	}

	return store, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
