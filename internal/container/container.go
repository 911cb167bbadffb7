// Package container wires the application's services with samber/do.
package container

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/mohammadhprp/windowlimit/internal/config"
	"github.com/mohammadhprp/windowlimit/internal/events"
	"github.com/mohammadhprp/windowlimit/internal/middleware"
	"github.com/mohammadhprp/windowlimit/internal/service"
	"github.com/mohammadhprp/windowlimit/internal/storage"
	"github.com/mohammadhprp/windowlimit/internal/transport"
)

// New returns an injector with every package registered. Services are built
// lazily on first invocation.
func New(cfg config.Config) *do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	LoggerPackage(injector)
	StorePackage(injector)
	EventsPackage(injector)
	ServicePackage(injector)
	TransportPackage(injector)

	return injector
}

// LoggerPackage provides the application logger.
func LoggerPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*zap.Logger, error) {
		cfg := do.MustInvoke[config.Config](i)
		return config.InitLogger(cfg.Log.Level, cfg.Log.Format)
	})
}

// StorePackage provides the Redis client, the counter store and the quota store.
func StorePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (redis.UniversalClient, error) {
		cfg := do.MustInvoke[config.Config](i)
		return config.NewRedisClient(cfg)
	})

	do.Provide(i, func(i *do.Injector) (storage.Store, error) {
		cfg := do.MustInvoke[config.Config](i)
		logger := do.MustInvoke[*zap.Logger](i)

		switch cfg.Store.Backend {
		case config.StoreBackendMemory:
			logger.Warn("using in-memory counter store; limits are not shared between processes")
			return storage.NewMemoryStore(), nil
		case config.StoreBackendRedis:
			client, err := do.Invoke[redis.UniversalClient](i)
			if err != nil {
				return nil, err
			}
			logger.Info("connected to Redis", zap.String("address", cfg.RedisAddr()))
			return storage.NewRedisStore(client), nil
		default:
			return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
		}
	})

	do.Provide(i, func(i *do.Injector) (service.QuotaStore, error) {
		cfg := do.MustInvoke[config.Config](i)
		if cfg.Store.Backend != config.StoreBackendRedis {
			return service.NewMemoryQuotaStore(), nil
		}

		client, err := do.Invoke[redis.UniversalClient](i)
		if err != nil {
			return nil, err
		}
		return service.NewRedisQuotaStore(client), nil
	})
}

// EventsPackage provides the rejection event publisher. It is only invoked
// when publishing is enabled.
func EventsPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*events.Publisher, error) {
		cfg := do.MustInvoke[config.Config](i)
		client, err := do.Invoke[redis.UniversalClient](i)
		if err != nil {
			return nil, err
		}
		return events.NewRedisStreamPublisher(client, cfg.Events.Topic, do.MustInvoke[*zap.Logger](i))
	})
}

// ServicePackage provides the limiter registry, with every configured limiter
// registered, and the health service.
func ServicePackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (*service.RateLimitService, error) {
		cfg := do.MustInvoke[config.Config](i)
		logger := do.MustInvoke[*zap.Logger](i)

		store, err := do.Invoke[storage.Store](i)
		if err != nil {
			return nil, err
		}
		quotas, err := do.Invoke[service.QuotaStore](i)
		if err != nil {
			return nil, err
		}

		opts := []service.Option{service.WithQuotaStore(quotas)}
		if cfg.Events.Enabled {
			publisher, err := do.Invoke[*events.Publisher](i)
			if err != nil {
				return nil, err
			}
			opts = append(opts, service.WithPublisher(publisher))
		}
		svc := service.NewRateLimitService(store, logger, opts...)

		for _, l := range cfg.Limiters {
			err := svc.Register(context.Background(), service.LimiterConfig{
				Namespace: l.Namespace,
				Strategy:  l.Strategy,
				Threshold: l.Threshold,
				Interval:  l.Interval,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to register limiter %q: %w", l.Namespace, err)
			}
		}

		return svc, nil
	})

	do.Provide(i, func(i *do.Injector) (*service.HealthService, error) {
		store, err := do.Invoke[storage.Store](i)
		if err != nil {
			return nil, err
		}
		return service.NewHealthService(store, do.MustInvoke[*zap.Logger](i)), nil
	})
}

// TransportPackage provides the HTTP and gRPC servers.
func TransportPackage(i *do.Injector) {
	do.Provide(i, func(i *do.Injector) (transport.ServerConfig, error) {
		cfg := do.MustInvoke[config.Config](i)
		logger := do.MustInvoke[*zap.Logger](i)

		svc, err := do.Invoke[*service.RateLimitService](i)
		if err != nil {
			return transport.ServerConfig{}, err
		}
		health, err := do.Invoke[*service.HealthService](i)
		if err != nil {
			return transport.ServerConfig{}, err
		}

		serverCfg := transport.ServerConfig{
			RateLimit:    svc,
			Health:       health,
			Logger:       logger,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}

		if cfg.Guard.Namespace != "" {
			guard, err := svc.Limiter(cfg.Guard.Namespace)
			if err != nil {
				return transport.ServerConfig{}, err
			}
			serverCfg.Guard = middleware.RateLimit(guard, middleware.IPKeyExtractor, cfg.Guard.FailOpen, logger)
		}

		return serverCfg, nil
	})

	do.Provide(i, func(i *do.Injector) (*transport.HTTPServer, error) {
		cfg := do.MustInvoke[config.Config](i)
		serverCfg, err := do.Invoke[transport.ServerConfig](i)
		if err != nil {
			return nil, err
		}
		serverCfg.Address = cfg.ServerAddr()
		return transport.NewHTTPServer(serverCfg), nil
	})

	do.Provide(i, func(i *do.Injector) (*transport.GRPCServer, error) {
		cfg := do.MustInvoke[config.Config](i)
		serverCfg, err := do.Invoke[transport.ServerConfig](i)
		if err != nil {
			return nil, err
		}
		serverCfg.Address = cfg.GRPCAddr()
		return transport.NewGRPCServer(serverCfg), nil
	})
}
