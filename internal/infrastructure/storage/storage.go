// Package storage opens the reminder store and geofence registrar selected by
// configuration and owns the connections behind them.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/geominder/core/internal/adapters/geofence"
	"github.com/geominder/core/internal/adapters/repository"
	"github.com/geominder/core/internal/infrastructure/config"
	"github.com/geominder/core/internal/infrastructure/database"
	"github.com/geominder/core/internal/infrastructure/logger"
	"github.com/geominder/core/internal/ports"
)

// Backends bundles the configured store and registrar. DB and Redis are nil
// when the selected backends do not use them.
type Backends struct {
	Store     ports.ReminderStore
	Geofences ports.GeofenceRegistrar
	DB        *database.DB
	Redis     *redis.Client
}

// Open connects every backend the configuration asks for. SQL databases are
// migrated to the latest schema before use.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Backends, error) {
	log = log.WithComponent("storage")
	b := &Backends{}

	needRedis := cfg.Storage.Driver == config.DriverRedis || cfg.Geofence.Backend == config.DriverRedis
	if needRedis {
		client, err := connectRedis(ctx, cfg.Redis, log)
		if err != nil {
			return nil, err
		}
		b.Redis = client
	}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		b.Store = repository.NewMemoryStore()
	case config.DriverSQLite, config.DriverPostgres:
		db, err := database.Open(cfg)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.DB = db

		applied, err := db.Migrate(database.MigrateUp)
		if err != nil {
			b.Close()
			return nil, err
		}
		if applied {
			log.Infow("Applied database migrations", "driver", db.Driver())
		}
		b.Store = repository.NewSQLStore(db, log)
	case config.DriverRedis:
		b.Store = repository.NewRedisStore(b.Redis, cfg.Redis.KeyPrefix)
	default:
		b.Close()
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}

	switch cfg.Geofence.Backend {
	case config.DriverMemory:
		b.Geofences = geofence.NewMemoryRegistrar()
	case config.DriverRedis:
		b.Geofences = geofence.NewRedisRegistrar(b.Redis, cfg.Redis.KeyPrefix)
	default:
		b.Close()
		return nil, fmt.Errorf("unsupported geofence backend: %s", cfg.Geofence.Backend)
	}

	log.Infow("Storage ready", "driver", cfg.Storage.Driver, "geofence_backend", cfg.Geofence.Backend)
	return b, nil
}

// connectRedis pings Redis with exponential backoff before giving up.
func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*redis.Client, error) {
	const maxRetries = 5
	retryDelay := 500 * time.Millisecond

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			log.Infow("Connected to Redis", "addr", cfg.GetAddr(), "attempt", attempt)
			return client, nil
		}

		log.Warnw("Redis connection failed", "addr", cfg.GetAddr(), "attempt", attempt, "error", err)
		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			client.Close()
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
		retryDelay *= 2
	}

	client.Close()
	return nil, fmt.Errorf("failed to connect to redis after %d attempts: %w", maxRetries, err)
}

// HealthCheck pings every open connection and reports each by name.
func (b *Backends) HealthCheck(ctx context.Context) map[string]error {
	checks := make(map[string]error)
	if b.DB != nil {
		checks["database"] = b.DB.HealthCheck()
	}
	if b.Redis != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		checks["redis"] = b.Redis.Ping(pingCtx).Err()
		cancel()
	}
	return checks
}

// Close releases every open connection
func (b *Backends) Close() error {
	var errs []error
	if b.DB != nil {
		if err := b.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
