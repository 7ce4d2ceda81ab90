package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"pricebot/internal/config"
)

// Open builds the KV backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (KV, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", config.BackendBunt:
		if cfg.Path != ":memory:" {
			if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create storage dir: %w", err)
				}
			}
		}
		return NewBuntKV(cfg.Path)
	case config.BackendPostgres:
		pool, err := NewPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		kv := NewPostgresKV(pool)
		if err := kv.EnsureSchema(ctx); err != nil {
			kv.Close()
			return nil, err
		}
		return kv, nil
	case config.BackendRedis:
		opts, err := RedisOptions(cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		kv := NewRedisKV(redis.NewClient(opts), cfg.KeyPrefix)
		if err := kv.Ping(ctx); err != nil {
			kv.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.StorageConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}
