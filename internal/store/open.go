package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Backend selects and connects a KV implementation.
type Backend struct {
	DatabaseURL string
	RedisURL    string
	CacheTTL    time.Duration
	File        string
}

// Open connects the configured backend, in order of preference:
// PostgreSQL (with a Redis cache when RedisURL is set), Redis alone, a local
// file, and finally memory. The returned func releases connections.
func Open(ctx context.Context, b Backend) (KV, func(), error) {
	var cleanup []func()
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	var rdb *redis.Client
	if b.RedisURL != "" {
		opt, err := redis.ParseURL(b.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb = redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
	}

	switch {
	case b.DatabaseURL != "":
		pool, err := pgxpool.New(ctx, b.DatabaseURL)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		cleanup = append(cleanup, pool.Close)

		ps := NewPostgresStore(pool)
		if err := ps.Migrate(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		slog.Info("connected to PostgreSQL")

		if rdb != nil {
			ttl := b.CacheTTL
			if ttl <= 0 {
				ttl = 30 * time.Second
			}
			slog.Info("Redis cache enabled", "ttl", ttl)
			return NewCachedStore(ps, rdb, ttl), closeAll, nil
		}
		return ps, closeAll, nil

	case rdb != nil:
		slog.Info("using Redis store")
		return NewRedisStore(rdb, ""), closeAll, nil

	case b.File != "":
		slog.Debug("using file store", "path", b.File)
		return NewFileStore(b.File), closeAll, nil

	default:
		slog.Warn("no DATABASE_URL, REDIS_URL or store file set, using in-memory store (data will not persist)")
		return NewMemoryStore(), closeAll, nil
	}
}
