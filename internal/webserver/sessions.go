package webserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/workergo/portal/internal/config"
	"github.com/workergo/portal/internal/session"
	"github.com/workergo/portal/internal/storage"
)

const purgeInterval = 15 * time.Minute

// NewSessionProvider picks the storage backend and matching codec for
// conf.Session.Method. The returned cleanup releases whatever it opened.
func NewSessionProvider(ctx context.Context, conf *config.Config, logger *slog.Logger) (storage.Provider, session.Codec, func(), error) {
	lifetime := conf.SessionLifetime()
	browserCookie := storage.BrowserCookie{
		Name:     conf.Session.Cookie.Name,
		Domain:   conf.Session.Cookie.Domain,
		Secure:   conf.Session.Cookie.Secure,
		Lifetime: lifetime,
	}

	switch conf.Session.Method {
	case config.SessionCookie:
		provider := storage.NewCookieProvider(storage.CookieOptions{
			Domain:   conf.Session.Cookie.Domain,
			Secure:   conf.Session.Cookie.Secure,
			Lifetime: lifetime,
		})
		codec := &session.JWTCodec{
			Secret:   []byte(conf.Session.Cookie.Secret),
			Lifetime: lifetime,
		}
		return provider, codec, func() {}, nil

	case config.SessionRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     conf.Session.Redis.Addr,
			Password: conf.Session.Redis.Password,
			DB:       conf.Session.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			// Not fatal: sessions read as signed out until redis is back
			logger.WarnContext(ctx, "redis not reachable at startup", "addr", conf.Session.Redis.Addr, "error", err)
		}

		driver := storage.NewRedis(client, conf.Session.Redis.Prefix, lifetime)
		cleanup := func() {
			if err := client.Close(); err != nil {
				logger.Warn("closing redis client", "error", err)
			}
		}
		return storage.NewServerProvider(driver, browserCookie), session.JSONCodec{}, cleanup, nil

	case config.SessionPostgres:
		pool, err := pgxpool.New(ctx, conf.Session.Postgres.DSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("connect postgres: %w", err)
		}

		driver := storage.NewPostgres(pool, lifetime)
		if err := driver.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}

		purgeCtx, stopPurge := context.WithCancel(context.Background())
		go purgeExpired(purgeCtx, driver, logger)

		cleanup := func() {
			stopPurge()
			pool.Close()
		}
		return storage.NewServerProvider(driver, browserCookie), session.JSONCodec{}, cleanup, nil

	case config.SessionMemory:
		driver := storage.NewMemory(lifetime)
		return storage.NewServerProvider(driver, browserCookie), session.JSONCodec{}, func() {}, nil
	}

	return nil, nil, nil, fmt.Errorf("unknown session type %q", conf.Session.Method)
}

func purgeExpired(ctx context.Context, driver *storage.Postgres, logger *slog.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := driver.PurgeExpired(ctx)
			if err != nil {
				logger.WarnContext(ctx, "purging expired sessions", "error", err)
				continue
			}
			if n > 0 {
				logger.DebugContext(ctx, "purged expired sessions", "count", n)
			}
		}
	}
}
