package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS portal_storage (
	browser_id TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (browser_id, key)
)`

type Postgres struct {
	pool *pgxpool.Pool
	ttl  time.Duration
}

func NewPostgres(pool *pgxpool.Pool, ttl time.Duration) *Postgres {
	return &Postgres{pool: pool, ttl: ttl}
}

func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create portal_storage: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, browserID, key string) (string, error) {
	var value string
	row := p.pool.QueryRow(ctx, `
		SELECT value FROM portal_storage
		WHERE browser_id = $1 AND key = $2 AND expires_at > now()
	`, browserID, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: postgres get: %v", ErrUnavailable, err)
	}

	return value, nil
}

func (p *Postgres) Set(ctx context.Context, browserID, key, value string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO portal_storage (browser_id, key, value, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (browser_id, key) DO UPDATE
		SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at
	`, browserID, key, value, time.Now().UTC().Add(p.ttl))
	if err != nil {
		return fmt.Errorf("%w: postgres set: %v", ErrUnavailable, err)
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, browserID, key string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM portal_storage WHERE browser_id = $1 AND key = $2`, browserID, key)
	if err != nil {
		return fmt.Errorf("%w: postgres delete: %v", ErrUnavailable, err)
	}
	return nil
}

// PurgeExpired deletes rows past their expiry and reports how many went.
func (p *Postgres) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM portal_storage WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("purge portal_storage: %w", err)
	}
	return tag.RowsAffected(), nil
}
