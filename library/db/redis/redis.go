// Package redis wraps the shared redis client used for caching and
// cross-instance event fan-out.
package redis

import (
	"context"

	errors "github.com/Laisky/errors/v2"
	"github.com/redis/go-redis/v9"
)

// DB is a wrapper for go-redis
type DB struct {
	cli *redis.Client
}

// NewDB creates a new DB instance
func NewDB(ctx context.Context, opt *redis.Options) (*DB, error) {
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "ping redis")
	}

	return &DB{cli: rdb}, nil
}

// Client returns the underlying go-redis client.
func (d *DB) Client() *redis.Client {
	return d.cli
}

// Close shuts down the client connection pool.
func (d *DB) Close() error {
	return errors.WithStack(d.cli.Close())
}
