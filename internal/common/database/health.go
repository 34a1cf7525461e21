package database

import (
	"context"
	"database/sql"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
)

// Connections groups the backing stores so readiness can be checked in one call.
// Nil members are skipped.
type Connections struct {
	Postgres      *sql.DB
	Redis         *redis.Client
	Elasticsearch *elasticsearch.Client
}

// Ping reports the first failing store, or nil when all respond.
func (c *Connections) Ping(ctx context.Context) error {
	if c.Postgres != nil {
		if err := pingPostgres(ctx, c.Postgres); err != nil {
			return err
		}
	}
	if c.Redis != nil {
		if err := pingRedis(ctx, c.Redis); err != nil {
			return err
		}
	}
	if c.Elasticsearch != nil {
		if err := pingElasticsearch(ctx, c.Elasticsearch); err != nil {
			return err
		}
	}
	return nil
}

// Close releases Postgres and Redis. The Elasticsearch client holds no
// long-lived resources.
func (c *Connections) Close() error {
	var first error
	if c.Postgres != nil {
		if err := c.Postgres.Close(); err != nil {
			first = err
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
