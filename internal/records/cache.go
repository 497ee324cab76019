package records

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Cached serves QueryAll from Redis for ttl and drops a collection's entry on
// any write to it. Redis failures fall through to the wrapped store.
type Cached struct {
	Store
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	log    *zap.Logger
}

func NewCached(inner Store, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Cached {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cached{Store: inner, rdb: rdb, ttl: ttl, prefix: "selection:records:", log: log}
}

func (c *Cached) key(collection string) string { return c.prefix + collection }

func (c *Cached) QueryAll(ctx context.Context, collection string) ([]Record, error) {
	raw, err := c.rdb.Get(ctx, c.key(collection)).Bytes()
	switch {
	case err == nil:
		var rows []Record
		if jerr := json.Unmarshal(raw, &rows); jerr == nil {
			for i := range rows {
				rows[i].Fields = normalizeFields(rows[i].Fields)
			}
			return rows, nil
		}
		c.log.Warn("discarding undecodable cache entry", zap.String("collection", collection))
	case !errors.Is(err, redis.Nil):
		c.log.Warn("record cache read failed", zap.String("collection", collection), zap.Error(err))
	}

	rows, err := c.Store.QueryAll(ctx, collection)
	if err != nil {
		return nil, err
	}
	if b, jerr := json.Marshal(rows); jerr == nil {
		if serr := c.rdb.Set(ctx, c.key(collection), b, c.ttl).Err(); serr != nil {
			c.log.Warn("record cache write failed", zap.String("collection", collection), zap.Error(serr))
		}
	}
	return rows, nil
}

func (c *Cached) UpdateRecord(ctx context.Context, collection, id string, fields map[string]any) (Record, error) {
	r, err := c.Store.UpdateRecord(ctx, collection, id, fields)
	c.invalidate(ctx, collection)
	return r, err
}

func (c *Cached) CreateRecord(ctx context.Context, collection string, fields map[string]any) (Record, error) {
	r, err := c.Store.CreateRecord(ctx, collection, fields)
	c.invalidate(ctx, collection)
	return r, err
}

func (c *Cached) invalidate(ctx context.Context, collection string) {
	if err := c.rdb.Del(ctx, c.key(collection)).Err(); err != nil {
		c.log.Warn("record cache invalidation failed", zap.String("collection", collection), zap.Error(err))
	}
}
