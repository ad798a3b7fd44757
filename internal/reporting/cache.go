package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheVersionKey = "reporting:version"
	bumpChannel     = "reporting.bump"
)

// partial is implemented by reports built from incomplete data. Those are
// returned but never stored.
type partial interface {
	Partial() bool
}

// LookupRecorder counts cache hits and misses.
type LookupRecorder interface {
	CacheLookup(result string)
}

// Cache wraps Redis based caching with versioning controls. Every write to
// the ledgers bumps the version so stale reports are never served.
type Cache struct {
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	lookups LookupRecorder
	group   singleflight.Group
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger, lookups LookupRecorder) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, ttl: ttl, logger: logger, lookups: lookups}
}

// Version returns the current cache version, initialising when missing.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		// SetNX keeps a concurrent Bump from being overwritten.
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the cache key with the current version.
func (c *Cache) BuildKey(ctx context.Context, parts ...string) (string, error) {
	joined := strings.Join(parts, ":")
	if c == nil || c.client == nil {
		return joined, nil
	}
	ver, err := c.Version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%d", joined, ver), nil
}

// Fetch loads a cached report into dest or builds it with loader. Redis
// failures are logged and the report is built directly. Concurrent misses
// for one key share a single build.
func (c *Cache) Fetch(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	if loader == nil {
		return errors.New("reporting: cache loader required")
	}
	if c == nil || c.client == nil {
		return fill(ctx, dest, loader)
	}
	key, err := c.BuildKey(ctx, parts...)
	if err != nil {
		c.degrade("build key", err)
		return fill(ctx, dest, loader)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		derr := json.Unmarshal(payload, dest)
		if derr == nil {
			c.record("hit")
			return nil
		}
		// Unreadable entry: rebuild it below and overwrite.
		c.degrade("decode "+key, derr)
		reset(dest)
	case !errors.Is(err, redis.Nil):
		c.degrade("get "+key, err)
		return fill(ctx, dest, loader)
	default:
		c.record("miss")
	}

	raw, err, _ := c.group.Do(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if p, ok := value.(partial); ok && p.Partial() {
			return raw, nil
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.degrade("set "+key, err)
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(raw.([]byte), dest)
}

// Bump invalidates the cache by incrementing the global version and publishing an event.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, cacheVersionKey).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, strconv.FormatInt(ver, 10)).Err()
}

// ListenForInvalidation follows version bumps published by other
// processes until ctx is done.
func (c *Cache) ListenForInvalidation(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	pubsub := c.client.Subscribe(ctx, bumpChannel)
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					continue
				}
				c.logger.Debug("report cache version bumped", slog.Int64("version", ver))
			}
		}
	}()
}

func (c *Cache) record(result string) {
	if c.lookups != nil {
		c.lookups.CacheLookup(result)
	}
}

func (c *Cache) degrade(op string, err error) {
	c.record("error")
	c.logger.Warn("report cache unavailable", slog.String("op", op), slog.Any("error", err))
}

// reset zeroes the value dest points to.
func reset(dest any) {
	v := reflect.ValueOf(dest)
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v.Elem().Set(reflect.Zero(v.Elem().Type()))
	}
}

func fill(ctx context.Context, dest any, loader func(context.Context) (any, error)) error {
	value, err := loader(ctx)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
