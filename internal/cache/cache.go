// Package cache provides a Redis-backed key/JSON store with per-entry TTL
// and glob invalidation. The cache is optional: when the connection was never
// established, every operation degrades to a miss or a no-op error the caller
// is expected to swallow.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sentinel errors callers branch on.
var (
	// ErrMiss is returned when a key is absent or its value failed to decode.
	ErrMiss = errors.New("cache miss")
	// ErrNotInitialized is returned when the cache was never connected.
	ErrNotInitialized = errors.New("cache not initialized")
)

// connectionTimeout bounds the connect-time ping.
const connectionTimeout = 5 * time.Second

// scanBatchSize is the SCAN cursor batch size used by InvalidatePattern.
const scanBatchSize = 100

// Recorder counts cache operations for observability. Implemented by the
// metrics package; a nil Recorder disables counting.
type Recorder interface {
	CacheOperation(operation, result string)
}

// Cache is a shared, concurrency-safe handle to the Redis connection.
type Cache struct {
	mu       sync.RWMutex
	client   *redis.Client
	recorder Recorder
}

// New creates an unconnected cache. Operations return ErrNotInitialized until
// Connect succeeds.
func New(recorder Recorder) *Cache {
	return &Cache{recorder: recorder}
}

// Connect establishes the Redis connection from a redis:// URL and verifies
// it with a bounded ping.
func (c *Cache) Connect(url string) error {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	if pingErr := client.Ping(ctx).Err(); pingErr != nil {
		client.Close()
		return fmt.Errorf("redis ping failed: %w", pingErr)
	}

	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	return nil
}

// conn returns the connected client or ErrNotInitialized.
func (c *Cache) conn() (*redis.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.client == nil {
		return nil, ErrNotInitialized
	}
	return c.client, nil
}

// Get fetches a key and decodes its JSON value into dest. Absent keys and
// decode failures both report ErrMiss.
func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	client, err := c.conn()
	if err != nil {
		c.record("get", "error")
		return err
	}

	data, err := client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			c.record("get", "miss")
			return ErrMiss
		}
		c.record("get", "error")
		return fmt.Errorf("cache get %s: %w", key, err)
	}

	if unmarshalErr := json.Unmarshal([]byte(data), dest); unmarshalErr != nil {
		c.record("get", "miss")
		return ErrMiss
	}

	c.record("get", "hit")
	return nil
}

// Set stores a JSON-encoded value under key with the given TTL.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	client, err := c.conn()
	if err != nil {
		c.record("set", "error")
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		c.record("set", "error")
		return fmt.Errorf("cache encode %s: %w", key, err)
	}

	if setErr := client.Set(ctx, key, data, ttl).Err(); setErr != nil {
		c.record("set", "error")
		return fmt.Errorf("cache set %s: %w", key, setErr)
	}

	c.record("set", "ok")
	return nil
}

// Delete removes a key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	client, err := c.conn()
	if err != nil {
		c.record("delete", "error")
		return err
	}

	if delErr := client.Del(ctx, key).Err(); delErr != nil {
		c.record("delete", "error")
		return fmt.Errorf("cache delete %s: %w", key, delErr)
	}

	c.record("delete", "ok")
	return nil
}

// Exists reports whether a key is present.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	client, err := c.conn()
	if err != nil {
		return false, err
	}

	n, err := client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("cache exists %s: %w", key, err)
	}

	return n > 0, nil
}

// InvalidatePattern deletes every key matching a glob pattern. The key space
// is walked with a SCAN cursor in bounded batches so large key spaces never
// block the connection.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) error {
	client, err := c.conn()
	if err != nil {
		c.record("invalidate", "error")
		return err
	}

	var keys []string
	var cursor uint64
	for {
		batch, next, scanErr := client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if scanErr != nil {
			c.record("invalidate", "error")
			return fmt.Errorf("cache scan %s: %w", pattern, scanErr)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}

	if len(keys) > 0 {
		if delErr := client.Del(ctx, keys...).Err(); delErr != nil {
			c.record("invalidate", "error")
			return fmt.Errorf("cache invalidate %s: %w", pattern, delErr)
		}
	}

	c.record("invalidate", "ok")
	return nil
}

// Close releases the connection if one was established.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}

func (c *Cache) record(operation, result string) {
	if c.recorder != nil {
		c.recorder.CacheOperation(operation, result)
	}
}
