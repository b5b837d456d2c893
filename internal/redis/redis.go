package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/skylift/skylift/engine/internal/config"
)

// Queue and channel names shared with the out-of-process builder and any
// dashboard subscribed to run progress.
const (
	QueueBuilder       = "builder-queue"
	ChannelEvents      = "deployment:events"
	buildResultKeyFmt  = "builder-result:%s"
	buildResultExpires = time.Hour
)

// Client wraps the Redis connection used for the builder queue, progress
// events, and per-project deploy locks.
type Client struct {
	rdb *redis.Client
}

// Connect sets up the Redis client and verifies the connection.
func Connect(ctx context.Context, cfg *config.Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// EnqueueBuild pushes a build job onto the builder queue.
func (c *Client) EnqueueBuild(ctx context.Context, job any) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal builder job: %w", err)
	}
	return c.rdb.RPush(ctx, QueueBuilder, data).Err()
}

// AwaitBuildResult blocks until the builder publishes a result for the
// given build id, the timeout elapses, or the context is cancelled. The
// builder RPushes exactly one payload to the build's result key.
func (c *Client) AwaitBuildResult(ctx context.Context, buildID string, timeout time.Duration) ([]byte, error) {
	key := fmt.Sprintf(buildResultKeyFmt, buildID)
	deadline := time.Now().Add(timeout)

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("timed out waiting for build %s", buildID)
		}
		// Block in short slices so cancellation is honored promptly.
		block := 5 * time.Second
		if remaining < block {
			block = remaining
		}

		res, err := c.rdb.BLPop(ctx, block, key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read build result: %w", err)
		}
		// BLPop returns [key, value].
		return []byte(res[1]), nil
	}
}

// PublishBuildResult is used by tests and local builders to complete a build.
func (c *Client) PublishBuildResult(ctx context.Context, buildID string, result any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal build result: %w", err)
	}
	key := fmt.Sprintf(buildResultKeyFmt, buildID)
	if err := c.rdb.RPush(ctx, key, data).Err(); err != nil {
		return err
	}
	return c.rdb.Expire(ctx, key, buildResultExpires).Err()
}

// PublishEvent publishes a run progress event for websocket relays.
func (c *Client) PublishEvent(ctx context.Context, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return c.rdb.Publish(ctx, ChannelEvents, data).Err()
}

// SubscribeEvents subscribes to the run progress channel.
func (c *Client) SubscribeEvents(ctx context.Context) *redis.PubSub {
	return c.rdb.Subscribe(ctx, ChannelEvents)
}

// AcquireLock tries to take the named lock for the given TTL. Deploys for
// the same project are serialized through these locks: the engine assumes
// one writer per project at a time.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return ok, nil
}

// ReleaseLock releases a lock taken with AcquireLock.
func (c *Client) ReleaseLock(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}
