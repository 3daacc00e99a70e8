package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/forPelevin/threadreel/internal/ports"
	"github.com/forPelevin/threadreel/internal/types"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Cached puts a Redis read-through cache in front of GetJob, which clients
// poll while a job renders. Only completed and failed jobs are cached; jobs
// still in flight always read through. Every write through Cached drops the
// cached copy. Redis failures degrade to the backing store.
type Cached struct {
	next   ports.JobStore
	client redis.UniversalClient
	ttl    time.Duration
	logger zerolog.Logger
}

// NewRedisClient dials Redis and verifies the connection.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return client, nil
}

func NewCached(next ports.JobStore, client redis.UniversalClient, ttl time.Duration, logger zerolog.Logger) *Cached {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cached{next: next, client: client, ttl: ttl, logger: logger}
}

func jobKey(id string) string { return "threadreel:job:" + id }

func (c *Cached) CreateJob(ctx context.Context, ownerID, sourceRef, title, inputText string) (string, error) {
	return c.next.CreateJob(ctx, ownerID, sourceRef, title, inputText)
}

func (c *Cached) UpdateJob(ctx context.Context, id string, status types.JobStatus, outputPath string, durationSec float64) error {
	err := c.next.UpdateJob(ctx, id, status, outputPath, durationSec)
	c.invalidate(ctx, id)
	return err
}

func (c *Cached) ListJobs(ctx context.Context, ownerID string) ([]types.RenderJob, error) {
	return c.next.ListJobs(ctx, ownerID)
}

func (c *Cached) GetJob(ctx context.Context, id, ownerID string) (types.RenderJob, error) {
	if j, ok := c.lookup(ctx, id); ok {
		if j.OwnerID != ownerID {
			return types.RenderJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
		}
		return j, nil
	}
	j, err := c.next.GetJob(ctx, id, ownerID)
	if err != nil {
		return j, err
	}
	// Only final states are safe to cache: a fill racing an UpdateJob could
	// otherwise write back a status that has already moved on.
	if j.Status.IsTerminal() {
		c.store(ctx, j)
	}
	return j, nil
}

func (c *Cached) lookup(ctx context.Context, id string) (types.RenderJob, bool) {
	b, err := c.client.Get(ctx, jobKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.RenderJob{}, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("job_id", id).Msg("redis get failed")
		return types.RenderJob{}, false
	}
	var j types.RenderJob
	if err := json.Unmarshal(b, &j); err != nil {
		c.logger.Warn().Err(err).Str("job_id", id).Msg("cached job unreadable")
		return types.RenderJob{}, false
	}
	return j, true
}

func (c *Cached) store(ctx context.Context, j types.RenderJob) {
	b, err := json.Marshal(j)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, jobKey(j.ID), b, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("job_id", j.ID).Msg("redis set failed")
	}
}

func (c *Cached) invalidate(ctx context.Context, id string) {
	// Invalidation must survive a cancelled caller context.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := c.client.Del(ctx, jobKey(id)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("job_id", id).Msg("redis delete failed")
	}
}
