package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// StatusCache publishes each task's last-run outcome to redis, a
// secondary sighting alongside the scheduler's in-memory state rather
// than a replacement for it: a second dashostd instance or a dashboard
// can read a task's last result without reaching into this process. It is optional — a nil
// *StatusCache (the default) makes recordLastRun a no-op, so the
// scheduler never requires redis to run standalone.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatusCache wraps an existing redis client. ttl controls how long
// a published status entry survives; zero means no expiry.
func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	return &StatusCache{client: client, ttl: ttl}
}

// WithStatusCache attaches c to the scheduler so execute publishes each
// run's outcome after completion.
func WithStatusCache(c *StatusCache) Option {
	return func(o *options) { o.StatusCache = c }
}

func (c *StatusCache) recordLastRun(ctx context.Context, taskName, message, errText string) {
	if c == nil || c.client == nil {
		return
	}
	key := "dashost:scheduler:last_run:" + taskName
	value := message
	if errText != "" {
		value = "error: " + errText
	}
	// Best-effort: a cache write failing never fails the task itself.
	c.client.Set(ctx, key, value, c.ttl)
}
