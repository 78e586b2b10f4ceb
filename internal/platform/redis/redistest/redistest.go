// Package redistest connects tests to a scratch Redis database.
package redistest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	redisplatform "chart-analyst-bot/internal/platform/redis"
)

// Open connects to TEST_REDIS_ADDR and flushes the selected database.
// The test is skipped when the variable is unset.
func Open(t testing.TB) *redis.Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := redisplatform.Open(ctx, addr, os.Getenv("TEST_REDIS_PASSWORD"), 15)
	if err != nil {
		t.Fatalf("open redis: %v", err)
	}
	if err := c.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush redis: %v", err)
	}
	t.Cleanup(func() {
		_ = c.FlushDB(context.Background()).Err()
		_ = c.Close()
	})
	return c
}
