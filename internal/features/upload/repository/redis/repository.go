package redis

import (
	"context"
	"fmt"

	"chart-analyst-bot/internal/features/upload/models"
	"chart-analyst-bot/internal/features/upload/repository"

	"github.com/redis/go-redis/v9"
)

type pendingRepository struct {
	client *redis.Client
}

// NewPendingRepository keeps each queue in the list pending:<id>.
func NewPendingRepository(client *redis.Client) repository.PendingRepository {
	return &pendingRepository{client: client}
}

func pendingKey(userID int64) string {
	return fmt.Sprintf("pending:%d", userID)
}

func (r *pendingRepository) Append(ctx context.Context, userID int64, ref models.ImageRef) error {
	return r.client.RPush(ctx, pendingKey(userID), string(ref)).Err()
}

// Drain reads and deletes the list inside MULTI/EXEC so a concurrent Append lands
// either in this batch or in the next one, never lost.
func (r *pendingRepository) Drain(ctx context.Context, userID int64) ([]models.ImageRef, error) {
	key := pendingKey(userID)

	var rangeCmd *redis.StringSliceCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rangeCmd = pipe.LRange(ctx, key, 0, -1)
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return nil, err
	}

	vals := rangeCmd.Val()
	refs := make([]models.ImageRef, 0, len(vals))
	for _, v := range vals {
		refs = append(refs, models.ImageRef(v))
	}
	return refs, nil
}

func (r *pendingRepository) Restore(ctx context.Context, userID int64, refs []models.ImageRef) error {
	if len(refs) == 0 {
		return nil
	}
	// LPUSH prepends one by one, so push in reverse to keep the original order.
	vals := make([]interface{}, 0, len(refs))
	for i := len(refs) - 1; i >= 0; i-- {
		vals = append(vals, string(refs[i]))
	}
	return r.client.LPush(ctx, pendingKey(userID), vals...).Err()
}

func (r *pendingRepository) Len(ctx context.Context, userID int64) (int, error) {
	n, err := r.client.LLen(ctx, pendingKey(userID)).Result()
	return int(n), err
}
