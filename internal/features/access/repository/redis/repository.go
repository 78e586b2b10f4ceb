package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"chart-analyst-bot/internal/features/access/models"
	"chart-analyst-bot/internal/features/access/repository"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	activeSetKey     = "users:active"
	maxUpdateRetries = 10
)

type userRepository struct {
	client *redis.Client
}

// NewUserRepository stores users as JSON under user:<id> and tracks flagged ids
// in the users:active set, so activation survives restarts.
func NewUserRepository(client *redis.Client) repository.UserRepository {
	return &userRepository{client: client}
}

func userKey(id int64) string {
	return fmt.Sprintf("user:%d", id)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return getUser(ctx, r.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getUser(ctx context.Context, c getter, id int64) (*models.User, error) {
	data, err := c.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("decode user %d: %w", id, err)
	}
	return &user, nil
}

func writeUser(ctx context.Context, pipe redis.Pipeliner, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	pipe.Set(ctx, userKey(user.ID), data, 0)
	if user.Active {
		pipe.SAdd(ctx, activeSetKey, user.ID)
	} else {
		pipe.SRem(ctx, activeSetKey, user.ID)
	}
	return nil
}

func (r *userRepository) Update(ctx context.Context, id int64, fn func(u *models.User) error) (*models.User, error) {
	var result *models.User
	key := userKey(id)

	txf := func(tx *redis.Tx) error {
		user, err := getUser(ctx, tx, id)
		if errors.Is(err, repository.ErrUserNotFound) {
			user = &models.User{ID: id}
		} else if err != nil {
			return err
		}
		if err := fn(user); err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return writeUser(ctx, pipe, user)
		})
		if err == nil {
			result = user
		}
		return err
	}

	for i := 0; i < maxUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("update user %d: too many concurrent writers", id)
}

func (r *userRepository) ListFlagged(ctx context.Context) ([]*models.User, error) {
	members, err := r.client.SMembers(ctx, activeSetKey).Result()
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		user, err := getUser(ctx, r.client, id)
		if errors.Is(err, repository.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if user.Active {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
