package redis

import (
	"context"
	"testing"
	"time"

	"chart-analyst-bot/internal/features/access/models"
	"chart-analyst-bot/internal/features/access/repository"
	"chart-analyst-bot/internal/platform/redis/redistest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_RoundTrip(t *testing.T) {
	client := redistest.Open(t)
	repo := NewUserRepository(client)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 555)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	now := time.Now().UTC().Truncate(time.Second)
	u, err := repo.Update(ctx, 555, func(u *models.User) error {
		u.Username = "trader"
		u.Activate(now, 7*24*time.Hour)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, u.Active)

	got, err := repo.GetByID(ctx, 555)
	require.NoError(t, err)
	assert.Equal(t, "trader", got.Username)
	assert.True(t, got.ExpiresAt.Equal(now.Add(7*24*time.Hour)))

	flagged, err := repo.ListFlagged(ctx)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, int64(555), flagged[0].ID)

	_, err = repo.Update(ctx, 555, func(u *models.User) error {
		u.Deactivate(now)
		return nil
	})
	require.NoError(t, err)

	flagged, err = repo.ListFlagged(ctx)
	require.NoError(t, err)
	assert.Empty(t, flagged)
}
