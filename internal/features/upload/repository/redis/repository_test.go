package redis

import (
	"context"
	"testing"

	"chart-analyst-bot/internal/features/upload/models"
	"chart-analyst-bot/internal/platform/redis/redistest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingRepository_Queue(t *testing.T) {
	repo := NewPendingRepository(redistest.Open(t))
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, 1, "c"))
	require.NoError(t, repo.Restore(ctx, 1, []models.ImageRef{"a", "b"}))

	n, err := repo.Len(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	refs, err := repo.Drain(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []models.ImageRef{"a", "b", "c"}, refs)

	refs, err = repo.Drain(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, refs)
}
