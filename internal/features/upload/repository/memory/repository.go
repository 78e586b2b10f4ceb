package memory

import (
	"context"
	"sync"

	"chart-analyst-bot/internal/features/upload/models"
	"chart-analyst-bot/internal/features/upload/repository"
)

// One global lock; upload volume is low.
type pendingRepository struct {
	mu     sync.Mutex
	queues map[int64][]models.ImageRef
}

func NewPendingRepository() repository.PendingRepository {
	return &pendingRepository{queues: make(map[int64][]models.ImageRef)}
}

func (r *pendingRepository) Append(_ context.Context, userID int64, ref models.ImageRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queues[userID] = append(r.queues[userID], ref)
	return nil
}

func (r *pendingRepository) Drain(_ context.Context, userID int64) ([]models.ImageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	refs := r.queues[userID]
	delete(r.queues, userID)
	return refs, nil
}

func (r *pendingRepository) Restore(_ context.Context, userID int64, refs []models.ImageRef) error {
	if len(refs) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	queue := make([]models.ImageRef, 0, len(refs)+len(r.queues[userID]))
	queue = append(queue, refs...)
	queue = append(queue, r.queues[userID]...)
	r.queues[userID] = queue
	return nil
}

func (r *pendingRepository) Len(_ context.Context, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.queues[userID]), nil
}
