package repository

import (
	"context"

	"chart-analyst-bot/internal/features/upload/models"
)

// PendingRepository holds the per-user FIFO of images awaiting analysis.
// Implementations must be safe for concurrent use.
type PendingRepository interface {
	Append(ctx context.Context, userID int64, ref models.ImageRef) error
	// Drain returns every queued ref in insertion order and empties the queue.
	Drain(ctx context.Context, userID int64) ([]models.ImageRef, error)
	// Restore puts refs back at the head of the queue, preserving their order.
	Restore(ctx context.Context, userID int64, refs []models.ImageRef) error
	Len(ctx context.Context, userID int64) (int, error)
}
