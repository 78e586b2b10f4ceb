package repository

import (
	"context"
	"errors"

	"chart-analyst-bot/internal/features/access/models"
)

var ErrUserNotFound = errors.New("user not found")

// UserRepository persists users. Implementations must be safe for concurrent use.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// Update loads the user (or a fresh record with only ID set), applies fn and
	// stores the result atomically with respect to other Update calls.
	Update(ctx context.Context, id int64, fn func(u *models.User) error) (*models.User, error)
	// ListFlagged returns users whose Active flag is set, expired or not, ordered by ID.
	ListFlagged(ctx context.Context) ([]*models.User, error)
}
