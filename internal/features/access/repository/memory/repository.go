package memory

import (
	"context"
	"sort"
	"sync"

	"chart-analyst-bot/internal/features/access/models"
	"chart-analyst-bot/internal/features/access/repository"
)

type userRepository struct {
	mu    sync.Mutex
	users map[int64]models.User
}

// NewUserRepository returns a process-local repository. State is lost on restart.
func NewUserRepository() repository.UserRepository {
	return &userRepository{users: make(map[int64]models.User)}
}

func (r *userRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepository) Update(_ context.Context, id int64, fn func(u *models.User) error) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		u = models.User{ID: id}
	}
	if err := fn(&u); err != nil {
		return nil, err
	}
	r.users[id] = u
	out := u
	return &out, nil
}

func (r *userRepository) ListFlagged(_ context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var users []*models.User
	for _, u := range r.users {
		if !u.Active {
			continue
		}
		u := u
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}
