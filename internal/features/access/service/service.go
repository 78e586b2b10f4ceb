package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	apperrors "chart-analyst-bot/internal/common/errors"
	"chart-analyst-bot/internal/common/validation"
	"chart-analyst-bot/internal/features/access/models"
	"chart-analyst-bot/internal/features/access/repository"

	"github.com/rs/zerolog"
)

const day = 24 * time.Hour

// AccessService decides who may request analysis.
type AccessService interface {
	IsAdmin(id int64) bool
	IsActive(ctx context.Context, userID int64) (bool, error)
	Get(ctx context.Context, userID int64) (*models.User, error)
	Upsert(ctx context.Context, userID int64, username string) (*models.User, error)
	SetLastImage(ctx context.Context, userID int64, ref string) error
	Activate(ctx context.Context, callerID, userID int64, days int) (time.Time, error)
	Deactivate(ctx context.Context, callerID, userID int64) error
	ListActive(ctx context.Context, callerID int64) ([]models.ActiveUser, error)
}

type accessService struct {
	repo   repository.UserRepository
	admins map[int64]struct{}
	now    func() time.Time
	log    zerolog.Logger
}

type Option func(*accessService)

// WithClock replaces time.Now, used by tests to move past expiry.
func WithClock(now func() time.Time) Option {
	return func(s *accessService) { s.now = now }
}

func NewAccessService(repo repository.UserRepository, adminIDs []int64, log zerolog.Logger, opts ...Option) AccessService {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	s := &accessService{
		repo:   repo,
		admins: admins,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *accessService) IsAdmin(id int64) bool {
	_, ok := s.admins[id]
	return ok
}

// IsActive re-evaluates expiry on every call; nothing sweeps expired users.
func (s *accessService) IsActive(ctx context.Context, userID int64) (bool, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewStorageError("get user", err)
	}
	return user.IsActiveAt(s.now()), nil
}

func (s *accessService) Get(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return &models.User{ID: userID}, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageError("get user", err)
	}
	return user, nil
}

func (s *accessService) Upsert(ctx context.Context, userID int64, username string) (*models.User, error) {
	now := s.now()
	user, err := s.repo.Update(ctx, userID, func(u *models.User) error {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		if username != "" {
			u.Username = username
		}
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, apperrors.NewStorageError("upsert user", err)
	}
	return user, nil
}

func (s *accessService) SetLastImage(ctx context.Context, userID int64, ref string) error {
	now := s.now()
	_, err := s.repo.Update(ctx, userID, func(u *models.User) error {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		u.LastImage = ref
		u.UpdatedAt = now
		return nil
	})
	if err != nil {
		return apperrors.NewStorageError("set last image", err)
	}
	return nil
}

func (s *accessService) Activate(ctx context.Context, callerID, userID int64, days int) (time.Time, error) {
	if !s.IsAdmin(callerID) {
		s.log.Warn().Int64("caller_id", callerID).Int64("user_id", userID).Msg("Unauthorized activation attempt")
		return time.Time{}, apperrors.NewAccessDeniedError(callerID, "activate")
	}
	if err := validation.ValidateDays(days); err != nil {
		return time.Time{}, err
	}

	now := s.now()
	user, err := s.repo.Update(ctx, userID, func(u *models.User) error {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		u.Activate(now, time.Duration(days)*day)
		return nil
	})
	if err != nil {
		return time.Time{}, apperrors.NewStorageError("activate user", err)
	}

	s.log.Info().
		Int64("caller_id", callerID).
		Int64("user_id", userID).
		Int("days", days).
		Time("expires_at", *user.ExpiresAt).
		Msg("User activated")
	return *user.ExpiresAt, nil
}

func (s *accessService) Deactivate(ctx context.Context, callerID, userID int64) error {
	if !s.IsAdmin(callerID) {
		s.log.Warn().Int64("caller_id", callerID).Int64("user_id", userID).Msg("Unauthorized deactivation attempt")
		return apperrors.NewAccessDeniedError(callerID, "deactivate")
	}

	now := s.now()
	_, err := s.repo.Update(ctx, userID, func(u *models.User) error {
		if u.CreatedAt.IsZero() {
			u.CreatedAt = now
		}
		u.Deactivate(now)
		return nil
	})
	if err != nil {
		return apperrors.NewStorageError("deactivate user", err)
	}

	s.log.Info().Int64("caller_id", callerID).Int64("user_id", userID).Msg("User deactivated")
	return nil
}

func (s *accessService) ListActive(ctx context.Context, callerID int64) ([]models.ActiveUser, error) {
	if !s.IsAdmin(callerID) {
		return nil, apperrors.NewAccessDeniedError(callerID, "list_active")
	}

	flagged, err := s.repo.ListFlagged(ctx)
	if err != nil {
		return nil, apperrors.NewStorageError("list users", err)
	}

	now := s.now()
	active := make([]models.ActiveUser, 0, len(flagged))
	for _, u := range flagged {
		if !u.IsActiveAt(now) {
			continue
		}
		active = append(active, models.ActiveUser{ID: u.ID, Username: u.Username, ExpiresAt: u.ExpiresAt})
	}
	return active, nil
}

// DisplayName is the @username, or the numeric id when no username is known.
func DisplayName(u models.ActiveUser) string {
	if u.Username != "" {
		return "@" + u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}
