package service

import (
	"context"
	"time"

	apperrors "chart-analyst-bot/internal/common/errors"
	"chart-analyst-bot/internal/features/upload/blobstore"
	"chart-analyst-bot/internal/features/upload/models"
	"chart-analyst-bot/internal/features/upload/repository"

	"github.com/rs/zerolog"
)

// LastImageRecorder stores the most recent upload on the user record.
type LastImageRecorder interface {
	SetLastImage(ctx context.Context, userID int64, ref string) error
}

type UploadService interface {
	Receive(ctx context.Context, userID int64, data []byte) (models.ImageRef, error)
	Drain(ctx context.Context, userID int64) ([]models.ImageRef, error)
	Restore(ctx context.Context, userID int64, refs []models.ImageRef) error
	Pending(ctx context.Context, userID int64) (int, error)
	Load(ctx context.Context, ref models.ImageRef) ([]byte, error)
}

type uploadService struct {
	store    blobstore.Store
	pending  repository.PendingRepository
	recorder LastImageRecorder
	now      func() time.Time
	log      zerolog.Logger
}

func NewUploadService(store blobstore.Store, pending repository.PendingRepository, recorder LastImageRecorder, log zerolog.Logger) UploadService {
	return &uploadService{
		store:    store,
		pending:  pending,
		recorder: recorder,
		now:      time.Now,
		log:      log,
	}
}

// Receive persists the bytes and queues the reference. The queue is only touched
// after the blob write succeeded.
func (s *uploadService) Receive(ctx context.Context, userID int64, data []byte) (models.ImageRef, error) {
	key := models.NewImageKey(userID, s.now())

	ref, err := s.store.Put(ctx, key, data)
	if err != nil {
		return "", apperrors.NewStorageError("put image", err).WithUserID(userID)
	}
	if err := s.pending.Append(ctx, userID, ref); err != nil {
		return "", apperrors.NewStorageError("queue image", err).WithUserID(userID)
	}

	if s.recorder != nil {
		if err := s.recorder.SetLastImage(ctx, userID, ref.String()); err != nil {
			s.log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to record last image")
		}
	}

	s.log.Info().
		Int64("user_id", userID).
		Str("ref", ref.String()).
		Int("size", len(data)).
		Msg("Image received")
	return ref, nil
}

func (s *uploadService) Drain(ctx context.Context, userID int64) ([]models.ImageRef, error) {
	refs, err := s.pending.Drain(ctx, userID)
	if err != nil {
		return nil, apperrors.NewStorageError("drain queue", err).WithUserID(userID)
	}
	return refs, nil
}

func (s *uploadService) Restore(ctx context.Context, userID int64, refs []models.ImageRef) error {
	if err := s.pending.Restore(ctx, userID, refs); err != nil {
		return apperrors.NewStorageError("restore queue", err).WithUserID(userID)
	}
	return nil
}

func (s *uploadService) Pending(ctx context.Context, userID int64) (int, error) {
	n, err := s.pending.Len(ctx, userID)
	if err != nil {
		return 0, apperrors.NewStorageError("queue length", err).WithUserID(userID)
	}
	return n, nil
}

func (s *uploadService) Load(ctx context.Context, ref models.ImageRef) ([]byte, error) {
	data, err := s.store.Get(ctx, ref)
	if err != nil {
		return nil, apperrors.NewStorageError("get image", err).WithDetail("ref", ref.String())
	}
	return data, nil
}
