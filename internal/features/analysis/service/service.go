package service

import (
	"context"
	"errors"
	"sync"
	"time"

	apperrors "chart-analyst-bot/internal/common/errors"
	"chart-analyst-bot/internal/features/analysis/extract"
	"chart-analyst-bot/internal/features/analysis/provider"
	"chart-analyst-bot/internal/features/analysis/report"
	"chart-analyst-bot/internal/features/upload/models"
	"chart-analyst-bot/internal/metrics"
	"chart-analyst-bot/internal/workers"

	"github.com/rs/zerolog"
)

// ActivityChecker is the slice of the access registry the dispatcher needs.
type ActivityChecker interface {
	IsActive(ctx context.Context, userID int64) (bool, error)
}

// ImageQueue is the slice of upload intake the dispatcher needs.
type ImageQueue interface {
	Drain(ctx context.Context, userID int64) ([]models.ImageRef, error)
	Restore(ctx context.Context, userID int64, refs []models.ImageRef) error
	Load(ctx context.Context, ref models.ImageRef) ([]byte, error)
}

type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type Submitter interface {
	Submit(job workers.Job) error
}

type AnalysisService interface {
	// Analyze checks access, drains the user's queue and schedules the analysis.
	// It returns once the job is queued; the report is delivered by the job.
	// While a job runs for the user it returns ANALYSIS_IN_PROGRESS, and the job
	// drains the queue again before it finishes.
	Analyze(ctx context.Context, userID int64) error
}

type Deps struct {
	Access    ActivityChecker
	Uploads   ImageQueue
	Provider  provider.Provider
	Messenger Messenger
	Pool      Submitter
	Metrics   metrics.Recorder
	Log       zerolog.Logger
	// Timeout bounds a single provider call.
	Timeout time.Duration
}

type analysisService struct {
	Deps
	chain extract.Chain

	mu sync.Mutex
	// inflight holds users with a running job; the value is set when another
	// request arrived meanwhile and the job must drain the queue once more.
	inflight map[int64]bool
}

func NewAnalysisService(deps Deps) AnalysisService {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 60 * time.Second
	}
	return &analysisService{
		Deps:     deps,
		chain:    extract.DefaultChain(),
		inflight: make(map[int64]bool),
	}
}

func (s *analysisService) Analyze(ctx context.Context, userID int64) error {
	active, err := s.Access.IsActive(ctx, userID)
	if err != nil {
		return err
	}
	if !active {
		s.Metrics.IncAnalysis(metrics.OutcomeDenied)
		return apperrors.NewAccessDeniedError(userID, "analyze")
	}

	if !s.acquire(userID) {
		s.Metrics.IncAnalysis(metrics.OutcomeInProgress)
		return apperrors.New(apperrors.ErrCodeAnalysisInProgress, "Analysis already running").WithUserID(userID)
	}

	refs, err := s.Uploads.Drain(ctx, userID)
	if err != nil {
		s.release(userID)
		return err
	}
	if len(refs) == 0 {
		s.release(userID)
		s.Metrics.IncAnalysis(metrics.OutcomeNoImage)
		return apperrors.NewNoPendingImageError(userID)
	}

	err = s.Pool.Submit(func(jobCtx context.Context) {
		s.runJob(jobCtx, userID, refs)
	})
	if err != nil {
		s.release(userID)
		if restoreErr := s.Uploads.Restore(ctx, userID, refs); restoreErr != nil {
			s.Log.Error().Err(restoreErr).Int64("user_id", userID).Int("images", len(refs)).Msg("Failed to restore pending images")
		}
		s.Metrics.IncAnalysis(metrics.OutcomeBusy)
		return apperrors.Wrap(err, apperrors.ErrCodeBusy, "Analysis queue is full").WithUserID(userID)
	}

	s.Log.Info().Int64("user_id", userID).Int("images", len(refs)).Msg("Analysis scheduled")
	return nil
}

// acquire marks userID as having an analysis in flight. An overlapping request
// is rejected, but the running job is told to pick up what it queued.
func (s *analysisService) acquire(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.inflight[userID]; busy {
		s.inflight[userID] = true
		return false
	}
	s.inflight[userID] = false
	return true
}

// finish releases userID unless a follow-up run was requested, in which case
// it clears the request and returns false.
func (s *analysisService) finish(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inflight[userID] {
		s.inflight[userID] = false
		return false
	}
	delete(s.inflight, userID)
	return true
}

func (s *analysisService) release(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.inflight, userID)
}

// runJob reports refs, then keeps draining the queue while overlapping requests
// asked for it, so charts uploaded during a run are never left behind.
func (s *analysisService) runJob(ctx context.Context, userID int64, refs []models.ImageRef) {
	released := false
	defer func() {
		if !released {
			s.release(userID)
		}
	}()

	s.run(ctx, userID, refs)
	for !s.finish(userID) {
		s.runPending(ctx, userID)
	}
	released = true
}

// runPending is a follow-up run. Access is checked again, since it may have
// been revoked while the previous run was in flight.
func (s *analysisService) runPending(ctx context.Context, userID int64) {
	active, err := s.Access.IsActive(ctx, userID)
	if err != nil {
		s.Log.Error().Err(err).Int64("user_id", userID).Msg("Failed to check activation for follow-up run")
		return
	}
	if !active {
		s.Metrics.IncAnalysis(metrics.OutcomeDenied)
		return
	}

	refs, err := s.Uploads.Drain(ctx, userID)
	if err != nil {
		s.Log.Error().Err(err).Int64("user_id", userID).Msg("Failed to drain queue for follow-up run")
		return
	}
	if len(refs) == 0 {
		return
	}
	s.Log.Info().Int64("user_id", userID).Int("images", len(refs)).Msg("Follow-up analysis started")
	s.run(ctx, userID, refs)
}

// run analyzes every image concurrently and sends exactly one message.
func (s *analysisService) run(ctx context.Context, userID int64, refs []models.ImageRef) {
	reports := make([]report.Report, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		wg.Add(1)
		go func(i int, ref models.ImageRef) {
			defer wg.Done()
			reports[i] = s.analyzeOne(ctx, userID, ref)
		}(i, ref)
	}
	wg.Wait()

	notLive := 0
	for _, r := range reports {
		outcome := outcomeOf(r)
		if outcome != metrics.OutcomeLive {
			notLive++
		}
		s.Metrics.IncAnalysis(outcome)
	}

	if err := s.Messenger.SendText(ctx, userID, report.Compose(reports)); err != nil {
		s.Metrics.IncSendFailure()
		s.Log.Error().Err(err).Int64("user_id", userID).Msg("Failed to deliver analysis")
		return
	}
	s.Log.Info().
		Int64("user_id", userID).
		Int("images", len(refs)).
		Int("not_live", notLive).
		Msg("Analysis delivered")
}

func outcomeOf(r report.Report) string {
	switch {
	case r.Failed:
		return metrics.OutcomeUnreadable
	case r.Simulated:
		return metrics.OutcomeSimulated
	default:
		return metrics.OutcomeLive
	}
}

func (s *analysisService) analyzeOne(ctx context.Context, userID int64, ref models.ImageRef) report.Report {
	log := s.Log.With().Int64("user_id", userID).Str("ref", ref.String()).Logger()

	image, err := s.Uploads.Load(ctx, ref)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load image")
		return report.Unreadable()
	}

	if s.Provider == nil {
		return report.Fallback(report.ReasonNotConfigured)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	started := time.Now()
	raw, err := s.Provider.AnalyzeImage(callCtx, image, report.Prompt)
	s.Metrics.ObserveProvider(time.Since(started), err == nil)
	if err != nil {
		reason := report.ReasonUnavailable
		if errors.Is(err, provider.ErrNotConfigured) {
			reason = report.ReasonNotConfigured
		}
		log.Warn().Err(err).Msg("Provider call failed, sending simulated report")
		return report.Fallback(reason)
	}

	res := s.chain.Extract(raw)
	if !res.Parsed {
		log.Warn().Str("preview", res.Text).Msg("Unrecognized provider response, sending simulated report")
		return report.Fallback(report.ReasonUnreadable)
	}

	log.Debug().Str("extractor", res.Source).Msg("Provider response parsed")
	return report.Live(res.Text)
}
