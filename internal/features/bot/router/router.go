package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	apperrors "chart-analyst-bot/internal/common/errors"
	"chart-analyst-bot/internal/common/validation"
	accessservice "chart-analyst-bot/internal/features/access/service"
	"chart-analyst-bot/internal/features/upload/models"
	"chart-analyst-bot/internal/metrics"
)

// TextEvent is a text message from a private chat.
type TextEvent struct {
	ChatID   int64
	Username string
	Text     string
}

// PhotoEvent carries the downloaded bytes of the largest photo size.
type PhotoEvent struct {
	ChatID   int64
	Username string
	Data     []byte
}

type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type Uploader interface {
	Receive(ctx context.Context, userID int64, data []byte) (models.ImageRef, error)
	Pending(ctx context.Context, userID int64) (int, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, userID int64) error
}

type Deps struct {
	Access    accessservice.AccessService
	Uploads   Uploader
	Analysis  Analyzer
	Messenger Messenger
	Metrics   metrics.Recorder
	Log       zerolog.Logger
	// DefaultDays is used by /activate when no day count is given.
	DefaultDays int
}

// Router turns inbound events into registry, upload and analysis calls and
// answers every event with text. No error escapes a Handle method.
type Router struct {
	Deps
}

func New(deps Deps) *Router {
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop()
	}
	if deps.DefaultDays <= 0 {
		deps.DefaultDays = 30
	}
	return &Router{Deps: deps}
}

type command struct {
	name string
	args []string
}

// adminCommands are also accepted without the leading slash.
var adminCommands = map[string]bool{
	"activate":    true,
	"deactivate":  true,
	"list_active": true,
}

func parseCommand(text string) (command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return command{}, false
	}

	head := fields[0]
	slash := strings.HasPrefix(head, "/")
	head = strings.TrimPrefix(head, "/")
	// /cmd@bot_name form used in groups
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	head = strings.ToLower(head)

	if !slash && !adminCommands[head] {
		return command{}, false
	}
	return command{name: head, args: fields[1:]}, true
}

func (r *Router) HandleText(ctx context.Context, ev TextEvent) {
	log := r.Log.With().Int64("chat_id", ev.ChatID).Logger()

	cmd, ok := parseCommand(ev.Text)
	if !ok {
		r.reply(ctx, ev.ChatID, r.helpFor(ev.ChatID))
		return
	}
	log.Debug().Str("command", cmd.name).Msg("Command received")

	switch cmd.name {
	case "start":
		r.handleStart(ctx, ev)
	case "status":
		r.handleStatus(ctx, ev)
	case "id":
		r.reply(ctx, ev.ChatID, fmt.Sprintf(textID, ev.ChatID))
	case "analyze":
		r.handleAnalyze(ctx, ev.ChatID)
	case "activate":
		r.handleActivate(ctx, ev.ChatID, cmd.args)
	case "deactivate":
		r.handleDeactivate(ctx, ev.ChatID, cmd.args)
	case "list_active":
		r.handleListActive(ctx, ev.ChatID)
	default:
		r.reply(ctx, ev.ChatID, r.helpFor(ev.ChatID))
	}
}

// HandlePhoto stores the image, acknowledges it and, for active users, starts
// the analysis right away. A chart sent while an analysis runs is reported by
// that job's follow-up run, so the acknowledgement stays the only reply.
func (r *Router) HandlePhoto(ctx context.Context, ev PhotoEvent) {
	log := r.Log.With().Int64("chat_id", ev.ChatID).Logger()

	if _, err := r.Access.Upsert(ctx, ev.ChatID, ev.Username); err != nil {
		log.Warn().Err(err).Msg("Failed to upsert user on upload")
	}

	ref, err := r.Uploads.Receive(ctx, ev.ChatID, ev.Data)
	if err != nil {
		r.fail(ctx, ev.ChatID, err)
		return
	}
	log.Info().Str("ref", ref.String()).Int("bytes", len(ev.Data)).Msg("Chart received")

	active, err := r.Access.IsActive(ctx, ev.ChatID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to check activation after upload")
		active = false
	}
	if !active {
		r.reply(ctx, ev.ChatID, textReceivedQueued)
		return
	}

	r.reply(ctx, ev.ChatID, textReceivedAnalyzing)
	err = r.Analysis.Analyze(ctx, ev.ChatID)
	switch {
	case err == nil:
	case apperrors.HasCode(err, apperrors.ErrCodeAnalysisInProgress):
		// The running job picks this chart up when its current report is sent.
		log.Debug().Msg("Chart joins the running analysis")
	default:
		r.fail(ctx, ev.ChatID, err)
	}
}

// Fail reports a transport-level failure (e.g. a photo that could not be
// downloaded) to the user.
func (r *Router) Fail(ctx context.Context, chatID int64, err error) {
	r.fail(ctx, chatID, err)
}

func (r *Router) handleStart(ctx context.Context, ev TextEvent) {
	if _, err := r.Access.Upsert(ctx, ev.ChatID, ev.Username); err != nil {
		r.fail(ctx, ev.ChatID, err)
		return
	}
	r.reply(ctx, ev.ChatID, fmt.Sprintf(textWelcome, ev.ChatID))
}

func (r *Router) handleStatus(ctx context.Context, ev TextEvent) {
	active, err := r.Access.IsActive(ctx, ev.ChatID)
	if err != nil {
		r.fail(ctx, ev.ChatID, err)
		return
	}

	var status string
	switch {
	case !active:
		status = textStatusInactive
	default:
		user, err := r.Access.Get(ctx, ev.ChatID)
		if err != nil {
			r.fail(ctx, ev.ChatID, err)
			return
		}
		status = textStatusActiveForever
		if user.ExpiresAt != nil {
			status = fmt.Sprintf(textStatusActive, user.ExpiresAt.UTC().Format(dateLayout))
		}
	}

	pending, err := r.Uploads.Pending(ctx, ev.ChatID)
	if err != nil {
		r.Log.Warn().Err(err).Int64("chat_id", ev.ChatID).Msg("Failed to count pending charts")
	} else if pending > 0 {
		status += fmt.Sprintf(textPending, pending)
	}
	r.reply(ctx, ev.ChatID, status)
}

// handleAnalyze sends nothing on success: the scheduled job delivers the report.
func (r *Router) handleAnalyze(ctx context.Context, chatID int64) {
	if err := r.Analysis.Analyze(ctx, chatID); err != nil {
		r.fail(ctx, chatID, err)
	}
}

func (r *Router) handleActivate(ctx context.Context, callerID int64, args []string) {
	if !r.Access.IsAdmin(callerID) {
		r.deny(ctx, callerID, "activate")
		return
	}
	if len(args) < 1 || len(args) > 2 {
		r.reply(ctx, callerID, textActivateUsage)
		return
	}

	target, err := validation.UserID(args[0])
	if err != nil {
		r.reply(ctx, callerID, textActivateUsage)
		return
	}
	days := r.DefaultDays
	if len(args) == 2 {
		if days, err = validation.Days(args[1]); err != nil {
			r.reply(ctx, callerID, textActivateUsage)
			return
		}
	}

	expires, err := r.Access.Activate(ctx, callerID, target, days)
	if err != nil {
		r.fail(ctx, callerID, err)
		return
	}

	until := expires.UTC().Format(dateLayout)
	confirmation := fmt.Sprintf(textActivated, target, days, until)
	confirmation += r.notify(ctx, target, fmt.Sprintf(textActivatedNotice, until))
	r.reply(ctx, callerID, confirmation)
}

func (r *Router) handleDeactivate(ctx context.Context, callerID int64, args []string) {
	if !r.Access.IsAdmin(callerID) {
		r.deny(ctx, callerID, "deactivate")
		return
	}
	if len(args) != 1 {
		r.reply(ctx, callerID, textDeactivateUsage)
		return
	}

	target, err := validation.UserID(args[0])
	if err != nil {
		r.reply(ctx, callerID, textDeactivateUsage)
		return
	}

	if err := r.Access.Deactivate(ctx, callerID, target); err != nil {
		r.fail(ctx, callerID, err)
		return
	}

	confirmation := fmt.Sprintf(textDeactivated, target)
	confirmation += r.notify(ctx, target, textDeactivatedNote)
	r.reply(ctx, callerID, confirmation)
}

func (r *Router) handleListActive(ctx context.Context, callerID int64) {
	if !r.Access.IsAdmin(callerID) {
		r.deny(ctx, callerID, "list_active")
		return
	}

	users, err := r.Access.ListActive(ctx, callerID)
	if err != nil {
		r.fail(ctx, callerID, err)
		return
	}
	if len(users) == 0 {
		r.reply(ctx, callerID, textNoActiveUsers)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, textActiveHeader, len(users))
	for _, u := range users {
		name := accessservice.DisplayName(u)
		if u.ExpiresAt == nil {
			fmt.Fprintf(&b, textActiveForever, name, u.ID)
			continue
		}
		fmt.Fprintf(&b, textActiveLine, name, u.ID, u.ExpiresAt.UTC().Format(dateLayout))
	}
	r.reply(ctx, callerID, b.String())
}

// notify tells a third party about an admin action. On failure it returns the
// note to append to the admin's confirmation.
func (r *Router) notify(ctx context.Context, target int64, text string) string {
	if err := r.Messenger.SendText(ctx, target, text); err != nil {
		r.Metrics.IncSendFailure()
		r.Log.Warn().
			Err(apperrors.NewNotificationError(target, err)).
			Int64("user_id", target).
			Msg("Failed to notify user")
		return fmt.Sprintf(textNotifyFailed, target)
	}
	return ""
}

func (r *Router) deny(ctx context.Context, callerID int64, action string) {
	r.Log.Warn().Int64("caller_id", callerID).Str("action", action).Msg("Admin command denied")
	r.reply(ctx, callerID, textAdminOnly)
}

// fail logs err and sends the matching user-facing text.
func (r *Router) fail(ctx context.Context, chatID int64, err error) {
	log := r.Log.With().Int64("chat_id", chatID).Str("error_code", string(apperrors.CodeOf(err))).Logger()

	appErr, ok := apperrors.AsAppError(err)
	switch {
	case ok && appErr.IsUserFacing():
		log.Info().Err(err).Msg("Request rejected")
	case ok:
		log.Error().Err(err).Strs("stack", appErr.Stack).Msg("Request failed")
	default:
		log.Error().Err(err).Msg("Request failed")
	}
	r.reply(ctx, chatID, replyFor(err))
}

func replyFor(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeAccessDenied:
		return textNotActive
	case apperrors.ErrCodeNoPendingImage:
		return textNoImage
	case apperrors.ErrCodeAnalysisInProgress:
		return textInProgress
	case apperrors.ErrCodeBusy:
		return textBusy
	case apperrors.ErrCodeValidation:
		if appErr, ok := apperrors.AsAppError(err); ok {
			if reason, ok := appErr.Details["reason"].(string); ok {
				return fmt.Sprintf(textInvalidInput, reason)
			}
		}
	}
	return textFailure
}

func (r *Router) helpFor(chatID int64) string {
	if r.Access.IsAdmin(chatID) {
		return textHelp + textAdminHelp
	}
	return textHelp
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if err := r.Messenger.SendText(ctx, chatID, text); err != nil {
		r.Metrics.IncSendFailure()
		r.Log.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to send reply")
	}
}
