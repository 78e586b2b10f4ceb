package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"chart-analyst-bot/internal/features/bot/router"
	"chart-analyst-bot/internal/metrics"
)

const (
	// SecretHeader is set by Telegram when the webhook was registered with a secret token.
	SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

	seenUpdates    = 1024
	maxUpdateBytes = 1 << 20
)

// ErrNoSecret is returned when the handler would accept unauthenticated updates.
var ErrNoSecret = errors.New("webhook secret is empty")

// Update kinds as counted by metrics.
const (
	kindText      = "text"
	kindPhoto     = "photo"
	kindDuplicate = "duplicate"
	kindIgnored   = "ignored"
	kindRejected  = "rejected"
)

type EventRouter interface {
	HandleText(ctx context.Context, ev router.TextEvent)
	HandlePhoto(ctx context.Context, ev router.PhotoEvent)
	Fail(ctx context.Context, chatID int64, err error)
}

type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

type WebhookHandler struct {
	router     EventRouter
	downloader Downloader
	secret     string
	seen       *lru.Cache[int, struct{}]
	metrics    metrics.Recorder
	log        zerolog.Logger
}

// NewWebhookHandler accepts updates only when both the path segment and the
// secret token header carry secret.
func NewWebhookHandler(r EventRouter, downloader Downloader, secret string, rec metrics.Recorder, log zerolog.Logger) (*WebhookHandler, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	seen, err := lru.New[int, struct{}](seenUpdates)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = metrics.Noop()
	}
	return &WebhookHandler{
		router:     r,
		downloader: downloader,
		secret:     secret,
		seen:       seen,
		metrics:    rec,
		log:        log,
	}, nil
}

func (h *WebhookHandler) RegisterRoutes(r gin.IRouter) {
	r.POST("/webhook/:secret", h.handleUpdate)
}

// RedactPath hides the secret segment of webhook paths in request logs.
func RedactPath(path string) string {
	if strings.HasPrefix(path, "/webhook/") {
		return "/webhook/***"
	}
	return path
}

func (h *WebhookHandler) handleUpdate(c *gin.Context) {
	if !h.authorized(c) {
		h.metrics.IncUpdate(kindRejected)
		h.log.Warn().Str("client_ip", c.ClientIP()).Msg("Webhook call with wrong secret")
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUpdateBytes))
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		h.metrics.IncUpdate(kindRejected)
		h.log.Warn().Err(err).Msg("Malformed update")
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	// Telegram redelivers updates it did not see acknowledged.
	if seen, _ := h.seen.ContainsOrAdd(update.UpdateID, struct{}{}); seen {
		h.metrics.IncUpdate(kindDuplicate)
		h.log.Debug().Int("update_id", update.UpdateID).Msg("Duplicate update dropped")
		c.Status(http.StatusOK)
		return
	}

	// The work outlives Telegram's connection if it hangs up early.
	ctx := context.WithoutCancel(c.Request.Context())
	h.dispatch(ctx, update)
	c.Status(http.StatusOK)
}

func (h *WebhookHandler) authorized(c *gin.Context) bool {
	pathOK := equal(c.Param("secret"), h.secret)
	headerOK := equal(c.GetHeader(SecretHeader), h.secret)
	return pathOK && headerOK
}

func (h *WebhookHandler) dispatch(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		h.metrics.IncUpdate(kindIgnored)
		return
	}

	chatID := msg.Chat.ID
	username := ""
	if msg.From != nil {
		username = msg.From.UserName
	}

	if fileID, ok := imageFileID(msg); ok {
		h.metrics.IncUpdate(kindPhoto)
		data, err := h.downloader.Download(ctx, fileID)
		if err != nil {
			h.router.Fail(ctx, chatID, err)
			return
		}
		h.router.HandlePhoto(ctx, router.PhotoEvent{ChatID: chatID, Username: username, Data: data})
		return
	}

	if msg.Text != "" {
		h.metrics.IncUpdate(kindText)
		h.router.HandleText(ctx, router.TextEvent{ChatID: chatID, Username: username, Text: msg.Text})
		return
	}

	h.metrics.IncUpdate(kindIgnored)
}

// imageFileID picks the largest photo size, or an image sent as a document.
func imageFileID(msg *tgbotapi.Message) (string, bool) {
	if len(msg.Photo) > 0 {
		best := msg.Photo[0]
		for _, p := range msg.Photo[1:] {
			if p.Width*p.Height > best.Width*best.Height {
				best = p
			}
		}
		return best.FileID, true
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID, true
	}
	return "", false
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
