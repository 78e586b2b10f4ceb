package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	apperrors "chart-analyst-bot/internal/common/errors"
)

const (
	// MaxMessageLength is Telegram's limit for a single text message, in characters.
	MaxMessageLength = 4096
	// MaxDownloadSize is the largest file the Bot API lets bots download.
	MaxDownloadSize = 20 << 20
)

// RPSError is returned when Telegram rate-limits the bot.
type RPSError struct {
	RetryAfter time.Duration
	Msg        string
}

func (e *RPSError) Error() string {
	return e.Msg
}

type Options struct {
	Token   string
	Timeout time.Duration
	Debug   bool
	// APIEndpoint and FileEndpoint default to the public Bot API.
	APIEndpoint  string
	FileEndpoint string
}

// Client is the bot's outbound side: messages, file downloads and webhook setup.
type Client struct {
	bot          *tgbotapi.BotAPI
	httpClient   *http.Client
	fileEndpoint string
	log          zerolog.Logger
}

// NewClient authenticates with getMe, so a bad token fails here.
func NewClient(opts Options, log zerolog.Logger) (*Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.APIEndpoint == "" {
		opts.APIEndpoint = tgbotapi.APIEndpoint
	}
	if opts.FileEndpoint == "" {
		opts.FileEndpoint = tgbotapi.FileEndpoint
	}

	httpClient := &http.Client{Timeout: opts.Timeout}
	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, opts.APIEndpoint, httpClient)
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("get me", err)
	}
	bot.Debug = opts.Debug

	log.Info().Str("username", bot.Self.UserName).Msg("Telegram bot authorized")

	return &Client{
		bot:          bot,
		httpClient:   httpClient,
		fileEndpoint: opts.FileEndpoint,
		log:          log,
	}, nil
}

// SendText delivers a plain text message. Text over the Telegram limit is cut.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewNotificationError(chatID, err)
	}

	msg := tgbotapi.NewMessage(chatID, truncate(text, MaxMessageLength))
	msg.DisableWebPagePreview = true
	if _, err := c.bot.Send(msg); err != nil {
		return apperrors.NewNotificationError(chatID, classify(err))
	}
	return nil
}

// Download fetches a file the user sent, by its file_id.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("get file", classify(err))
	}
	if file.FileSize > MaxDownloadSize {
		return nil, apperrors.NewValidationError("file", "file is too large")
	}

	url := fmt.Sprintf(c.fileEndpoint, c.bot.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("download file", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("download file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewTelegramAPIError("download file", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadSize+1))
	if err != nil {
		return nil, apperrors.NewTelegramAPIError("download file", err)
	}
	if len(data) > MaxDownloadSize {
		return nil, apperrors.NewValidationError("file", "file is too large")
	}
	return data, nil
}

// SetWebhook points Telegram at url. Telegram then sends secret in the
// X-Telegram-Bot-Api-Secret-Token header of every update. An empty url removes
// the webhook.
func (c *Client) SetWebhook(url, secret string) error {
	if url == "" {
		if _, err := c.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			return apperrors.NewTelegramAPIError("delete webhook", classify(err))
		}
		c.log.Info().Msg("Webhook removed")
		return nil
	}
	if secret == "" {
		return apperrors.NewValidationError("secret", "webhook secret is required")
	}

	// WebhookConfig in this library version has no secret_token field.
	params := tgbotapi.Params{}
	params["url"] = url
	params["secret_token"] = secret
	if err := params.AddInterface("allowed_updates", []string{"message"}); err != nil {
		return apperrors.NewTelegramAPIError("set webhook", err)
	}
	if _, err := c.bot.MakeRequest("setWebhook", params); err != nil {
		return apperrors.NewTelegramAPIError("set webhook", classify(err))
	}

	c.log.Info().Str("url", redactURL(url)).Msg("Webhook registered")
	return nil
}

func classify(err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.Code == http.StatusTooManyRequests {
		return &RPSError{
			RetryAfter: time.Duration(tgErr.RetryAfter) * time.Second,
			Msg:        tgErr.Message,
		}
	}
	return err
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-1]) + "…"
}

// redactURL drops the last path segment, which holds the webhook secret.
func redactURL(url string) string {
	if i := strings.LastIndex(url, "/"); i > len("https://") {
		return url[:i] + "/***"
	}
	return url
}
