package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "chart-analyst-bot/internal/common/errors"

	"github.com/goccy/go-json"
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("provider api key is not set")

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 1 << 20

// Provider sends one image with an instruction and returns the raw response body.
type Provider interface {
	AnalyzeImage(ctx context.Context, image []byte, prompt string) ([]byte, error)
}

type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// OpenAI talks to an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	httpClient *http.Client
	cfg        Config
}

func NewOpenAI(cfg Config) *OpenAI {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAI{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

func (p *OpenAI) AnalyzeImage(ctx context.Context, image []byte, prompt string) ([]byte, error) {
	if p.cfg.APIKey == "" {
		return nil, apperrors.NewProviderError("analyze image", ErrNotConfigured)
	}

	body, err := json.Marshal(chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURI(image)}},
			},
		}},
		MaxTokens: p.cfg.MaxTokens,
	})
	if err != nil {
		return nil, apperrors.NewProviderError("encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewProviderError("create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderError("send request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.NewProviderError("read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewProviderError("analyze image", fmt.Errorf("unexpected status %d", resp.StatusCode)).
			WithDetail("status", resp.StatusCode).
			WithDetail("body", preview(raw))
	}
	return raw, nil
}

func dataURI(image []byte) string {
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}

func preview(raw []byte) string {
	const limit = 200
	if len(raw) <= limit {
		return string(raw)
	}
	return string(raw[:limit])
}
