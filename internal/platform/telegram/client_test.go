package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "chart-analyst-bot/internal/common/errors"
)

const testToken = "123:abc"

type fakeBotAPI struct {
	mu       sync.Mutex
	sent     []string
	webhook  webhookCall
	sendBody string
}

type webhookCall struct {
	url            string
	secretToken    string
	allowedUpdates string
	deleted        bool
}

func (f *fakeBotAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bot"+testToken+"/getMe", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"Analyst","username":"chart_bot"}}`))
	})
	mux.HandleFunc("/bot"+testToken+"/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		f.mu.Lock()
		f.sent = append(f.sent, r.FormValue("chat_id")+":"+r.FormValue("text"))
		body := f.sendBody
		f.mu.Unlock()
		if body == "" {
			body = `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":555,"type":"private"}}}`
		}
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/bot"+testToken+"/getFile", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true,"result":{"file_id":"f1","file_unique_id":"u1","file_size":5,"file_path":"photos/chart.jpg"}}`))
	})
	mux.HandleFunc("/file/bot"+testToken+"/photos/chart.jpg", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("image"))
	})
	mux.HandleFunc("/bot"+testToken+"/setWebhook", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		f.mu.Lock()
		f.webhook = webhookCall{
			url:            r.FormValue("url"),
			secretToken:    r.FormValue("secret_token"),
			allowedUpdates: r.FormValue("allowed_updates"),
		}
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	})
	mux.HandleFunc("/bot"+testToken+"/deleteWebhook", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.webhook = webhookCall{deleted: true}
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	})
	return mux
}

func (f *fakeBotAPI) setSendBody(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendBody = body
}

func (f *fakeBotAPI) snapshot() ([]string, webhookCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...), f.webhook
}

func newTestClient(t *testing.T) (*Client, *fakeBotAPI) {
	t.Helper()
	fake := &fakeBotAPI{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{
		Token:        testToken,
		APIEndpoint:  srv.URL + "/bot%s/%s",
		FileEndpoint: srv.URL + "/file/bot%s/%s",
	}, zerolog.Nop())
	require.NoError(t, err)
	return c, fake
}

func TestNewClient_BadToken(t *testing.T) {
	srv := httptest.NewServer((&fakeBotAPI{}).handler(t))
	t.Cleanup(srv.Close)

	_, err := NewClient(Options{Token: "999:wrong", APIEndpoint: srv.URL + "/bot%s/%s"}, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTelegramAPI))
}

func TestSendText(t *testing.T) {
	c, fake := newTestClient(t)

	require.NoError(t, c.SendText(context.Background(), 555, "hello"))
	sent, _ := fake.snapshot()
	assert.Equal(t, []string{"555:hello"}, sent)
}

func TestSendText_Blocked(t *testing.T) {
	c, fake := newTestClient(t)
	fake.setSendBody(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)

	err := c.SendText(context.Background(), 555, "hello")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotification))
	assert.Contains(t, err.Error(), "blocked")
}

func TestSendText_RateLimited(t *testing.T) {
	c, fake := newTestClient(t)
	fake.setSendBody(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":3}}`)

	err := c.SendText(context.Background(), 555, "hello")
	var rps *RPSError
	require.ErrorAs(t, err, &rps)
	assert.Equal(t, "3s", rps.RetryAfter.String())
}

func TestDownload(t *testing.T) {
	c, _ := newTestClient(t)

	data, err := c.Download(context.Background(), "f1")
	require.NoError(t, err)
	assert.Equal(t, []byte("image"), data)
}

func TestSetWebhook_RegistersSecretToken(t *testing.T) {
	c, fake := newTestClient(t)

	require.NoError(t, c.SetWebhook("https://bot.example.com/webhook/s3cret", "s3cret"))

	_, webhook := fake.snapshot()
	assert.Equal(t, "https://bot.example.com/webhook/s3cret", webhook.url)
	assert.Equal(t, "s3cret", webhook.secretToken)
	assert.JSONEq(t, `["message"]`, webhook.allowedUpdates)
}

func TestSetWebhook_RequiresSecret(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.SetWebhook("https://bot.example.com/webhook/x", "")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	_, webhook := fake.snapshot()
	assert.Empty(t, webhook.url)
}

func TestSetWebhook_EmptyURLDeletes(t *testing.T) {
	c, fake := newTestClient(t)

	require.NoError(t, c.SetWebhook("", ""))

	_, webhook := fake.snapshot()
	assert.True(t, webhook.deleted)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))

	long := strings.Repeat("я", 20)
	got := truncate(long, 10)
	assert.Equal(t, 10, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://bot.example.com/webhook/***", redactURL("https://bot.example.com/webhook/s3cret"))
}
