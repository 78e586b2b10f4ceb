package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart-analyst-bot/internal/features/bot/router"
)

const secret = "s3cret"

type fakeRouter struct {
	texts  []router.TextEvent
	photos []router.PhotoEvent
	fails  []error
}

func (r *fakeRouter) HandleText(_ context.Context, ev router.TextEvent)   { r.texts = append(r.texts, ev) }
func (r *fakeRouter) HandlePhoto(_ context.Context, ev router.PhotoEvent) { r.photos = append(r.photos, ev) }
func (r *fakeRouter) Fail(_ context.Context, _ int64, err error)          { r.fails = append(r.fails, err) }

type fakeDownloader struct {
	requested []string
	err       error
}

func (d *fakeDownloader) Download(_ context.Context, fileID string) ([]byte, error) {
	d.requested = append(d.requested, fileID)
	if d.err != nil {
		return nil, d.err
	}
	return []byte("bytes-of-" + fileID), nil
}

func setup(t *testing.T) (*gin.Engine, *fakeRouter, *fakeDownloader) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := &fakeRouter{}
	d := &fakeDownloader{}
	h, err := NewWebhookHandler(r, d, secret, nil, zerolog.Nop())
	require.NoError(t, err)

	engine := gin.New()
	h.RegisterRoutes(engine)
	return engine, r, d
}

// deliver posts body the way Telegram does for a webhook registered with secret.
func deliver(engine *gin.Engine, body string) *httptest.ResponseRecorder {
	return post(engine, "/webhook/"+secret, body, map[string]string{SecretHeader: secret})
}

func post(engine *gin.Engine, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

const textUpdate = `{"update_id":1,"message":{"message_id":10,"date":0,
	"from":{"id":555,"is_bot":false,"first_name":"T","username":"trader"},
	"chat":{"id":555,"type":"private"},"text":"/start"}}`

const photoUpdate = `{"update_id":2,"message":{"message_id":11,"date":0,
	"from":{"id":555,"is_bot":false,"first_name":"T","username":"trader"},
	"chat":{"id":555,"type":"private"},
	"photo":[
		{"file_id":"small","file_unique_id":"a","width":90,"height":60},
		{"file_id":"large","file_unique_id":"c","width":1280,"height":853},
		{"file_id":"medium","file_unique_id":"b","width":320,"height":213}
	]}}`

func TestWebhook_Text(t *testing.T) {
	engine, r, _ := setup(t)

	w := deliver(engine, textUpdate)

	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, r.texts, 1)
	assert.Equal(t, router.TextEvent{ChatID: 555, Username: "trader", Text: "/start"}, r.texts[0])
}

func TestWebhook_PhotoDownloadsLargestSize(t *testing.T) {
	engine, r, d := setup(t)

	w := deliver(engine, photoUpdate)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"large"}, d.requested)
	require.Len(t, r.photos, 1)
	assert.Equal(t, []byte("bytes-of-large"), r.photos[0].Data)
	assert.Equal(t, int64(555), r.photos[0].ChatID)
}

func TestWebhook_ImageDocument(t *testing.T) {
	engine, r, d := setup(t)
	body := `{"update_id":3,"message":{"message_id":12,"date":0,
		"chat":{"id":555,"type":"private"},
		"document":{"file_id":"doc","file_unique_id":"d","mime_type":"image/png"}}}`

	w := deliver(engine, body)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"doc"}, d.requested)
	assert.Len(t, r.photos, 1)
}

func TestWebhook_DownloadFailureReported(t *testing.T) {
	engine, r, d := setup(t)
	d.err = errors.New("telegram down")

	w := deliver(engine, photoUpdate)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, r.photos)
	require.Len(t, r.fails, 1)
}

func TestWebhook_RejectsUnauthenticatedUpdates(t *testing.T) {
	forged := `{"update_id":50,"message":{"message_id":1,"date":0,
		"chat":{"id":1001,"type":"private"},"text":"activate 666 3650"}}`

	tests := []struct {
		name    string
		path    string
		headers map[string]string
	}{
		{name: "wrong path", path: "/webhook/nope", headers: map[string]string{SecretHeader: secret}},
		{name: "guessable path", path: "/webhook/hook", headers: nil},
		{name: "missing header", path: "/webhook/" + secret, headers: nil},
		{name: "wrong header", path: "/webhook/" + secret, headers: map[string]string{SecretHeader: "nope"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, r, _ := setup(t)

			w := post(engine, tt.path, forged, tt.headers)

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Empty(t, r.texts)
		})
	}
}

func TestNewWebhookHandler_RequiresSecret(t *testing.T) {
	_, err := NewWebhookHandler(&fakeRouter{}, &fakeDownloader{}, "", nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestWebhook_DuplicateUpdateDropped(t *testing.T) {
	engine, r, _ := setup(t)

	deliver(engine, textUpdate)
	w := deliver(engine, textUpdate)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, r.texts, 1)
}

func TestWebhook_MalformedBody(t *testing.T) {
	engine, r, _ := setup(t)

	w := deliver(engine, `{"update_id":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, r.texts)
}

func TestWebhook_IgnoresNonMessageUpdates(t *testing.T) {
	engine, r, _ := setup(t)

	w := deliver(engine, `{"update_id":9,"edited_message":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"},"text":"x"}}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, r.texts)
	assert.Empty(t, r.photos)
}

func TestRedactPath(t *testing.T) {
	assert.Equal(t, "/webhook/***", RedactPath("/webhook/s3cret"))
	assert.Equal(t, "/health", RedactPath("/health"))
}
