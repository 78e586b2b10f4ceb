package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookURL(t *testing.T) {
	assert.Equal(t, "https://bot.example.com/webhook/s3cret", webhookURL("https://bot.example.com", "s3cret"))
	assert.Equal(t, "https://bot.example.com/tg/webhook/s3cret", webhookURL("https://bot.example.com/tg//", "s3cret"))
}

type setWebhookCall struct {
	url    string
	secret string
}

type fakeWebhookSetter struct {
	calls []setWebhookCall
}

func (f *fakeWebhookSetter) SetWebhook(url, secret string) error {
	f.calls = append(f.calls, setWebhookCall{url: url, secret: secret})
	return nil
}

func TestSyncWebhook(t *testing.T) {
	t.Run("registers with secret", func(t *testing.T) {
		tg := &fakeWebhookSetter{}
		assert.NoError(t, syncWebhook(tg, "https://bot.example.com", "s3cret"))
		assert.Equal(t, []setWebhookCall{{url: "https://bot.example.com/webhook/s3cret", secret: "s3cret"}}, tg.calls)
	})

	t.Run("removes stale webhook without url", func(t *testing.T) {
		tg := &fakeWebhookSetter{}
		assert.NoError(t, syncWebhook(tg, "", "generated"))
		assert.Equal(t, []setWebhookCall{{}}, tg.calls)
	})
}
