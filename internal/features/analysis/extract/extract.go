// Package extract turns a provider response body into report text.
//
// Providers answer in several shapes. Each Extractor understands exactly one of
// them; Chain tries them in order and falls back to a bounded raw preview.
package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// PreviewLimit bounds the raw preview, in runes.
const PreviewLimit = 500

// Result of running a Chain.
type Result struct {
	Text string
	// Parsed is false when no extractor matched and Text is a raw preview.
	Parsed bool
	// Source names the extractor that produced Text.
	Source string
}

type Extractor interface {
	Name() string
	Extract(raw []byte) (string, bool)
}

type Chain []Extractor

// DefaultChain is the order used for live provider responses.
func DefaultChain() Chain {
	return Chain{PlainString{}, TextList{}, OutputObject{}, ChatCompletion{}}
}

func (c Chain) Extract(raw []byte) Result {
	for _, e := range c {
		text, ok := e.Extract(raw)
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		return Result{Text: text, Parsed: true, Source: e.Name()}
	}
	return Result{Text: RawPreview(raw, PreviewLimit), Parsed: false, Source: "raw_preview"}
}

// RawPreview returns raw as text, cut to limit runes with a trailing ellipsis.
func RawPreview(raw []byte, limit int) string {
	s := strings.ToValidUTF8(string(raw), "�")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "…"
}

// PlainString matches a bare JSON string: "Trend: up ...".
type PlainString struct{}

func (PlainString) Name() string { return "plain_string" }

func (PlainString) Extract(raw []byte) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// TextList matches a list of fragments and takes the first one. Fragments may be
// strings or objects carrying a "text" field.
type TextList struct{}

func (TextList) Name() string { return "text_list" }

func (TextList) Extract(raw []byte) (string, bool) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return "", false
	}
	return fragmentText(items[0])
}

// OutputObject matches {"output": "..."}, {"output": {"text": "..."}},
// {"output": ["...", ...]} and {"output_text": "..."}.
type OutputObject struct{}

func (OutputObject) Name() string { return "output_object" }

func (OutputObject) Extract(raw []byte) (string, bool) {
	var obj struct {
		Output     json.RawMessage `json:"output"`
		OutputText *string         `json:"output_text"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	if obj.OutputText != nil {
		return *obj.OutputText, true
	}
	if len(obj.Output) == 0 {
		return "", false
	}
	if text, ok := fragmentText(obj.Output); ok {
		return text, true
	}
	return TextList{}.Extract(obj.Output)
}

// ChatCompletion matches the OpenAI chat completions body.
type ChatCompletion struct{}

func (ChatCompletion) Name() string { return "chat_completion" }

func (ChatCompletion) Extract(raw []byte) (string, bool) {
	var body struct {
		Choices []struct {
			Message struct {
				Content json.RawMessage `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Choices) == 0 {
		return "", false
	}
	content := body.Choices[0].Message.Content
	if len(content) == 0 {
		return "", false
	}
	if text, ok := fragmentText(content); ok {
		return text, true
	}
	return TextList{}.Extract(content)
}

// fragmentText reads a string or a {"text": "..."} object.
func fragmentText(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var obj struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Text != nil {
		return *obj.Text, true
	}
	return "", false
}
