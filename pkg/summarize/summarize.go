// Package summarize generates plain-language summaries and topic tags for
// legislative text via the Anthropic API. Summarization is strictly
// best-effort: callers treat a failure as a measure without a summary, never
// as an ingestion failure.
package summarize

import (
	"context"
	"encoding/json"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/civicsignal/civicsync/internal/config"
)

const (
	defaultModel     = "claude-haiku-4-5-20251001"
	defaultMaxTokens = 1024

	// Legislative full text can run to hundreds of pages; the summary only
	// needs the front matter.
	maxInputChars = 24000
)

const systemPrompt = `You summarize legislation for a general civic audience.
Given a measure's title and text, respond with a single JSON object:
{"short": one plain-language sentence, "long": one plain-language paragraph, "topics": up to five lowercase topic tags}.
Do not editorialize or speculate about effects the text does not state. Respond with JSON only.`

// Result is one generated summary.
type Result struct {
	Short  string   `json:"short"`
	Long   string   `json:"long"`
	Topics []string `json:"topics"`
}

// Messenger is the slice of the Anthropic API the summarizer uses.
type Messenger interface {
	New(ctx context.Context, params sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Client generates summaries. A nil *Client is valid and disables
// summarization (Summarize returns nil, nil).
type Client struct {
	messages  Messenger
	model     string
	maxTokens int64
}

// New creates a summarizer from config. An empty API key returns nil,
// disabling summarization.
func New(cfg config.SummarizeConfig) *Client {
	if cfg.Key == "" {
		return nil
	}
	c := sdk.NewClient(option.WithAPIKey(cfg.Key))
	return newClient(&c.Messages, cfg)
}

func newClient(m Messenger, cfg config.SummarizeConfig) *Client {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Client{messages: m, model: model, maxTokens: maxTokens}
}

// Summarize produces a short and long summary plus topic tags for one
// measure. Returns (nil, nil) when the client is disabled or there is no
// text to summarize.
func (c *Client) Summarize(ctx context.Context, title, text string) (*Result, error) {
	if c == nil {
		return nil, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if len(text) > maxInputChars {
		text = text[:maxInputChars]
	}

	msg, err := c.messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(c.model),
		MaxTokens: c.maxTokens,
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock("Title: " + title + "\n\nText:\n" + text)),
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "summarize: create message")
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return parseResult(out.String())
}

// parseResult extracts the JSON object from a model response, tolerating
// code fences and surrounding prose.
func parseResult(raw string) (*Result, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return nil, eris.Errorf("summarize: no JSON object in response: %.80s", raw)
	}
	var res Result
	if err := json.Unmarshal([]byte(raw[start:end+1]), &res); err != nil {
		return nil, eris.Wrap(err, "summarize: decode response")
	}
	if res.Short == "" {
		return nil, eris.New("summarize: response missing short summary")
	}
	for i, topic := range res.Topics {
		res.Topics[i] = strings.ToLower(strings.TrimSpace(topic))
	}
	return &res, nil
}
