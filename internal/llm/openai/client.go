// Package openai implements llm.Client over any OpenAI-compatible chat
// completions endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/starford/lifeone/internal/llm"
)

// Verify *Client satisfies llm.Client at compile time.
var _ llm.Client = (*Client)(nil)

// Client talks to a chat completions endpoint. It is safe for concurrent use.
type Client struct {
	api *goopenai.Client
}

// New builds a client. An empty baseURL means api.openai.com.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{api: goopenai.NewClientWithConfig(cfg)}
}

// Chat sends one completion request. With req.ForceJSON it asks for a JSON
// object and retries in plain mode when the endpoint rejects response_format.
// Chat completions carry no grounding metadata, so Result.Sources stays empty
// and web sources reach the caller only through the reply's own
// webSearchSources field.
func (c *Client) Chat(ctx context.Context, req llm.Request) (llm.Result, error) {
	start := time.Now()

	do := func(forceJSON bool) (goopenai.ChatCompletionResponse, error) {
		body := goopenai.ChatCompletionRequest{
			Model:       req.Model,
			Messages:    convertMessages(req.Messages),
			Temperature: 0,
		}
		if forceJSON {
			body.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
				Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
			}
		}
		return c.api.CreateChatCompletion(ctx, body)
	}

	resp, err := do(req.ForceJSON)
	if err != nil && req.ForceJSON && rejectsJSONMode(err) {
		resp, err = do(false)
	}
	if err != nil {
		return llm.Result{}, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return llm.Result{}, fmt.Errorf("openai: empty choices")
	}

	return llm.Result{
		Text: resp.Choices[0].Message.Content,
		Usage: llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
		Duration: time.Since(start),
	}, nil
}

// rejectsJSONMode reports whether the endpoint refused response_format.
func rejectsJSONMode(err error) bool {
	var apiErr *goopenai.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.HTTPStatusCode != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "response_format")
}

func convertMessages(in []llm.Message) []goopenai.ChatCompletionMessage {
	out := make([]goopenai.ChatCompletionMessage, 0, len(in))
	for _, m := range in {
		msg := goopenai.ChatCompletionMessage{Role: m.Role}
		if m.Image == nil {
			msg.Content = m.Content
			out = append(out, msg)
			continue
		}
		// Content and MultiContent are mutually exclusive.
		if m.Content != "" {
			msg.MultiContent = append(msg.MultiContent, goopenai.ChatMessagePart{
				Type: goopenai.ChatMessagePartTypeText,
				Text: m.Content,
			})
		}
		msg.MultiContent = append(msg.MultiContent, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeImageURL,
			ImageURL: &goopenai.ChatMessageImageURL{
				URL:    "data:" + m.Image.MIMEType + ";base64," + m.Image.Data,
				Detail: goopenai.ImageURLDetailAuto,
			},
		})
		out = append(out, msg)
	}
	return out
}
