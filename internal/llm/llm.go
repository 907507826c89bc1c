// Package llm is the boundary to the language model: a prompt goes in,
// text (expected to be JSON) comes out.
package llm

import (
	"context"
	"time"
)

// Message roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Image is an inline image attachment.
type Image struct {
	MIMEType string
	Data     string // base64
}

type Message struct {
	Role    string
	Content string
	Image   *Image
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// Source is a web page the provider grounded its answer on.
type Source struct {
	Title string
	URI   string
}

type Result struct {
	Text string
	// Sources holds grounding metadata for providers that report it. The
	// OpenAI-compatible client never sets it.
	Sources  []Source
	Usage    Usage
	Duration time.Duration
}

type Request struct {
	Model     string
	Messages  []Message
	ForceJSON bool
}

type Client interface {
	Chat(ctx context.Context, req Request) (Result, error)
}

// Func adapts a plain function to Client.
type Func func(ctx context.Context, req Request) (Result, error)

// Chat calls f.
func (f Func) Chat(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
