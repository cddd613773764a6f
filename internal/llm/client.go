package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string
	Content string
}

type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is a text-completion backend.
type Client interface {
	Generate(ctx context.Context, messages []Message) (Response, error)
}

// ErrNotConfigured means the selected provider has no credentials.
var ErrNotConfigured = errors.New("llm provider not configured")

// ErrEmptyResponse is returned when the backend answered without text.
var ErrEmptyResponse = errors.New("llm returned empty response")
