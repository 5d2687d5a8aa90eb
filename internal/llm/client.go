package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const envProvider = "LLM_PROVIDER" // "gemini" or "anthropic"

// Client is the minimal model surface the action-selection policy needs.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

type Request struct {
	System      string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Response struct {
	Text string
}

// NewClientFromEnv creates a client based on LLM_PROVIDER.
// Defaults to Gemini, the model the tracking flow was tuned on.
func NewClientFromEnv(logger zerolog.Logger) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv(envProvider)))
	if provider == "" {
		provider = "gemini"
	}

	switch provider {
	case "gemini":
		return NewGemini(logger)
	case "anthropic":
		return NewAnthropic(logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (use 'gemini' or 'anthropic')", provider)
	}
}
