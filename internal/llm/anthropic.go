package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	envAnthropicKey   = "ANTHROPIC_API_KEY"
	envAnthropicModel = "ANTHROPIC_MODEL"
	defaultModel      = "claude-sonnet-4-5-20250929"

	anthropicURL     = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"

	anthropicMaxTokens = 900
	anthropicTimeout   = 60 * time.Second

	anthropicMaxRetries     = 3
	anthropicRetryBaseDelay = 500 * time.Millisecond
)

type anthropicClient struct {
	apiKey string
	model  string
	http   *http.Client
	logger zerolog.Logger
}

func NewAnthropic(logger zerolog.Logger) (Client, error) {
	key := strings.TrimSpace(os.Getenv(envAnthropicKey))
	if key == "" {
		return nil, fmt.Errorf("missing %s", envAnthropicKey)
	}
	model := strings.TrimSpace(os.Getenv(envAnthropicModel))
	if model == "" {
		model = defaultModel
	}
	model = strings.Trim(model, "\"'")
	return &anthropicClient{
		apiKey: key,
		model:  model,
		http:   &http.Client{Timeout: anthropicTimeout},
		logger: logger,
	}, nil
}

func (c *anthropicClient) Name() string { return c.model }

func (c *anthropicClient) Generate(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, errors.New("no messages")
	}

	payload := anthropicPayload{
		Model:       c.model,
		MaxTokens:   maxInt(req.MaxTokens, anthropicMaxTokens),
		Temperature: float64(req.Temperature),
		System:      req.System,
	}
	for _, m := range req.Messages {
		payload.Messages = append(payload.Messages, anthropicMessage{
			Role:    m.Role,
			Content: []anthropicContent{{Type: "text", Text: m.Content}},
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= anthropicMaxRetries; attempt++ {
		if attempt > 0 {
			delay := anthropicRetryBaseDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Info().Int("attempt", attempt).Dur("delay", delay).Msg("retrying Anthropic API call")
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicURL, bytes.NewReader(body))
		if err != nil {
			return Response{}, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		c.logger.Debug().Int("status", resp.StatusCode).Int("response_size", len(data)).Msg("Anthropic API response")

		if resp.StatusCode >= 400 {
			var apiErr anthropicError
			if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Message == "" {
				msg := string(data)
				if len(msg) > 500 {
					msg = msg[:500] + "..."
				}
				lastErr = fmt.Errorf("anthropic %d: %s", resp.StatusCode, msg)
			} else {
				lastErr = fmt.Errorf("anthropic %d: %s (type: %s)", resp.StatusCode, apiErr.Message, apiErr.Type)
			}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return Response{}, lastErr
		}

		var ar anthropicResponse
		if err := json.Unmarshal(data, &ar); err != nil {
			lastErr = fmt.Errorf("parse response: %w", err)
			continue
		}
		var buf bytes.Buffer
		for _, content := range ar.Content {
			if content.Type == "text" {
				buf.WriteString(content.Text)
			}
		}
		return Response{Text: buf.String()}, nil
	}

	return Response{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

type anthropicPayload struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContent `json:"content"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
