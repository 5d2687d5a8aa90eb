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
	envGeminiKey       = "GOOGLE_API_KEY"
	envGeminiModel     = "GEMINI_MODEL"
	defaultGeminiModel = "gemini-2.0-flash"

	geminiURLFormat = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent"

	geminiMaxTokens = 900
	geminiTimeout   = 60 * time.Second

	geminiMaxRetries     = 3
	geminiRetryBaseDelay = 500 * time.Millisecond
)

type geminiClient struct {
	apiKey string
	model  string
	http   *http.Client
	logger zerolog.Logger
}

func NewGemini(logger zerolog.Logger) (Client, error) {
	key := strings.TrimSpace(os.Getenv(envGeminiKey))
	if key == "" {
		return nil, fmt.Errorf("missing %s", envGeminiKey)
	}
	model := strings.TrimSpace(os.Getenv(envGeminiModel))
	if model == "" {
		model = defaultGeminiModel
	}
	model = strings.Trim(model, "\"'")
	return &geminiClient{
		apiKey: key,
		model:  model,
		http:   &http.Client{Timeout: geminiTimeout},
		logger: logger,
	}, nil
}

func (c *geminiClient) Name() string { return c.model }

func (c *geminiClient) Generate(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, errors.New("no messages")
	}

	payload := geminiPayload{
		GenerationConfig: geminiGenerationConfig{
			Temperature:     float64(req.Temperature),
			MaxOutputTokens: maxInt(req.MaxTokens, geminiMaxTokens),
		},
	}
	if req.System != "" {
		payload.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	for _, m := range req.Messages {
		role := m.Role
		if role == "assistant" {
			role = "model"
		}
		payload.Contents = append(payload.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Response{}, fmt.Errorf("marshal payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= geminiMaxRetries; attempt++ {
		if attempt > 0 {
			delay := geminiRetryBaseDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Info().Int("attempt", attempt).Dur("delay", delay).Msg("retrying Gemini API call")
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		url := fmt.Sprintf(geminiURLFormat, c.model)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return Response{}, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

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

		c.logger.Debug().Int("status", resp.StatusCode).Int("response_size", len(data)).Msg("Gemini API response")

		if resp.StatusCode >= 400 {
			lastErr = geminiAPIError(resp.StatusCode, data)
			// Retry only rate limits and server errors.
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				continue
			}
			return Response{}, lastErr
		}

		var gr geminiResponse
		if err := json.Unmarshal(data, &gr); err != nil {
			lastErr = fmt.Errorf("parse response: %w", err)
			continue
		}
		if len(gr.Candidates) == 0 {
			lastErr = errors.New("gemini: empty candidates")
			continue
		}
		var buf bytes.Buffer
		for _, part := range gr.Candidates[0].Content.Parts {
			buf.WriteString(part.Text)
		}
		return Response{Text: buf.String()}, nil
	}

	return Response{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func geminiAPIError(status int, data []byte) error {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil && parsed.Error.Message != "" {
		return fmt.Errorf("gemini %d: %s (status: %s)", status, parsed.Error.Message, parsed.Error.Status)
	}
	msg := string(data)
	if len(msg) > 500 {
		msg = msg[:500] + "..."
	}
	return fmt.Errorf("gemini %d: %s", status, msg)
}

type geminiPayload struct {
	SystemInstruction *geminiContent         `json:"system_instruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
