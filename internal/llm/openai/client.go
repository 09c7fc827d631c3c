package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"boneai-backend/internal/llm"
	"boneai-backend/internal/shared/telemetry"
)

const (
	// DefaultBaseURL is Gemini's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultTimeout = 120 * time.Second
)

// Config configures the client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements llm.Client against any OpenAI-compatible chat completions API.
type Client struct {
	api   *goopenai.Client
	model string
}

// NewClient constructs a new client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("LLM_MODEL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("LLM_API_KEY is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if apiCfg.BaseURL == "" {
		apiCfg.BaseURL = DefaultBaseURL
	}
	apiCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:   goopenai.NewClientWithConfig(apiCfg),
		model: cfg.Model,
	}, nil
}

// AnalyzeImage sends the prompt and the inline image as a single user message.
func (c *Client) AnalyzeImage(ctx context.Context, input llm.ImageInput) (string, error) {
	dataURI := "data:" + input.MediaType + ";base64," + base64.StdEncoding.EncodeToString(input.Data)
	msg := goopenai.ChatCompletionMessage{
		Role: goopenai.ChatMessageRoleUser,
		MultiContent: []goopenai.ChatMessagePart{
			{Type: goopenai.ChatMessagePartTypeText, Text: input.Prompt},
			{Type: goopenai.ChatMessagePartTypeImageURL, ImageURL: &goopenai.ChatMessageImageURL{
				URL:    dataURI,
				Detail: goopenai.ImageURLDetailAuto,
			}},
		},
	}
	return c.create(ctx, "analyze_image", msg)
}

// Complete sends a text-only prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.create(ctx, "complete", goopenai.ChatCompletionMessage{
		Role:    goopenai.ChatMessageRoleUser,
		Content: prompt,
	})
}

func (c *Client) create(ctx context.Context, op string, msg goopenai.ChatCompletionMessage) (string, error) {
	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:    c.model,
		Messages: []goopenai.ChatCompletionMessage{msg},
	})
	if err != nil {
		return "", mapError(err)
	}

	telemetry.Info("llm.response", map[string]any{
		"op":                op,
		"model":             c.model,
		"duration_ms":       time.Since(start).Milliseconds(),
		"prompt_tokens":     resp.Usage.PromptTokens,
		"completion_tokens": resp.Usage.CompletionTokens,
	})

	if len(resp.Choices) == 0 {
		return "", llm.ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", llm.ErrEmptyResponse
	}
	return content, nil
}

func mapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &llm.UpstreamError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &llm.UpstreamError{StatusCode: reqErr.HTTPStatusCode, Body: body}
	}
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
		return fmt.Errorf("llm request timeout: %w", err)
	}
	return fmt.Errorf("llm request: %w", err)
}

var _ llm.Client = (*Client)(nil)
