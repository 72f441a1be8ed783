// Package llm wraps the Gemini generative model behind a small Generator
// interface so prompt code can be tested without network access.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"kredmitra/internal/common/config"
	commonerrors "kredmitra/internal/common/errors"
	khttp "kredmitra/internal/common/http"
	"kredmitra/internal/common/logger"
	"kredmitra/internal/common/metrics"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("empty model response")

// ErrNotConfigured is returned by every call when no API key is configured.
var ErrNotConfigured = errors.New("generative model is not configured")

const DefaultModel = "gemini-2.5-flash"

// Message is one turn of a chat history.
type Message struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// Generator is the set of model calls the advisor layer needs.
type Generator interface {
	GenerateText(ctx context.Context, op, prompt string) (string, error)
	GenerateJSON(ctx context.Context, op, prompt string, schema *genai.Schema, out interface{}) error
	GenerateWithImage(ctx context.Context, op, prompt string, image []byte, mimeType string) (string, error)
	Chat(ctx context.Context, op, systemInstruction string, history []Message, message string) (string, error)
}

// Client implements Generator with google.golang.org/genai.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  logger.Logger
}

// NewClient builds a Gemini client. An empty API key yields a client whose
// calls fail with ErrNotConfigured, so callers fall back to static copy.
func NewClient(ctx context.Context, cfg config.GenAIConfig, log logger.Logger) (*Client, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	c := &Client{
		model:   model,
		timeout: timeout,
		logger:  log.WithFields(map[string]interface{}{"component": "llm", "model": model}),
	}
	if cfg.APIKey == "" {
		c.logger.Warn("no generative model API key configured; AI answers will use fallbacks", nil)
		return c, nil
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: khttp.NewClient(timeout).HTTPClient(),
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	gc, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	c.client = gc
	return c, nil
}

func (c *Client) GenerateText(ctx context.Context, op, prompt string) (string, error) {
	return c.generate(ctx, op, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, nil)
}

// GenerateJSON asks for application/json output constrained by schema and
// decodes it into out.
func (c *Client) GenerateJSON(ctx context.Context, op, prompt string, schema *genai.Schema, out interface{}) error {
	text, err := c.generate(ctx, op, []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal([]byte(stripCodeFence(text)), out); err != nil {
		return commonerrors.NewAIGenerationError(op, fmt.Errorf("decode JSON response: %w", err))
	}
	return nil
}

func (c *Client) GenerateWithImage(ctx context.Context, op, prompt string, image []byte, mimeType string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(image, mimeType),
		genai.NewPartFromText(prompt),
	}
	return c.generate(ctx, op, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil)
}

// Chat sends the full history plus message under systemInstruction.
func (c *Client) Chat(ctx context.Context, op, systemInstruction string, history []Message, message string) (string, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	return c.generate(ctx, op, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	})
}

func (c *Client) generate(ctx context.Context, op string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (text string, err error) {
	start := time.Now()
	defer func() {
		metrics.AICalls.WithLabelValues(op, metrics.Outcome(err)).Inc()
		metrics.AICallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	if c.client == nil {
		return "", commonerrors.NewAIGenerationError(op, ErrNotConfigured)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		c.logger.Warn("generate content failed", map[string]interface{}{"operation": op, "error": err.Error()})
		if errors.Is(err, context.DeadlineExceeded) {
			return "", commonerrors.NewTimeoutError("genai", err)
		}
		return "", commonerrors.NewAIGenerationError(op, err)
	}

	text = strings.TrimSpace(resp.Text())
	if text == "" {
		return "", commonerrors.NewAIGenerationError(op, ErrEmptyResponse)
	}

	c.logger.Debug("generate content completed", map[string]interface{}{
		"operation":  op,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return text, nil
}

// stripCodeFence removes a ```json fence some models wrap JSON answers in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
