// Package llm wraps the text-generation backend behind a small
// interface so pipeline stages stay testable without network access.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// Request carries one generation call. System holds the persona
// prompt; Prompt holds the per-call instruction.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
}

// Generator produces text for a prompt. Implementations must respect
// context cancellation.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeminiClient calls the Google GenAI API. Transient failures are
// retried with exponential backoff; every attempt runs under the
// configured timeout so a stalled call cannot hold a session lock
// indefinitely.
type GeminiClient struct {
	client     *genai.Client
	model      string
	timeout    time.Duration
	maxRetries int
}

// NewGeminiClient creates a client for the given model.
func NewGeminiClient(ctx context.Context, apiKey, model string, timeout time.Duration, maxRetries int) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if model == "" {
		model = "gemma-3-27b-it"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		model:      model,
		timeout:    timeout,
		maxRetries: maxRetries,
	}, nil
}

// Model returns the configured model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Generate runs one text-generation call.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}

	prompt := req.Prompt
	if req.System != "" {
		if modelRejectsSystemRole(c.model) {
			prompt = CombinePrompts(req.System, req.Prompt)
		} else {
			config.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: req.System}},
			}
		}
	}

	var lastErr error
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			slog.Debug("retrying generation", "model", c.model, "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			backoff *= 2
		}

		text, err := c.generateOnce(ctx, prompt, config)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("generate content after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *GeminiClient) generateOnce(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(callCtx, c.model, genai.Text(prompt), config)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty response from model %s", c.model)
	}
	return text, nil
}

// modelRejectsSystemRole reports whether the model accepts only user
// turns. Gemma models reject a separate system instruction, so system
// and user prompts must be concatenated for them.
func modelRejectsSystemRole(model string) bool {
	return strings.Contains(strings.ToLower(model), "gemma")
}

// CombinePrompts merges a system prompt and an instruction prompt into
// a single user turn for backends without a system role.
func CombinePrompts(system, prompt string) string {
	return system + "\n\n---\n\nNow respond to this:\n\n" + prompt
}
