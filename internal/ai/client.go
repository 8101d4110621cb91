// Package ai implements the client for the external generation collaborator,
// an OpenRouter-style chat-completions API. The collaborator receives a
// free-text product summary and must answer with a JSON object carrying a
// description string and a keywords list; any other shape is a contract
// violation and is reported distinctly from transport failures so callers can
// map the two to different HTTP results.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrBadResponse marks an upstream contract violation: the collaborator
// answered, but the payload could not be parsed into the expected
// {description, keywords} shape. Callers surface this as a bad-gateway
// failure; transport and HTTP-status failures are returned as ordinary
// wrapped errors instead.
var ErrBadResponse = errors.New("generation service returned an unexpected response shape")

// Result is the parsed output of one generation call.
type Result struct {
	// Description is the AI-produced marketing description.
	Description string `json:"description"`
	// Keywords is the AI-produced keyword list.
	Keywords []string `json:"keywords"`
}

// Generator is the contract the orchestration layer depends on. The
// production implementation is Client; tests substitute fakes.
type Generator interface {
	// Generate submits a free-text product summary together with the
	// system prompt and returns the parsed result. Single attempt, no
	// retries.
	Generate(ctx context.Context, systemPrompt, summary string) (*Result, error)
}

// Client talks to the chat-completions endpoint of the generation
// collaborator.
type Client struct {
	// BaseURL is the collaborator root, e.g. "https://openrouter.ai".
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
	// Model is the model identifier requested from the collaborator.
	Model string
	// HTTPClient is the transport; a default with sane timeouts is used
	// when nil.
	HTTPClient *http.Client
}

// NewClient constructs a Client with a default timeout budget matching the
// collaborator's documented connect/read limits.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		HTTPClient: &http.Client{
			Timeout: 45 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate implements Generator. The collaborator wraps its JSON answer in a
// chat-completion envelope; the inner message content must itself decode into
// the Result shape. Envelope or content decode failures are contract
// violations (ErrBadResponse); request construction, transport and non-2xx
// responses are request-level failures.
func (c *Client) Generate(ctx context.Context, systemPrompt, summary string) (*Result, error) {
	payload := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: summary},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build generation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generation service responded with status %d", resp.StatusCode)
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(envelope.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrBadResponse)
	}

	content := envelope.Choices[0].Message.Content
	var out struct {
		Description *string  `json:"description"`
		Keywords    []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if out.Description == nil || out.Keywords == nil {
		return nil, fmt.Errorf("%w: missing description or keywords", ErrBadResponse)
	}

	return &Result{Description: *out.Description, Keywords: out.Keywords}, nil
}
