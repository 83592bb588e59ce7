// Package openaicompat adapts OpenAI-style chat completion endpoints
// to the council Backend interface. Works with OpenAI, vLLM, Ollama,
// llama.cpp server and other compatible inference servers.
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/democratizeAI/council"
)

// Backend is a universal OpenAI-compatible API adapter. One instance
// may serve several model heads hosted by the same server.
type Backend struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	models     []council.ModelID
}

var _ council.Backend = (*Backend)(nil)

// Option configures the backend.
type Option func(*Backend)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *Backend) { b.httpClient = c }
}

// WithModels sets the list of heads this backend serves.
func WithModels(models ...council.ModelID) Option {
	return func(b *Backend) { b.models = models }
}

// WithAPIKey sets the bearer token sent with each request.
func WithAPIKey(key string) Option {
	return func(b *Backend) { b.apiKey = key }
}

// New creates a new OpenAI-compatible backend.
func New(name, baseURL string, opts ...Option) *Backend {
	b := &Backend{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) ServesModel(model council.ModelID) bool {
	if len(b.models) == 0 {
		return true // no filter, accept all
	}
	for _, m := range b.models {
		if m == model {
			return true
		}
	}
	return false
}

// apiRequest is the OpenAI chat completion request format.
type apiRequest struct {
	Model     string       `json:"model"`
	Messages  []apiMessage `json:"messages"`
	MaxTokens *int         `json:"max_tokens,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// apiResponse is the OpenAI chat completion response format.
type apiResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int        `json:"index"`
		Message      apiMessage `json:"message"`
		FinishReason string     `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate performs a synchronous completion against /chat/completions.
func (b *Backend) Generate(ctx context.Context, req council.GenRequest) (council.GenResponse, error) {
	body := apiRequest{
		Model:    string(req.Model),
		Messages: []apiMessage{{Role: "user", Content: req.Prompt}},
	}
	if req.MaxTokens > 0 {
		mt := req.MaxTokens
		body.MaxTokens = &mt
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return council.GenResponse{}, fmt.Errorf("council: marshal request: %w", err)
	}

	url := b.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return council.GenResponse{}, fmt.Errorf("council: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	httpResp, err := b.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return council.GenResponse{}, ctx.Err()
		}
		return council.GenResponse{}, council.ErrBackendUnavailable
	}
	defer httpResp.Body.Close()

	if err := mapHTTPError(httpResp); err != nil {
		return council.GenResponse{}, err
	}

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return council.GenResponse{}, fmt.Errorf("council: decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return council.GenResponse{}, fmt.Errorf("council: empty choices in response")
	}

	return council.GenResponse{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}

func mapHTTPError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Read body for error context, but don't fail if we can't.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return council.ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return council.ErrAuthFailed
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", council.ErrInvalidRequest, string(body))
	case http.StatusNotFound:
		return council.ErrModelNotFound
	default:
		return council.ErrBackendUnavailable
	}
}
