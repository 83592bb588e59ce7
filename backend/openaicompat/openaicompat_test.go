package openaicompat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/democratizeAI/council"
	"github.com/democratizeAI/council/backend/openaicompat"
)

func completionHandler(t *testing.T, text string, tokens int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)

		json.NewEncoder(w).Encode(map[string]any{
			"id":    "cmpl-1",
			"model": req.Model,
			"choices": []map[string]any{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": text}},
			},
			"usage": map[string]int{"total_tokens": tokens},
		})
	}
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(completionHandler(t, "The answer is 4. CONF=0.95", 42))
	defer srv.Close()

	b := openaicompat.New("test", srv.URL, openaicompat.WithModels("math_head"))

	resp, err := b.Generate(context.Background(), council.GenRequest{
		Model:  "math_head",
		Prompt: "what is 2+2?",
	})
	require.NoError(t, err)
	assert.Equal(t, "The answer is 4. CONF=0.95", resp.Text)
	assert.Equal(t, 42, resp.TokensUsed)
}

func TestGenerate_SendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		completionHandler(t, "ok then, noted", 5)(w, r)
	}))
	defer srv.Close()

	b := openaicompat.New("test", srv.URL, openaicompat.WithAPIKey("sk-test-123"))

	_, err := b.Generate(context.Background(), council.GenRequest{Model: "m", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test-123", gotAuth)
}

func TestGenerate_ErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, council.ErrRateLimited},
		{http.StatusUnauthorized, council.ErrAuthFailed},
		{http.StatusForbidden, council.ErrAuthFailed},
		{http.StatusBadRequest, council.ErrInvalidRequest},
		{http.StatusNotFound, council.ErrModelNotFound},
		{http.StatusInternalServerError, council.ErrBackendUnavailable},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tt.status)
		}))

		b := openaicompat.New("test", srv.URL)
		_, err := b.Generate(context.Background(), council.GenRequest{Model: "m", Prompt: "p"})
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)

		srv.Close()
	}
}

func TestGenerate_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(completionHandler(t, "too late", 1))
	defer srv.Close()

	b := openaicompat.New("test", srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Generate(ctx, council.GenRequest{Model: "m", Prompt: "p"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestServesModel(t *testing.T) {
	open := openaicompat.New("open", "http://example.invalid")
	assert.True(t, open.ServesModel("anything"))

	scoped := openaicompat.New("scoped", "http://example.invalid",
		openaicompat.WithModels("math_head"))
	assert.True(t, scoped.ServesModel("math_head"))
	assert.False(t, scoped.ServesModel("other"))
}
