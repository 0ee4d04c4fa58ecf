package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfrag/internal/llm"
)

func TestGenerate_SendsRequestAndTrims(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  The answer [1].\n"}}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/v1/", "sk-test", 0)
	out, err := c.Generate(context.Background(), llm.Request{
		Model:       "gpt-4o-mini",
		System:      "be grounded",
		Prompt:      "Context: ...",
		Temperature: 0.2,
		MaxTokens:   500,
	})
	require.NoError(t, err)
	assert.Equal(t, "The answer [1].", out)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.InDelta(t, 0.2, got.Temperature, 1e-6)
	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Equal(t, "Context: ...", got.Messages[1].Content)
}

func TestGenerate_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "sk-bad", 0).Generate(context.Background(), llm.Request{Prompt: "q"})
	var se *llm.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Contains(t, se.Message, "bad key")
}

func TestGenerate_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, "sk", 0).Generate(context.Background(), llm.Request{Prompt: "q"})
	assert.ErrorIs(t, err, llm.ErrTransport)
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "sk", 0).Generate(context.Background(), llm.Request{Prompt: "q"})
	require.Error(t, err)
	assert.False(t, llm.IsConnection(err))
}
