package models

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gessage/gcm/internal/ai"
)

func ollamaServer(t *testing.T) (*httptest.Server, *http.Header, *map[string]any) {
	t.Helper()
	var hdr http.Header
	var last map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tags":
			_, _ = w.Write([]byte(`{"models":[{"name":"mistral:latest","model":"mistral:latest"}]}`))
		case "/api/generate":
			last = map[string]any{}
			_ = json.NewDecoder(r.Body).Decode(&last)
			if last["model"] == "missing" {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{}`))
				return
			}
			if last["model"] == "silent" {
				_, _ = w.Write([]byte(`{"model":"silent","response":"  \n","done":true}` + "\n"))
				return
			}
			_, _ = w.Write([]byte(`{"model":"llama3","response":" docs: update readme \n","done":true,"prompt_eval_count":12,"eval_count":4}` + "\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hdr, &last
}

func TestNewOllamaValidates(t *testing.T) {
	_, err := NewOllama(OllamaOptions{Host: "not a url", Model: "llama3"})
	assert.Error(t, err)
	_, err = NewOllama(OllamaOptions{Host: "http://localhost:11434", Model: " "})
	assert.Error(t, err)
	_, err = NewOllama(OllamaOptions{Model: "llama3"})
	assert.NoError(t, err)
}

func TestOllamaQuery(t *testing.T) {
	srv, hdr, last := ollamaServer(t)
	c, err := NewOllama(OllamaOptions{Host: srv.URL, APIKey: "secret", Model: "llama3", MaxTokens: 42, Log: zerolog.Nop()})
	require.NoError(t, err)

	res := c.Query(context.Background(), "describe")
	require.True(t, res.OK(), res.Text)
	assert.Equal(t, "Ollama", res.Provider)
	assert.Equal(t, "llama3", res.Model)
	assert.Equal(t, "docs: update readme", res.Text)
	assert.Equal(t, &ai.Usage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16}, res.Usage)
	assert.Equal(t, "Bearer secret", hdr.Get("Authorization"))
	assert.Equal(t, false, (*last)["stream"])
	assert.Equal(t, "describe", (*last)["prompt"])
	assert.EqualValues(t, 42, (*last)["options"].(map[string]any)["num_predict"])
}

func TestOllamaQueryRandomModel(t *testing.T) {
	srv, _, last := ollamaServer(t)
	c, err := NewOllama(OllamaOptions{Host: srv.URL, Model: "RANDOM", Log: zerolog.Nop()})
	require.NoError(t, err)

	res := c.Query(context.Background(), "p")
	require.True(t, res.OK(), res.Text)
	assert.Equal(t, "mistral:latest", res.Model)
	assert.Equal(t, "mistral:latest", (*last)["model"])
}

func TestOllamaEmptyCompletionIsPlaceholder(t *testing.T) {
	srv, _, _ := ollamaServer(t)
	c, err := NewOllama(OllamaOptions{Host: srv.URL, Model: "silent", Log: zerolog.Nop()})
	require.NoError(t, err)

	res := c.Query(context.Background(), "p")
	assert.Equal(t, ai.StatusOK, res.StatusCode)
	assert.True(t, res.Placeholder)
	assert.False(t, res.OK())
	assert.Equal(t, noValidResponse, res.Text)
}

func TestOllamaQueryFailures(t *testing.T) {
	srv, _, _ := ollamaServer(t)
	c, err := NewOllama(OllamaOptions{Host: srv.URL, Model: "missing", Log: zerolog.Nop()})
	require.NoError(t, err)
	res := c.Query(context.Background(), "p")
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.False(t, res.OK())

	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	c, err = NewOllama(OllamaOptions{Host: closed.URL, Model: "llama3", Log: zerolog.Nop()})
	require.NoError(t, err)
	res = c.Query(context.Background(), "p")
	assert.Equal(t, ai.StatusTransport, res.StatusCode)
	assert.NotEmpty(t, res.Text)
}
