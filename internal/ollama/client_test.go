package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL})
}

func TestListModels(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"name": "llama3.2", "size": 123},
				{"name": "nomic-embed-text", "size": 456},
			},
		})
	})

	models, err := c.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "llama3.2", models[0].Name)
	assert.True(t, c.Available(context.Background()))
}

func TestGenerate(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3.2", req.Model)
		assert.False(t, req.Stream, "streaming must be disabled")
		assert.Equal(t, 0.7, req.Options.Temperature)
		json.NewEncoder(w).Encode(map[string]any{"response": "hello there", "done": true})
	})

	reply, err := c.Generate(context.Background(), GenerateRequest{
		Model:   "llama3.2",
		Prompt:  "say hello",
		Options: Options{Temperature: 0.7, TopP: 0.9},
	})
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)
}

func TestGenerateServerError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	})

	_, err := c.Generate(context.Background(), GenerateRequest{Model: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestEmbeddings(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req["model"])
		json.NewEncoder(w).Encode(map[string]any{"embedding": []float64{0.1, 0.2, 0.3}})
	})

	vec, err := c.Embeddings(context.Background(), "nomic-embed-text", "some text")
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2, 0.3}, vec)
}

func TestVersion(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/version", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"version": "0.5.4"})
	})

	v, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.5.4", v)
}

func TestUnavailableServer(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1"})
	assert.False(t, c.Available(context.Background()))
}
