// Package ollama is a thin HTTP client for a local Ollama server. Only
// the non-streaming endpoints mindloom needs are covered.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mindloom/internal/logging"
)

// DefaultBaseURL is where a stock Ollama install listens.
const DefaultBaseURL = "http://localhost:11434"

// Config controls the client connection.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to one Ollama server.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logging.Logger
}

// New returns a client for the given config. Zero values fall back to
// DefaultBaseURL and a 30 second timeout.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     logging.Get(logging.CategoryOllama),
	}
}

// Options are the sampling parameters forwarded with a generate call.
type Options struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

// GenerateRequest is the /api/generate payload. Streaming is always
// disabled; the TUI renders whole replies.
type GenerateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options Options `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Model is one entry from /api/tags.
type Model struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	ModifiedAt time.Time `json:"modified_at"`
}

type tagsResponse struct {
	Models []Model `json:"models"`
}

type embeddingsRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingsResponse struct {
	Embedding []float64 `json:"embedding"`
}

type versionResponse struct {
	Version string `json:"version"`
}

// Available reports whether the server answers at all.
func (c *Client) Available(ctx context.Context) bool {
	_, err := c.ListModels(ctx)
	return err == nil
}

// ListModels returns the locally installed models.
func (c *Client) ListModels(ctx context.Context) ([]Model, error) {
	var out tagsResponse
	if err := c.get(ctx, "/api/tags", &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// Generate runs one non-streaming completion and returns the reply
// text.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	req.Stream = false
	start := time.Now()
	var out generateResponse
	if err := c.post(ctx, "/api/generate", req, &out); err != nil {
		return "", err
	}
	c.log.Info("generate model=%s prompt=%dB took=%s", req.Model, len(req.Prompt), time.Since(start))
	return out.Response, nil
}

// Embeddings returns the embedding vector for the prompt.
func (c *Client) Embeddings(ctx context.Context, model, prompt string) ([]float64, error) {
	var out embeddingsResponse
	err := c.post(ctx, "/api/embeddings", embeddingsRequest{Model: model, Prompt: prompt}, &out)
	if err != nil {
		return nil, err
	}
	return out.Embedding, nil
}

// Pull asks the server to download a model. Blocks until the pull
// completes or the context expires, so callers should pass a generous
// deadline.
func (c *Client) Pull(ctx context.Context, model string) error {
	payload := map[string]any{"name": model, "stream": false}
	return c.post(ctx, "/api/pull", payload, &struct {
		Status string `json:"status"`
	}{})
}

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var out versionResponse
	if err := c.get(ctx, "/api/version", &out); err != nil {
		return "", err
	}
	return out.Version, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("%s %s: %v", req.Method, req.URL.Path, err)
		return fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
		return fmt.Errorf("ollama: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, snippet)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ollama: decode %s: %w", req.URL.Path, err)
	}
	return nil
}
