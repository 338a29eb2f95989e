// Package chroma is a minimal HTTP client for the ChromaDB v1 REST
// API, covering collection management and vector add/query/delete.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"mindloom/internal/logging"
)

// DefaultBaseURL is where a local ChromaDB server listens.
const DefaultBaseURL = "http://localhost:8000"

// Config controls the client connection. Token, if set, is sent as a
// bearer credential.
type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to one ChromaDB server.
type Client struct {
	baseURL string
	token   string
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
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     logging.Get(logging.CategoryChroma),
	}
}

// Collection is a named vector collection.
type Collection struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AddRequest carries parallel slices; all must have equal length.
type AddRequest struct {
	IDs        []string         `json:"ids"`
	Embeddings [][]float64      `json:"embeddings"`
	Documents  []string         `json:"documents"`
	Metadatas  []map[string]any `json:"metadatas,omitempty"`
}

// QueryRequest asks for the NResults nearest documents per query
// embedding.
type QueryRequest struct {
	QueryEmbeddings [][]float64    `json:"query_embeddings"`
	NResults        int            `json:"n_results"`
	Where           map[string]any `json:"where,omitempty"`
}

// QueryResult mirrors Chroma's column-per-query layout: the outer
// slice is one entry per query embedding.
type QueryResult struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Distances [][]float64        `json:"distances"`
	Metadatas [][]map[string]any `json:"metadatas"`
}

// Available reports whether the server answers the heartbeat.
func (c *Client) Available(ctx context.Context) bool {
	err := c.get(ctx, "/api/v1/heartbeat", &struct {
		Heartbeat int64 `json:"nanosecond heartbeat"`
	}{})
	return err == nil
}

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	// The version endpoint returns a bare JSON string.
	var v string
	if err := c.get(ctx, "/api/v1/version", &v); err != nil {
		return "", err
	}
	return v, nil
}

// ListCollections returns all collections.
func (c *Client) ListCollections(ctx context.Context) ([]Collection, error) {
	var out []Collection
	if err := c.get(ctx, "/api/v1/collections", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCollection creates a collection; fails if the name exists.
func (c *Client) CreateCollection(ctx context.Context, name string) (Collection, error) {
	var out Collection
	err := c.post(ctx, "/api/v1/collections", map[string]any{"name": name}, &out)
	return out, err
}

// GetCollection fetches a collection by name.
func (c *Client) GetCollection(ctx context.Context, name string) (Collection, error) {
	var out Collection
	err := c.get(ctx, "/api/v1/collections/"+url.PathEscape(name), &out)
	return out, err
}

// EnsureCollection returns the named collection, creating it when
// missing.
func (c *Client) EnsureCollection(ctx context.Context, name string) (Collection, error) {
	col, err := c.GetCollection(ctx, name)
	if err == nil {
		return col, nil
	}
	var out Collection
	err = c.post(ctx, "/api/v1/collections", map[string]any{
		"name":          name,
		"get_or_create": true,
	}, &out)
	return out, err
}

// DeleteCollection removes a collection and all its contents.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	return c.delete(ctx, "/api/v1/collections/"+url.PathEscape(name))
}

// Add inserts documents with their embeddings into a collection.
func (c *Client) Add(ctx context.Context, collection string, req AddRequest) error {
	if len(req.IDs) != len(req.Embeddings) || len(req.IDs) != len(req.Documents) {
		return fmt.Errorf("chroma: add: ids/embeddings/documents length mismatch")
	}
	path := "/api/v1/collections/" + url.PathEscape(collection) + "/add"
	return c.post(ctx, path, req, &struct{}{})
}

// Query returns the nearest documents for each query embedding.
func (c *Client) Query(ctx context.Context, collection string, req QueryRequest) (QueryResult, error) {
	if req.NResults <= 0 {
		req.NResults = 5
	}
	var out QueryResult
	path := "/api/v1/collections/" + url.PathEscape(collection) + "/query"
	err := c.post(ctx, path, req, &out)
	return out, err
}

// Delete removes the documents with the given ids from a collection.
func (c *Client) Delete(ctx context.Context, collection string, ids []string) error {
	path := "/api/v1/collections/" + url.PathEscape(collection) + "/delete"
	return c.post(ctx, path, map[string]any{"ids": ids}, &struct{}{})
}

// Count returns the number of documents in a collection.
func (c *Client) Count(ctx context.Context, collection string) (int, error) {
	var n int
	path := "/api/v1/collections/" + url.PathEscape(collection) + "/count"
	err := c.get(ctx, path, &n)
	return n, err
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

func (c *Client) delete(ctx context.Context, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, &struct{}{})
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("%s %s: %v", req.Method, req.URL.Path, err)
		return fmt.Errorf("chroma: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Error("%s %s: status %d", req.Method, req.URL.Path, resp.StatusCode)
		return fmt.Errorf("chroma: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, snippet)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("chroma: decode %s: %w", req.URL.Path, err)
	}
	return nil
}
