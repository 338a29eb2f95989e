package chroma

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

func TestAvailable(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/heartbeat", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]int64{"nanosecond heartbeat": 1})
	})
	assert.True(t, c.Available(context.Background()))

	down := New(Config{BaseURL: "http://127.0.0.1:1"})
	assert.False(t, down.Available(context.Background()))
}

func TestEnsureCollectionCreatesWhenMissing(t *testing.T) {
	created := false
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/v1/collections/docs":
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		case r.Method == http.MethodPost && r.URL.Path == "/api/v1/collections":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "docs", body["name"])
			assert.Equal(t, true, body["get_or_create"])
			created = true
			json.NewEncoder(w).Encode(Collection{ID: "c1", Name: "docs"})
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	})

	col, err := c.EnsureCollection(context.Background(), "docs")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "c1", col.ID)
}

func TestEnsureCollectionReturnsExisting(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		json.NewEncoder(w).Encode(Collection{ID: "c1", Name: "docs"})
	})

	col, err := c.EnsureCollection(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, "c1", col.ID)
}

func TestAddValidatesLengths(t *testing.T) {
	c := New(Config{})
	err := c.Add(context.Background(), "docs", AddRequest{
		IDs:        []string{"a", "b"},
		Embeddings: [][]float64{{0.1}},
		Documents:  []string{"one", "two"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "length mismatch")
}

func TestAddAndQuery(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/collections/docs/add":
			var req AddRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"chunk-1"}, req.IDs)
			w.Write([]byte("true"))
		case "/api/v1/collections/docs/query":
			var req QueryRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, 3, req.NResults)
			json.NewEncoder(w).Encode(QueryResult{
				IDs:       [][]string{{"chunk-1"}},
				Documents: [][]string{{"hello"}},
				Distances: [][]float64{{0.12}},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	err := c.Add(context.Background(), "docs", AddRequest{
		IDs:        []string{"chunk-1"},
		Embeddings: [][]float64{{0.1, 0.2}},
		Documents:  []string{"hello"},
	})
	require.NoError(t, err)

	res, err := c.Query(context.Background(), "docs", QueryRequest{
		QueryEmbeddings: [][]float64{{0.1, 0.2}},
		NResults:        3,
	})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	assert.Equal(t, "hello", res.Documents[0][0])
}

func TestDeleteAndCount(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/collections/docs/delete":
			var body map[string][]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []string{"chunk-1"}, body["ids"])
			w.Write([]byte("[]"))
		case "/api/v1/collections/docs/count":
			w.Write([]byte("41"))
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	require.NoError(t, c.Delete(context.Background(), "docs", []string{"chunk-1"}))
	n, err := c.Count(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, 41, n)
}

func TestBearerToken(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode(map[string]int64{"nanosecond heartbeat": 1})
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Token: "secret"})
	require.True(t, c.Available(context.Background()))
	assert.Equal(t, "Bearer secret", got)
}
