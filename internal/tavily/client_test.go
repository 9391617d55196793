package tavily

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/agrivoice/agrivoice/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	var gotAuth string
	var gotBody searchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/search", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"url": "https://icar.example/wheat", "title": "Wheat advisory", "score": 0.93},
				{"url": "https://agri.example/msp", "title": "MSP notice", "score": 0.81},
			},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	hits, err := client.Search(context.Background(), "wheat msp", 5)

	require.NoError(t, err)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, searchRequest{Query: "wheat msp", MaxResults: 5}, gotBody)
	require.Len(t, hits, 2)
	assert.Equal(t, domain.SearchHit{URL: "https://icar.example/wheat", Title: "Wheat advisory", Score: 0.93}, hits[0])
}

func TestSearch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	hits, err := client.Search(context.Background(), "anything", 5)

	assert.ErrorIs(t, err, domain.ErrSearchUnavailable)
	assert.Nil(t, hits)
}

func TestExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/extract", r.URL.Path)
		var body extractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, []string{"https://agri.example/page"}, body.URLs)

		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"url": "https://agri.example/page", "raw_content": "full page text"},
			},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	result, err := client.Extract(context.Background(), "https://agri.example/page")

	require.NoError(t, err)
	assert.Equal(t, domain.ExtractResult{Source: "https://agri.example/page", Content: "full page text"}, result)
}

func TestExtract_FailedResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{},
			"failed_results": []map[string]any{
				{"url": "https://dead.example", "error": "403 forbidden"},
			},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.Extract(context.Background(), "https://dead.example")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "403 forbidden")
}

func TestExtract_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": []map[string]any{}})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	_, err := client.Extract(context.Background(), "https://empty.example")

	assert.ErrorIs(t, err, ErrNoContent)
}

func TestFetchContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{
				{"url": "https://agri.example/page", "raw_content": "scraped body"},
			},
		})
	}))
	defer server.Close()

	client := NewClient("test-key", WithBaseURL(server.URL))
	text, err := client.FetchContent(context.Background(), "https://agri.example/page")

	require.NoError(t, err)
	assert.Equal(t, "scraped body", text)
}

func TestNewClientFromEnv_MissingKey(t *testing.T) {
	t.Setenv("TAVILY_API_KEY", "")
	_, err := NewClientFromEnv()
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
