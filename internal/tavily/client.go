// Package tavily is a minimal client for the Tavily search and extract API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/agrivoice/agrivoice/internal/domain"
)

const (
	defaultBaseURL = "https://api.tavily.com"
	searchPath     = "/search"
	extractPath    = "/extract"

	defaultTimeout = 30 * time.Second
)

var (
	// ErrNoAPIKey is returned when the Tavily API key is not set
	ErrNoAPIKey = errors.New("TAVILY_API_KEY environment variable not set")
	// ErrNoContent is returned when extraction yields no usable text
	ErrNoContent = errors.New("extraction returned no content")
)

// Client calls the Tavily REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithBaseURL overrides the API endpoint, primarily for tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromEnv creates a client using the TAVILY_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("TAVILY_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

type searchResponse struct {
	Results []struct {
		URL     string  `json:"url"`
		Title   string  `json:"title"`
		Score   float64 `json:"score"`
		Content string  `json:"content"`
	} `json:"results"`
}

// Search returns up to maxResults web hits for the query, in the API's
// relevance order.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]domain.SearchHit, error) {
	var resp searchResponse
	err := c.post(ctx, searchPath, searchRequest{Query: query, MaxResults: maxResults}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSearchUnavailable, err)
	}

	hits := make([]domain.SearchHit, 0, len(resp.Results))
	for _, r := range resp.Results {
		hits = append(hits, domain.SearchHit{
			URL:   r.URL,
			Title: r.Title,
			Score: r.Score,
		})
	}
	return hits, nil
}

type extractRequest struct {
	URLs []string `json:"urls"`
}

type extractResponse struct {
	Results []struct {
		URL        string `json:"url"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
	FailedResults []struct {
		URL   string `json:"url"`
		Error string `json:"error"`
	} `json:"failed_results"`
}

// Extract fetches the page content of one source URL.
func (c *Client) Extract(ctx context.Context, source string) (domain.ExtractResult, error) {
	var resp extractResponse
	err := c.post(ctx, extractPath, extractRequest{URLs: []string{source}}, &resp)
	if err != nil {
		return domain.ExtractResult{}, fmt.Errorf("%w: %v", domain.ErrExtractUnavailable, err)
	}

	for _, r := range resp.Results {
		if r.RawContent != "" {
			return domain.ExtractResult{Source: source, Content: r.RawContent}, nil
		}
	}
	for _, f := range resp.FailedResults {
		return domain.ExtractResult{}, fmt.Errorf("extracting %s: %s", f.URL, f.Error)
	}
	return domain.ExtractResult{}, ErrNoContent
}

// FetchContent adapts Extract to the ingestion pipeline's fetcher shape.
func (c *Client) FetchContent(ctx context.Context, source string) (string, error) {
	result, err := c.Extract(ctx, source)
	if err != nil {
		return "", err
	}
	return result.Content, nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
