package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"

	"github.com/foxzi/copysmith/internal/metrics"
)

// TavilyOptions configures the Tavily search client
type TavilyOptions struct {
	BaseURL     string
	APIKey      string
	SearchDepth string
	MaxResults  int
	Timeout     time.Duration
}

// TavilyClient extracts page content through the Tavily search API
type TavilyClient struct {
	baseURL     string
	apiKey      string
	searchDepth string
	maxResults  int
	httpClient  *http.Client
	converter   *md.Converter
}

// NewTavilyClient creates a new Tavily client
func NewTavilyClient(opts TavilyOptions) *TavilyClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.tavily.com"
	}
	if opts.SearchDepth == "" {
		opts.SearchDepth = "advanced"
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	return &TavilyClient{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		apiKey:      opts.APIKey,
		searchDepth: opts.SearchDepth,
		maxResults:  opts.MaxResults,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		converter: md.NewConverter("", true, nil),
	}
}

type searchRequest struct {
	Query          string   `json:"query"`
	SearchDepth    string   `json:"search_depth"`
	IncludeDomains []string `json:"include_domains"`
	MaxResults     int      `json:"max_results"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Content    string `json:"content"`
	RawContent string `json:"raw_content,omitempty"`
}

// Extract searches the page's own host for content about the page
func (c *TavilyClient) Extract(ctx context.Context, pageURL string) ([]Fragment, error) {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return nil, fmt.Errorf("invalid page url %q", pageURL)
	}

	body := searchRequest{
		Query:          "Extract key information from this website: " + pageURL,
		SearchDepth:    c.searchDepth,
		IncludeDomains: []string{u.Hostname()},
		MaxResults:     c.maxResults,
	}

	var resp searchResponse
	if err := c.request(ctx, http.MethodPost, "/search", body, &resp); err != nil {
		return nil, err
	}

	fragments := make([]Fragment, 0, len(resp.Results))
	for _, r := range resp.Results {
		text := r.Content
		if strings.TrimSpace(text) == "" {
			text = r.RawContent
		}
		content, err := toMarkdown(c.converter, text)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, Fragment{Title: r.Title, URL: r.URL, Content: content})
	}
	return fragments, nil
}

// request performs an HTTP request to the Tavily API
func (c *TavilyClient) request(ctx context.Context, method, path string, body any, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncExternalCalls(serviceTavily, statusError)
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IncExternalCalls(serviceTavily, statusError)
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &ExternalServiceError{Service: "Tavily", Status: resp.StatusCode, Body: string(data)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			metrics.IncExternalCalls(serviceTavily, statusError)
			return fmt.Errorf("decode response: %w", err)
		}
	}

	metrics.IncExternalCalls(serviceTavily, statusOK)
	return nil
}
